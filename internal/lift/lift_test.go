package lift

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"luafuzz/internal/ir"
)

func TestLiftInlinesPureArithmeticIntoCallArgument(t *testing.T) {
	v0 := ir.NewVariable(0)
	v1 := ir.NewVariable(1)
	v2 := ir.NewVariable(2)
	v3 := ir.NewVariable(3)
	v4 := ir.NewVariable(4)

	code := ir.Code{
		ir.NewInstruction(ir.LoadNumber{Value: 2}, nil, []ir.Variable{v0}, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 3}, nil, []ir.Variable{v1}, nil, nil),
		ir.NewInstruction(ir.Binary{Op: "+"}, []ir.Variable{v0, v1}, []ir.Variable{v2}, nil, nil),
		ir.NewInstruction(ir.LoadBuiltin{Name_: "print"}, nil, []ir.Variable{v3}, nil, nil),
		ir.NewInstruction(ir.CallFunction{NumArguments: 1}, []ir.Variable{v3, v2}, []ir.Variable{v4}, nil, nil),
	}

	out := Lift(code)
	assert.Contains(t, out, "print((2 + 3))")
}

func TestLiftRendersIfElseWithBothBranchesAsStatements(t *testing.T) {
	cond := ir.NewVariable(0)
	target := ir.NewVariable(1)
	a := ir.NewVariable(2)
	b := ir.NewVariable(3)

	code := ir.Code{
		ir.NewInstruction(ir.LoadBoolean{Value: true}, nil, []ir.Variable{cond}, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 0}, nil, []ir.Variable{target}, nil, nil),
		ir.NewInstruction(ir.BeginIf{}, []ir.Variable{cond}, nil, nil, nil),
		ir.NewInstruction(ir.LoadString{Value: "hot"}, nil, []ir.Variable{a}, nil, nil),
		ir.NewInstruction(ir.Reassign{}, []ir.Variable{target, a}, nil, nil, nil),
		ir.NewInstruction(ir.BeginElse{}, nil, nil, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 42}, nil, []ir.Variable{b}, nil, nil),
		ir.NewInstruction(ir.Reassign{}, []ir.Variable{target, b}, nil, nil, nil),
		ir.NewInstruction(ir.EndIf{}, nil, nil, nil, nil),
	}

	out := Lift(code)
	assert.Contains(t, out, "if true then")
	assert.Contains(t, out, "else")
	assert.Contains(t, out, `"hot"`)
	assert.Contains(t, out, "42")
}

func TestLiftForLoopEmitsAfterthoughtAfterBodyText(t *testing.T) {
	i := ir.NewVariable(0)
	zero := ir.NewVariable(1)
	five := ir.NewVariable(2)
	condVar := ir.NewVariable(3)
	condOut := ir.NewVariable(4)
	one := ir.NewVariable(5)
	printVar := ir.NewVariable(6)
	callOut := ir.NewVariable(7)

	code := ir.Code{
		ir.NewInstruction(ir.BeginForLoopInitializer{}, nil, nil, []ir.Variable{i}, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 0}, nil, []ir.Variable{zero}, nil, nil),
		ir.NewInstruction(ir.Reassign{}, []ir.Variable{i, zero}, nil, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 5}, nil, []ir.Variable{five}, nil, nil),
		ir.NewInstruction(ir.Compare{Op: "<"}, []ir.Variable{i, five}, []ir.Variable{condVar}, nil, nil),
		ir.NewInstruction(ir.BeginForLoopCondition{}, []ir.Variable{condVar}, []ir.Variable{condOut}, nil, nil),
		ir.NewInstruction(ir.BeginForLoopAfterthought{}, []ir.Variable{condOut}, nil, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{one}, nil, nil),
		ir.NewInstruction(ir.Update{Op: "+"}, []ir.Variable{i, one}, nil, nil, nil),
		ir.NewInstruction(ir.BeginForLoopBody{}, []ir.Variable{condOut}, nil, nil, nil),
		ir.NewInstruction(ir.LoadBuiltin{Name_: "print"}, nil, []ir.Variable{printVar}, nil, nil),
		ir.NewInstruction(ir.CallFunction{NumArguments: 1}, []ir.Variable{printVar, i}, []ir.Variable{callOut}, nil, nil),
		ir.NewInstruction(ir.EndForLoop{}, nil, nil, nil, nil),
	}

	out := Lift(code)
	printIdx := strings.Index(out, "print(")
	afterthoughtIdx := strings.Index(out, "v0 = v0 + 1")
	if assert.NotEqual(t, -1, printIdx) && assert.NotEqual(t, -1, afterthoughtIdx) {
		assert.Less(t, printIdx, afterthoughtIdx, "afterthought statement must be emitted after the body call")
	}
	assert.Contains(t, out, "while true do")
	assert.Contains(t, out, "if not ((v0 < 5)) then break end")
}

func TestLiftTableLiteralEmitsPropertyAssignments(t *testing.T) {
	tbl := ir.NewVariable(0)
	value := ir.NewVariable(1)

	code := ir.Code{
		ir.NewInstruction(ir.BeginTable{}, nil, []ir.Variable{tbl}, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 7}, nil, []ir.Variable{value}, nil, nil),
		ir.NewInstruction(ir.TableAddProperty{Name_: "x"}, []ir.Variable{tbl, value}, nil, nil, nil),
		ir.NewInstruction(ir.EndTable{}, nil, nil, nil, nil),
	}

	out := Lift(code)
	assert.Contains(t, out, "local v0 = {}")
	assert.Contains(t, out, "v0.x = 7")
}
