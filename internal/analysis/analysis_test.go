package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"luafuzz/internal/ir"
)

func TestContextAnalyzerTracksLoopEntryAndExit(t *testing.T) {
	c := NewContextAnalyzer()
	assert.Equal(t, ir.ContextScript, c.Current())

	header := ir.NewInstruction(ir.BeginWhileLoopHeader{}, nil, []ir.Variable{ir.NewVariable(0)}, nil, nil)
	c.Step(header)

	cond := ir.NewVariable(1)
	body := ir.NewInstruction(ir.BeginWhileLoopBody{}, []ir.Variable{cond}, nil, nil, nil)
	c.Step(body)
	assert.True(t, c.Current().Contains(ir.ContextLoop))

	end := ir.NewInstruction(ir.EndWhileLoop{}, nil, nil, nil, nil)
	c.Step(end)
	assert.Equal(t, ir.ContextScript, c.Current())
}

func TestScopeAnalyzerDropsLocalsAtBlockExit(t *testing.T) {
	s := NewScopeAnalyzer()
	v0 := ir.NewVariable(0)

	s.Step(ir.NewInstruction(ir.LoadBoolean{Value: true}, nil, []ir.Variable{v0}, nil, nil))
	assert.Contains(t, s.VisibleLocals(), v0.ID())

	s.Step(ir.NewInstruction(ir.BeginIf{}, []ir.Variable{v0}, nil, nil, nil))
	v1 := ir.NewVariable(1)
	s.Step(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v1}, nil, nil))
	assert.Contains(t, s.VisibleLocals(), v1.ID())

	s.Step(ir.NewInstruction(ir.EndIf{}, nil, nil, nil, nil))
	assert.NotContains(t, s.VisibleLocals(), v1.ID())
	assert.Contains(t, s.VisibleLocals(), v0.ID())
}

func TestScopeAnalyzerRecordsGlobalPromotion(t *testing.T) {
	s := NewScopeAnalyzer()
	g0 := ir.NewGlobalVariable(0)
	s.Step(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{g0}, nil, nil))
	assert.True(t, s.IsPromoted(g0.ID()))
}

func TestDefUseTracksDefinitionAndUses(t *testing.T) {
	du := NewDefUse()
	v0 := ir.NewVariable(0)
	v1 := ir.NewVariable(1)

	du.Step(0, ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v0}, nil, nil))
	du.Step(1, ir.NewInstruction(ir.Unary{Op: "-"}, []ir.Variable{v0}, []ir.Variable{v1}, nil, nil))
	du.Finalize()

	idx, ok := du.DefIndex(v0.ID())
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, []int{1}, du.Uses(v0.ID()))
	assert.True(t, du.IsUnused(v1.ID()))
}

func TestDeadCodeAnalyzerFlagsInstructionsAfterJump(t *testing.T) {
	d := NewDeadCodeAnalyzer()

	assert.False(t, d.Step(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{ir.NewVariable(0)}, nil, nil)))
	assert.False(t, d.Step(ir.NewInstruction(ir.Return{HasValue: false}, nil, nil, nil, nil)))
	assert.True(t, d.Step(ir.NewInstruction(ir.Nop{}, nil, nil, nil, nil)))
}
