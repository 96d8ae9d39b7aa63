package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idx(i int64) *int64 { return &i }

func TestStaticValidateAcceptsSimpleLinearProgram(t *testing.T) {
	v0 := NewVariable(0)
	v1 := NewVariable(1)
	v2 := NewVariable(2)

	code := Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v0}, nil, nil),
		NewInstruction(LoadNumber{Value: 2}, nil, []Variable{v1}, nil, nil),
		NewInstruction(Binary{Op: "+"}, []Variable{v0, v1}, []Variable{v2}, nil, nil),
	}

	assert.NoError(t, code.StaticValidate())
}

func TestStaticValidateRejectsUseBeforeDefinition(t *testing.T) {
	v0 := NewVariable(0)
	v1 := NewVariable(1)

	code := Code{
		NewInstruction(Unary{Op: "-"}, []Variable{v1}, []Variable{v0}, nil, nil),
	}

	err := code.StaticValidate()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, verr.Index)
}

func TestStaticValidateRejectsOutOfScopeVariableAfterBlockEnd(t *testing.T) {
	v0 := NewVariable(0)
	v1 := NewVariable(1)
	v2 := NewVariable(2)

	code := Code{
		NewInstruction(LoadBoolean{Value: true}, nil, []Variable{v0}, nil, nil),
		NewInstruction(BeginIf{}, []Variable{v0}, nil, nil, nil),
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v1}, nil, nil),
		NewInstruction(EndIf{}, nil, nil, nil, nil),
		// v1 was scoped to the if-block; using it here must fail.
		NewInstruction(Unary{Op: "-"}, []Variable{v1}, []Variable{v2}, nil, nil),
	}

	err := code.StaticValidate()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 4, verr.Index)
}

func TestStaticValidateRejectsMismatchedBlockEnd(t *testing.T) {
	v0 := NewVariable(0)

	code := Code{
		NewInstruction(LoadBoolean{Value: true}, nil, []Variable{v0}, nil, nil),
		NewInstruction(BeginIf{}, []Variable{v0}, nil, nil, nil),
		NewInstruction(EndWhileLoop{}, nil, nil, nil, nil),
	}

	require.Error(t, code.StaticValidate())
}

func TestStaticValidateRejectsUnterminatedBlock(t *testing.T) {
	v0 := NewVariable(0)

	code := Code{
		NewInstruction(LoadBoolean{Value: true}, nil, []Variable{v0}, nil, nil),
		NewInstruction(BeginIf{}, []Variable{v0}, nil, nil, nil),
	}

	require.Error(t, code.StaticValidate())
}

func TestStaticValidateRejectsDuplicateDefinition(t *testing.T) {
	v0 := NewVariable(0)

	code := Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v0}, nil, nil),
		NewInstruction(LoadNumber{Value: 2}, nil, []Variable{v0}, nil, nil),
	}

	require.Error(t, code.StaticValidate())
}

func TestStaticValidateEnforcesRequiredContextForLoopBreak(t *testing.T) {
	code := Code{
		NewInstruction(LoopBreak{}, nil, nil, nil, nil),
	}

	err := code.StaticValidate()
	require.Error(t, err)
}

func TestStaticValidateAllowsLoopBreakInsideLoop(t *testing.T) {
	v0 := NewVariable(0)
	v1 := NewVariable(1)

	code := Code{
		NewInstruction(LoadBoolean{Value: true}, nil, []Variable{v0}, nil, nil),
		NewInstruction(BeginWhileLoopHeader{}, nil, []Variable{v1}, nil, nil),
		NewInstruction(BeginWhileLoopBody{}, []Variable{v0}, nil, nil, nil),
		NewInstruction(LoopBreak{}, nil, nil, nil, nil),
		NewInstruction(EndWhileLoop{}, nil, nil, nil, nil),
	}

	assert.NoError(t, code.StaticValidate())
}

func TestStaticValidateRejectsVariableNumberExceedingMaximum(t *testing.T) {
	v := NewVariable(MaxVariableNumber + 1)

	code := Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v}, nil, nil),
	}

	require.Error(t, code.StaticValidate())
}

func TestGlobalVariableRemainsVisibleAcrossBlockBoundaries(t *testing.T) {
	g0 := NewGlobalVariable(0)
	v1 := NewVariable(1)
	v2 := NewVariable(2)

	code := Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{g0}, nil, nil),
		NewInstruction(LoadBoolean{Value: true}, nil, []Variable{v1}, nil, nil),
		NewInstruction(BeginIf{}, []Variable{v1}, nil, nil, nil),
		NewInstruction(Unary{Op: "-"}, []Variable{g0}, []Variable{v2}, nil, nil),
		NewInstruction(EndIf{}, nil, nil, nil, nil),
	}

	assert.NoError(t, code.StaticValidate())
}

func TestNewProgramAssignsIDAndRejectsInvalidCode(t *testing.T) {
	v0 := NewVariable(0)
	v1 := NewVariable(1)

	good := Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v0}, nil, nil),
	}
	p, err := NewProgram(good, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID().String())
	assert.True(t, p.IsRoot())

	bad := Code{
		NewInstruction(Unary{Op: "-"}, []Variable{v1}, []Variable{v0}, nil, nil),
	}
	_, err = NewProgram(bad, p)
	assert.Error(t, err)
}

func TestProgramTracksParentAndContributors(t *testing.T) {
	v0 := NewVariable(0)
	root, err := NewProgram(Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v0}, nil, nil),
	}, nil)
	require.NoError(t, err)

	v1 := NewVariable(1)
	child, err := NewProgram(Code{
		NewInstruction(LoadNumber{Value: 1}, nil, []Variable{v0}, nil, nil),
		NewInstruction(Unary{Op: "-"}, []Variable{v0}, []Variable{v1}, nil, nil),
	}, root)
	require.NoError(t, err)

	child.AddContributor("operationMutator")
	child.AddComment(1, "flipped unary operator")

	assert.Same(t, root, child.Parent())
	assert.Len(t, child.Ancestors(), 1)
	assert.Contains(t, child.Contributors(), "operationMutator")
	assert.Len(t, child.Comments(), 1)
}
