package typeanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
	"luafuzz/internal/typesys"
)

func TestIfElseMergesBranchTypesToUnion(t *testing.T) {
	a := New(env.NewDefault())
	v0 := ir.NewVariable(0)

	a.Step(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v0}, nil, nil))
	require.True(t, a.TypeOf(v0.ID()).Equal(typesys.Primitive(typesys.Number)))

	a.StartGroup(false)

	a.EnterBranch()
	a.Step(ir.NewInstruction(ir.LoadString{Value: "x"}, nil, []ir.Variable{v0}, nil, nil))
	a.LeaveBranch()

	a.EnterBranch()
	a.Step(ir.NewInstruction(ir.LoadNumber{Value: 2}, nil, []ir.Variable{v0}, nil, nil))
	a.LeaveBranch()

	a.EndGroup()

	want := typesys.Union(typesys.Primitive(typesys.String), typesys.Primitive(typesys.Number))
	assert.True(t, a.TypeOf(v0.ID()).Equal(want))
}

func TestBranchNotTouchingVariableKeepsParentTypeInMerge(t *testing.T) {
	a := New(env.NewDefault())
	v0 := ir.NewVariable(0)
	a.Step(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v0}, nil, nil))

	a.StartGroup(false)

	a.EnterBranch()
	a.Step(ir.NewInstruction(ir.LoadString{Value: "x"}, nil, []ir.Variable{v0}, nil, nil))
	a.LeaveBranch()

	a.EnterBranch()
	// This branch never touches v0.
	a.LeaveBranch()

	a.EndGroup()

	got := a.TypeOf(v0.ID())
	assert.True(t, got.Subsumes(typesys.Primitive(typesys.String)))
	assert.True(t, got.Subsumes(typesys.Primitive(typesys.Number)))
}

func TestSubroutineReturnTypeAccumulatesAcrossBranches(t *testing.T) {
	a := New(env.NewDefault())

	a.StartGroup(true) // not-called / called

	a.EnterBranch() // not called: no return recorded
	a.LeaveBranch()

	a.EnterBranch()
	a.RecordReturn(typesys.Primitive(typesys.Number))
	a.LeaveBranch()

	a.EndGroup()

	assert.True(t, a.current().returnType.Equal(typesys.Primitive(typesys.Number)))
}

func TestHasReturnedOnlyTrueWhenAllBranchesReturn(t *testing.T) {
	a := New(env.NewDefault())

	a.StartGroup(false)
	a.EnterBranch()
	a.RecordReturn(typesys.Primitive(typesys.Number))
	a.LeaveBranch()
	a.EnterBranch()
	// does not return
	a.LeaveBranch()
	a.EndGroup()

	assert.False(t, a.HasReturned())
}
