package builder

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
	"luafuzz/internal/typesys"
)

func newTestBuilder(seed int64) *Builder {
	return New(env.NewDefault(), rand.New(rand.NewSource(seed)))
}

func TestBuildPrefixPopulatesVisibleVariables(t *testing.T) {
	b := newTestBuilder(1)
	b.BuildPrefix()
	assert.GreaterOrEqual(t, len(b.visible()), 5)

	p, err := b.Finalize(nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Size(), 5)
}

func TestBuildProducesValidProgram(t *testing.T) {
	b := newTestBuilder(2)
	b.BuildPrefix()
	b.Build(30)

	p, err := b.Finalize(nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestHideRemovesVariableFromRandomSelectionButKeepsItUsable(t *testing.T) {
	b := newTestBuilder(3)
	v := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v}, nil, nil))

	before := b.visible()
	assert.Contains(t, idsOf(before), v.ID())

	b.Hide(v)
	assert.NotContains(t, idsOf(b.visible()), v.ID())

	b.Unhide(v)
	assert.Equal(t, idsOf(before), idsOf(b.visible()))
}

func TestRandomVariableForUseAsFiltersByType(t *testing.T) {
	b := newTestBuilder(4)
	vNum := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{vNum}, nil, nil))
	vStr := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadString{Value: "x"}, nil, []ir.Variable{vStr}, nil, nil))

	got, ok := b.RandomVariableForUseAs(typesys.Primitive(typesys.Number))
	require.True(t, ok)
	assert.Equal(t, vNum.ID(), got.ID())
}

func TestIfElseRegionMergesReassignedTypeToUnion(t *testing.T) {
	b := newTestBuilder(5)
	v0 := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v0}, nil, nil))

	vCond := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadBoolean{Value: true}, nil, []ir.Variable{vCond}, nil, nil))

	b.Emit(ir.NewInstruction(ir.BeginIf{}, []ir.Variable{vCond}, nil, nil, nil))
	vStr := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadString{Value: "x"}, nil, []ir.Variable{vStr}, nil, nil))
	b.Emit(ir.NewInstruction(ir.Reassign{}, []ir.Variable{v0, vStr}, nil, nil, nil))

	b.Emit(ir.NewInstruction(ir.BeginElse{}, nil, nil, nil, nil))
	v2 := b.NewVar()
	b.Emit(ir.NewInstruction(ir.LoadNumber{Value: 2}, nil, []ir.Variable{v2}, nil, nil))
	b.Emit(ir.NewInstruction(ir.Reassign{}, []ir.Variable{v0, v2}, nil, nil, nil))
	b.Emit(ir.NewInstruction(ir.EndIf{}, nil, nil, nil, nil))

	want := typesys.Union(typesys.Primitive(typesys.String), typesys.Primitive(typesys.Number))
	assert.True(t, b.TypeOf(v0).Equal(want))

	_, err := b.Finalize(nil)
	require.NoError(t, err)
}

func idsOf(vars []ir.Variable) []uint32 {
	ids := make([]uint32, 0, len(vars))
	for _, v := range vars {
		ids = append(ids, v.ID())
	}
	return ids
}
