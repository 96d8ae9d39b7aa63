package corpus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luafuzz/internal/ir"
)

func mustProgram(t *testing.T, value float64) *ir.Program {
	t.Helper()
	v0 := ir.NewVariable(0)
	p, err := ir.NewProgram(ir.Code{
		ir.NewInstruction(ir.LoadNumber{Value: value}, nil, []ir.Variable{v0}, nil, nil),
	}, nil)
	require.NoError(t, err)
	return p
}

func TestAddAndRandomProgramForSplicing(t *testing.T) {
	c := New(rand.New(rand.NewSource(1)), 2, 10, 5)
	p := mustProgram(t, 1)
	c.Add(p)

	got := c.RandomProgramForSplicing()
	assert.Equal(t, p.ID(), got.ID())
}

func TestRandomProgramForMutatingDecrementsBudgetToZero(t *testing.T) {
	c := New(rand.New(rand.NewSource(2)), 1, 10, 1)
	p := mustProgram(t, 1)
	c.Add(p)

	got := c.RandomProgramForMutating()
	require.NotNil(t, got)
	assert.Equal(t, p.ID(), got.ID())

	// Budget is now exhausted; a second pick must not select it again
	// (no other entries exist to fall back on).
	assert.Nil(t, c.RandomProgramForMutating())
}

func TestEvictionPrefersExhaustedBudgetEntries(t *testing.T) {
	c := New(rand.New(rand.NewSource(3)), 1, 2, 1)
	p1 := mustProgram(t, 1)
	p2 := mustProgram(t, 2)
	c.Add(p1)
	c.RandomProgramForMutating() // exhausts p1's budget
	c.Add(p2)

	p3 := mustProgram(t, 3)
	c.Add(p3) // triggers eviction, should remove the exhausted p1

	assert.Equal(t, 2, c.Len())
	ids := map[string]bool{}
	for _, id := range c.order {
		ids[id] = true
	}
	assert.False(t, ids[p1.ID().String()])
}
