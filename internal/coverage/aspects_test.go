package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luafuzz/internal/reprl"
)

func TestComputeAspectIntersectionStabilizesOnRepeatedEdges(t *testing.T) {
	candidate := ProgramAspects{Edges: []uint32{1, 2, 3}}
	calls := 0
	reexec := func() (reprl.ExecResult, error) {
		calls++
		return reprl.ExecResult{NewEdges: []uint32{1, 2, 3, 99}}, nil
	}

	stable, ok := ComputeAspectIntersection(candidate, reexec)
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2, 3}, stable.Edges)
	assert.GreaterOrEqual(t, calls, minIntersectionAttempts)
}

func TestComputeAspectIntersectionDiscardsFlakyEdges(t *testing.T) {
	candidate := ProgramAspects{Edges: []uint32{1, 2}}
	reexec := func() (reprl.ExecResult, error) {
		return reprl.ExecResult{NewEdges: []uint32{5, 6}}, nil
	}

	_, ok := ComputeAspectIntersection(candidate, reexec)
	assert.False(t, ok)
}

func TestEvaluatorCommitUpdatesFoundMask(t *testing.T) {
	e := NewEvaluator()
	aspects := ProgramAspects{Edges: []uint32{4, 5}}
	e.Commit(aspects)

	assert.Equal(t, 2, e.TotalEdgesFound())
	assert.True(t, e.FoundEdges().Has(4))
}

func TestSignatureOfIsOrderIndependent(t *testing.T) {
	a := SignatureOf([]uint32{3, 1, 2})
	b := SignatureOf([]uint32{1, 2, 3})
	assert.Equal(t, a, b)
}

func TestClassifierDeduplicatesRepeatedSignature(t *testing.T) {
	c := NewClassifier()
	first := reprl.ExecResult{NewEdges: []uint32{7, 8}, Crashed: true}
	reexec := func() (reprl.ExecResult, error) {
		return reprl.ExecResult{Crashed: true}, nil
	}

	_, isNew1 := c.Classify(first, reexec)
	_, isNew2 := c.Classify(first, reexec)

	assert.True(t, isNew1)
	assert.False(t, isNew2)
}
