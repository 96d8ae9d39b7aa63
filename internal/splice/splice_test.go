package splice

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"luafuzz/internal/builder"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
)

type fixedSource struct{ p *ir.Program }

func (f fixedSource) RandomProgramForSplicing() *ir.Program { return f.p }

func donorProgram(t *testing.T) *ir.Program {
	t.Helper()
	v0 := ir.NewVariable(0)
	v1 := ir.NewVariable(1)
	v2 := ir.NewVariable(2)

	code := ir.Code{
		ir.NewInstruction(ir.LoadNumber{Value: 5}, nil, []ir.Variable{v0}, nil, nil),
		ir.NewInstruction(ir.LoadBuiltin{Name_: "math"}, nil, []ir.Variable{v1}, nil, nil),
		ir.NewInstruction(ir.CallMethod{MethodName: "abs", NumArguments: 1}, []ir.Variable{v1, v0}, []ir.Variable{v2}, nil, nil),
	}
	p, err := ir.NewProgram(code, nil)
	require.NoError(t, err)
	return p
}

func TestSpliceFromCopiesWholeDependencyChain(t *testing.T) {
	donor := donorProgram(t)
	rng := rand.New(rand.NewSource(1))
	environment := env.NewDefault()
	sp := New(fixedSource{donor}, environment, rng)

	host := builder.New(environment, rng)

	ok := sp.spliceFrom(host, donor, 2) // pin root at the CallMethod instruction
	require.True(t, ok)

	p, err := host.Finalize(nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Size(), 1)
}

func TestSpliceOnceReturnsFalseWithNoDonor(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	environment := env.NewDefault()
	sp := New(fixedSource{nil}, environment, rng)
	host := builder.New(environment, rng)

	assert.False(t, sp.SpliceOnce(host))
}

func TestComputeUnitsGroupsBlockSpanAtomically(t *testing.T) {
	v0 := ir.NewVariable(0)
	code := ir.Code{
		ir.NewInstruction(ir.LoadBoolean{Value: true}, nil, []ir.Variable{v0}, nil, nil),
		ir.NewInstruction(ir.BeginIf{}, []ir.Variable{v0}, nil, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{ir.NewVariable(1)}, nil, nil),
		ir.NewInstruction(ir.EndIf{}, nil, nil, nil, nil),
	}
	units := computeUnits(code)
	require.Len(t, units, 2)
	assert.Equal(t, 0, units[0].start)
	assert.Equal(t, 0, units[0].end)
	assert.Equal(t, 1, units[1].start)
	assert.Equal(t, 3, units[1].end)
}
