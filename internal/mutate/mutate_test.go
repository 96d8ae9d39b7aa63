package mutate

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luafuzz/internal/builder"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
)

func simpleProgram(t *testing.T) *ir.Program {
	t.Helper()
	v0 := ir.NewVariable(0)
	v1 := ir.NewVariable(1)
	v2 := ir.NewVariable(2)
	code := ir.Code{
		ir.NewInstruction(ir.LoadNumber{Value: 1}, nil, []ir.Variable{v0}, nil, nil),
		ir.NewInstruction(ir.LoadNumber{Value: 2}, nil, []ir.Variable{v1}, nil, nil),
		ir.NewInstruction(ir.Binary{Op: "+"}, []ir.Variable{v0, v1}, []ir.Variable{v2}, nil, nil),
	}
	p, err := ir.NewProgram(code, nil)
	require.NoError(t, err)
	return p
}

func TestOperationMutatorChangesOneOperator(t *testing.T) {
	parent := simpleProgram(t)
	environment := env.NewDefault()
	rng := rand.New(rand.NewSource(7))
	b := builder.New(environment, rng)

	m := &OperationMutator{Rand: rng, Rate: 1.0}
	ok := m.Mutate(b, parent)
	require.True(t, ok)

	p, err := b.Finalize(parent)
	require.NoError(t, err)
	bin, ok := p.Code()[2].Op.(ir.Binary)
	require.True(t, ok)
	assert.NotEqual(t, "+", bin.Op)
}

func TestInputMutatorReplacesCompatibleInput(t *testing.T) {
	parent := simpleProgram(t)
	environment := env.NewDefault()
	rng := rand.New(rand.NewSource(3))
	b := builder.New(environment, rng)

	m := &InputMutator{Rand: rng, Rate: 1.0}
	ok := m.Mutate(b, parent)
	assert.True(t, ok)

	_, err := b.Finalize(parent)
	require.NoError(t, err)
}

func TestCodeGenMutatorAlwaysInsertsSomething(t *testing.T) {
	parent := simpleProgram(t)
	environment := env.NewDefault()
	rng := rand.New(rand.NewSource(9))
	b := builder.New(environment, rng)

	m := &CodeGenMutator{Rand: rng, Rate: 0.5, Budget: 5}
	ok := m.Mutate(b, parent)
	require.True(t, ok)

	p, err := b.Finalize(parent)
	require.NoError(t, err)
	assert.Greater(t, p.Size(), parent.Size())
}

type fixedCombineSource struct{ p *ir.Program }

func (f fixedCombineSource) RandomProgramForSplicing() *ir.Program { return f.p }

func TestCombineMutatorAppendsRemappedSecondProgram(t *testing.T) {
	parent := simpleProgram(t)
	other := simpleProgram(t)
	environment := env.NewDefault()
	rng := rand.New(rand.NewSource(11))
	b := builder.New(environment, rng)

	m := &CombineMutator{Rand: rng, Source: fixedCombineSource{other}}
	ok := m.Mutate(b, parent)
	require.True(t, ok)

	p, err := b.Finalize(parent)
	require.NoError(t, err)
	assert.Equal(t, parent.Size()+other.Size(), p.Size())
}

func TestJITStressMutatorWrapsBodyInRepeatLoop(t *testing.T) {
	parent := simpleProgram(t)
	environment := env.NewDefault()
	rng := rand.New(rand.NewSource(13))
	b := builder.New(environment, rng)

	m := &JITStressMutator{Rand: rng, Iterations: 50}
	ok := m.Mutate(b, parent)
	require.True(t, ok)

	p, err := b.Finalize(parent)
	require.NoError(t, err)
	_, isRepeat := p.Code()[0].Op.(ir.BeginRepeatLoop)
	assert.True(t, isRepeat)
}
