package fuzzer

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luafuzz/internal/builder"
	"luafuzz/internal/config"
	"luafuzz/internal/corpus"
	"luafuzz/internal/coverage"
	"luafuzz/internal/env"
	"luafuzz/internal/ir"
	"luafuzz/internal/mutate"
	"luafuzz/internal/splice"
)

func newTestCorpus(rng *rand.Rand) *corpus.Corpus {
	return corpus.New(rng, 1, 64, 5)
}

func numberProgram(t *testing.T, value float64) *ir.Program {
	t.Helper()
	v0 := ir.NewVariable(0)
	p, err := ir.NewProgram(ir.Code{
		ir.NewInstruction(ir.LoadNumber{Value: value}, nil, []ir.Variable{v0}, nil, nil),
	}, nil)
	require.NoError(t, err)
	return p
}

func loopProgram(t *testing.T) *ir.Program {
	t.Helper()
	v0 := ir.NewVariable(0)
	code := ir.Code{
		ir.NewInstruction(ir.LoadNumber{Value: 3}, nil, []ir.Variable{v0}, nil, nil),
		ir.NewInstruction(ir.BeginRepeatLoop{Iterations: 3}, nil, nil, nil, nil),
		ir.NewInstruction(ir.EndRepeatLoop{}, nil, nil, nil, nil),
	}
	p, err := ir.NewProgram(code, nil)
	require.NoError(t, err)
	return p
}

func newTestFuzzer(t *testing.T) *Fuzzer {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	environment := env.NewDefault()
	b := builder.New(environment, rng)
	sp := splice.New(nil, environment, rng)
	return &Fuzzer{
		cfg:       config.Defaults(),
		rng:       rng,
		env:       environment,
		builder:   b,
		splicer:   sp,
		minimizer: Noop{},
		evaluator: coverage.NewEvaluator(),
	}
}

func TestHasControlFlowDetectsRepeatLoop(t *testing.T) {
	assert.False(t, hasControlFlow(numberProgram(t, 1)))
	assert.True(t, hasControlFlow(loopProgram(t)))
}

func TestMinimizeIsANoopButClassifiesOrigin(t *testing.T) {
	f := newTestFuzzer(t)
	p := loopProgram(t)
	got := f.minimize(p, true)
	assert.Same(t, p, got)
}

func TestSwarmGeneratorsKeepsAtLeastValueGenerators(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	kept := swarmGenerators(rng)
	require.NotEmpty(t, kept)
	hasValueGen := false
	for _, g := range kept {
		if g.IsValueGenerator() {
			hasValueGen = true
		}
	}
	assert.True(t, hasValueGen)
}

func TestApplyMutationsFailsWhenNoMutatorSucceeds(t *testing.T) {
	f := newTestFuzzer(t)
	f.cfg.ConsecutiveMutations = 3
	f.mutators = []mutate.Mutator{&alwaysFailMutator{}}

	parent := numberProgram(t, 1)
	_, err := f.applyMutations(parent)
	assert.Error(t, err)
}

type alwaysFailMutator struct{}

func (alwaysFailMutator) Name() string { return "alwaysFail" }
func (alwaysFailMutator) Mutate(*builder.Builder, *ir.Program) bool { return false }

func TestSeedCorpusPopulatesCorpus(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	environment := env.NewDefault()
	b := builder.New(environment, rng)
	f := &Fuzzer{
		cfg:     config.Defaults(),
		rng:     rng,
		env:     environment,
		builder: b,
		corpus:  newTestCorpus(rng),
	}
	err := f.seedCorpus()
	require.NoError(t, err)
	assert.Greater(t, f.corpus.Len(), 0)
}

func TestExitCodeReflectsUserStopAndCrashes(t *testing.T) {
	f := &Fuzzer{}
	assert.Equal(t, 0, f.ExitCode())

	f.stats.UniqueCrashes = 1
	assert.Equal(t, 2, f.ExitCode())

	f.userStopped = true
	assert.Equal(t, 1, f.ExitCode())
}

func TestPersistCorpusEntryWritesSerializedFile(t *testing.T) {
	f := newTestFuzzer(t)
	f.cfg.StoragePath = t.TempDir()

	p := numberProgram(t, 42)
	f.persistCorpusEntry(p)

	entries, err := os.ReadDir(filepath.Join(f.cfg.StoragePath, "corpus"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestPersistCrashAppendsCrashInfoFooter(t *testing.T) {
	f := newTestFuzzer(t)
	f.cfg.StoragePath = t.TempDir()

	p := numberProgram(t, 7)
	f.persistCrash(p, []byte("print(1)"), coverage.Crash{Deterministic: true, Signal: 11})

	entries, err := os.ReadDir(filepath.Join(f.cfg.StoragePath, "crashes"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(f.cfg.StoragePath, "crashes", entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "CRASH INFO")
	assert.Contains(t, string(data), "signal: 11")
}
