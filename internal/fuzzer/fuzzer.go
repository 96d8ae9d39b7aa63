// Package fuzzer wires together every other package into the fuzz
// loop §2/§5 describe: corpus.pick -> builder.mutate/splice ->
// lifter.lift -> runner.exec -> evaluator.evaluate -> (if new
// coverage) evaluator.intersect (dedup) -> corpus.add, running on a
// single cooperative executor with FIFO event dispatch.
package fuzzer

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"luafuzz/internal/builder"
	"luafuzz/internal/config"
	"luafuzz/internal/corpus"
	"luafuzz/internal/coverage"
	"luafuzz/internal/env"
	"luafuzz/internal/executor"
	"luafuzz/internal/fuzzerr"
	"luafuzz/internal/ir"
	"luafuzz/internal/lift"
	"luafuzz/internal/logging"
	"luafuzz/internal/mutate"
	"luafuzz/internal/reprl"
	"luafuzz/internal/serialize"
	"luafuzz/internal/splice"
	"luafuzz/internal/worker"
)

const (
	corpusMinSize     = 16
	corpusMaxSize     = 4096
	defaultMutateSize = 8
	executionTimeout  = 2 * time.Second
)

// Fuzzer owns every piece of state the fuzz loop touches. All fields
// are read/written only from the owning executor's goroutine (§5);
// external callers only ever reach in through exec.Async/exec.Sync.
type Fuzzer struct {
	cfg    config.Config
	log    logging.Logger
	exec   *executor.Executor
	bus    *executor.Bus
	rng    *rand.Rand
	env    *env.Environment
	corpus *corpus.Corpus

	builder    *builder.Builder
	splicer    *splice.Splicer
	mutators   []mutate.Mutator
	minimizer  Minimizer
	runner     *reprl.Runner
	evaluator  *coverage.Evaluator
	classifier *coverage.Classifier

	stats       Stats
	isStopped   bool
	userStopped bool

	// exportTo, when set (workers only), notifies the parent fuzzer of
	// every interesting program and crash this instance finds, per
	// §5's worker program-exchange expansion.
	exportTo *worker.Endpoint
}

// OnProgramExport absorbs a program exported by a worker into this
// fuzzer's own corpus, re-evaluating nothing further: the worker
// already confirmed its coverage contribution before exporting.
// Implements worker.Handler.
func (f *Fuzzer) OnProgramExport(p worker.ProgramExport) {
	f.exec.Async(func() {
		code, err := serialize.FromBytes(p.Serialized)
		if err != nil {
			return // malformed export: drop, per the best-effort contract.
		}
		prog, err := ir.NewProgram(code, nil)
		if err != nil {
			return
		}
		f.corpus.Add(prog)
	})
}

// OnCrashExport records a worker's crash in this fuzzer's statistics.
// Implements worker.Handler.
func (f *Fuzzer) OnCrashExport(c worker.CrashExport) {
	f.exec.Async(func() {
		f.stats.Crashes++
		if c.Deterministic {
			f.stats.UniqueCrashes++
		}
	})
}

// New constructs a Fuzzer from cfg but does not start it; call Run.
func New(cfg config.Config) (*Fuzzer, error) {
	logging.Configure(1, cfg.Debug)

	if cfg.Overwrite {
		if err := os.RemoveAll(cfg.StoragePath); err != nil {
			return nil, fuzzerr.Wrap(fuzzerr.CodeCorpusIO, err)
		}
	}
	if err := os.MkdirAll(cfg.StoragePath, 0o755); err != nil {
		return nil, fuzzerr.Wrap(fuzzerr.CodeCorpusIO, err)
	}

	seed := time.Now().UnixNano()
	if cfg.Debug {
		seed = 1 // deterministic replay under --debug, per §6.
	}
	rng := rand.New(rand.NewSource(seed))
	environment := env.NewDefault()

	c := corpus.New(rng, corpusMinSize, corpusMaxSize, cfg.ConsecutiveMutations)
	b := builder.New(environment, rng)
	if cfg.SwarmTesting {
		b.SetGenerators(swarmGenerators(rng))
	}
	sp := splice.New(c, environment, rng)
	b.SetSplicer(sp)

	f := &Fuzzer{
		cfg:        cfg,
		log:        logging.For("fuzzer"),
		exec:       executor.New(),
		bus:        executor.NewBus(),
		rng:        rng,
		env:        environment,
		corpus:     c,
		builder:    b,
		splicer:    sp,
		mutators:   defaultMutators(rng, c, sp),
		minimizer:  Noop{},
		runner:     reprl.NewRunner(reprl.Config{InterpreterPath: cfg.InterpreterPath, RespawnEvery: 1000, ExecutionTimeout: executionTimeout}),
		evaluator:  coverage.NewEvaluator(),
		classifier: coverage.NewClassifier(),
	}
	return f, nil
}

// swarmGenerators randomly keeps roughly two thirds of
// DefaultGenerators(), the per-session generator restriction §6
// describes under --swarmTesting; value generators are always kept
// since BuildPrefix depends on at least one being present.
func swarmGenerators(rng *rand.Rand) []builder.CodeGenerator {
	all := builder.DefaultGenerators()
	kept := make([]builder.CodeGenerator, 0, len(all))
	for _, g := range all {
		if g.IsValueGenerator() || rng.Float64() < 0.66 {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return all
	}
	return kept
}

// defaultMutators returns one instance of each §4.9 mutator.
func defaultMutators(rng *rand.Rand, source mutate.Source, sp *splice.Splicer) []mutate.Mutator {
	return []mutate.Mutator{
		&mutate.OperationMutator{Rand: rng, Rate: 0.5},
		&mutate.InputMutator{Rand: rng, Rate: 0.5},
		&mutate.CodeGenMutator{Rand: rng, Rate: 0.5, Budget: defaultMutateSize},
		&mutate.SpliceMutator{Rand: rng, Rate: 0.5, Splicer: sp},
		&mutate.JITStressMutator{Rand: rng, Iterations: 100},
		&mutate.CombineMutator{Rand: rng, Source: source},
	}
}

// Run starts the REPRL child, imports an existing corpus when
// configured, and blocks processing fuzz iterations until shutdown.
func (f *Fuzzer) Run() error {
	if err := f.runner.Start(); err != nil {
		f.log.Error(fmt.Sprintf("REPRL handshake failed: %v", err))
		return err
	}
	defer f.runner.Stop()

	if f.cfg.Resume {
		f.importOldCorpus()
	}
	if f.corpus.Len() == 0 {
		if err := f.seedCorpus(); err != nil {
			return err
		}
	}

	f.watchSignals()
	f.stats.StartedAt = time.Now()

	lastExport := time.Now()
	f.exec.Run(func() bool {
		if f.isStopped {
			return false
		}
		f.iterate()
		if f.cfg.ExportStatistics && time.Since(lastExport) >= f.cfg.StatisticsExportInterval {
			f.exportStats()
			lastExport = time.Now()
		}
		return true
	})
	return nil
}

// seedCorpus builds a handful of fresh programs from scratch so the
// fuzz loop has something to mutate from.
func (f *Fuzzer) seedCorpus() error {
	for i := 0; i < corpusMinSize; i++ {
		f.builder.Reset()
		f.builder.BuildPrefix()
		f.builder.Build(defaultMutateSize)
		p, err := f.builder.Finalize(nil)
		if err != nil {
			continue // discard: invalid seed, try the next one.
		}
		f.corpus.Add(p)
	}
	if f.corpus.Len() == 0 {
		return fuzzerr.New(fuzzerr.CodeInvalidProgram, "corpus empty after initial generation")
	}
	return nil
}

func (f *Fuzzer) importOldCorpus() {
	dir := filepath.Join(f.cfg.StoragePath, "old_corpus")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			f.log.Warning(fmt.Sprintf("skipping unreadable corpus file %s: %v", e.Name(), err))
			continue
		}
		code, err := serialize.FromBytes(data)
		if err != nil {
			f.log.Warning(fmt.Sprintf("skipping malformed corpus file %s: %v", e.Name(), err))
			continue
		}
		p, err := ir.NewProgram(code, nil)
		if err != nil {
			f.log.Warning(fmt.Sprintf("skipping invalid corpus file %s: %v", e.Name(), err))
			continue
		}
		f.corpus.Add(p)
	}
}

// iterate runs exactly one fuzz-loop step: pick, mutate, lift,
// execute, evaluate, maybe commit.
func (f *Fuzzer) iterate() {
	parent := f.corpus.RandomProgramForMutating()
	if parent == nil {
		if err := f.seedCorpus(); err != nil {
			f.log.Error(fmt.Sprintf("reseeding failed: %v", err))
			f.shutdown(false)
		}
		return
	}

	child, err := f.applyMutations(parent)
	if err != nil {
		f.stats.Executions++ // counted even though discarded, per §7.
		return
	}

	f.bus.Emit(executor.Event{Kind: executor.PreExecute, Data: child})
	script := []byte(lift.Lift(child.Code()))
	result, err := f.runner.Execute(script, f.evaluator.FoundEdges())
	f.stats.Executions++
	if err != nil {
		f.log.Error(fmt.Sprintf("REPRL execution failed: %v", err))
		return
	}
	if result.TimedOut {
		f.stats.Timeouts++
		return // §7: skip sample, runner has already respawned.
	}
	f.bus.Emit(executor.Event{Kind: executor.PostExecute, Data: result})

	if result.Crashed {
		f.handleCrash(child, script, result)
		return
	}

	aspects := f.evaluator.Evaluate(result)
	if aspects.Empty() {
		return
	}
	f.confirmAndCommit(child, script, aspects)
}

// applyMutations replays parent through consecutiveMutations rounds of
// randomly chosen mutators, per §4.9's "chained mutation" description.
// Each round starts from a clean builder: a Mutator replays its
// parent's whole instruction stream via Emit, so the builder must be
// empty going in or the previous round's instructions would double up.
func (f *Fuzzer) applyMutations(parent *ir.Program) (*ir.Program, error) {
	current := parent
	for i := 0; i < f.cfg.ConsecutiveMutations; i++ {
		f.builder.Reset()
		m := f.mutators[f.rng.Intn(len(f.mutators))]
		if !m.Mutate(f.builder, current) {
			continue
		}
		staged, err := f.builder.Finalize(current)
		if err != nil {
			continue // invalid mutation: discard this round, retry from current.
		}
		current = staged
	}
	if current == parent {
		return nil, fuzzerr.New(fuzzerr.CodeInvalidProgram, "no mutator produced a valid program")
	}
	return current, nil
}

func (f *Fuzzer) confirmAndCommit(child *ir.Program, script []byte, aspects coverage.ProgramAspects) {
	reexec := func() (reprl.ExecResult, error) {
		return f.runner.Execute(script, f.evaluator.FoundEdges())
	}
	stable, ok := coverage.ComputeAspectIntersection(aspects, reexec)
	if !ok {
		return // flaky: discard per §4.11.
	}
	f.evaluator.Commit(stable)
	child = f.minimize(child, false)
	child.AddComment(0, fmt.Sprintf("contributes %d new edge(s)", len(stable.Edges)))
	f.corpus.Add(child)
	f.persistCorpusEntry(child)
	color.Green("new coverage: %d new edge(s), corpus size %d", len(stable.Edges), f.corpus.Len())
	f.bus.Emit(executor.Event{Kind: executor.InterestingProgramFound, Data: child})

	if f.exportTo != nil {
		if data, err := serialize.ToBytes(child.Code()); err == nil {
			f.exportTo.ExportProgram(context.Background(), worker.ProgramExport{Serialized: data})
		}
	}
}

func (f *Fuzzer) handleCrash(child *ir.Program, script []byte, first reprl.ExecResult) {
	reexec := func() (reprl.ExecResult, error) {
		return f.runner.ExecuteWithTimeout(script, f.evaluator.FoundEdges(), 2*f.runner.Timeout())
	}
	crash, isNew := f.classifier.Classify(first, reexec)
	f.stats.Crashes++
	if isNew {
		f.stats.UniqueCrashes++
	}
	if !isNew {
		return
	}
	child = f.minimize(child, true)
	f.persistCrash(child, script, crash)
	color.Red("crash found: deterministic=%v signal=%d", crash.Deterministic, crash.Signal)
	f.bus.Emit(executor.Event{Kind: executor.CrashFound, Data: crash})

	if f.exportTo != nil {
		if data, err := serialize.ToBytes(child.Code()); err == nil {
			f.exportTo.ExportCrash(context.Background(), worker.CrashExport{
				Serialized:    data,
				Signature:     fmt.Sprintf("%x", crash.Signature),
				Deterministic: crash.Deterministic,
			})
		}
	}
}

// minimize runs p through f.minimizer, gating on requiresMinimization
// the way the rest of the loop is gated on it: always true today, but
// the classification still happens so swapping Noop for a real
// reducer later doesn't require touching the call sites.
func (f *Fuzzer) minimize(p *ir.Program, isCrash bool) *ir.Program {
	origin := programOrigin{isControlFlowContributor: hasControlFlow(p), isCrash: isCrash}
	return f.minimizer.Minimize(p, func(*ir.Program) bool {
		return requiresMinimization(origin)
	})
}

func hasControlFlow(p *ir.Program) bool {
	for _, instr := range p.Code() {
		if instr.OpenedContext() == ir.ContextLoop {
			return true
		}
	}
	return false
}

func (f *Fuzzer) persistCorpusEntry(p *ir.Program) {
	data, err := serialize.ToBytes(p.Code())
	if err != nil {
		f.log.Warning(fmt.Sprintf("failed to serialize corpus entry %s: %v", p.ID(), err))
		return
	}
	dir := filepath.Join(f.cfg.StoragePath, "corpus")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, p.ID().String()+".fzil"), data, 0o644)
}

func (f *Fuzzer) persistCrash(p *ir.Program, script []byte, crash coverage.Crash) {
	data, err := serialize.ToBytes(p.Code())
	if err != nil {
		return
	}
	dir := filepath.Join(f.cfg.StoragePath, "crashes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	footer := fmt.Sprintf(
		"\n-- CRASH INFO\n-- signal: %d\n-- deterministic: %v\n-- script:\n-- %s\n",
		crash.Signal, crash.Deterministic, script)
	out := append(data, []byte(footer)...)
	_ = os.WriteFile(filepath.Join(dir, p.ID().String()+".fzil"), out, 0o644)
}

func (f *Fuzzer) exportStats() {
	f.stats.CorpusSize = f.corpus.Len()
	f.stats.EdgesFound = f.evaluator.TotalEdgesFound()
	if err := f.stats.Export(f.cfg.StoragePath, time.Now()); err != nil {
		f.log.Warning(fmt.Sprintf("failed to export statistics: %v", err))
	}
}

// shutdown implements §5's cooperative-shutdown contract: queued
// blocks early-exit, then ShutdownComplete fires once drained.
func (f *Fuzzer) shutdown(userInitiated bool) {
	if f.isStopped {
		return
	}
	f.isStopped = true
	f.userStopped = userInitiated
	f.bus.Emit(executor.Event{Kind: executor.Shutdown, Data: userInitiated})
}

// ExitCode maps the run's outcome to §6's exit-code contract.
func (f *Fuzzer) ExitCode() int {
	if f.userStopped {
		return 1
	}
	if f.stats.UniqueCrashes > 0 {
		return 2
	}
	return 0
}
