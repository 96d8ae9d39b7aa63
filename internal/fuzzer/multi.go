package fuzzer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"luafuzz/internal/config"
	"luafuzz/internal/worker"
)

// RunMulti starts cfg.Jobs fuzzer instances: one parent plus Jobs-1
// workers, each on its own goroutine with its own executor, corpus,
// and REPRL runner, per §5's "own executors with their own runner
// processes" worker model. Workers export interesting programs and
// crashes to the parent over an in-process worker.Endpoint pair;
// nothing flows the other way, matching the best-effort, one-directional
// exchange §5's expansion describes. It blocks until every instance's
// Run returns, then reports the parent's exit code.
func RunMulti(cfg config.Config) (int, error) {
	if cfg.Jobs <= 1 {
		f, err := New(cfg)
		if err != nil {
			return -1, err
		}
		if err := f.Run(); err != nil {
			return -1, err
		}
		return f.ExitCode(), nil
	}

	parent, err := New(cfg)
	if err != nil {
		return -1, err
	}

	workers := make([]*Fuzzer, 0, cfg.Jobs-1)
	for i := 1; i < cfg.Jobs; i++ {
		childCfg := cfg
		childCfg.StoragePath = filepath.Join(cfg.StoragePath, fmt.Sprintf("worker-%d", i))

		child, err := New(childCfg)
		if err != nil {
			return -1, err
		}

		parentSide, childSide := worker.NewLocalPair()
		ctx := context.Background()
		worker.NewEndpoint(ctx, parentSide, parent)
		child.exportTo = worker.NewEndpoint(ctx, childSide, child)

		workers = append(workers, child)
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w *Fuzzer) {
			defer wg.Done()
			_ = w.Run()
		}(w)
	}

	err = parent.Run()
	for _, w := range workers {
		w.shutdown(parent.userStopped)
	}
	wg.Wait()

	if err != nil {
		return -1, err
	}
	return parent.ExitCode(), nil
}
