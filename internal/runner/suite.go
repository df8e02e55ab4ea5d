package runner

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/afsysbench/afbench/internal/monitor"
)

// RunConfig is one benchmark configuration: the unit of statistical
// sampling. Repeats of the same configuration always run sequentially so
// resource contention cannot skew the timing samples.
type RunConfig struct {
	Stage     Stage
	InputPath string
	Threads   int
	NumModels int
	OutputDir string
}

// RecordSink receives each record as soon as its run finishes, e.g. to
// append it to the CSV store. It is called from multiple goroutines.
type RecordSink func(RunRecord)

// RunSuite executes every configuration `repeats` times. Distinct
// configurations run concurrently up to `parallelism` at a time; within one
// configuration the repeats are strictly sequential. Returns all records
// collected before the context was cancelled.
func (e *Engine) RunSuite(ctx context.Context, configs []RunConfig, repeats int, parallelism int64, sink RecordSink) ([]RunRecord, error) {
	if repeats <= 0 {
		repeats = 1
	}

	gate := monitor.NewSlotGate(parallelism)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var records []RunRecord

	for _, cfg := range configs {
		cfg := cfg
		g.Go(func() error {
			if err := gate.Acquire(gctx); err != nil {
				return err
			}
			defer gate.Release()

			load := gate.Metrics()
			e.logger.Debug("configuration started",
				"stage", cfg.Stage.String(),
				"input", cfg.InputPath,
				"threads", cfg.Threads,
				"active", load.ActiveConfigs,
				"max", load.MaxConfigs)

			spec := JobSpec{
				Stage:     cfg.Stage,
				InputPath: cfg.InputPath,
				Threads:   cfg.Threads,
				NumModels: cfg.NumModels,
				OutputDir: cfg.OutputDir,
			}
			for i := 0; i < repeats; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				rec := e.RunOnce(gctx, spec)

				mu.Lock()
				records = append(records, rec)
				mu.Unlock()
				if sink != nil {
					sink(rec)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return records, err
}
