// Package app wires configuration into the benchmark engine: sizing
// manager, job runner, retry engine and result store.
package app

import (
	"context"
	"log/slog"
	"os"
	"runtime"

	"github.com/afsysbench/afbench/internal/config"
	"github.com/afsysbench/afbench/internal/gpumem"
	"github.com/afsysbench/afbench/internal/hostinfo"
	"github.com/afsysbench/afbench/internal/results"
	"github.com/afsysbench/afbench/internal/runner"
	"github.com/afsysbench/afbench/pkg/benchreport"
)

type Application struct {
	Config config.Config
	Logger *slog.Logger
	Memory *gpumem.Manager
	Engine *runner.Engine
	Store  *results.Store
}

func New(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))

	memory := gpumem.NewManager(logger,
		gpumem.WithSafetyFactor(cfg.Memory.SafetyFactor),
		gpumem.WithRequirements(mergedRequirements(cfg.Memory.Requirements)),
	)

	jobRunner, err := runner.NewJobRunner(runner.Options{
		MSAScript:        cfg.Scripts.MSA,
		InferenceScript:  cfg.Scripts.Inference,
		ConfigFile:       cfg.Scripts.ConfigFile,
		MSATimeout:       cfg.Timeouts.MSA.Std(),
		InferenceTimeout: cfg.Timeouts.Inference.Std(),
		UnifiedMemoryEnv: cfg.Memory.UnifiedMemoryEnv,
	}, logger)
	if err != nil {
		return nil, err
	}

	engine := runner.NewEngine(jobRunner, memory, runner.EngineOptions{
		RetryOnOOM:       cfg.Retry.RetryOnOOM,
		MaxRetryAttempts: cfg.Retry.MaxRetryAttempts,
	}, logger)

	store, err := results.NewStore(cfg.Results.MasterCSV)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config: cfg,
		Logger: logger,
		Memory: memory,
		Engine: engine,
		Store:  store,
	}, nil
}

// BuildConfigs expands the inputs into the (stage, input, threads)
// benchmark matrix using the configured thread counts.
func (a *Application) BuildConfigs(stage runner.Stage, inputs []string) []runner.RunConfig {
	var configs []runner.RunConfig
	for _, input := range inputs {
		for _, threads := range a.Config.Benchmark.ThreadCounts {
			cfg := runner.RunConfig{
				Stage:     stage,
				InputPath: input,
				Threads:   threads,
				OutputDir: a.Config.Benchmark.OutputDir,
			}
			if stage == runner.StageInference {
				cfg.NumModels = a.Config.Benchmark.NumModels
			}
			configs = append(configs, cfg)
		}
	}
	return configs
}

// ReportEnv probes the host once for the report metadata block.
func (a *Application) ReportEnv(ctx context.Context) benchreport.Env {
	return benchreport.Env{
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		CPUModel:       hostinfo.CPUModel(),
		CPUNumLogical:  runtime.NumCPU(),
		GPUName:        hostinfo.GPUName(0),
		GPUVRAMTotalMB: a.Memory.CapacityMB(ctx),
	}
}

// ReportParams mirrors the suite settings into the report.
func (a *Application) ReportParams(configPath string) benchreport.Params {
	return benchreport.Params{
		ConfigFile:   configPath,
		ThreadCounts: a.Config.Benchmark.ThreadCounts,
		Repeats:      a.Config.Benchmark.Repeats,
		SafetyFactor: a.Config.Memory.SafetyFactor,
	}
}

// mergedRequirements overlays config entries on the built-in table.
func mergedRequirements(override map[string]int) map[string]int {
	merged := gpumem.DefaultRequirements()
	for name, mb := range override {
		merged[name] = mb
	}
	return merged
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
