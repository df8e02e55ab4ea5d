package runner

import (
	"context"
	"log/slog"

	"github.com/afsysbench/afbench/internal/gpumem"
)

// DefaultMaxRetryAttempts bounds OOM-triggered retries per input.
const DefaultMaxRetryAttempts = 2

// SizingAdvisor decides whether an input needs the fallback memory mode
// before a run is launched.
type SizingAdvisor interface {
	Decide(ctx context.Context, inputPath string) (needsFallback bool, profile gpumem.MemoryProfile)
}

// Runner executes one job invocation. Satisfied by *JobRunner.
type Runner interface {
	Run(ctx context.Context, spec JobSpec) RunRecord
}

// EngineOptions tunes the retry policy.
type EngineOptions struct {
	RetryOnOOM       bool
	MaxRetryAttempts int
	// DetectOOM classifies captured output of a failed run. Defaults to
	// gpumem.ContainsOOM.
	DetectOOM func(string) bool
}

// Engine couples the sizing decision, job runner and OOM retry policy:
// decide the memory mode, run the job, and on an OOM-classified failure
// re-run once in fallback memory mode. Any other failure surfaces
// immediately; retries exist for the memory-pressure class only.
type Engine struct {
	runner    Runner
	sizing    SizingAdvisor
	logger    *slog.Logger
	retryOOM  bool
	maxRetry  int
	detectOOM func(string) bool
}

func NewEngine(r Runner, sizing SizingAdvisor, opts EngineOptions, logger *slog.Logger) *Engine {
	if opts.MaxRetryAttempts <= 0 {
		opts.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if opts.DetectOOM == nil {
		opts.DetectOOM = gpumem.ContainsOOM
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		runner:    r,
		sizing:    sizing,
		logger:    logger,
		retryOOM:  opts.RetryOnOOM,
		maxRetry:  opts.MaxRetryAttempts,
		detectOOM: opts.DetectOOM,
	}
}

// RunOnce sizes and executes a single benchmark configuration, retrying
// under fallback memory mode when a failure is OOM-classified. The returned
// record is the final attempt's record.
func (e *Engine) RunOnce(ctx context.Context, spec JobSpec) RunRecord {
	if !spec.UseFallbackMemory && e.sizing != nil {
		needsFallback, profile := e.sizing.Decide(ctx, spec.InputPath)
		spec.UseFallbackMemory = needsFallback
		e.logger.Debug("sizing decision",
			"input", spec.InputPath,
			"needs_fallback", needsFallback,
			"required_mb", profile.RequiredMB,
			"required_with_safety_mb", profile.RequiredWithSafetyMB,
			"gpu_capacity_mb", profile.GPUCapacityMB)
	}

	attempts := 0
	for {
		rec := e.runner.Run(ctx, spec)
		attempts++

		if rec.Status == StatusSuccess || ctx.Err() != nil {
			return rec
		}
		if !e.retryOOM || spec.UseFallbackMemory || attempts >= e.maxRetry {
			return rec
		}
		if !e.detectOOM(rec.Stderr) {
			return rec
		}

		e.logger.Warn("OOM detected, retrying with unified memory",
			"input", spec.InputPath,
			"stage", spec.Stage.String(),
			"attempt", attempts)
		spec.UseFallbackMemory = true
	}
}
