package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/afsysbench/afbench/internal/gpumem"
)

// JobSpec describes one external benchmark invocation.
type JobSpec struct {
	Stage     Stage
	InputPath string
	Threads   int
	OutputDir string
	// NumModels is the number of models the inference stage should
	// generate; zero keeps the script default.
	NumModels int
	// UseFallbackMemory requests the unified memory execution path.
	UseFallbackMemory bool
}

// Options configures a JobRunner. Script paths are required; zero timeouts
// fall back to the stage defaults.
type Options struct {
	MSAScript        string
	InferenceScript  string
	ConfigFile       string
	MSATimeout       time.Duration
	InferenceTimeout time.Duration
	UnifiedMemoryEnv map[string]string
}

// JobRunner executes external benchmark jobs one at a time, each as a
// discrete-argv subprocess with a stage-dependent timeout. It never
// retries; retry orchestration belongs to the Engine, which has the
// per-input attempt context.
type JobRunner struct {
	opts   Options
	logger *slog.Logger
}

func NewJobRunner(opts Options, logger *slog.Logger) (*JobRunner, error) {
	if opts.MSAScript == "" || opts.InferenceScript == "" {
		return nil, errors.New("runner: both stage scripts must be configured")
	}
	if opts.MSATimeout <= 0 {
		opts.MSATimeout = DefaultTimeout
	}
	if opts.InferenceTimeout <= 0 {
		opts.InferenceTimeout = DefaultInferenceTimeout
	}
	if opts.UnifiedMemoryEnv == nil {
		opts.UnifiedMemoryEnv = gpumem.DefaultUnifiedMemoryEnv()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRunner{opts: opts, logger: logger}, nil
}

// Command resolves the invocation for a spec: the stage script and a
// discrete argument list. Arguments are never joined into a shell string.
func (r *JobRunner) Command(spec JobSpec) (string, []string) {
	var script string
	switch spec.Stage {
	case StageInference:
		script = r.opts.InferenceScript
	default:
		script = r.opts.MSAScript
	}

	var args []string
	if r.opts.ConfigFile != "" {
		args = append(args, "-c", r.opts.ConfigFile)
	}
	if spec.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(spec.Threads))
	}
	if spec.Stage == StageInference && spec.NumModels > 0 {
		args = append(args, "-m", strconv.Itoa(spec.NumModels))
	}
	if spec.OutputDir != "" {
		args = append(args, "-o", spec.OutputDir)
	}
	return script, append(args, spec.InputPath)
}

func (r *JobRunner) timeout(stage Stage) time.Duration {
	if stage == StageInference {
		return r.opts.InferenceTimeout
	}
	return r.opts.MSATimeout
}

// Run executes one invocation and returns its record. Exit code zero maps
// to SUCCESS with captured stdout, a non-zero exit to FAILED with captured
// stderr, and an exceeded stage timeout to TIMEOUT after the process has
// been killed. Run itself never returns an error; process-level failures
// are data, so batch orchestration can continue past them.
func (r *JobRunner) Run(ctx context.Context, spec JobSpec) RunRecord {
	name, args := r.Command(spec)

	runCtx, cancel := context.WithTimeout(ctx, r.timeout(spec.Stage))
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Env = os.Environ()
	if spec.UseFallbackMemory {
		for k, v := range r.opts.UnifiedMemoryEnv {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	// Give the process a short grace period after the kill signal before
	// the Wait is abandoned, so no orphan lingers.
	cmd.WaitDelay = 10 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("starting benchmark job",
		"stage", spec.Stage.String(),
		"input", spec.InputPath,
		"threads", spec.Threads,
		"unified_memory", spec.UseFallbackMemory)

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		r.logger.Error("benchmark job timed out",
			"stage", spec.Stage.String(),
			"input", spec.InputPath,
			"timeout", r.timeout(spec.Stage))
		// Keep whatever stderr was captured before the kill; the retry
		// policy inspects it for memory-pressure signatures.
		return newRecord(spec, StatusTimeout, duration, "", stderr.String())
	case err != nil:
		r.logger.Error("benchmark job failed",
			"stage", spec.Stage.String(),
			"input", spec.InputPath,
			"error", err)
		return newRecord(spec, StatusFailed, duration, "", stderrOrErr(stderr.String(), err))
	default:
		r.logger.Info("benchmark job completed",
			"stage", spec.Stage.String(),
			"input", spec.InputPath,
			"duration", duration.Round(time.Millisecond))
		return newRecord(spec, StatusSuccess, duration, stdout.String(), "")
	}
}

func stderrOrErr(stderr string, err error) string {
	if stderr != "" {
		return stderr
	}
	return fmt.Sprintf("run error: %v", err)
}
