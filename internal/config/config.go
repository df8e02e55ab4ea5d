// Package config loads and validates the benchmark engine configuration.
// Configuration errors are the only fatal error class: they abort the run
// before any external process starts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/afsysbench/afbench/internal/gpumem"
	"github.com/afsysbench/afbench/internal/runner"
)

// Duration is a time.Duration that unmarshals from YAML strings like "2h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Scripts struct {
	MSA       string `yaml:"msa"`
	Inference string `yaml:"inference"`
	// ConfigFile is passed to the scripts via their -c flag.
	ConfigFile string `yaml:"config_file"`
}

type Benchmark struct {
	ThreadCounts []int  `yaml:"thread_counts"`
	Repeats      int    `yaml:"repeats"`
	Parallelism  int64  `yaml:"parallelism"`
	NumModels    int    `yaml:"num_models"`
	OutputDir    string `yaml:"output_dir"`
}

type Timeouts struct {
	MSA       Duration `yaml:"msa"`
	Inference Duration `yaml:"inference"`
}

type Memory struct {
	SafetyFactor float64 `yaml:"safety_factor"`
	// Requirements overrides the built-in known input table (MB values).
	Requirements map[string]int `yaml:"memory_requirements"`
	// UnifiedMemoryEnv overrides the fallback-mode env values; the keys are
	// a fixed contract with the scripts.
	UnifiedMemoryEnv map[string]string `yaml:"unified_memory_env"`
}

type Retry struct {
	RetryOnOOM       bool `yaml:"retry_on_oom"`
	MaxRetryAttempts int  `yaml:"max_retry_attempts"`
}

type Results struct {
	MasterCSV  string `yaml:"master_csv"`
	ReportJSON string `yaml:"report_json"`
}

type Logging struct {
	Level string `yaml:"level"`
}

type Config struct {
	Label     string    `yaml:"label"`
	Scripts   Scripts   `yaml:"scripts"`
	Benchmark Benchmark `yaml:"benchmark"`
	Timeouts  Timeouts  `yaml:"timeouts"`
	Memory    Memory    `yaml:"memory"`
	Retry     Retry     `yaml:"retry"`
	Results   Results   `yaml:"results"`
	Logging   Logging   `yaml:"logging"`
}

// Default returns the configuration used when a field is absent from the
// file.
func Default() Config {
	return Config{
		Scripts: Scripts{
			MSA:       "scripts/benchmark_msa.sh",
			Inference: "scripts/benchmark_inference.sh",
		},
		Benchmark: Benchmark{
			ThreadCounts: []int{4, 8, 16},
			Repeats:      1,
			Parallelism:  1,
		},
		Timeouts: Timeouts{
			MSA:       Duration(runner.DefaultTimeout),
			Inference: Duration(runner.DefaultInferenceTimeout),
		},
		Memory: Memory{
			SafetyFactor: gpumem.DefaultSafetyFactor,
		},
		Retry: Retry{
			RetryOnOOM:       true,
			MaxRetryAttempts: runner.DefaultMaxRetryAttempts,
		},
		Results: Results{
			MasterCSV: "results/master_results.csv",
		},
		Logging: Logging{Level: "info"},
	}
}

// Load reads a YAML config file on top of the defaults and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Scripts.MSA == "" {
		return fmt.Errorf("scripts.msa must be set")
	}
	if c.Scripts.Inference == "" {
		return fmt.Errorf("scripts.inference must be set")
	}
	if len(c.Benchmark.ThreadCounts) == 0 {
		return fmt.Errorf("benchmark.thread_counts must not be empty")
	}
	for _, t := range c.Benchmark.ThreadCounts {
		if t <= 0 {
			return fmt.Errorf("benchmark.thread_counts must be positive, got %d", t)
		}
	}
	if c.Benchmark.Repeats <= 0 {
		return fmt.Errorf("benchmark.repeats must be >= 1, got %d", c.Benchmark.Repeats)
	}
	if c.Benchmark.Parallelism <= 0 {
		return fmt.Errorf("benchmark.parallelism must be >= 1, got %d", c.Benchmark.Parallelism)
	}
	if c.Timeouts.MSA.Std() <= 0 || c.Timeouts.Inference.Std() <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.Memory.SafetyFactor <= 0 {
		return fmt.Errorf("memory.safety_factor must be positive, got %g", c.Memory.SafetyFactor)
	}
	for name, mb := range c.Memory.Requirements {
		if mb <= 0 {
			return fmt.Errorf("memory.memory_requirements[%s] must be positive, got %d", name, mb)
		}
	}
	if c.Retry.MaxRetryAttempts < 0 {
		return fmt.Errorf("retry.max_retry_attempts must be >= 0, got %d", c.Retry.MaxRetryAttempts)
	}
	if c.Results.MasterCSV == "" {
		return fmt.Errorf("results.master_csv must be set")
	}
	return nil
}
