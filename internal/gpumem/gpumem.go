package gpumem

import (
	"context"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultSafetyFactor is the multiplicative margin applied to a raw
	// memory estimate before comparing against measured capacity.
	DefaultSafetyFactor = 1.2

	// DefaultEstimateMB is returned when an input cannot be inspected at all.
	DefaultEstimateMB = 8000

	// fileSizeMultiplier converts megabytes of input file size into an
	// estimated megabytes of device memory. Empirically tuned, see config
	// to override the table instead of relying on it.
	fileSizeMultiplier = 1000

	probeTimeout = 30 * time.Second
)

// cudaProbeImage is the image used for the containerized capacity probe
// when nvidia-smi is not usable on the host directly.
const cudaProbeImage = "nvidia/cuda:11.8.0-base-ubuntu20.04"

// DefaultRequirements maps known input base names to their measured device
// memory requirement in MB.
func DefaultRequirements() map[string]int {
	return map[string]int{
		"6QNR_subset_data":   24000,
		"7k00_subset_data":   28000,
		"promo_data":         8000,
		"promo_data_seed1":   8000,
		"1yy9_data":          6000,
		"rcsb_pdb_7rce_data": 6000,
		"2pv7_data":          4000,
		"2PV7":               3000,
	}
}

// CommandRunner executes an external command and returns its combined
// standard output. It exists so tests can simulate hardware probes.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// MemoryProfile is the capacity/requirement snapshot behind one sizing
// decision. GPUCapacityMB of zero means the capacity could not be detected.
type MemoryProfile struct {
	GPUCapacityMB        int     `json:"gpu_capacity_mb"`
	RequiredMB           int     `json:"required_mb"`
	RequiredWithSafetyMB int     `json:"required_with_safety_mb"`
	SafetyFactor         float64 `json:"safety_factor"`
}

// Manager decides whether a benchmark input fits in device memory or needs
// the unified (fallback) memory execution mode. The capacity probe result
// is cached for the lifetime of the Manager.
type Manager struct {
	logger       *slog.Logger
	safetyFactor float64
	requirements map[string]int
	runCommand   CommandRunner

	mu         sync.Mutex
	capacityMB int
	probed     bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSafetyFactor overrides the default safety margin.
func WithSafetyFactor(f float64) Option {
	return func(m *Manager) {
		if f > 0 {
			m.safetyFactor = f
		}
	}
}

// WithRequirements replaces the built-in known-requirements table.
func WithRequirements(reqs map[string]int) Option {
	return func(m *Manager) {
		if len(reqs) > 0 {
			m.requirements = reqs
		}
	}
}

// WithCommandRunner replaces the probe command executor.
func WithCommandRunner(run CommandRunner) Option {
	return func(m *Manager) {
		if run != nil {
			m.runCommand = run
		}
	}
}

func NewManager(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		logger:       logger,
		safetyFactor: DefaultSafetyFactor,
		requirements: DefaultRequirements(),
		runCommand:   execRunner,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Estimate returns the estimated device memory requirement in MB for the
// given input file. Known inputs resolve through the requirements table by
// base name; unknown inputs fall back to a file-size heuristic, and inputs
// that cannot be inspected at all get DefaultEstimateMB.
func (m *Manager) Estimate(inputPath string) int {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	if mb, ok := m.requirements[base]; ok {
		return mb
	}

	info, err := os.Stat(inputPath)
	if err != nil {
		return DefaultEstimateMB
	}
	fileSizeMB := float64(info.Size()) / (1024 * 1024)
	return int(fileSizeMB * fileSizeMultiplier)
}

// CapacityMB returns the total device memory in MB, probing the host on
// first use and caching the result. Zero means the capacity is
// undetectable; probe failures are never fatal.
func (m *Manager) CapacityMB(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.probed {
		return m.capacityMB
	}

	m.capacityMB = m.probe(ctx)
	m.probed = true
	return m.capacityMB
}

// ResetCapacityCache forces the next CapacityMB call to re-probe. Intended
// for tests that simulate different hardware.
func (m *Manager) ResetCapacityCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probed = false
	m.capacityMB = 0
}

func (m *Manager) probe(ctx context.Context) int {
	smiArgs := []string{"--query-gpu=memory.total", "--format=csv,noheader,nounits"}

	if mb, ok := m.probeCommand(ctx, "nvidia-smi", smiArgs...); ok {
		return mb
	}

	// Host probe failed; the driver may only be reachable from inside a
	// CUDA container.
	dockerArgs := append([]string{"run", "--rm", "--gpus", "all", cudaProbeImage, "nvidia-smi"}, smiArgs...)
	if mb, ok := m.probeCommand(ctx, "docker", dockerArgs...); ok {
		return mb
	}

	m.logger.Warn("unable to detect GPU memory capacity, unified memory will not be forced")
	return 0
}

func (m *Manager) probeCommand(ctx context.Context, name string, args ...string) (int, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := m.runCommand(ctx, name, args...)
	if err != nil {
		return 0, false
	}
	firstLine, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	mb, err := strconv.Atoi(strings.TrimSpace(firstLine))
	if err != nil || mb < 0 {
		return 0, false
	}
	return mb, true
}

// Decide reports whether the input needs the unified (fallback) memory
// mode, together with the profile that justifies the decision. When
// capacity is undetectable the decision is always false: a fallback mode is
// never forced without a real capacity reading.
func (m *Manager) Decide(ctx context.Context, inputPath string) (bool, MemoryProfile) {
	required := m.Estimate(inputPath)
	profile := MemoryProfile{
		GPUCapacityMB:        m.CapacityMB(ctx),
		RequiredMB:           required,
		RequiredWithSafetyMB: int(math.Round(float64(required) * m.safetyFactor)),
		SafetyFactor:         m.safetyFactor,
	}

	if profile.GPUCapacityMB == 0 {
		return false, profile
	}

	needsFallback := profile.RequiredWithSafetyMB > profile.GPUCapacityMB
	if needsFallback {
		m.logger.Info("unified memory required",
			"required_with_safety_mb", profile.RequiredWithSafetyMB,
			"gpu_capacity_mb", profile.GPUCapacityMB,
			"input", inputPath)
	} else {
		m.logger.Debug("unified memory not needed",
			"required_with_safety_mb", profile.RequiredWithSafetyMB,
			"gpu_capacity_mb", profile.GPUCapacityMB,
			"input", inputPath)
	}
	return needsFallback, profile
}
