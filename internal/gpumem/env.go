package gpumem

// Environment variables recognized by the benchmark scripts for the unified
// memory execution path. Names and values are a versioned contract with the
// external job; change them only together with the scripts.
const (
	EnvClientPreallocate = "XLA_PYTHON_CLIENT_PREALLOCATE"
	EnvForceUnified      = "TF_FORCE_UNIFIED_MEMORY"
	EnvClientMemFraction = "XLA_CLIENT_MEM_FRACTION"
)

// DefaultUnifiedMemoryEnv returns the overrides that enable unified memory.
// The memory fraction is empirically tuned and may be recalibrated via
// configuration.
func DefaultUnifiedMemoryEnv() map[string]string {
	return map[string]string{
		EnvClientPreallocate: "false",
		EnvForceUnified:      "true",
		EnvClientMemFraction: "3.2",
	}
}
