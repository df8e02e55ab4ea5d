package runner

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a pipeline phase with its own resource and timing profile.
type Stage int

const (
	// StageMSA is the alignment-search phase, CPU-bound and comparatively
	// light.
	StageMSA Stage = iota
	// StageInference is the GPU-bound model-inference phase.
	StageInference
)

const (
	// DefaultTimeout bounds every non-inference invocation.
	DefaultTimeout = time.Hour
	// DefaultInferenceTimeout bounds inference invocations, which routinely
	// run far longer than the earlier stages.
	DefaultInferenceTimeout = 2 * time.Hour
)

func (s Stage) String() string {
	switch s {
	case StageMSA:
		return "msa"
	case StageInference:
		return "inference"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ParseStage maps a stage name to its variant.
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "msa":
		return StageMSA, nil
	case "inference":
		return StageInference, nil
	default:
		return 0, fmt.Errorf("unknown stage %q", s)
	}
}
