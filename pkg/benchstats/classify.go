package benchstats

// Classification buckets a configuration by its mean duration: whether the
// job did substantial computation or bailed out after input validation.
type Classification string

const (
	// ClassSubstantial means the runs did real computation (mean > 60s).
	ClassSubstantial Classification = "substantial"
	// ClassPartial means the runs may have stopped partway (10s < mean <= 60s).
	ClassPartial Classification = "partial"
	// ClassValidationOnly means the runs were likely input validation only,
	// not real work (mean <= 10s).
	ClassValidationOnly Classification = "validation_only"
)

// Thresholds in seconds, shared with downstream reporting.
const (
	substantialThreshold = 60
	partialThreshold     = 10
)

// Classify maps a group's mean duration in seconds to its classification.
func Classify(meanSeconds float64) Classification {
	switch {
	case meanSeconds > substantialThreshold:
		return ClassSubstantial
	case meanSeconds > partialThreshold:
		return ClassPartial
	default:
		return ClassValidationOnly
	}
}

func (c Classification) String() string { return string(c) }

// Describe returns the human-readable label used in reports.
func (c Classification) Describe() string {
	switch c {
	case ClassSubstantial:
		return "Real computation"
	case ClassPartial:
		return "Partial run"
	default:
		return "Validation only"
	}
}
