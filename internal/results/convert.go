package results

import (
	"github.com/samber/lo"

	"github.com/afsysbench/afbench/internal/runner"
	"github.com/afsysbench/afbench/pkg/benchstats"
)

// ToStats projects run records onto the aggregator's record view.
func ToStats(records []runner.RunRecord) []benchstats.Record {
	return lo.Map(records, func(r runner.RunRecord, _ int) benchstats.Record {
		return benchstats.Record{
			Stage:           r.Stage.String(),
			InputID:         r.InputID,
			Threads:         r.Threads,
			Status:          string(r.Status),
			DurationSeconds: r.DurationSeconds,
		}
	})
}
