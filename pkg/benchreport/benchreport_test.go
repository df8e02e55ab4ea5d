package benchreport

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afsysbench/afbench/pkg/benchstats"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12.3s", FormatDuration(12.34))
	assert.Equal(t, "59.9s", FormatDuration(59.9))
	assert.Equal(t, "1.0m", FormatDuration(60))
	assert.Equal(t, "30.0m", FormatDuration(1800))
	assert.Equal(t, "1.0h", FormatDuration(3600))
	assert.Equal(t, "2.5h", FormatDuration(9000))
}

func TestNewStampsClassification(t *testing.T) {
	stats := []benchstats.StabilityStat{
		{InputID: "big.json", Count: 3, Mean: 120},
		{InputID: "mid.json", Count: 3, Mean: 30},
		{InputID: "tiny.json", Count: 3, Mean: 2},
	}

	report := New(Env{OS: "linux"}, Params{Repeats: 3}, "nightly", stats)

	require.Len(t, report.Groups, 3)
	assert.Equal(t, Version, report.Version)
	assert.Equal(t, "nightly", report.Label)
	assert.NotEmpty(t, report.TimestampRFC3339)
	assert.Equal(t, benchstats.ClassSubstantial, report.Groups[0].Classification)
	assert.Equal(t, benchstats.ClassPartial, report.Groups[1].Classification)
	assert.Equal(t, benchstats.ClassValidationOnly, report.Groups[2].Classification)
}

func TestWriteJSONRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "stability.json")
	report := New(
		Env{OS: "linux", Arch: "amd64", GPUName: "NVIDIA A100", GPUVRAMTotalMB: 40960},
		Params{ThreadCounts: []int{4, 8}, Repeats: 3, SafetyFactor: 1.2},
		"",
		[]benchstats.StabilityStat{{
			Stage: "msa", InputID: "2PV7.json", Threads: 4,
			Count: 3, Mean: 12.3, Stdev: 0.4, Min: 11.9, Max: 12.8,
			Median: 12.2, CVPercent: 3.25, CI95Lower: 11.85, CI95Upper: 12.75, Range: 0.9,
		}},
	)

	require.NoError(t, report.WriteJSON(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var loaded Report
	require.NoError(t, json.Unmarshal(raw, &loaded))
	assert.Equal(t, report.Env, loaded.Env)
	assert.Equal(t, report.Params.ThreadCounts, loaded.Params.ThreadCounts)
	require.Len(t, loaded.Groups, 1)
	assert.Equal(t, "2PV7.json", loaded.Groups[0].InputID)
	assert.InDelta(t, 12.3, loaded.Groups[0].Mean, 1e-9)
	assert.Equal(t, benchstats.ClassValidationOnly, loaded.Groups[0].Classification)
}

func TestWriteJSONEncodesNaNAsNull(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stability.json")
	nan := math.NaN()
	report := New(Env{}, Params{}, "", []benchstats.StabilityStat{{
		Stage: "msa", InputID: "broken.json", Threads: 4, Failed: 3,
		Mean: nan, Stdev: nan, Min: nan, Max: nan, Median: nan,
		CVPercent: nan, CI95Lower: nan, CI95Upper: nan, Range: nan,
	}})

	require.NoError(t, report.WriteJSON(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	groups, ok := decoded["groups"].([]any)
	require.True(t, ok)
	require.Len(t, groups, 1)
	group := groups[0].(map[string]any)
	assert.Nil(t, group["mean"])
	assert.Nil(t, group["cv_percent"])
	assert.Equal(t, float64(3), group["failed"])
}
