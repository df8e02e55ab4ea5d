// Package benchreport defines the JSON stability report emitted after a
// benchmark suite and read by the external plotting/report tooling.
package benchreport

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/afsysbench/afbench/pkg/benchstats"
)

// Version identifies the report schema.
const Version = "1"

// Env describes the machine the suite ran on.
type Env struct {
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	CPUModel       string `json:"cpu_model"`
	CPUNumLogical  int    `json:"cpu_num_logical"`
	GPUName        string `json:"gpu_name"`
	GPUVRAMTotalMB int    `json:"gpu_vram_total_mb"`
}

// Params records the suite parameters needed to reproduce the report.
type Params struct {
	ConfigFile   string  `json:"config_file,omitempty"`
	ThreadCounts []int   `json:"thread_counts"`
	Repeats      int     `json:"repeats"`
	SafetyFactor float64 `json:"safety_factor"`
}

// Group is one configuration's stability verdict.
type Group struct {
	benchstats.StabilityStat
	Classification benchstats.Classification `json:"classification"`
}

// MarshalJSON flattens the embedded stat and appends the classification.
// Without this the embedded stat's marshaler would win and drop the
// classification field.
func (g Group) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(g.StabilityStat)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["classification"] = g.Classification
	return json.Marshal(fields)
}

// Report is the full stability report for one suite execution.
type Report struct {
	Version          string  `json:"version"`
	TimestampRFC3339 string  `json:"timestamp_rfc3339"`
	Label            string  `json:"label,omitempty"`
	Env              Env     `json:"env"`
	Params           Params  `json:"params"`
	Groups           []Group `json:"groups"`
}

// New assembles a report from aggregated stats, stamping each group with
// its classification.
func New(env Env, params Params, label string, stats []benchstats.StabilityStat) Report {
	groups := make([]Group, 0, len(stats))
	for _, s := range stats {
		groups = append(groups, Group{
			StabilityStat:  s,
			Classification: benchstats.Classify(s.Mean),
		})
	}
	return Report{
		Version:          Version,
		TimestampRFC3339: time.Now().Format(time.RFC3339),
		Label:            label,
		Env:              env,
		Params:           params,
		Groups:           groups,
	}
}

// WriteJSON writes the report as indented JSON, to stdout when path is
// empty. Parent directories are created as needed.
func (r Report) WriteJSON(path string) error {
	if path == "" {
		return r.encode(os.Stdout)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("benchreport: create report dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("benchreport: create %s: %w", path, err)
	}
	defer f.Close()
	return r.encode(f)
}

func (r Report) encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// FormatDuration renders seconds in a compact human unit for report tables.
func FormatDuration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%.1fs", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.1fh", seconds/3600)
	}
}
