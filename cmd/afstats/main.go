// afstats aggregates a results CSV offline: it recomputes stability
// statistics for every recorded configuration, prints them ranked by
// run-to-run stability and optionally writes the JSON report.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/afsysbench/afbench/internal/results"
	"github.com/afsysbench/afbench/pkg/benchreport"
	"github.com/afsysbench/afbench/pkg/benchstats"
)

func main() {
	var (
		csvPath = flag.String("csv", "results/master_results.csv", "path to the results CSV")
		outPath = flag.String("out", "", "optional path to write the JSON report (defaults to none)")
		topN    = flag.Int("n", 0, "limit output to the N most stable configurations (0 = all)")
		label   = flag.String("label", "", "optional label for the report")
	)
	flag.Parse()

	records, err := results.ReadFile(*csvPath)
	if err != nil {
		fatalf("load results: %v", err)
	}
	if len(records) == 0 {
		fatalf("no records found in %s", *csvPath)
	}

	stats := benchstats.Aggregate(results.ToStats(records))

	ranked := make([]benchstats.StabilityStat, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		ci, cj := ranked[i].CVPercent, ranked[j].CVPercent
		// Non-computable groups sink to the bottom.
		if math.IsNaN(ci) {
			return false
		}
		if math.IsNaN(cj) {
			return true
		}
		return ci < cj
	})
	if *topN > 0 && *topN < len(ranked) {
		ranked = ranked[:*topN]
	}

	fmt.Printf("%d records, %d configurations\n\n", len(records), len(stats))
	fmt.Printf("%-25s %-8s %-6s %-10s %-10s %-8s %-22s %s\n",
		"Configuration", "Threads", "Runs", "Mean", "Range", "CV%", "95% CI", "Verdict")
	for _, s := range ranked {
		if s.Count == 0 {
			fmt.Printf("%-25s %-8d %-6d insufficient data (%d failed)\n",
				s.Stage+"/"+s.InputID, s.Threads, s.Count, s.Failed)
			continue
		}
		ci := fmt.Sprintf("[%.1f, %.1f]", s.CI95Lower, s.CI95Upper)
		fmt.Printf("%-25s %-8d %-6d %-10s %-10s %-8.1f %-22s %s\n",
			s.Stage+"/"+s.InputID,
			s.Threads,
			s.Count,
			benchreport.FormatDuration(s.Mean),
			benchreport.FormatDuration(s.Range),
			s.CVPercent,
			ci,
			benchstats.Classify(s.Mean).Describe(),
		)
	}

	if *outPath != "" {
		report := benchreport.New(benchreport.Env{}, benchreport.Params{}, *label, stats)
		if err := report.WriteJSON(*outPath); err != nil {
			fatalf("write report: %v", err)
		}
	}
}

func fatalf(format string, a ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
