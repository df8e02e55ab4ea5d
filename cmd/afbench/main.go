package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/afsysbench/afbench/internal/app"
	"github.com/afsysbench/afbench/internal/results"
	"github.com/afsysbench/afbench/internal/runner"
	"github.com/afsysbench/afbench/pkg/benchreport"
	"github.com/afsysbench/afbench/pkg/benchstats"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (required)")
		stageName  = flag.String("stage", "msa", "pipeline stage to benchmark: msa|inference")
		inputsArg  = flag.String("input", "", "comma-separated input files (required)")
		threadsArg = flag.String("threads", "", "comma-separated thread counts (overrides config)")
		repeats    = flag.Int("repeats", 0, "measured runs per configuration (overrides config)")
		parallel   = flag.Int64("parallel", 0, "concurrent configurations (overrides config)")
		label      = flag.String("label", "", "optional label for this machine/config")
		reportPath = flag.String("report", "", "path for the JSON stability report (overrides config)")
	)
	flag.Parse()

	if *configPath == "" {
		fatalf("-config is required")
	}
	if *inputsArg == "" {
		fatalf("-input is required")
	}
	stage, err := runner.ParseStage(*stageName)
	if err != nil {
		fatalf("%v", err)
	}

	application, err := app.New(*configPath)
	if err != nil {
		fatalf("init: %v", err)
	}

	if *threadsArg != "" {
		counts, err := parseThreadCounts(*threadsArg)
		if err != nil {
			fatalf("%v", err)
		}
		application.Config.Benchmark.ThreadCounts = counts
	}
	if *repeats > 0 {
		application.Config.Benchmark.Repeats = *repeats
	}
	if *parallel > 0 {
		application.Config.Benchmark.Parallelism = *parallel
	}
	if *reportPath == "" {
		*reportPath = application.Config.Results.ReportJSON
	}
	if *label == "" {
		*label = application.Config.Label
	}

	// An interrupt kills the in-flight job and stops the suite; whatever
	// records were collected are still aggregated and reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inputs := splitList(*inputsArg)
	configs := application.BuildConfigs(stage, inputs)

	records, runErr := application.Engine.RunSuite(ctx,
		configs,
		application.Config.Benchmark.Repeats,
		application.Config.Benchmark.Parallelism,
		func(rec runner.RunRecord) {
			if err := application.Store.Append(rec); err != nil {
				application.Logger.Error("append result", "error", err)
			}
		})
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		application.Logger.Error("suite aborted", "error", runErr)
	}

	stats := benchstats.Aggregate(results.ToStats(records))
	printSummary(stats)

	report := benchreport.New(
		application.ReportEnv(ctx),
		application.ReportParams(*configPath),
		*label,
		stats,
	)
	if err := report.WriteJSON(*reportPath); err != nil {
		fatalf("write report: %v", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func printSummary(stats []benchstats.StabilityStat) {
	if len(stats) == 0 {
		fmt.Println("no runs recorded")
		return
	}
	fmt.Printf("%-25s %-8s %-6s %-10s %-10s %-8s %s\n",
		"Configuration", "Threads", "Runs", "Mean", "StdDev", "CV%", "Verdict")
	for _, s := range stats {
		if s.Count == 0 {
			fmt.Printf("%-25s %-8d %-6d insufficient data (%d failed)\n",
				s.Stage+"/"+s.InputID, s.Threads, s.Count, s.Failed)
			continue
		}
		fmt.Printf("%-25s %-8d %-6d %-10s %-10s %-8.1f %s\n",
			s.Stage+"/"+s.InputID,
			s.Threads,
			s.Count,
			benchreport.FormatDuration(s.Mean),
			benchreport.FormatDuration(s.Stdev),
			s.CVPercent,
			benchstats.Classify(s.Mean).Describe(),
		)
	}
}

func parseThreadCounts(arg string) ([]int, error) {
	var counts []int
	for _, part := range splitList(arg) {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid thread count %q", part)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func splitList(arg string) []string {
	var out []string
	for _, part := range strings.Split(arg, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
