// afprogress summarizes a running or finished benchmark from its log file:
// current configuration, completed and failed counts, detected stage.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/afsysbench/afbench/internal/progress"
)

func main() {
	logPath := flag.String("log", "", "path to the benchmark log file (default: stdin)")
	flag.Parse()

	in := os.Stdin
	if *logPath != "" {
		f, err := os.Open(*logPath)
		if err != nil {
			fatalf("open log: %v", err)
		}
		defer f.Close()
		in = f
	}

	snap, err := progress.Parse(in)
	if err != nil {
		fatalf("%v", err)
	}

	stage := snap.Stage
	if stage == "" {
		stage = "unknown"
	}
	fmt.Printf("Stage:        %s\n", stage)
	fmt.Printf("Current test: %s\n", snap.CurrentTest())
	fmt.Printf("Completed:    %d\n", snap.Completed)
	fmt.Printf("Failed:       %d\n", snap.Failed)

	if !snap.Running {
		os.Exit(2)
	}
}

func fatalf(format string, a ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
