// Package progress derives a benchmark progress snapshot from the runner's
// free-form log output. Each recognized line shape has exactly one pattern;
// any line matching none of them carries no new information and is skipped,
// never treated as an error.
package progress

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
)

// Recognized line shapes, one pattern each:
//
//	iteration: "Iteration <n>: <input> with <t> threads"
//	completed: "Completed in <duration>"
//	failed:    "Failed after <duration>"
//	stage:     "Processing MSA input:" / "Processing Inference input:"
var (
	iterationPattern = regexp.MustCompile(`Iteration (\d+): (\S+) with (\d+) threads`)
	completedPattern = regexp.MustCompile(`Completed in`)
	failedPattern    = regexp.MustCompile(`Failed after`)
	msaPattern       = regexp.MustCompile(`Processing MSA input:`)
	inferencePattern = regexp.MustCompile(`Processing Inference input:`)
)

// Snapshot is the progress state reconstructed from a log.
type Snapshot struct {
	// Running is true once at least one iteration line was seen.
	Running bool
	// Stage is the last stage marker seen ("msa", "inference" or "").
	Stage string
	// Iteration, Input and Threads describe the most recent iteration line.
	Iteration int
	Input     string
	Threads   int

	Completed int
	Failed    int
}

// CurrentTest renders the in-flight configuration, or "N/A" before the
// first iteration.
func (s Snapshot) CurrentTest() string {
	if !s.Running {
		return "N/A"
	}
	return fmt.Sprintf("%s (%dt, iter %d)", s.Input, s.Threads, s.Iteration)
}

// Parse scans a complete log and folds every recognized line into a
// snapshot. Later lines win, so the snapshot reflects the log's tail state.
func Parse(r io.Reader) (Snapshot, error) {
	var snap Snapshot

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case msaPattern.MatchString(line):
			snap.Stage = "msa"
		case inferencePattern.MatchString(line):
			snap.Stage = "inference"
		case completedPattern.MatchString(line):
			snap.Completed++
		case failedPattern.MatchString(line):
			snap.Failed++
		default:
			if m := iterationPattern.FindStringSubmatch(line); m != nil {
				snap.Running = true
				snap.Iteration, _ = strconv.Atoi(m[1])
				snap.Input = m[2]
				snap.Threads, _ = strconv.Atoi(m[3])
			}
		}
	}
	if err := sc.Err(); err != nil {
		return snap, fmt.Errorf("progress: scan log: %w", err)
	}
	return snap, nil
}
