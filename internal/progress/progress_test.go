package progress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullLog(t *testing.T) {
	log := strings.Join([]string{
		"2026-08-30 12:00:01 starting benchmark suite",
		"Processing MSA input: 2PV7.json",
		"Iteration 1: 2PV7.json with 4 threads",
		"Completed in 12.3s",
		"Iteration 2: 2PV7.json with 4 threads",
		"Completed in 11.9s",
		"Processing Inference input: promo_data.json",
		"Iteration 1: promo_data.json with 8 threads",
		"Failed after 3.2s",
		"some unrelated diagnostics line",
	}, "\n")

	snap, err := Parse(strings.NewReader(log))
	require.NoError(t, err)

	assert.True(t, snap.Running)
	assert.Equal(t, "inference", snap.Stage)
	assert.Equal(t, 1, snap.Iteration)
	assert.Equal(t, "promo_data.json", snap.Input)
	assert.Equal(t, 8, snap.Threads)
	assert.Equal(t, 2, snap.Completed)
	assert.Equal(t, 1, snap.Failed)
}

func TestParseEmptyLog(t *testing.T) {
	snap, err := Parse(strings.NewReader(""))
	require.NoError(t, err)

	assert.False(t, snap.Running)
	assert.Equal(t, "", snap.Stage)
	assert.Zero(t, snap.Completed)
	assert.Zero(t, snap.Failed)
}

func TestParseIgnoresUnmatchedLines(t *testing.T) {
	log := strings.Join([]string{
		"random noise",
		"Iteration: missing number",
		"Completed",
	}, "\n")

	snap, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.Zero(t, snap.Completed)
}

func TestCurrentTest(t *testing.T) {
	assert.Equal(t, "N/A", Snapshot{}.CurrentTest())

	snap := Snapshot{Running: true, Input: "2PV7.json", Threads: 4, Iteration: 3}
	assert.Equal(t, "2PV7.json (4t, iter 3)", snap.CurrentTest())
}

func TestParseLaterLinesWin(t *testing.T) {
	log := strings.Join([]string{
		"Iteration 1: a.json with 2 threads",
		"Iteration 2: b.json with 16 threads",
	}, "\n")

	snap, err := Parse(strings.NewReader(log))
	require.NoError(t, err)
	assert.Equal(t, "b.json", snap.Input)
	assert.Equal(t, 16, snap.Threads)
	assert.Equal(t, 2, snap.Iteration)
}
