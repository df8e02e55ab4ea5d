package results

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afsysbench/afbench/internal/runner"
)

func sampleRecord(input string, status runner.RunStatus, duration float64) runner.RunRecord {
	return runner.RunRecord{
		ID:              "run-1",
		InputID:         input,
		Stage:           runner.StageMSA,
		Threads:         4,
		DurationSeconds: duration,
		Status:          status,
		Timestamp:       time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
}

func TestStoreAppendAndReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "master_results.csv")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Append(sampleRecord("2PV7.json", runner.StatusSuccess, 12.34)))
	require.NoError(t, store.Append(sampleRecord("promo_data.json", runner.StatusFailed, 2.5)))

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "2PV7.json", records[0].InputID)
	assert.Equal(t, runner.StageMSA, records[0].Stage)
	assert.Equal(t, 4, records[0].Threads)
	assert.Equal(t, runner.StatusSuccess, records[0].Status)
	assert.InDelta(t, 12.34, records[0].DurationSeconds, 1e-9)
	assert.Equal(t, runner.StatusFailed, records[1].Status)
}

func TestStoreWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	store, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Append(sampleRecord("a.json", runner.StatusSuccess, 1)))
	require.NoError(t, store.Append(sampleRecord("b.json", runner.StatusSuccess, 2)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(raw), "timestamp,stage,input_file"))
}

func TestReadSkipsCommentLines(t *testing.T) {
	content := strings.Join([]string{
		"# AFSysBench master results",
		"timestamp,stage,input_file,threads,status,duration_sec,used_fallback,run_id",
		"# mid-file annotation",
		"2026-08-30T12:00:00Z,msa,2PV7.json,4,SUCCESS,12.34,false,run-1",
		"2026-08-30T12:05:00Z,inference,promo_data.json,8,TIMEOUT,7200.00,true,run-2",
		"",
	}, "\n")

	records, err := Read(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, runner.StageInference, records[1].Stage)
	assert.Equal(t, runner.StatusTimeout, records[1].Status)
	assert.True(t, records[1].UsedFallbackMemory)
}

func TestReadEmptyFile(t *testing.T) {
	records, err := Read(strings.NewReader("# only comments\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadRejectsMalformedRows(t *testing.T) {
	content := "2026-08-30T12:00:00Z,msa,a.json,not-a-number,SUCCESS,1.00,false,run-1\n"
	_, err := Read(strings.NewReader(content))
	assert.Error(t, err)
}

func TestStoreConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	store, err := NewStore(path)
	require.NoError(t, err)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Append(sampleRecord("a.json", runner.StatusSuccess, 1)))
		}()
	}
	wg.Wait()

	records, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, records, writers)
}
