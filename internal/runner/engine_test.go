package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afsysbench/afbench/internal/gpumem"
)

// scriptedRunner replays canned records and captures the specs it was
// invoked with.
type scriptedRunner struct {
	results []RunRecord
	specs   []JobSpec
}

func (r *scriptedRunner) Run(ctx context.Context, spec JobSpec) RunRecord {
	r.specs = append(r.specs, spec)
	rec := r.results[0]
	if len(r.results) > 1 {
		r.results = r.results[1:]
	}
	rec.UsedFallbackMemory = spec.UseFallbackMemory
	return rec
}

type fixedAdvisor struct {
	needsFallback bool
	profile       gpumem.MemoryProfile
	calls         int
}

func (a *fixedAdvisor) Decide(ctx context.Context, inputPath string) (bool, gpumem.MemoryProfile) {
	a.calls++
	return a.needsFallback, a.profile
}

func failedRecord(stderr string) RunRecord {
	return RunRecord{Status: StatusFailed, Stderr: stderr}
}

func TestEngineRetriesOOMWithFallback(t *testing.T) {
	fake := &scriptedRunner{results: []RunRecord{
		failedRecord("CUDA out of memory"),
		{Status: StatusSuccess, Stdout: "ok"},
	}}
	engine := NewEngine(fake, &fixedAdvisor{}, EngineOptions{RetryOnOOM: true}, discardLogger())

	rec := engine.RunOnce(context.Background(), JobSpec{Stage: StageInference, InputPath: "big.json", Threads: 8})

	require.Len(t, fake.specs, 2)
	assert.False(t, fake.specs[0].UseFallbackMemory)
	assert.True(t, fake.specs[1].UseFallbackMemory, "retry must request fallback memory")
	assert.Equal(t, StatusSuccess, rec.Status)
	assert.True(t, rec.UsedFallbackMemory)
}

func TestEngineDoesNotRetryNonOOMFailures(t *testing.T) {
	fake := &scriptedRunner{results: []RunRecord{failedRecord("segmentation fault")}}
	engine := NewEngine(fake, &fixedAdvisor{}, EngineOptions{RetryOnOOM: true}, discardLogger())

	rec := engine.RunOnce(context.Background(), JobSpec{InputPath: "a.json"})

	assert.Len(t, fake.specs, 1, "generic faults are surfaced immediately")
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestEngineDoesNotRetryWhenAlreadyInFallback(t *testing.T) {
	fake := &scriptedRunner{results: []RunRecord{failedRecord("CUDA out of memory")}}
	advisor := &fixedAdvisor{needsFallback: true}
	engine := NewEngine(fake, advisor, EngineOptions{RetryOnOOM: true}, discardLogger())

	rec := engine.RunOnce(context.Background(), JobSpec{InputPath: "big.json"})

	assert.Len(t, fake.specs, 1, "a fallback-mode OOM has nothing left to try")
	assert.True(t, fake.specs[0].UseFallbackMemory, "sizing decision must be applied before the run")
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestEngineRetryDisabled(t *testing.T) {
	fake := &scriptedRunner{results: []RunRecord{failedRecord("CUDA out of memory")}}
	engine := NewEngine(fake, &fixedAdvisor{}, EngineOptions{RetryOnOOM: false}, discardLogger())

	engine.RunOnce(context.Background(), JobSpec{InputPath: "big.json"})
	assert.Len(t, fake.specs, 1)
}

func TestEngineRetriesTimeoutWithPartialStderr(t *testing.T) {
	fake := &scriptedRunner{results: []RunRecord{
		{Status: StatusTimeout, Stderr: "...ResourceExhaustedError: out of device memory"},
		{Status: StatusSuccess},
	}}
	engine := NewEngine(fake, &fixedAdvisor{}, EngineOptions{RetryOnOOM: true}, discardLogger())

	rec := engine.RunOnce(context.Background(), JobSpec{InputPath: "big.json"})

	require.Len(t, fake.specs, 2, "OOM-classified timeouts are retried like failures")
	assert.Equal(t, StatusSuccess, rec.Status)
}

func TestEngineRespectsMaxAttempts(t *testing.T) {
	// Every attempt fails with OOM; with the default budget of 2 attempts
	// only one retry happens even though the failure stays OOM-classified.
	fake := &scriptedRunner{results: []RunRecord{failedRecord("CUDA out of memory")}}
	detectAlways := func(string) bool { return true }
	engine := NewEngine(fake, nil, EngineOptions{RetryOnOOM: true, DetectOOM: detectAlways}, discardLogger())

	rec := engine.RunOnce(context.Background(), JobSpec{InputPath: "big.json"})

	assert.Len(t, fake.specs, 2)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestEngineAppliesSizingDecisionOnce(t *testing.T) {
	fake := &scriptedRunner{results: []RunRecord{{Status: StatusSuccess}}}
	advisor := &fixedAdvisor{needsFallback: true}
	engine := NewEngine(fake, advisor, EngineOptions{RetryOnOOM: true}, discardLogger())

	engine.RunOnce(context.Background(), JobSpec{InputPath: "big.json"})

	assert.Equal(t, 1, advisor.calls)
	require.Len(t, fake.specs, 1)
	assert.True(t, fake.specs[0].UseFallbackMemory)
}
