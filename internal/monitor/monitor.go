// Package monitor bounds how many benchmark configurations run at once and
// tracks the in-flight count for logging.
package monitor

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// LoadMetrics is a point-in-time view of suite concurrency.
type LoadMetrics struct {
	ActiveConfigs int64
	MaxConfigs    int64
}

// SlotGate is a semaphore-backed concurrency gate. Each acquired slot runs
// one configuration's repeat sequence; the caller must Release when the
// sequence finishes.
type SlotGate struct {
	sem       *semaphore.Weighted
	maxWeight int64
	activeCnt atomic.Int64
}

func NewSlotGate(maxConcurrency int64) *SlotGate {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &SlotGate{
		sem:       semaphore.NewWeighted(maxConcurrency),
		maxWeight: maxConcurrency,
	}
}

// Acquire blocks until a slot is free or the context is done.
func (g *SlotGate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.activeCnt.Add(1)
	return nil
}

func (g *SlotGate) Release() {
	g.activeCnt.Add(-1)
	g.sem.Release(1)
}

func (g *SlotGate) Metrics() LoadMetrics {
	return LoadMetrics{
		ActiveConfigs: g.activeCnt.Load(),
		MaxConfigs:    g.maxWeight,
	}
}
