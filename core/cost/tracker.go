package cost

import (
	"context"
	"sync"
	"time"
)

// Tracker accrues running cost for live jobs and endpoints.
type Tracker struct {
	calc    *Calculator
	mu      sync.RWMutex
	tracked map[string]*trackedResource
}

type trackedResource struct {
	instanceType  string
	instanceCount int
	startTime     time.Time
}

// NewTracker creates a new cost tracker
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{
		calc:    calc,
		tracked: make(map[string]*trackedResource),
	}
}

// Track starts cost accrual for a named resource.
func (t *Tracker) Track(name, instanceType string, instanceCount int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracked[name] = &trackedResource{
		instanceType:  instanceType,
		instanceCount: instanceCount,
		startTime:     time.Now(),
	}
}

// StopTracking ends accrual for a resource and returns its final cost.
func (t *Tracker) StopTracking(ctx context.Context, name string) float64 {
	t.mu.Lock()
	res, ok := t.tracked[name]
	delete(t.tracked, name)
	t.mu.Unlock()

	if !ok {
		return 0
	}
	return t.calc.Estimate(ctx, res.instanceType, res.instanceCount, time.Since(res.startTime))
}

// RunningCost returns the cost accrued so far for a resource.
func (t *Tracker) RunningCost(ctx context.Context, name string) float64 {
	t.mu.RLock()
	res, ok := t.tracked[name]
	t.mu.RUnlock()

	if !ok {
		return 0
	}
	return t.calc.Estimate(ctx, res.instanceType, res.instanceCount, time.Since(res.startTime))
}
