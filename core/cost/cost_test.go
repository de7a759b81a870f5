package cost

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePriceFetcher struct {
	price float64
	err   error
	calls int
}

func (f *fakePriceFetcher) PricePerHour(ctx context.Context, instanceType string) (float64, error) {
	f.calls++
	return f.price, f.err
}

func TestInstancePriceFromFetcher(t *testing.T) {
	fetcher := &fakePriceFetcher{price: 4.0}
	calc := NewCalculator(fetcher)

	price := calc.InstancePrice(context.Background(), "ml.p3.2xlarge")
	assert.Equal(t, 4.0, price)
	assert.Equal(t, 1, fetcher.calls)
}

func TestInstancePriceFallsBackOnError(t *testing.T) {
	fetcher := &fakePriceFetcher{err: errors.New("pricing API unavailable")}
	calc := NewCalculator(fetcher)

	price := calc.InstancePrice(context.Background(), "ml.p2.xlarge")
	assert.Equal(t, 1.125, price)
}

func TestInstancePriceWithoutFetcher(t *testing.T) {
	calc := NewCalculator(nil)

	assert.Equal(t, 3.825, calc.InstancePrice(context.Background(), "ml.p3.2xlarge"))
	assert.Zero(t, calc.InstancePrice(context.Background(), "ml.unknown.type"))
}

func TestEstimate(t *testing.T) {
	calc := NewCalculator(&fakePriceFetcher{price: 2.0})

	cost := calc.Estimate(context.Background(), "ml.p2.xlarge", 2, 90*time.Minute)
	assert.InDelta(t, 6.0, cost, 1e-9)
}

func TestTrackerLifecycle(t *testing.T) {
	calc := NewCalculator(&fakePriceFetcher{price: 3600.0}) // a dollar a second
	tracker := NewTracker(calc)

	tracker.Track("job-1", "ml.p2.xlarge", 1)
	time.Sleep(10 * time.Millisecond)

	running := tracker.RunningCost(context.Background(), "job-1")
	assert.Greater(t, running, 0.0)

	final := tracker.StopTracking(context.Background(), "job-1")
	assert.GreaterOrEqual(t, final, running)

	// Stopped resources no longer accrue.
	assert.Zero(t, tracker.RunningCost(context.Background(), "job-1"))
	assert.Zero(t, tracker.StopTracking(context.Background(), "job-1"))
}
