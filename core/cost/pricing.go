package cost

import (
	"context"
	"log"
	"time"
)

// PriceFetcher resolves the on-demand hourly price of an instance type.
type PriceFetcher interface {
	PricePerHour(ctx context.Context, instanceType string) (float64, error)
}

// fallbackPrices covers the common training and hosting instance types
// when the pricing API is unreachable. USD per hour, us-east-1.
var fallbackPrices = map[string]float64{
	"ml.p2.xlarge":   1.125,
	"ml.p2.8xlarge":  8.640,
	"ml.p3.2xlarge":  3.825,
	"ml.p3.8xlarge":  14.688,
	"ml.p3.16xlarge": 28.152,
	"ml.g4dn.xlarge": 0.736,
	"ml.m4.xlarge":   0.240,
	"ml.m5.xlarge":   0.230,
	"ml.m5.4xlarge":  0.922,
	"ml.c5.xlarge":   0.238,
}

// Calculator estimates and prices compute usage for jobs and endpoints.
type Calculator struct {
	fetcher PriceFetcher
}

// NewCalculator creates a calculator. fetcher may be nil, in which case
// only the fallback table is consulted.
func NewCalculator(fetcher PriceFetcher) *Calculator {
	return &Calculator{fetcher: fetcher}
}

// InstancePrice returns the hourly price for an instance type, falling
// back to the static table when the pricing API cannot answer.
func (c *Calculator) InstancePrice(ctx context.Context, instanceType string) float64 {
	if c.fetcher != nil {
		price, err := c.fetcher.PricePerHour(ctx, instanceType)
		if err == nil && price > 0 {
			return price
		}
		if err != nil {
			log.Printf("Pricing lookup for %s failed, using fallback table: %v", instanceType, err)
		}
	}
	return fallbackPrices[instanceType]
}

// Estimate returns the cost of running count instances for the given
// duration.
func (c *Calculator) Estimate(ctx context.Context, instanceType string, count int, d time.Duration) float64 {
	return c.InstancePrice(ctx, instanceType) * float64(count) * d.Hours()
}
