package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// PricePerHour fetches the on-demand hourly price for an instance type
// from the pricing API.
func (c *Client) PricePerHour(ctx context.Context, instanceType string) (float64, error) {
	out, err := c.pricingClient.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonSageMaker"),
		Filters: []types.Filter{
			{
				Type:  types.FilterTypeTermMatch,
				Field: aws.String("instanceName"),
				Value: aws.String(instanceType),
			},
			{
				Type:  types.FilterTypeTermMatch,
				Field: aws.String("regionCode"),
				Value: aws.String(c.session.Region),
			},
		},
		MaxResults: aws.Int32(10),
	})
	if err != nil {
		return 0, fmt.Errorf("GetProducts %s: %w", instanceType, err)
	}

	for _, priceItem := range out.PriceList {
		price, ok := parseOnDemandPrice(priceItem)
		if ok {
			return price, nil
		}
	}
	return 0, fmt.Errorf("no on-demand price found for %s", instanceType)
}

// parseOnDemandPrice walks the pricing document down to the USD price of
// the first on-demand price dimension.
func parseOnDemandPrice(priceItem string) (float64, bool) {
	var doc struct {
		Terms struct {
			OnDemand map[string]struct {
				PriceDimensions map[string]struct {
					PricePerUnit struct {
						USD string `json:"USD"`
					} `json:"pricePerUnit"`
				} `json:"priceDimensions"`
			} `json:"OnDemand"`
		} `json:"terms"`
	}
	if err := json.Unmarshal([]byte(priceItem), &doc); err != nil {
		return 0, false
	}

	for _, term := range doc.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			price, err := strconv.ParseFloat(dim.PricePerUnit.USD, 64)
			if err == nil && price > 0 {
				return price, true
			}
		}
	}
	return 0, false
}
