package model

import (
	"fmt"
	"strings"
	"time"
)

// PriceKey identifies a unit for price lookup. A manufacturer/model pair is
// preferred; the generic (fuel, capacity, tier) form is used otherwise.
type PriceKey struct {
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Model           string   `json:"model,omitempty"`
	FuelType        FuelType `json:"fuel_type,omitempty"`
	CapacityGallons float64  `json:"capacity_gallons,omitempty"`
	Tier            Tier     `json:"tier,omitempty"`
}

// ID returns the cache key for the price key.
func (k PriceKey) ID() string {
	if k.Manufacturer != "" && k.Model != "" {
		return "model:" + normalizeKeyPart(k.Manufacturer) + ":" + normalizeKeyPart(k.Model)
	}
	tier := k.Tier
	if tier == "" {
		tier = TierBetter
	}
	return fmt.Sprintf("generic:%s:%.0f:%s", k.FuelType, k.CapacityGallons, tier)
}

// IsModel reports whether the key names a specific manufacturer model.
func (k PriceKey) IsModel() bool {
	return k.Manufacturer != "" && k.Model != ""
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}

// PriceQuote is a cached unit price.
type PriceQuote struct {
	Key        PriceKey  `json:"key"`
	Retail     float64   `json:"retail"`
	Wholesale  float64   `json:"wholesale"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Stale reports whether the quote is older than the freshness window.
func (q PriceQuote) Stale(now time.Time, window time.Duration) bool {
	return now.Sub(q.FetchedAt) > window
}
