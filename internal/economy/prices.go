// Package economy holds the per-turn numeric model: production, consumption,
// tax, population, and military effectiveness. Everything here is a pure
// function of a country's stats; callers persist the returned deltas.
package economy

import "sort"

// ResourceInfo is the static registry entry for one resource kind.
type ResourceInfo struct {
	BasePrice        float64 // market fallback price, crowns per unit
	BaseProduction   int     // units produced per turn at tech 0, multiplier 1
	PopConsumption   int     // units consumed per turn per population unit
	InfraConsumption int     // units consumed per turn per infrastructure level
}

// Registry is the closed set of tradeable resources. Market prices override
// the base price; the registry is the fallback so every resource always
// prices at some non-negative value.
var Registry = map[string]ResourceInfo{
	"food":        {BasePrice: 2, BaseProduction: 20, PopConsumption: 5},
	"timber":      {BasePrice: 3, BaseProduction: 12, InfraConsumption: 1},
	"coal":        {BasePrice: 4, BaseProduction: 10, InfraConsumption: 1},
	"oil":         {BasePrice: 10, BaseProduction: 6, InfraConsumption: 1},
	"steel":       {BasePrice: 15, BaseProduction: 8},
	"rare_metals": {BasePrice: 25, BaseProduction: 2},
}

// ResourceIDs returns the registry's resource identifiers in sorted order,
// for callers that need a stable iteration.
func ResourceIDs() []string {
	ids := make([]string, 0, len(Registry))
	for id := range Registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PriceTable resolves unit prices: current market price when present,
// registry base price otherwise.
type PriceTable struct {
	market map[string]float64
}

// NewPriceTable wraps a market price map. A nil map is valid and resolves
// everything from the registry.
func NewPriceTable(market map[string]float64) *PriceTable {
	return &PriceTable{market: market}
}

// UnitPrice returns the price for one unit of a resource, never negative.
// Unknown resources price at zero.
func (t *PriceTable) UnitPrice(resourceID string) float64 {
	if t != nil && t.market != nil {
		if p, ok := t.market[resourceID]; ok && p >= 0 {
			return p
		}
	}
	if info, ok := Registry[resourceID]; ok {
		return info.BasePrice
	}
	return 0
}
