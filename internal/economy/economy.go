package economy

import (
	"math"

	"github.com/talgya/statecraft/internal/game"
)

// Model constants. Population is taxed and fed in fixed-size units.
const (
	PopulationUnit = 1000

	baseTaxPerUnit      = 10
	overcrowdingPenalty = 0.5 // applied to tax and growth when over capacity

	baseGrowthRate      = 0.02
	foodSurplusBonus    = 0.01
	foodShortagePenalty = 0.03
	foodSurplusFactor   = 1.5 // stock ≥ factor × needs ⇒ growth bonus

	capacityPerInfraLevel = 8000

	techLevelCap        = 10
	techStepPerLevel    = 0.10
	infraStepPerLevel   = 0.05
	militaryTechPerLvl  = 0.10
	recruitBaseCost     = 100
	recruitTechDiscount = 0.05
	recruitDiscountCap  = 0.5

	militaryUpkeepPerStrength = 1
	infraMaintenancePerLevel  = 5
)

// TechMultiplier is the capped step multiplier applied to production.
func TechMultiplier(level int) float64 {
	if level < 0 {
		level = 0
	}
	if level > techLevelCap {
		level = techLevelCap
	}
	return 1.0 + techStepPerLevel*float64(level)
}

// InfraEfficiency scales tax revenue. Infrastructure, not technology,
// determines how much of the tax base actually reaches the treasury.
func InfraEfficiency(level int) float64 {
	if level < 0 {
		level = 0
	}
	if level > techLevelCap {
		level = techLevelCap
	}
	return 1.0 + infraStepPerLevel*float64(level)
}

// PopulationUnits returns the number of whole tax/food units.
func PopulationUnits(population int) int {
	if population <= 0 {
		return 0
	}
	return population / PopulationUnit
}

// PopulationCapacity is the infrastructure-derived population ceiling.
func PopulationCapacity(infraLevel int) int {
	if infraLevel < 0 {
		infraLevel = 0
	}
	return capacityPerInfraLevel * (infraLevel + 1)
}

// ComputeProduction returns this turn's per-resource output: base rate ×
// tech multiplier × profile multiplier. Profile modifiers multiply.
func ComputeProduction(country *game.Country, stats *game.CountryStats) map[string]int {
	out := make(map[string]int)
	techMul := TechMultiplier(stats.TechnologyLevel)
	var profile *game.ResourceProfile
	if country != nil {
		profile = country.Profile
	}
	for id, info := range Registry {
		if info.BaseProduction <= 0 {
			continue
		}
		amt := int(float64(info.BaseProduction) * techMul * profile.ProductionMultiplier(id))
		if amt > 0 {
			out[id] = amt
		}
	}
	return out
}

// ComputeConsumption returns this turn's per-resource draw: food by
// population units, industrial inputs by infrastructure level.
func ComputeConsumption(stats *game.CountryStats) map[string]int {
	out := make(map[string]int)
	units := PopulationUnits(stats.Population)
	for id, info := range Registry {
		amt := units*info.PopConsumption + stats.InfrastructureLevel*info.InfraConsumption
		if amt > 0 {
			out[id] = amt
		}
	}
	return out
}

// BudgetDelta is the treasury movement for one turn.
type BudgetDelta struct {
	Revenue  int
	Expenses int
	Net      int
}

// ComputeBudgetDelta computes tax revenue against upkeep. Tax scales with
// population units and infrastructure efficiency; overcrowding halves it.
// activeDealsValue is the net budget movement from this turn's deals.
func ComputeBudgetDelta(country *game.Country, stats *game.CountryStats, activeDealsValue int) BudgetDelta {
	revenue := float64(PopulationUnits(stats.Population)*baseTaxPerUnit) * InfraEfficiency(stats.InfrastructureLevel)
	if stats.Population > PopulationCapacity(stats.InfrastructureLevel) {
		revenue *= overcrowdingPenalty
	}

	expenses := stats.MilitaryStrength*militaryUpkeepPerStrength +
		stats.InfrastructureLevel*infraMaintenancePerLevel

	rev := int(revenue)
	return BudgetDelta{
		Revenue:  rev,
		Expenses: expenses,
		Net:      rev - expenses + activeDealsValue,
	}
}

// ComputePopulationDelta computes growth for one turn: base rate with a food
// surplus bonus or shortage penalty, halved when overcrowded, and capped so
// growth never pushes population past capacity.
func ComputePopulationDelta(stats *game.CountryStats) int {
	capacity := PopulationCapacity(stats.InfrastructureLevel)
	growth := baseGrowthRate

	needs := PopulationUnits(stats.Population) * Registry["food"].PopConsumption
	have := stats.Resource("food")
	switch {
	case needs > 0 && float64(have) >= foodSurplusFactor*float64(needs):
		growth += foodSurplusBonus
	case have < needs:
		growth -= foodShortagePenalty
	}

	if stats.Population > capacity && growth > 0 {
		growth *= overcrowdingPenalty
	}

	delta := int(float64(stats.Population) * growth)
	if delta > 0 && stats.Population+delta > capacity {
		delta = capacity - stats.Population
		if delta < 0 {
			delta = 0
		}
	}
	return delta
}

// EffectiveStrength is the combat-ready strength figure used everywhere a
// bound is checked: recruitment display, attack allocation, and defense
// validation must all agree on it.
func EffectiveStrength(baseStrength, techLevel int, profile *game.ResourceProfile) int {
	if baseStrength <= 0 {
		return 0
	}
	eff := math.Floor(float64(baseStrength) * (1.0 + float64(techLevel)*militaryTechPerLvl))
	if profile != nil && profile.MilitaryBonus > 0 {
		eff = math.Floor(eff * profile.MilitaryBonus)
	}
	return int(eff)
}

// RecruitmentCost is the budget price per strength unit. Technology drives
// it down, to a cap of half the base cost.
func RecruitmentCost(techLevel int) int {
	discount := recruitTechDiscount * float64(techLevel)
	if discount > recruitDiscountCap {
		discount = recruitDiscountCap
	}
	return int(recruitBaseCost * (1.0 - discount))
}

// RecruitmentResourceCost is the material bill for recruiting.
func RecruitmentResourceCost(amount int) map[string]int {
	if amount <= 0 {
		return map[string]int{}
	}
	return map[string]int{"steel": amount * 2}
}

// UpgradeCost is a budget plus material bill for a level upgrade.
type UpgradeCost struct {
	Budget    int
	Resources map[string]int
}

// TechUpgradeCost prices an upgrade to targetLevel, with the profile's
// technology cost modifier applied to the budget portion.
func TechUpgradeCost(targetLevel int, profile *game.ResourceProfile) UpgradeCost {
	if targetLevel < 1 {
		targetLevel = 1
	}
	budget := int(float64(200*targetLevel) * profile.CostMultiplier("technology"))
	return UpgradeCost{
		Budget: budget,
		Resources: map[string]int{
			"steel":       10 * targetLevel,
			"rare_metals": 2 * targetLevel,
		},
	}
}

// InfraUpgradeCost prices an infrastructure upgrade to targetLevel.
func InfraUpgradeCost(targetLevel int, profile *game.ResourceProfile) UpgradeCost {
	if targetLevel < 1 {
		targetLevel = 1
	}
	budget := int(float64(150*targetLevel) * profile.CostMultiplier("infrastructure"))
	return UpgradeCost{
		Budget: budget,
		Resources: map[string]int{
			"steel":  8 * targetLevel,
			"timber": 15 * targetLevel,
		},
	}
}
