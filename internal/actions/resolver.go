package actions

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/game"
)

// ErrInsufficientBudget means an action's cost exceeds the country's budget.
var ErrInsufficientBudget = errors.New("actions: insufficient budget")

// Rejection records why a pending action did not execute. Surfaced to the
// caller per turn for observability.
type Rejection struct {
	ActionID  string `json:"action_id"`
	CountryID string `json:"country_id"`
	Reason    string `json:"reason"`
}

// Context is the mutable mid-turn state the resolver works against.
type Context struct {
	Countries map[string]*game.Country
	Stats     map[string]*game.CountryStats
	Cities    map[string]*game.City
}

// Resolver consumes pending actions in submission order. Resolution is
// sequential per game: later actions see the budget earlier ones spent.
type Resolver struct {
	combat config.CombatTuning
}

// NewResolver creates a resolver from the tuning config.
func NewResolver(t config.Tuning) *Resolver {
	return &Resolver{combat: t.Combat}
}

// SubmitAttack applies the submission-time effects of an attack: the fixed
// cost (base + per-strength × allocation) is deducted immediately and the
// target city is flagged under attack. Returns the cost charged.
func (r *Resolver) SubmitAttack(stats *game.CountryStats, city *game.City, payload MilitaryPayload) (int, error) {
	cost := r.combat.AttackBaseCost + r.combat.PerStrengthCost*payload.AllocatedStrength
	if stats.Budget < cost {
		return 0, fmt.Errorf("%w: attack costs %d, budget %d", ErrInsufficientBudget, cost, stats.Budget)
	}
	if payload.AllocatedStrength > stats.MilitaryStrength {
		return 0, fmt.Errorf("allocated strength %d exceeds military strength %d",
			payload.AllocatedStrength, stats.MilitaryStrength)
	}
	stats.Budget -= cost
	if city != nil {
		city.IsUnderAttack = true
	}
	return cost, nil
}

// ValidateDefense checks a defender's allocation against the same
// effective-strength figure the recruitment display uses, so both sides
// agree on bounds.
func ValidateDefense(defender *game.Country, stats *game.CountryStats, allocation int) error {
	limit := economy.EffectiveStrength(stats.MilitaryStrength, stats.TechnologyLevel, defender.Profile)
	if allocation < 0 || allocation > limit {
		return fmt.Errorf("defense allocation %d outside [0, %d]", allocation, limit)
	}
	return nil
}

// Resolve processes every pending action in order, mutating the context
// stats and marking each action executed or rejected. Malformed or
// unaffordable actions are rejected and the turn continues.
func (r *Resolver) Resolve(pending []*game.Action, ctx *Context) ([]game.TurnEvent, []Rejection) {
	var events []game.TurnEvent
	var rejections []Rejection

	reject := func(a *game.Action, reason string) {
		a.Status = game.ActionRejected
		rejections = append(rejections, Rejection{ActionID: a.ID, CountryID: a.CountryID, Reason: reason})
		events = append(events, game.TurnEvent{
			Type:    "action_rejected",
			Message: fmt.Sprintf("%s action by %s rejected: %s", a.Type, a.CountryID, reason),
			Data:    map[string]any{"action_id": a.ID, "country_id": a.CountryID},
		})
	}

	for _, a := range pending {
		if a.Status != game.ActionPending {
			continue
		}
		stats := ctx.Stats[a.CountryID]
		country := ctx.Countries[a.CountryID]
		if stats == nil || country == nil {
			reject(a, "unknown country")
			continue
		}

		var (
			event *game.TurnEvent
			err   error
		)
		switch a.Type {
		case game.ActionResearch:
			event, err = r.resolveResearch(a, country, stats)
		case game.ActionEconomic:
			event, err = r.resolveEconomic(a, country, stats)
		case game.ActionMilitary:
			event, err = r.resolveMilitary(a, country, stats, ctx)
		case game.ActionDiplomacy:
			event, err = r.resolveDiplomacy(a, stats, ctx)
		default:
			err = fmt.Errorf("unknown action type %q", a.Type)
		}

		if err != nil {
			slog.Debug("action rejected", "action", a.ID, "country", a.CountryID, "error", err)
			reject(a, err.Error())
			continue
		}
		a.Status = game.ActionExecuted
		if event != nil {
			events = append(events, *event)
		}
	}

	return events, rejections
}

func (r *Resolver) resolveResearch(a *game.Action, country *game.Country, stats *game.CountryStats) (*game.TurnEvent, error) {
	p, err := DecodeResearch(a.Payload)
	if err != nil {
		return nil, err
	}
	if p.TargetLevel <= stats.TechnologyLevel {
		return nil, fmt.Errorf("technology already at level %d", stats.TechnologyLevel)
	}
	cost := economy.TechUpgradeCost(p.TargetLevel, country.Profile)
	if err := payCost(stats, cost); err != nil {
		return nil, err
	}
	stats.TechnologyLevel = p.TargetLevel
	return &game.TurnEvent{
		Type:    "research",
		Message: fmt.Sprintf("%s advanced technology to level %d", country.Name, p.TargetLevel),
		Data:    map[string]any{"country_id": country.ID, "level": p.TargetLevel},
	}, nil
}

func (r *Resolver) resolveEconomic(a *game.Action, country *game.Country, stats *game.CountryStats) (*game.TurnEvent, error) {
	p, err := DecodeEconomic(a.Payload)
	if err != nil {
		return nil, err
	}
	// Schema restricts subType to infrastructure today; the switch keeps the
	// dispatch shape for future economic subtypes.
	switch p.SubType {
	case SubInfrastructure:
		if p.TargetLevel <= stats.InfrastructureLevel {
			return nil, fmt.Errorf("infrastructure already at level %d", stats.InfrastructureLevel)
		}
		cost := economy.InfraUpgradeCost(p.TargetLevel, country.Profile)
		if err := payCost(stats, cost); err != nil {
			return nil, err
		}
		stats.InfrastructureLevel = p.TargetLevel
		return &game.TurnEvent{
			Type:    "infrastructure",
			Message: fmt.Sprintf("%s expanded infrastructure to level %d", country.Name, p.TargetLevel),
			Data:    map[string]any{"country_id": country.ID, "level": p.TargetLevel},
		}, nil
	}
	return nil, fmt.Errorf("unknown economic subtype %q", p.SubType)
}

func (r *Resolver) resolveMilitary(a *game.Action, country *game.Country, stats *game.CountryStats, ctx *Context) (*game.TurnEvent, error) {
	p, err := DecodeMilitary(a.Payload)
	if err != nil {
		return nil, err
	}
	switch p.SubType {
	case SubRecruit:
		budget := economy.RecruitmentCost(stats.TechnologyLevel) * p.Amount
		cost := economy.UpgradeCost{Budget: budget, Resources: economy.RecruitmentResourceCost(p.Amount)}
		if err := payCost(stats, cost); err != nil {
			return nil, err
		}
		stats.MilitaryStrength += p.Amount
		stats.MilitaryEquipment += p.Amount
		return &game.TurnEvent{
			Type:    "recruit",
			Message: fmt.Sprintf("%s recruited %d strength", country.Name, p.Amount),
			Data:    map[string]any{"country_id": country.ID, "amount": p.Amount},
		}, nil
	case SubAttack:
		return r.resolveAttack(p, country, stats, ctx)
	}
	return nil, fmt.Errorf("unknown military subtype %q", p.SubType)
}

// resolveAttack settles a pending attack exactly once. The submission cost
// was already charged; here the strength comparison runs, ownership
// transfers on a win, and the city's under-attack flag clears regardless of
// outcome.
func (r *Resolver) resolveAttack(p MilitaryPayload, attacker *game.Country, attackerStats *game.CountryStats, ctx *Context) (*game.TurnEvent, error) {
	city := ctx.Cities[p.CityID]
	if city == nil {
		return nil, fmt.Errorf("unknown city %q", p.CityID)
	}
	defer func() { city.IsUnderAttack = false }()

	defender := ctx.Countries[p.DefenderID]
	defenderStats := ctx.Stats[p.DefenderID]
	if defender == nil || defenderStats == nil {
		return nil, fmt.Errorf("unknown defender %q", p.DefenderID)
	}
	if city.CountryID != p.DefenderID {
		return nil, fmt.Errorf("city %s not owned by %s", p.CityID, p.DefenderID)
	}

	alloc := min(p.AllocatedStrength, attackerStats.MilitaryStrength)
	defense := p.DefenseAllocation
	if err := ValidateDefense(defender, defenderStats, defense); err != nil {
		// Invalid defense allocations fall back to the garrison default
		// rather than failing the attack.
		defense = 0
	}
	if defense == 0 {
		defense = min(city.Population/100, defenderStats.MilitaryStrength)
	}

	attackEff := economy.EffectiveStrength(alloc, attackerStats.TechnologyLevel, attacker.Profile)
	defenseEff := economy.EffectiveStrength(defense, defenderStats.TechnologyLevel, defender.Profile)

	if attackEff > defenseEff {
		city.CountryID = attacker.ID
		attackerStats.MilitaryStrength -= int(math.Ceil(float64(alloc) * r.combat.WinnerLossShare))
		defenderStats.MilitaryStrength -= defense
		attackerStats.ClampNonNegative()
		defenderStats.ClampNonNegative()
		return &game.TurnEvent{
			Type:    "combat",
			Message: fmt.Sprintf("%s captured %s from %s", attacker.Name, city.Name, defender.Name),
			Data: map[string]any{
				"attacker": attacker.ID, "defender": defender.ID, "city": city.ID,
				"attack_effective": attackEff, "defense_effective": defenseEff, "captured": true,
			},
		}, nil
	}

	attackerStats.MilitaryStrength -= alloc
	defenderStats.MilitaryStrength -= int(math.Ceil(float64(defense) * r.combat.WinnerLossShare))
	attackerStats.ClampNonNegative()
	defenderStats.ClampNonNegative()
	return &game.TurnEvent{
		Type:    "combat",
		Message: fmt.Sprintf("%s repelled %s at %s", defender.Name, attacker.Name, city.Name),
		Data: map[string]any{
			"attacker": attacker.ID, "defender": defender.ID, "city": city.ID,
			"attack_effective": attackEff, "defense_effective": defenseEff, "captured": false,
		},
	}, nil
}

func (r *Resolver) resolveDiplomacy(a *game.Action, stats *game.CountryStats, ctx *Context) (*game.TurnEvent, error) {
	p, err := DecodeDiplomacy(a.Payload)
	if err != nil {
		return nil, err
	}
	target := ctx.Stats[p.TargetCountryID]
	if target == nil {
		return nil, fmt.Errorf("unknown country %q", p.TargetCountryID)
	}
	if stats.DiplomaticRelations == nil {
		stats.DiplomaticRelations = make(map[string]int)
	}
	if target.DiplomaticRelations == nil {
		target.DiplomaticRelations = make(map[string]int)
	}
	stats.DiplomaticRelations[p.TargetCountryID] += p.AffinityDelta
	target.DiplomaticRelations[a.CountryID] += p.AffinityDelta
	return &game.TurnEvent{
		Type:    "diplomacy",
		Message: fmt.Sprintf("relations between %s and %s shifted by %d", a.CountryID, p.TargetCountryID, p.AffinityDelta),
		Data:    map[string]any{"country_id": a.CountryID, "target": p.TargetCountryID, "delta": p.AffinityDelta},
	}, nil
}

// payCost deducts a budget+resource bill, failing without partial effects.
func payCost(stats *game.CountryStats, cost economy.UpgradeCost) error {
	if stats.Budget < cost.Budget {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientBudget, cost.Budget, stats.Budget)
	}
	for id, amt := range cost.Resources {
		if stats.Resource(id) < amt {
			return fmt.Errorf("insufficient %s: need %d, have %d", id, amt, stats.Resource(id))
		}
	}
	stats.Budget -= cost.Budget
	for id, amt := range cost.Resources {
		stats.AddResource(id, -amt)
	}
	return nil
}
