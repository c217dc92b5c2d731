// Package game defines the core domain types: countries, per-turn stats,
// actions, deals, and cities. Everything downstream (economy, trade,
// turn resolution) operates on these.
package game

// Country is the identity of one nation in a game. Immutable within a turn.
type Country struct {
	ID                 string           `json:"id"`
	GameID             string           `json:"game_id"`
	Name               string           `json:"name"`
	Color              string           `json:"color"`
	IsPlayerControlled bool             `json:"is_player_controlled"`
	Profile            *ResourceProfile `json:"profile,omitempty"`
}

// CountryStats is the per-turn snapshot of a country's numbers. One row
// exists per (country, turn); turn N+1 is derived from turn N after
// economics, trades, and actions are applied.
type CountryStats struct {
	CountryID           string         `json:"country_id"`
	Turn                int            `json:"turn"`
	Population          int            `json:"population"`
	Budget              int            `json:"budget"`
	TechnologyLevel     int            `json:"technology_level"`
	InfrastructureLevel int            `json:"infrastructure_level"`
	MilitaryStrength    int            `json:"military_strength"`
	MilitaryEquipment   int            `json:"military_equipment"`
	Resources           map[string]int `json:"resources"`
	DiplomaticRelations map[string]int `json:"diplomatic_relations"`
}

// Clone returns a deep copy. Used for mid-turn working state and for
// validate-then-commit trade execution.
func (s *CountryStats) Clone() *CountryStats {
	out := *s
	out.Resources = make(map[string]int, len(s.Resources))
	for k, v := range s.Resources {
		out.Resources[k] = v
	}
	out.DiplomaticRelations = make(map[string]int, len(s.DiplomaticRelations))
	for k, v := range s.DiplomaticRelations {
		out.DiplomaticRelations[k] = v
	}
	return &out
}

// ClampNonNegative enforces the turn-commit invariant: budget and resource
// quantities never go below zero.
func (s *CountryStats) ClampNonNegative() {
	if s.Budget < 0 {
		s.Budget = 0
	}
	if s.Population < 0 {
		s.Population = 0
	}
	if s.MilitaryStrength < 0 {
		s.MilitaryStrength = 0
	}
	if s.MilitaryEquipment < 0 {
		s.MilitaryEquipment = 0
	}
	for k, v := range s.Resources {
		if v < 0 {
			s.Resources[k] = 0
		}
	}
}

// Resource returns the stocked quantity of a resource, zero if absent.
func (s *CountryStats) Resource(id string) int {
	return s.Resources[id]
}

// AddResource adjusts a resource stock, creating the entry if needed.
func (s *CountryStats) AddResource(id string, delta int) {
	if s.Resources == nil {
		s.Resources = make(map[string]int)
	}
	s.Resources[id] += delta
}

// ResourceModifier is one production specialization inside a profile.
type ResourceModifier struct {
	ResourceID           string  `json:"resource_id"`
	ProductionMultiplier float64 `json:"production_multiplier"`
	StartingBonus        int     `json:"starting_bonus"`
}

// CostModifiers scale build costs and trade efficiency for a profile.
// 1.0 everywhere means no specialization.
type CostModifiers struct {
	Technology      float64 `json:"technology"`
	Infrastructure  float64 `json:"infrastructure"`
	Military        float64 `json:"military"`
	TradeEfficiency float64 `json:"trade_efficiency"`
}

// ResourceProfile is a country's fixed specialization, assigned at creation
// and immutable for the game's lifetime.
type ResourceProfile struct {
	Name          string             `json:"name"`
	Modifiers     []ResourceModifier `json:"modifiers"`
	CostModifiers CostModifiers      `json:"cost_modifiers"`
	MilitaryBonus float64            `json:"military_bonus"`
}

// ProductionMultiplier returns the profile's multiplier for a resource,
// 1.0 when the profile has no modifier for it (or the profile is nil).
func (p *ResourceProfile) ProductionMultiplier(resourceID string) float64 {
	if p == nil {
		return 1.0
	}
	for _, m := range p.Modifiers {
		if m.ResourceID == resourceID && m.ProductionMultiplier > 0 {
			return m.ProductionMultiplier
		}
	}
	return 1.0
}

// CostMultiplier returns the profile's build-cost multiplier for a domain.
func (p *ResourceProfile) CostMultiplier(domain string) float64 {
	if p == nil {
		return 1.0
	}
	var m float64
	switch domain {
	case "technology":
		m = p.CostModifiers.Technology
	case "infrastructure":
		m = p.CostModifiers.Infrastructure
	case "military":
		m = p.CostModifiers.Military
	}
	if m <= 0 {
		return 1.0
	}
	return m
}

// City is a secondary holding of a country: population, per-turn yields,
// and the under-attack flag set on attack submission.
type City struct {
	ID            string         `json:"id"`
	GameID        string         `json:"game_id"`
	CountryID     string         `json:"country_id"`
	Name          string         `json:"name"`
	Population    int            `json:"population"`
	Yields        map[string]int `json:"yields"`
	IsUnderAttack bool           `json:"is_under_attack"`
}

// TurnEvent is one entry of a turn's ordered event log.
type TurnEvent struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
