// Package config loads the tuning file. Every empirically tuned constant of
// the trade and combat systems lives here so deployments can override them
// without a rebuild.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning is the full tunable surface of the turn engine.
type Tuning struct {
	Fairness FairnessTuning `yaml:"fairness"`
	Planner  PlannerTuning  `yaml:"planner"`
	Combat   CombatTuning   `yaml:"combat"`
	PlanPool PoolTuning     `yaml:"plan_pool"`
}

// FairnessTuning holds the trade fairness envelope. The AI↔AI band is tight
// and symmetric; the AI↔player band is wider with a positive target for the
// AI. The spread biases barter pricing in the proposer's favor.
type FairnessTuning struct {
	AIBand        float64 `yaml:"ai_band"`         // ±band for AI↔AI normalized net
	PlayerFloor   float64 `yaml:"player_floor"`    // receiver-favoring floor, AI↔player
	PlayerCeiling float64 `yaml:"player_ceiling"`  // proposer-favoring ceiling, AI↔player
	PlayerTarget  float64 `yaml:"player_target"`   // normalized-net target vs players
	SpreadAI      float64 `yaml:"spread_ai"`       // barter spread, AI↔AI
	SpreadPlayer  float64 `yaml:"spread_player"`   // barter spread, AI↔player
	PlayerSlack   float64 `yaml:"player_slack"`    // rounding slack past the player band edges
	BiasFloor     float64 `yaml:"bias_floor"`      // weighted-selection weight floor
	MinNotional   float64 `yaml:"min_notional"`    // discard proposals below this value
}

// PlannerTuning controls shortage/surplus detection and proposal sizing.
type PlannerTuning struct {
	SurplusFactor       float64 `yaml:"surplus_factor"`        // stock ≥ factor × baseline ⇒ surplus
	TradeableShare      float64 `yaml:"tradeable_share"`       // share of surplus offered for trade
	BudgetReserve       int     `yaml:"budget_reserve"`        // budget never spent on purchases
	MaxSpendRatio       float64 `yaml:"max_spend_ratio"`       // share of spendable budget per purchase
	PartnerReserveShare float64 `yaml:"partner_reserve_share"` // partner stock kept off the table
	MaxProposals        int     `yaml:"max_proposals"`
	OfferCooldownTurns  int     `yaml:"offer_cooldown_turns"`
	RecruitBatch        int     `yaml:"recruit_batch"` // strength assumed for the next recruit step
}

// CombatTuning prices attack submissions.
type CombatTuning struct {
	AttackBaseCost  int     `yaml:"attack_base_cost"`
	PerStrengthCost int     `yaml:"per_strength_cost"`
	WinnerLossShare float64 `yaml:"winner_loss_share"` // share of allocation the winner loses
}

// PoolTuning controls the staggered worker pool fronting the plan generator.
type PoolTuning struct {
	Workers int           `yaml:"workers"`
	Stagger time.Duration `yaml:"stagger"`
}

// DefaultTuning returns the tuned constants. The spreads, band edges, and
// bias floor carry over from play-tested values; they are not derived.
func DefaultTuning() Tuning {
	return Tuning{
		Fairness: FairnessTuning{
			AIBand:        0.05,
			PlayerFloor:   -0.15,
			PlayerCeiling: 0.15,
			PlayerTarget:  0.08,
			SpreadAI:      0.02,
			SpreadPlayer:  0.18,
			PlayerSlack:   0.02,
			BiasFloor:     0.01,
			MinNotional:   20,
		},
		Planner: PlannerTuning{
			SurplusFactor:       2.0,
			TradeableShare:      0.5,
			BudgetReserve:       100,
			MaxSpendRatio:       0.4,
			PartnerReserveShare: 0.25,
			MaxProposals:        3,
			OfferCooldownTurns:  2,
			RecruitBatch:        10,
		},
		Combat: CombatTuning{
			AttackBaseCost:  25,
			PerStrengthCost: 2,
			WinnerLossShare: 0.5,
		},
		PlanPool: PoolTuning{
			Workers: 3,
			Stagger: 500 * time.Millisecond,
		},
	}
}

// Load reads a tuning file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning yaml: %w", err)
	}
	return t, nil
}
