package trade

import (
	"math"
	"testing"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/game"
)

// scenarioSnapshot reproduces the canonical trading pair: country A sits on
// a food surplus but is short of steel for its next upgrades; partner B has
// steel to spare.
func scenarioSnapshot(partnerIsPlayer bool) *Snapshot {
	a := &game.Country{ID: "ai_a", GameID: "g1", Name: "Veldonia"}
	b := &game.Country{ID: "ai_b", GameID: "g1", Name: "Ostrava", IsPlayerControlled: partnerIsPlayer}
	return &Snapshot{
		GameID: "g1",
		Turn:   5,
		Countries: map[string]*game.Country{
			"ai_a": a,
			"ai_b": b,
		},
		Stats: map[string]*game.CountryStats{
			"ai_a": {
				CountryID: "ai_a", Turn: 5,
				Population: 10000, Budget: 400,
				TechnologyLevel: 1, InfrastructureLevel: 1,
				Resources: map[string]int{"food": 120, "steel": 5},
			},
			"ai_b": {
				CountryID: "ai_b", Turn: 5,
				Population: 10000, Budget: 200,
				TechnologyLevel: 1, InfrastructureLevel: 1,
				Resources: map[string]int{"steel": 80, "food": 50},
			},
		},
	}
}

func TestDetectShortages(t *testing.T) {
	p := NewPlanner(config.DefaultTuning())
	snap := scenarioSnapshot(false)

	shortages := p.DetectShortages(snap.Countries["ai_a"], snap.Stats["ai_a"])

	byID := map[string]Shortage{}
	for _, s := range shortages {
		byID[s.ResourceID] = s
	}
	// Tech 2 wants 20 steel, infra 2 wants 16, a 10-strength recruit batch
	// wants 20; the country holds 5.
	steel, ok := byID["steel"]
	if !ok {
		t.Fatal("steel shortage not detected")
	}
	if steel.Required != 56 || steel.Available != 5 || steel.Deficit() != 51 {
		t.Errorf("steel shortage: %+v", steel)
	}
	if _, ok := byID["food"]; ok {
		t.Error("food should not be short")
	}
}

func TestDetectSurpluses(t *testing.T) {
	p := NewPlanner(config.DefaultTuning())
	snap := scenarioSnapshot(false)

	surpluses := p.DetectSurpluses(snap.Stats["ai_a"])
	if len(surpluses) != 1 || surpluses[0].ResourceID != "food" {
		t.Fatalf("expected a single food surplus, got %+v", surpluses)
	}
	// Stock 120 against a 50-unit baseline: half the 70 excess is tradeable.
	if surpluses[0].Tradeable != 35 {
		t.Errorf("tradeable: got %d, want 35", surpluses[0].Tradeable)
	}
}

func TestPlanTradesAIPair(t *testing.T) {
	tuning := config.DefaultTuning()
	p := NewPlanner(tuning)
	snap := scenarioSnapshot(false)
	prices := testPrices()

	proposals := p.PlanTrades("ai_a", snap, prices, Cooldowns{})
	if len(proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(proposals))
	}

	for _, pr := range proposals {
		if pr.ReceiverID != "ai_b" {
			t.Errorf("unexpected receiver %s", pr.ReceiverID)
		}
		if math.Abs(pr.Evaluation.NormalizedNet) > tuning.Fairness.AIBand {
			t.Errorf("AI pair normalized net %v outside ±%v", pr.Evaluation.NormalizedNet, tuning.Fairness.AIBand)
		}
		if pr.Evaluation.NotionalValue < tuning.Fairness.MinNotional {
			t.Errorf("notional %v below minimum", pr.Evaluation.NotionalValue)
		}
	}

	// The budget purchase outscores the barter here: bigger notional, net
	// closer to target.
	buy := proposals[0]
	if len(buy.ProposerCommitments) != 1 || buy.ProposerCommitments[0].Kind != game.CommitBudget {
		t.Fatalf("top proposal should be a budget purchase, got %+v", buy.ProposerCommitments)
	}
	if buy.ProposerCommitments[0].Amount != 108 {
		t.Errorf("purchase payment: got %d, want 108", buy.ProposerCommitments[0].Amount)
	}
	if got := buy.ReceiverCommitments[0]; got.ResourceID != "steel" || got.Amount != 7 {
		t.Errorf("purchase receives: got %+v, want 7 steel", got)
	}

	barter := proposals[1]
	if got := barter.ProposerCommitments[0]; got.ResourceID != "food" || got.Amount != 31 {
		t.Errorf("barter gives: got %+v, want 31 food", got)
	}
	if got := barter.ReceiverCommitments[0]; got.ResourceID != "steel" || got.Amount != 4 {
		t.Errorf("barter receives: got %+v, want 4 steel", got)
	}
}

func TestPlanTradesPlayerBand(t *testing.T) {
	tuning := config.DefaultTuning()
	p := NewPlanner(tuning)
	snap := scenarioSnapshot(true)
	prices := testPrices()

	proposals := p.PlanTrades("ai_a", snap, prices, Cooldowns{})
	if len(proposals) == 0 {
		t.Fatal("expected proposals against a player partner")
	}
	for _, pr := range proposals {
		nn := pr.Evaluation.NormalizedNet
		if nn < -0.17 || nn > 0.17 {
			t.Errorf("player-facing normalized net %v outside [-0.17, 0.17]", nn)
		}
	}
	// The wider player spread buys less per crown than the AI spread does.
	buy := proposals[0]
	if got := buy.ReceiverCommitments[0]; got.ResourceID != "steel" || got.Amount != 6 {
		t.Errorf("player purchase receives: got %+v, want 6 steel", got)
	}
}

func TestPlanTradesCooldownSkipsPartner(t *testing.T) {
	p := NewPlanner(config.DefaultTuning())
	snap := scenarioSnapshot(false)

	// Offered to ai_b last turn; the two-turn cooldown is still running.
	proposals := p.PlanTrades("ai_a", snap, testPrices(), Cooldowns{"ai_b": 4})
	if len(proposals) != 0 {
		t.Fatalf("cooldown partner should be skipped, got %d proposals", len(proposals))
	}

	// A stale cooldown no longer blocks.
	proposals = p.PlanTrades("ai_a", snap, testPrices(), Cooldowns{"ai_b": 2})
	if len(proposals) == 0 {
		t.Fatal("expired cooldown should not block proposals")
	}
}

func TestPlanTradesCapsProposals(t *testing.T) {
	tuning := config.DefaultTuning()
	p := NewPlanner(tuning)

	snap := scenarioSnapshot(false)
	// Add more partners with steel so every (shortage, partner) pair
	// generates candidates.
	for _, id := range []string{"ai_c", "ai_d", "ai_e"} {
		snap.Countries[id] = &game.Country{ID: id, GameID: "g1", Name: id}
		snap.Stats[id] = &game.CountryStats{
			CountryID: id, Turn: 5,
			Population: 10000, Budget: 300,
			TechnologyLevel: 1, InfrastructureLevel: 1,
			Resources: map[string]int{"steel": 90},
		}
	}

	proposals := p.PlanTrades("ai_a", snap, testPrices(), Cooldowns{})
	if len(proposals) > tuning.Planner.MaxProposals {
		t.Fatalf("got %d proposals, cap is %d", len(proposals), tuning.Planner.MaxProposals)
	}
	for i := 1; i < len(proposals); i++ {
		if proposals[i].Score > proposals[i-1].Score {
			t.Errorf("proposals not sorted by score at %d", i)
		}
	}
}

func TestPlanTradesUnknownCountry(t *testing.T) {
	p := NewPlanner(config.DefaultTuning())
	if got := p.PlanTrades("nope", scenarioSnapshot(false), testPrices(), nil); got != nil {
		t.Fatalf("unknown country should plan nothing, got %v", got)
	}
}

func TestProposalDealConversion(t *testing.T) {
	pr := &Proposal{
		ID:         "p1",
		ProposerID: "ai_a",
		ReceiverID: "ai_b",
		ProposerCommitments: []game.Commitment{
			{Kind: game.CommitResource, ResourceID: "food", Amount: 31},
		},
		ReceiverCommitments: []game.Commitment{
			{Kind: game.CommitResource, ResourceID: "steel", Amount: 4},
		},
	}
	deal := pr.Deal("g1", 5, 3)
	if deal.Status != game.DealProposed {
		t.Errorf("status: got %s, want proposed", deal.Status)
	}
	if deal.TurnCreated != 5 || deal.TurnExpires != 8 {
		t.Errorf("turns: created %d expires %d", deal.TurnCreated, deal.TurnExpires)
	}
}
