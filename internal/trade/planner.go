package trade

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/game"
)

// Snapshot is the read-only view of one game the planner works from. Stats
// are the current mid-turn values, so planners running later in the turn see
// trades already executed by earlier ones.
type Snapshot struct {
	GameID    string
	Turn      int
	Countries map[string]*game.Country
	Stats     map[string]*game.CountryStats
}

// Proposal is one candidate deal the planner produced, with its fairness
// evaluation and composite score.
type Proposal struct {
	ID                  string
	ProposerID          string
	ReceiverID          string
	ProposerCommitments []game.Commitment
	ReceiverCommitments []game.Commitment
	Evaluation          Evaluation
	Urgency             float64
	Confidence          float64
	Score               float64
}

// Deal converts a proposal into a deal row for persistence.
func (p *Proposal) Deal(gameID string, turn, expiresAfter int) *game.Deal {
	return &game.Deal{
		ID:                  p.ID,
		GameID:              gameID,
		ProposerID:          p.ProposerID,
		ReceiverID:          p.ReceiverID,
		ProposerCommitments: p.ProposerCommitments,
		ReceiverCommitments: p.ReceiverCommitments,
		Status:              game.DealProposed,
		TurnCreated:         turn,
		TurnExpires:         turn + expiresAfter,
	}
}

// Cooldowns maps partner country ID to the turn an offer was last made.
// State is passed in explicitly and persisted by the caller; the planner
// keeps nothing between calls.
type Cooldowns map[string]int

// Planner builds trade proposals for one AI country against a game snapshot.
// Stateless per call.
type Planner struct {
	fairness config.FairnessTuning
	tuning   config.PlannerTuning
}

// NewPlanner creates a planner from the tuning config.
func NewPlanner(t config.Tuning) *Planner {
	return &Planner{fairness: t.Fairness, tuning: t.Planner}
}

// Shortage is a resource whose projected requirement exceeds current stock.
type Shortage struct {
	ResourceID string
	Required   int
	Available  int
}

// Deficit is the unmet portion of the requirement.
func (s Shortage) Deficit() int { return s.Required - s.Available }

// Surplus is a resource stocked well past its consumption baseline.
type Surplus struct {
	ResourceID string
	Tradeable  int
}

// PlanTrades builds the best proposals for countryID: barter and
// budget-purchase offers for every shortage, gated by the counterpart's
// fairness band, scored and capped to the configured maximum.
func (p *Planner) PlanTrades(countryID string, snap *Snapshot, prices *economy.PriceTable, cooldowns Cooldowns) []*Proposal {
	country := snap.Countries[countryID]
	stats := snap.Stats[countryID]
	if country == nil || stats == nil {
		return nil
	}

	shortages := p.DetectShortages(country, stats)
	surpluses := p.DetectSurpluses(stats)

	shortageSet := make(map[string]bool, len(shortages))
	for _, s := range shortages {
		shortageSet[s.ResourceID] = true
	}

	partnerIDs := make([]string, 0, len(snap.Countries))
	for id := range snap.Countries {
		if id == countryID {
			continue
		}
		if last, ok := cooldowns[id]; ok && snap.Turn-last < p.tuning.OfferCooldownTurns {
			continue
		}
		partnerIDs = append(partnerIDs, id)
	}
	sort.Strings(partnerIDs)

	var proposals []*Proposal
	for _, need := range shortages {
		deficit := need.Deficit()
		if deficit <= 0 {
			continue
		}
		urgency := clamp01(float64(deficit) / float64(max(1, need.Required)))

		for _, partnerID := range partnerIDs {
			partnerStats := snap.Stats[partnerID]
			partner := snap.Countries[partnerID]
			if partnerStats == nil || partner == nil {
				continue
			}
			stock := partnerStats.Resource(need.ResourceID)
			if stock <= deficit {
				continue
			}
			reserve := int(float64(stock) * p.tuning.PartnerReserveShare)
			available := stock - reserve
			if available < 1 {
				continue
			}

			band, spread := p.envelope(partner.IsPlayerControlled)

			if barter := p.barterProposal(countryID, partnerID, need, surpluses, shortageSet, deficit, available, band, spread, urgency, prices); barter != nil {
				proposals = append(proposals, barter)
			}
			if buy := p.purchaseProposal(countryID, partnerID, need, stats, deficit, available, band, spread, urgency, prices); buy != nil {
				proposals = append(proposals, buy)
			}
		}
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].Score > proposals[j].Score
	})
	if len(proposals) > p.tuning.MaxProposals {
		proposals = proposals[:p.tuning.MaxProposals]
	}
	return proposals
}

// DetectShortages aggregates the resource bill of the country's likely next
// actions (tech upgrade, infrastructure upgrade, a recruit batch) and
// reports every resource where the bill exceeds stock.
func (p *Planner) DetectShortages(country *game.Country, stats *game.CountryStats) []Shortage {
	required := make(map[string]int)
	add := func(bill map[string]int) {
		for id, amt := range bill {
			required[id] += amt
		}
	}
	add(economy.TechUpgradeCost(stats.TechnologyLevel+1, country.Profile).Resources)
	add(economy.InfraUpgradeCost(stats.InfrastructureLevel+1, country.Profile).Resources)
	add(economy.RecruitmentResourceCost(p.tuning.RecruitBatch))

	ids := make([]string, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Shortage
	for _, id := range ids {
		have := stats.Resource(id)
		if required[id] > have {
			out = append(out, Shortage{ResourceID: id, Required: required[id], Available: have})
		}
	}
	return out
}

// DetectSurpluses reports resources stocked at or past SurplusFactor times
// the per-turn consumption baseline. Half of the excess is tradeable.
func (p *Planner) DetectSurpluses(stats *game.CountryStats) []Surplus {
	consumption := economy.ComputeConsumption(stats)

	ids := make([]string, 0, len(stats.Resources))
	for id := range stats.Resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Surplus
	for _, id := range ids {
		baseline := consumption[id]
		if baseline < 10 {
			baseline = 10 // floor for resources with no steady draw
		}
		stock := stats.Resources[id]
		if float64(stock) < p.tuning.SurplusFactor*float64(baseline) {
			continue
		}
		tradeable := int(float64(stock-baseline) * p.tuning.TradeableShare)
		if tradeable > 0 {
			out = append(out, Surplus{ResourceID: id, Tradeable: tradeable})
		}
	}
	return out
}

// barterProposal trades the most valuable surplus for the needed resource,
// sized so the receive amount fits the partner's available stock and what
// the surplus can fund at market rates.
func (p *Planner) barterProposal(proposerID, partnerID string, need Shortage, surpluses []Surplus, shortageSet map[string]bool, deficit, available int, band FairnessBand, spread, urgency float64, prices *economy.PriceTable) *Proposal {
	give := bestSurplus(surpluses, shortageSet, need.ResourceID, prices)
	if give == nil {
		return nil
	}

	fundable := ReceiveAmountForGiveAmount(give.ResourceID, need.ResourceID, give.Tradeable, spread, prices)
	receiveAmt := min(deficit, available, fundable)
	if receiveAmt < 1 {
		return nil
	}
	giveAmt := RequiredGiveAmount(give.ResourceID, need.ResourceID, receiveAmt, spread, prices)
	if giveAmt > give.Tradeable {
		giveAmt = give.Tradeable
	}

	proposal := &Proposal{
		ID:         uuid.NewString(),
		ProposerID: proposerID,
		ReceiverID: partnerID,
		ProposerCommitments: []game.Commitment{
			{Kind: game.CommitResource, ResourceID: give.ResourceID, Amount: giveAmt},
		},
		ReceiverCommitments: []game.Commitment{
			{Kind: game.CommitResource, ResourceID: need.ResourceID, Amount: receiveAmt},
		},
		Urgency: urgency,
	}
	return p.gate(proposal, band, prices)
}

// purchaseProposal buys the needed resource outright with spendable budget.
func (p *Planner) purchaseProposal(proposerID, partnerID string, need Shortage, stats *game.CountryStats, deficit, available int, band FairnessBand, spread, urgency float64, prices *economy.PriceTable) *Proposal {
	spendable := stats.Budget - p.tuning.BudgetReserve
	if spendable <= 0 {
		return nil
	}
	spend := float64(spendable) * p.tuning.MaxSpendRatio
	price := prices.UnitPrice(need.ResourceID)
	if price <= 0 {
		return nil
	}
	qty := min(deficit, available, int(spend/(price*(1.0+spread))))
	if qty < 1 {
		return nil
	}
	pay := int(math.Ceil(float64(qty) * price * (1.0 + spread)))

	proposal := &Proposal{
		ID:         uuid.NewString(),
		ProposerID: proposerID,
		ReceiverID: partnerID,
		ProposerCommitments: []game.Commitment{
			{Kind: game.CommitBudget, Amount: pay},
		},
		ReceiverCommitments: []game.Commitment{
			{Kind: game.CommitResource, ResourceID: need.ResourceID, Amount: qty},
		},
		Urgency: urgency,
	}
	return p.gate(proposal, band, prices)
}

// gate applies fairness gating: evaluate, top up with a budget transfer when
// the proposer comes out too far ahead, and discard anything still outside
// the band or below the minimum notional value.
func (p *Planner) gate(proposal *Proposal, band FairnessBand, prices *economy.PriceTable) *Proposal {
	eval := EvaluateProposal(proposal.ProposerCommitments, proposal.ReceiverCommitments, prices)

	if eval.NormalizedNet > band.Ceiling {
		adj := BudgetAdjustment(eval.NormalizedNet, band, eval.NotionalValue)
		if adj > 0 {
			proposal.ProposerCommitments = append(proposal.ProposerCommitments,
				game.Commitment{Kind: game.CommitBudget, Amount: adj})
			eval = EvaluateProposal(proposal.ProposerCommitments, proposal.ReceiverCommitments, prices)
		}
	}

	if !band.Contains(eval.NormalizedNet) || eval.NotionalValue < p.fairness.MinNotional {
		return nil
	}

	proposal.Evaluation = eval
	proposal.Confidence = clamp01(0.5*proposal.Urgency + 0.5*(1.0-math.Abs(eval.NormalizedNet-band.Target)))
	proposal.Score = eval.NormalizedNet + proposal.Urgency + proposal.Confidence +
		math.Min(1.0, eval.NotionalValue/200.0)
	return proposal
}

// envelope picks the fairness band and spread for the counterpart type:
// tight and symmetric between AIs, wider and AI-favoring against players.
func (p *Planner) envelope(counterpartIsPlayer bool) (FairnessBand, float64) {
	if counterpartIsPlayer {
		return FairnessBand{
			Floor:   p.fairness.PlayerFloor,
			Ceiling: p.fairness.PlayerCeiling,
			Target:  p.fairness.PlayerTarget,
			Slack:   p.fairness.PlayerSlack,
		}, p.fairness.SpreadPlayer
	}
	return FairnessBand{
		Floor:   -p.fairness.AIBand,
		Ceiling: p.fairness.AIBand,
		Target:  0,
	}, p.fairness.SpreadAI
}

// bestSurplus picks the highest-value tradeable surplus that isn't itself
// short or the resource being acquired.
func bestSurplus(surpluses []Surplus, shortageSet map[string]bool, exclude string, prices *economy.PriceTable) *Surplus {
	var best *Surplus
	bestValue := 0.0
	for i := range surpluses {
		s := &surpluses[i]
		if s.ResourceID == exclude || shortageSet[s.ResourceID] {
			continue
		}
		value := float64(s.Tradeable) * prices.UnitPrice(s.ResourceID)
		if value > bestValue {
			best = s
			bestValue = value
		}
	}
	return best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
