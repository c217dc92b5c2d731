// Package trade prices, plans, and executes deals between countries. The
// valuation layer reduces any commitment list to market value; the planner
// builds proposals inside a fairness envelope; execution applies both sides
// atomically.
package trade

import (
	"math"

	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/game"
)

const maxSpread = 0.9

// Evaluation is the fairness breakdown of a proposal from the proposer's
// point of view. NormalizedNet is dimensionless: net benefit over the
// larger side's market value, floored at 1 to avoid division blowups.
type Evaluation struct {
	ValueGiven    float64
	ValueReceived float64
	NetBenefit    float64
	NotionalValue float64
	NormalizedNet float64
}

// CommitmentValue prices a single commitment at market rates. Budget
// transfers are face value.
func CommitmentValue(c game.Commitment, prices *economy.PriceTable) float64 {
	switch c.Kind {
	case game.CommitBudget:
		return float64(c.Amount)
	case game.CommitResource:
		return float64(c.Amount) * prices.UnitPrice(c.ResourceID)
	}
	return 0
}

// MarketValue sums a commitment list at market rates.
func MarketValue(commitments []game.Commitment, prices *economy.PriceTable) float64 {
	total := 0.0
	for _, c := range commitments {
		total += CommitmentValue(c, prices)
	}
	return total
}

// EvaluateProposal computes the proposer-side fairness of an exchange:
// proposerCommitments is what the proposer gives, receiverCommitments what
// the receiver gives (i.e. what the proposer receives).
func EvaluateProposal(proposerCommitments, receiverCommitments []game.Commitment, prices *economy.PriceTable) Evaluation {
	given := MarketValue(proposerCommitments, prices)
	received := MarketValue(receiverCommitments, prices)
	net := received - given
	notional := math.Max(given, received)
	return Evaluation{
		ValueGiven:    given,
		ValueReceived: received,
		NetBenefit:    net,
		NotionalValue: notional,
		NormalizedNet: net / math.Max(1, notional),
	}
}

// RequiredGiveAmount inverts the price ratio: how many units of giveResource
// cover receiveAmount units of receiveResource. A positive spread biases the
// required amount upward (the proposer pays the spread). Rounds up, never
// below 1.
func RequiredGiveAmount(giveResource, receiveResource string, receiveAmount int, spread float64, prices *economy.PriceTable) int {
	if receiveAmount <= 0 {
		return 1
	}
	spread = clampSpread(spread)
	givePrice := prices.UnitPrice(giveResource)
	receivePrice := prices.UnitPrice(receiveResource)
	if givePrice <= 0 {
		return 1
	}
	amount := math.Ceil(float64(receiveAmount) * receivePrice / givePrice * (1.0 + spread))
	if amount < 1 {
		amount = 1
	}
	return int(amount)
}

// ReceiveAmountForGiveAmount is the forward inverse: how many units of
// receiveResource a given amount of giveResource funds at market rates under
// the same spread. Rounds down, never below 0.
func ReceiveAmountForGiveAmount(giveResource, receiveResource string, giveAmount int, spread float64, prices *economy.PriceTable) int {
	if giveAmount <= 0 {
		return 0
	}
	spread = clampSpread(spread)
	givePrice := prices.UnitPrice(giveResource)
	receivePrice := prices.UnitPrice(receiveResource)
	if receivePrice <= 0 {
		return 0
	}
	amount := math.Floor(float64(giveAmount) * givePrice / (receivePrice * (1.0 + spread)))
	if amount < 0 {
		amount = 0
	}
	return int(amount)
}

// FairnessBand is the allowed normalized-net range for a proposal, with the
// target the planner steers toward. Slack widens the acceptance check past
// the band edges to absorb integer rounding on amounts and budget top-ups;
// the top-up itself still aims at the unslacked ceiling.
type FairnessBand struct {
	Floor   float64
	Ceiling float64
	Target  float64
	Slack   float64
}

// Contains reports whether a normalized net sits inside the band, slack
// included.
func (b FairnessBand) Contains(normalizedNet float64) bool {
	return normalizedNet >= b.Floor-b.Slack && normalizedNet <= b.Ceiling+b.Slack
}

// BudgetAdjustment returns the budget transfer the proposer must add to pull
// an over-generous proposal's normalized net down to the band ceiling. Zero
// when the proposal is already inside the band. Never negative.
func BudgetAdjustment(normalizedNet float64, band FairnessBand, notionalValue float64) int {
	if normalizedNet <= band.Ceiling {
		return 0
	}
	denom := math.Max(1, notionalValue)
	transfer := math.Ceil((normalizedNet - band.Ceiling) * denom)
	if transfer < 0 {
		return 0
	}
	return int(transfer)
}

func clampSpread(spread float64) float64 {
	if spread < 0 {
		return 0
	}
	if spread > maxSpread {
		return maxSpread
	}
	return spread
}
