package trade

import (
	"errors"
	"fmt"

	"github.com/talgya/statecraft/internal/game"
)

// ErrInsufficientResources means one side cannot cover its commitments.
// The deal is rejected whole; neither side's stats change.
var ErrInsufficientResources = errors.New("trade: insufficient resources for commitment")

// ExecuteDeal applies a deal's commitments to both parties atomically:
// all transfers land on cloned stats first, every debit is validated
// non-negative, and only a fully valid result is copied back. Any failure
// leaves both originals untouched.
func ExecuteDeal(deal *game.Deal, proposer, receiver *game.CountryStats) error {
	p := proposer.Clone()
	r := receiver.Clone()

	if err := applyCommitments(deal.ProposerCommitments, p, r); err != nil {
		return fmt.Errorf("proposer side of deal %s: %w", deal.ID, err)
	}
	if err := applyCommitments(deal.ReceiverCommitments, r, p); err != nil {
		return fmt.Errorf("receiver side of deal %s: %w", deal.ID, err)
	}

	*proposer = *p
	*receiver = *r
	return nil
}

// applyCommitments moves each commitment from one side to the other,
// failing on the first debit that would go negative.
func applyCommitments(commitments []game.Commitment, from, to *game.CountryStats) error {
	for _, c := range commitments {
		switch c.Kind {
		case game.CommitBudget:
			if c.Amount < 0 || from.Budget < c.Amount {
				return fmt.Errorf("%w: budget %d < %d", ErrInsufficientResources, from.Budget, c.Amount)
			}
			from.Budget -= c.Amount
			to.Budget += c.Amount
		case game.CommitResource:
			if c.Amount < 0 || from.Resource(c.ResourceID) < c.Amount {
				return fmt.Errorf("%w: %s %d < %d", ErrInsufficientResources,
					c.ResourceID, from.Resource(c.ResourceID), c.Amount)
			}
			from.AddResource(c.ResourceID, -c.Amount)
			to.AddResource(c.ResourceID, c.Amount)
		default:
			return fmt.Errorf("unknown commitment kind %q", c.Kind)
		}
	}
	return nil
}
