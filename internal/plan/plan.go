// Package plan interprets externally authored plan step lists. The engine
// never writes plans; it only selects the next eligible step for a domain,
// honoring stop-when conditions that make steps repeatable.
package plan

import (
	"encoding/json"
	"fmt"

	"github.com/talgya/statecraft/internal/actions"
	"github.com/talgya/statecraft/internal/game"
)

// Execution is the machine-readable half of a plan step.
type Execution struct {
	ActionType string          `json:"actionType"`
	ActionData json.RawMessage `json:"actionData"`
}

// Item is one candidate step of a country's plan, in author order.
// StopWhen converts a step from one-shot to repeatable: the step stays
// eligible turn after turn until the condition holds against current stats.
type Item struct {
	ID          string             `json:"id,omitempty"`
	Instruction string             `json:"instruction"`
	Execution   Execution          `json:"execution"`
	Priority    int                `json:"priority,omitempty"`
	StopWhen    map[string]float64 `json:"stop_when,omitempty"`
}

// Key identifies a step for executed-tracking: the authored ID when present,
// the list position otherwise.
func (it *Item) Key(index int) string {
	if it.ID != "" {
		return it.ID
	}
	return fmt.Sprintf("step-%d", index)
}

// NextStep returns the first step in list order that matches the requested
// domain (and subtype, when given), carries a schema-valid payload, and is
// still eligible: not yet executed, or repeatable with an unsatisfied
// stop-when. Returns nil when no step qualifies — that is not an error; the
// caller simply takes no action this turn for that domain.
//
// Selection is stable: the same inputs always yield the same step.
func NextStep(items []Item, domain, subtype string, stats *game.CountryStats, executed map[string]bool) *Item {
	for i := range items {
		it := &items[i]
		if it.Execution.ActionType != domain {
			continue
		}
		if actions.ValidatePayload(game.ActionType(domain), it.Execution.ActionData) != nil {
			continue
		}
		if subtype != "" && actions.PayloadSubType(it.Execution.ActionData) != subtype {
			continue
		}

		key := it.Key(i)
		if len(it.StopWhen) > 0 {
			done, err := StopSatisfied(it.StopWhen, stats)
			if err != nil {
				// Invalid condition: the step degrades to one-shot.
				if executed[key] {
					continue
				}
				return it
			}
			if done {
				continue
			}
			return it
		}
		if executed[key] {
			continue
		}
		return it
	}
	return nil
}
