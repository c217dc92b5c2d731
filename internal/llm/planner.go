package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/statecraft/internal/actions"
	"github.com/talgya/statecraft/internal/game"
	"github.com/talgya/statecraft/internal/plan"
)

// PlanRequest is everything a planner sees about one country.
type PlanRequest struct {
	Country *game.Country
	Stats   *game.CountryStats
	Turn    int
}

// Planner produces a country's plan for the coming turns. Implementations
// must be safe for concurrent use.
type Planner interface {
	PlanCountry(ctx context.Context, req *PlanRequest) ([]plan.Item, error)
}

const planSystemPrompt = `You are the strategic advisor of a nation in a turn-based strategy game.
Given the nation's current state, produce a plan as a JSON array of steps.
Each step has the shape:
  {"instruction": "<one sentence>",
   "execution": {"actionType": "<economic|military|research|diplomacy>",
                 "actionData": { ... }},
   "stop_when": {"<condition>": <number>}}
actionData for economic: {"subType":"infrastructure","targetLevel":N}
actionData for research: {"targetLevel":N}
actionData for military: {"subType":"recruit","amount":N} or {"subType":"attack","defenderId":"...","cityId":"...","allocatedStrength":N}
actionData for diplomacy: {"targetCountryId":"...","affinityDelta":N}
stop_when keys: tech_level_gte, infra_level_gte, budget_gte, population_gte, military_strength_gte, resource_gte:<resource id>.
stop_when is optional; include it only for goals worth repeating until reached.
Respond with ONLY the JSON array, no prose.`

// ModelPlanner asks the language model for plans and filters the reply down
// to schema-valid steps.
type ModelPlanner struct {
	client *Client
}

// NewModelPlanner wraps a client. A nil client yields a planner that always
// errors, letting callers fall back.
func NewModelPlanner(client *Client) *ModelPlanner {
	return &ModelPlanner{client: client}
}

func (p *ModelPlanner) PlanCountry(ctx context.Context, req *PlanRequest) ([]plan.Item, error) {
	if !p.client.Enabled() {
		return nil, fmt.Errorf("plan %s: client not configured", req.Country.ID)
	}

	prompt := buildPlanPrompt(req)
	raw, err := p.client.Complete(ctx, planSystemPrompt, prompt, 2000)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", req.Country.ID, err)
	}

	items, err := parsePlanItems(raw)
	if err != nil {
		return nil, fmt.Errorf("plan %s: %w", req.Country.ID, err)
	}
	return items, nil
}

func buildPlanPrompt(req *PlanRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Nation: %s (turn %d)\n", req.Country.Name, req.Turn)
	fmt.Fprintf(&sb, "Population: %d  Budget: %d\n", req.Stats.Population, req.Stats.Budget)
	fmt.Fprintf(&sb, "Technology level: %d  Infrastructure level: %d\n", req.Stats.TechnologyLevel, req.Stats.InfrastructureLevel)
	fmt.Fprintf(&sb, "Military strength: %d  Equipment: %d\n", req.Stats.MilitaryStrength, req.Stats.MilitaryEquipment)
	sb.WriteString("Resources:")
	for id, amt := range req.Stats.Resources {
		fmt.Fprintf(&sb, " %s=%d", id, amt)
	}
	sb.WriteString("\nProduce a plan of 3 to 6 steps.")
	return sb.String()
}

// parsePlanItems extracts the JSON array from a model reply and keeps only
// steps whose payloads pass schema validation. Models occasionally wrap the
// array in prose or code fences, so the parse is tolerant of surroundings
// but strict about contents.
func parsePlanItems(raw string) ([]plan.Item, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in reply")
	}

	var items []plan.Item
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	valid := items[:0]
	for _, it := range items {
		if it.Execution.ActionType == "" || len(it.Execution.ActionData) == 0 {
			continue
		}
		if actions.ValidatePayload(game.ActionType(it.Execution.ActionType), it.Execution.ActionData) != nil {
			continue
		}
		valid = append(valid, it)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid steps in plan of %d", len(items))
	}
	return valid, nil
}
