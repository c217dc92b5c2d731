package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/game"
	"github.com/talgya/statecraft/internal/plan"
)

func TestParsePlanItems(t *testing.T) {
	raw := `Here is the plan:
[
  {"instruction": "expand infrastructure",
   "execution": {"actionType": "economic", "actionData": {"subType": "infrastructure", "targetLevel": 2}},
   "stop_when": {"infra_level_gte": 2}},
  {"instruction": "research",
   "execution": {"actionType": "research", "actionData": {"targetLevel": 2}}}
]`
	items, err := parsePlanItems(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items: %d", len(items))
	}
	if items[0].Execution.ActionType != "economic" || items[0].StopWhen["infra_level_gte"] != 2 {
		t.Errorf("first item: %+v", items[0])
	}
}

func TestParsePlanItemsDropsInvalidSteps(t *testing.T) {
	raw := `[
  {"instruction": "bad", "execution": {"actionType": "economic", "actionData": {"subType": "infrastructure"}}},
  {"instruction": "empty", "execution": {"actionType": "", "actionData": {}}},
  {"instruction": "good", "execution": {"actionType": "research", "actionData": {"targetLevel": 3}}}
]`
	items, err := parsePlanItems(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Instruction != "good" {
		t.Fatalf("items: %+v", items)
	}
}

func TestParsePlanItemsErrors(t *testing.T) {
	if _, err := parsePlanItems("no array here"); err == nil {
		t.Error("prose without an array should fail")
	}
	if _, err := parsePlanItems("[{broken"); err == nil {
		t.Error("malformed array should fail")
	}
	if _, err := parsePlanItems(`[{"instruction": "x", "execution": {"actionType": "economic", "actionData": {}}}]`); err == nil {
		t.Error("all-invalid plan should fail")
	}
}

type stubPlanner struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (s *stubPlanner) PlanCountry(ctx context.Context, req *PlanRequest) ([]plan.Item, error) {
	s.calls.Add(1)
	if s.fail[req.Country.ID] {
		return nil, errors.New("boom")
	}
	return []plan.Item{{Instruction: "noop for " + req.Country.ID}}, nil
}

func poolRequests(ids ...string) []*PlanRequest {
	reqs := make([]*PlanRequest, 0, len(ids))
	for _, id := range ids {
		reqs = append(reqs, &PlanRequest{
			Country: &game.Country{ID: id, Name: id},
			Stats:   &game.CountryStats{},
			Turn:    1,
		})
	}
	return reqs
}

func TestPoolPlansAllCountries(t *testing.T) {
	stub := &stubPlanner{fail: map[string]bool{"b": true}}
	pool := NewPool(stub, config.PoolTuning{Workers: 2, Stagger: 0})

	results := pool.PlanAll(context.Background(), poolRequests("a", "b", "c"))
	if len(results) != 3 {
		t.Fatalf("results: %d", len(results))
	}
	if results["a"].Err != nil || len(results["a"].Items) != 1 {
		t.Errorf("a: %+v", results["a"])
	}
	if results["b"].Err == nil {
		t.Error("b should carry its planner error")
	}
	if stub.calls.Load() != 3 {
		t.Errorf("calls: %d", stub.calls.Load())
	}
}

func TestPoolHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := &stubPlanner{}
	pool := NewPool(stub, config.PoolTuning{Workers: 1, Stagger: 0})
	results := pool.PlanAll(ctx, poolRequests("a", "b"))
	if len(results) != 2 {
		t.Fatalf("every request must report a result, got %d", len(results))
	}
}

func TestNewClientDisabledWithoutKey(t *testing.T) {
	if c := NewClient("", "model"); c.Enabled() {
		t.Error("empty key should disable the client")
	}
	if _, err := (*Client)(nil).Complete(context.Background(), "", "", 10); err == nil {
		t.Error("disabled client must error")
	}
}
