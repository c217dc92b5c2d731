package plan

import "testing"

func TestStopSatisfiedSingleClause(t *testing.T) {
	stats := planStats(2)

	done, err := StopSatisfied(map[string]float64{"tech_level_gte": 3}, stats)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("tech 2 should not satisfy tech_level_gte 3")
	}

	done, err = StopSatisfied(map[string]float64{"tech_level_gte": 2}, stats)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("tech 2 should satisfy tech_level_gte 2")
	}
}

func TestStopSatisfiedConjunction(t *testing.T) {
	stats := planStats(5)
	cond := map[string]float64{
		"tech_level_gte": 3,
		"budget_gte":     1000, // stats hold 500
	}
	done, err := StopSatisfied(cond, stats)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("unmet budget clause should fail the conjunction")
	}
}

func TestStopSatisfiedResourceClause(t *testing.T) {
	stats := planStats(1) // 40 steel

	done, err := StopSatisfied(map[string]float64{"resource_gte:steel": 30}, stats)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("40 steel should satisfy resource_gte:steel 30")
	}

	done, err = StopSatisfied(map[string]float64{"resource_gte:oil": 1}, stats)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("absent resource should not satisfy the clause")
	}
}

func TestCompileRejectsBadConditions(t *testing.T) {
	if _, err := Compile(nil); err == nil {
		t.Error("empty condition should not compile")
	}
	if _, err := Compile(map[string]float64{"unknown_key": 1}); err == nil {
		t.Error("unknown key should not compile")
	}
	if _, err := Compile(map[string]float64{"resource_gte:": 1}); err == nil {
		t.Error("empty resource id should not compile")
	}
}
