package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/talgya/statecraft/internal/game"
)

// StatsEnv is the expression environment a stop-when condition evaluates
// against. Field names are the condition vocabulary.
type StatsEnv struct {
	TechLevel        int            `expr:"TechLevel"`
	InfraLevel       int            `expr:"InfraLevel"`
	Budget           int            `expr:"Budget"`
	Population       int            `expr:"Population"`
	MilitaryStrength int            `expr:"MilitaryStrength"`
	Resources        map[string]int `expr:"Resources"`
}

func envFor(stats *game.CountryStats) StatsEnv {
	res := stats.Resources
	if res == nil {
		res = map[string]int{}
	}
	return StatsEnv{
		TechLevel:        stats.TechnologyLevel,
		InfraLevel:       stats.InfrastructureLevel,
		Budget:           stats.Budget,
		Population:       stats.Population,
		MilitaryStrength: stats.MilitaryStrength,
		Resources:        res,
	}
}

// conditionClause maps one structured stop-when key to expr source.
// Supported keys: tech_level_gte, infra_level_gte, budget_gte,
// population_gte, military_strength_gte, and resource_gte:<id>.
func conditionClause(key string, value float64) (string, error) {
	switch {
	case key == "tech_level_gte":
		return fmt.Sprintf("TechLevel >= %v", value), nil
	case key == "infra_level_gte":
		return fmt.Sprintf("InfraLevel >= %v", value), nil
	case key == "budget_gte":
		return fmt.Sprintf("Budget >= %v", value), nil
	case key == "population_gte":
		return fmt.Sprintf("Population >= %v", value), nil
	case key == "military_strength_gte":
		return fmt.Sprintf("MilitaryStrength >= %v", value), nil
	case strings.HasPrefix(key, "resource_gte:"):
		id := strings.TrimPrefix(key, "resource_gte:")
		if id == "" {
			return "", fmt.Errorf("stop_when: empty resource id")
		}
		return fmt.Sprintf("Resources[%q] >= %v", id, value), nil
	}
	return "", fmt.Errorf("stop_when: unknown condition %q", key)
}

// Compile turns a structured stop-when condition into expr bytecode.
// Multiple keys are AND-joined in sorted key order.
func Compile(cond map[string]float64) (*vm.Program, error) {
	if len(cond) == 0 {
		return nil, fmt.Errorf("stop_when: empty condition")
	}
	keys := make([]string, 0, len(cond))
	for k := range cond {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, k := range keys {
		clause, err := conditionClause(k, cond[k])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	src := strings.Join(clauses, " && ")

	prog, err := expr.Compile(src, expr.Env(StatsEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("stop_when compile %q: %w", src, err)
	}
	return prog, nil
}

// StopSatisfied evaluates a stop-when condition against current stats.
func StopSatisfied(cond map[string]float64, stats *game.CountryStats) (bool, error) {
	prog, err := Compile(cond)
	if err != nil {
		return false, err
	}
	result, err := vm.Run(prog, envFor(stats))
	if err != nil {
		return false, fmt.Errorf("stop_when eval: %w", err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("stop_when: non-boolean result %T", result)
	}
	return ok, nil
}
