// Package turn sequences one full game turn: economics for every country,
// AI trade planning and execution, action resolution, and the atomic commit
// of the next turn's state. A turn either fully persists or fails whole.
package turn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/statecraft/internal/actions"
	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/game"
	"github.com/talgya/statecraft/internal/llm"
	"github.com/talgya/statecraft/internal/plan"
	"github.com/talgya/statecraft/internal/store"
	"github.com/talgya/statecraft/internal/trade"
)

// Advisor produces plan steps for AI countries. The orchestrator runs
// without one; AI countries then act only through trade planning.
type Advisor interface {
	PlanAll(ctx context.Context, reqs []*llm.PlanRequest) map[string]llm.PlanResult
}

// ErrStateInconsistency means the stats rows for the expected turn are
// missing or stale. The turn advance fails rather than run on wrong data.
var ErrStateInconsistency = errors.New("turn: state inconsistency")

// Proposed deals to players survive this many turns before expiring.
const dealLifetimeTurns = 3

// RejectedTrade records a deal that failed validation or execution.
type RejectedTrade struct {
	DealID     string `json:"deal_id"`
	ProposerID string `json:"proposer_id"`
	ReceiverID string `json:"receiver_id"`
	Reason     string `json:"reason"`
}

// Result is the outcome of one processed turn.
type Result struct {
	GameID          string              `json:"game_id"`
	Turn            int                 `json:"turn"`
	NewTurn         int                 `json:"new_turn"`
	Events          []game.TurnEvent    `json:"events"`
	RejectedActions []actions.Rejection `json:"rejected_actions,omitempty"`
	RejectedTrades  []RejectedTrade     `json:"rejected_trades,omitempty"`
}

// Orchestrator advances games one turn at a time through the store port.
type Orchestrator struct {
	store    store.Store
	planner  *trade.Planner
	resolver *actions.Resolver
	advisor  Advisor
	tuning   config.Tuning
}

// New creates an orchestrator.
func New(st store.Store, tuning config.Tuning) *Orchestrator {
	return &Orchestrator{
		store:    st,
		planner:  trade.NewPlanner(tuning),
		resolver: actions.NewResolver(tuning),
		tuning:   tuning,
	}
}

// WithAdvisor enables model-backed action planning for AI countries.
func (o *Orchestrator) WithAdvisor(a Advisor) *Orchestrator {
	o.advisor = a
	return o
}

// AdvanceTurn runs the full turn pipeline for one game. On any
// infrastructure or consistency failure it returns an error with nothing
// persisted; the prior turn's state stays intact for a retry.
func (o *Orchestrator) AdvanceTurn(ctx context.Context, gameID string) (*Result, error) {
	g, err := o.store.LoadGame(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load game: %w", err)
	}
	countries, err := o.store.LoadCountries(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load countries: %w", err)
	}
	statsByCountry, err := o.store.LoadStats(ctx, gameID, g.Turn)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	cities, err := o.store.LoadCities(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load cities: %w", err)
	}
	pending, err := o.store.LoadPendingActions(ctx, gameID, g.Turn)
	if err != nil {
		return nil, fmt.Errorf("load actions: %w", err)
	}
	deals, err := o.store.LoadDeals(ctx, gameID, game.DealProposed, game.DealAccepted)
	if err != nil {
		return nil, fmt.Errorf("load deals: %w", err)
	}
	priceMap, err := o.store.LoadPrices(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	prices := economy.NewPriceTable(priceMap)

	countryIndex := make(map[string]*game.Country, len(countries))
	for _, c := range countries {
		countryIndex[c.ID] = c
	}

	// Consistency gate: every country needs a stats row for this turn.
	working := make(map[string]*game.CountryStats, len(countries))
	for _, c := range countries {
		s := statsByCountry[c.ID]
		if s == nil || s.Turn != g.Turn {
			return nil, fmt.Errorf("%w: no stats for country %s at turn %d", ErrStateInconsistency, c.ID, g.Turn)
		}
		working[c.ID] = s.Clone()
	}

	var events []game.TurnEvent
	result := &Result{GameID: gameID, Turn: g.Turn, NewTurn: g.Turn + 1}

	// 1) Economics: independent per country, computed in parallel and
	// applied after the join so trade planning sees post-economy stats.
	events = append(events, o.runEconomics(countries, working)...)

	// 2) Deal maintenance: expire stale proposals, execute accepted deals.
	dealEvents, dealWrites := o.settleDeals(deals, working, g.Turn, result)
	events = append(events, dealEvents...)

	// 3) Trade planning for AI countries, in deterministic order. Executed
	// trades land on the working stats immediately so later planners see
	// up-to-date shortages.
	tradeEvents, tradeDeals, cooldownWrites, err := o.runTradePlanning(ctx, g, countryIndex, working, prices, result)
	if err != nil {
		return nil, err
	}
	events = append(events, tradeEvents...)
	dealWrites = append(dealWrites, tradeDeals...)

	// 4) Advisor steps: AI countries that submitted nothing this turn get
	// one model-planned action, resolved alongside player submissions.
	if o.advisor != nil {
		pending = append(pending, o.adviseActions(ctx, g, countries, working, cities, pending)...)
	}

	// 5) Action resolution, sequential in submission order.
	actionEvents, rejections := o.resolver.Resolve(pending, &actions.Context{
		Countries: countryIndex,
		Stats:     working,
		Cities:    cities,
	})
	events = append(events, actionEvents...)
	result.RejectedActions = rejections

	// 6) Finalize: clamp invariants, derive turn N+1 rows. Profile and
	// relations carry forward through the clone.
	currentList := make([]*game.CountryStats, 0, len(working))
	nextList := make([]*game.CountryStats, 0, len(working))
	for _, c := range countries {
		s := working[c.ID]
		s.ClampNonNegative()
		currentList = append(currentList, s)

		next := s.Clone()
		next.Turn = g.Turn + 1
		nextList = append(nextList, next)
	}

	cityList := make([]*game.City, 0, len(cities))
	for _, id := range sortedKeys(cities) {
		cityList = append(cityList, cities[id])
	}

	write := &store.TurnWrite{
		Turn:      g.Turn,
		Stats:     currentList,
		NextStats: nextList,
		Actions:   pending,
		Deals:     dealWrites,
		Cities:    cityList,
		Events:    events,
		Cooldowns: cooldownWrites,
	}
	if err := o.store.SaveTurn(ctx, gameID, write); err != nil {
		return nil, fmt.Errorf("persist turn %d: %w", g.Turn, err)
	}

	result.Events = events
	slog.Info("turn advanced",
		"game", gameID,
		"turn", g.Turn,
		"events", len(events),
		"rejected_actions", len(result.RejectedActions),
		"rejected_trades", len(result.RejectedTrades),
	)
	return result, nil
}

// runEconomics computes each country's production, consumption, budget, and
// population deltas in parallel, then applies them sequentially.
func (o *Orchestrator) runEconomics(countries []*game.Country, working map[string]*game.CountryStats) []game.TurnEvent {
	type econDelta struct {
		production  map[string]int
		consumption map[string]int
		budget      economy.BudgetDelta
		population  int
	}

	deltas := make([]econDelta, len(countries))
	var wg sync.WaitGroup
	for i, c := range countries {
		wg.Add(1)
		go func(i int, c *game.Country) {
			defer wg.Done()
			s := working[c.ID]
			deltas[i] = econDelta{
				production:  economy.ComputeProduction(c, s),
				consumption: economy.ComputeConsumption(s),
				budget:      economy.ComputeBudgetDelta(c, s, 0),
				population:  economy.ComputePopulationDelta(s),
			}
		}(i, c)
	}
	wg.Wait()

	events := make([]game.TurnEvent, 0, len(countries))
	for i, c := range countries {
		s := working[c.ID]
		d := deltas[i]
		for id, amt := range d.production {
			s.AddResource(id, amt)
		}
		for id, amt := range d.consumption {
			have := s.Resource(id)
			if amt > have {
				amt = have
			}
			s.AddResource(id, -amt)
		}
		s.Budget += d.budget.Net
		s.Population += d.population

		events = append(events, game.TurnEvent{
			Type:    "economy",
			Message: fmt.Sprintf("%s: revenue %d, expenses %d, population %+d", c.Name, d.budget.Revenue, d.budget.Expenses, d.population),
			Data: map[string]any{
				"country_id": c.ID,
				"revenue":    d.budget.Revenue,
				"expenses":   d.budget.Expenses,
				"net":        d.budget.Net,
				"population": d.population,
			},
		})
	}
	return events
}

// settleDeals expires stale proposals and executes accepted deals against
// the working stats. Failed executions reject the deal and roll back both
// sides.
func (o *Orchestrator) settleDeals(deals []*game.Deal, working map[string]*game.CountryStats, turn int, result *Result) ([]game.TurnEvent, []*game.Deal) {
	var events []game.TurnEvent
	var writes []*game.Deal

	for _, d := range deals {
		switch d.Status {
		case game.DealProposed:
			if d.TurnExpires <= turn {
				d.Status = game.DealExpired
				writes = append(writes, d)
				events = append(events, game.TurnEvent{
					Type:    "deal_expired",
					Message: fmt.Sprintf("deal %s from %s to %s expired unconfirmed", d.ID, d.ProposerID, d.ReceiverID),
					Data:    map[string]any{"deal_id": d.ID},
				})
			}
		case game.DealAccepted:
			proposer, receiver := working[d.ProposerID], working[d.ReceiverID]
			if proposer == nil || receiver == nil {
				d.Status = game.DealRejected
				writes = append(writes, d)
				result.RejectedTrades = append(result.RejectedTrades, RejectedTrade{
					DealID: d.ID, ProposerID: d.ProposerID, ReceiverID: d.ReceiverID,
					Reason: "unknown party",
				})
				continue
			}
			if err := trade.ExecuteDeal(d, proposer, receiver); err != nil {
				d.Status = game.DealRejected
				writes = append(writes, d)
				result.RejectedTrades = append(result.RejectedTrades, RejectedTrade{
					DealID: d.ID, ProposerID: d.ProposerID, ReceiverID: d.ReceiverID,
					Reason: err.Error(),
				})
				events = append(events, game.TurnEvent{
					Type:    "trade_rejected",
					Message: fmt.Sprintf("deal %s could not execute: %v", d.ID, err),
					Data:    map[string]any{"deal_id": d.ID},
				})
				continue
			}
			d.Status = game.DealActive
			writes = append(writes, d)
			events = append(events, game.TurnEvent{
				Type:    "trade",
				Message: fmt.Sprintf("deal %s between %s and %s executed", d.ID, d.ProposerID, d.ReceiverID),
				Data:    map[string]any{"deal_id": d.ID},
			})
		}
	}
	return events, writes
}

// runTradePlanning plans trades for every AI country. AI↔AI deals execute
// immediately; offers to players persist as proposed deals awaiting
// confirmation.
func (o *Orchestrator) runTradePlanning(ctx context.Context, g *store.Game, countryIndex map[string]*game.Country, working map[string]*game.CountryStats, prices *economy.PriceTable, result *Result) ([]game.TurnEvent, []*game.Deal, map[string]map[string]int, error) {
	var events []game.TurnEvent
	var writes []*game.Deal
	cooldownWrites := make(map[string]map[string]int)

	snap := &trade.Snapshot{
		GameID:    g.ID,
		Turn:      g.Turn,
		Countries: countryIndex,
		Stats:     working,
	}

	aiIDs := make([]string, 0, len(countryIndex))
	for id, c := range countryIndex {
		if !c.IsPlayerControlled {
			aiIDs = append(aiIDs, id)
		}
	}
	sort.Strings(aiIDs)

	for _, countryID := range aiIDs {
		cooldowns, err := o.store.LoadCooldowns(ctx, g.ID, countryID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load cooldowns for %s: %w", countryID, err)
		}

		proposals := o.planner.PlanTrades(countryID, snap, prices, cooldowns)
		for _, pr := range proposals {
			deal := pr.Deal(g.ID, g.Turn, dealLifetimeTurns)
			receiver := countryIndex[pr.ReceiverID]

			if cooldownWrites[countryID] == nil {
				cooldownWrites[countryID] = make(map[string]int)
			}
			cooldownWrites[countryID][pr.ReceiverID] = g.Turn

			if receiver.IsPlayerControlled {
				writes = append(writes, deal)
				events = append(events, game.TurnEvent{
					Type:    "deal_proposed",
					Message: fmt.Sprintf("%s proposed a deal to %s", countryIndex[countryID].Name, receiver.Name),
					Data:    map[string]any{"deal_id": deal.ID, "proposer": countryID, "receiver": pr.ReceiverID},
				})
				continue
			}

			if err := trade.ExecuteDeal(deal, working[pr.ProposerID], working[pr.ReceiverID]); err != nil {
				deal.Status = game.DealRejected
				writes = append(writes, deal)
				result.RejectedTrades = append(result.RejectedTrades, RejectedTrade{
					DealID: deal.ID, ProposerID: pr.ProposerID, ReceiverID: pr.ReceiverID,
					Reason: err.Error(),
				})
				continue
			}
			deal.Status = game.DealActive
			writes = append(writes, deal)
			events = append(events, game.TurnEvent{
				Type:    "trade",
				Message: fmt.Sprintf("%s traded with %s", countryIndex[countryID].Name, receiver.Name),
				Data: map[string]any{
					"deal_id":        deal.ID,
					"proposer":       countryID,
					"receiver":       pr.ReceiverID,
					"normalized_net": pr.Evaluation.NormalizedNet,
					"notional":       pr.Evaluation.NotionalValue,
				},
			})
		}
	}
	return events, writes, cooldownWrites, nil
}

// Domains an advised country may act in, checked in priority order. One
// action per country per turn.
var advisedDomains = []string{"economic", "research", "military", "diplomacy"}

// adviseActions asks the advisor for plans and converts each AI country's
// first eligible step into a pending action. Countries that already
// submitted an action this turn are skipped, as are failed plans; a turn
// never fails because the advisor did. Advised attacks pay the submission
// cost and flag the target city here, exactly as player attacks do; a step
// the country cannot afford to submit is dropped.
func (o *Orchestrator) adviseActions(ctx context.Context, g *store.Game, countries []*game.Country, working map[string]*game.CountryStats, cities map[string]*game.City, pending []*game.Action) []*game.Action {
	submitted := make(map[string]bool, len(pending))
	for _, a := range pending {
		submitted[a.CountryID] = true
	}

	var reqs []*llm.PlanRequest
	for _, c := range countries {
		if c.IsPlayerControlled || submitted[c.ID] {
			continue
		}
		reqs = append(reqs, &llm.PlanRequest{Country: c, Stats: working[c.ID], Turn: g.Turn})
	}
	if len(reqs) == 0 {
		return nil
	}

	results := o.advisor.PlanAll(ctx, reqs)

	var advised []*game.Action
	for _, id := range sortedKeys(results) {
		res := results[id]
		if res.Err != nil {
			continue
		}

		var step *plan.Item
		for _, domain := range advisedDomains {
			if step = plan.NextStep(res.Items, domain, "", working[id], nil); step != nil {
				break
			}
		}
		if step == nil {
			continue
		}

		if game.ActionType(step.Execution.ActionType) == game.ActionMilitary &&
			actions.PayloadSubType(step.Execution.ActionData) == actions.SubAttack {
			p, err := actions.DecodeMilitary(step.Execution.ActionData)
			if err != nil {
				continue
			}
			if _, err := o.resolver.SubmitAttack(working[id], cities[p.CityID], p); err != nil {
				slog.Debug("advised attack not submitted", "country", id, "error", err)
				continue
			}
		}

		planStep := step.ID
		if planStep == "" {
			planStep = step.Instruction
		}
		advised = append(advised, &game.Action{
			ID:        uuid.NewString(),
			GameID:    g.ID,
			CountryID: id,
			Turn:      g.Turn,
			Type:      game.ActionType(step.Execution.ActionType),
			Payload:   step.Execution.ActionData,
			Status:    game.ActionPending,
			PlanStep:  planStep,
		})
	}
	return advised
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
