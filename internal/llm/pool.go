package llm

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/plan"
)

// PlanResult pairs one country with its planner outcome.
type PlanResult struct {
	CountryID string
	Items     []plan.Item
	Err       error
}

// Pool fans plan requests out to a fixed number of workers. Each worker
// waits the stagger delay between tasks so a burst of countries does not
// slam the upstream rate limit all at once.
type Pool struct {
	planner Planner
	workers int
	stagger time.Duration
}

// NewPool builds a pool from the tuning's worker and stagger settings.
func NewPool(planner Planner, tuning config.PoolTuning) *Pool {
	workers := tuning.Workers
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		planner: planner,
		workers: workers,
		stagger: tuning.Stagger,
	}
}

// PlanAll plans every request, keyed by country. Cancellation stops workers
// between tasks; requests never attempted report the context error.
func (p *Pool) PlanAll(ctx context.Context, reqs []*PlanRequest) map[string]PlanResult {
	tasks := make(chan *PlanRequest)
	results := make(chan PlanResult, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first := true
			for req := range tasks {
				if !first && p.stagger > 0 {
					select {
					case <-ctx.Done():
						results <- PlanResult{CountryID: req.Country.ID, Err: ctx.Err()}
						continue
					case <-time.After(p.stagger):
					}
				}
				first = false

				items, err := p.planner.PlanCountry(ctx, req)
				results <- PlanResult{CountryID: req.Country.ID, Items: items, Err: err}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for _, req := range reqs {
			select {
			case <-ctx.Done():
				results <- PlanResult{CountryID: req.Country.ID, Err: ctx.Err()}
			case tasks <- req:
			}
		}
	}()

	out := make(map[string]PlanResult, len(reqs))
	for range reqs {
		r := <-results
		out[r.CountryID] = r
		if r.Err != nil {
			slog.Warn("plan failed", "country", r.CountryID, "error", r.Err)
		}
	}
	wg.Wait()
	return out
}
