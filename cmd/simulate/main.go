// Command simulate generates a world and runs it for a fixed number of
// turns offline, logging per-turn summaries. Useful for tuning and for
// eyeballing long-run economic behavior.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/store"
	"github.com/talgya/statecraft/internal/turn"
	"github.com/talgya/statecraft/internal/worldgen"
)

func main() {
	var (
		turns      = flag.Int("turns", 20, "number of turns to simulate")
		seed       = flag.Int64("seed", 42, "world generation seed")
		countries  = flag.Int("countries", 6, "number of countries")
		dbPath     = flag.String("db", "data/simulate.db", "SQLite database path")
		tuningPath = flag.String("tuning", "", "optional tuning YAML file")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	tuning, err := config.Load(*tuningPath)
	if err != nil {
		slog.Error("failed to load tuning", "path", *tuningPath, "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(*dbPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	os.Remove(*dbPath) // fresh run every time
	db, err := store.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	cfg := worldgen.DefaultConfig(*seed)
	cfg.Name = "Simulation"
	cfg.Countries = *countries
	cfg.BiasFloor = tuning.Fairness.BiasFloor
	cfg.PlayerCountries = 0 // all AI, so trades execute every turn
	bootstrap := worldgen.Generate(cfg)
	if err := db.CreateGame(ctx, bootstrap); err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	gameID := bootstrap.Game.ID
	slog.Info("simulation start", "game", gameID, "seed", *seed, "countries", *countries, "turns", *turns)

	orch := turn.New(db, tuning)
	trades, rejections := 0, 0
	for i := 0; i < *turns; i++ {
		result, err := orch.AdvanceTurn(ctx, gameID)
		if err != nil {
			slog.Error("turn failed", "turn", i+1, "error", err)
			os.Exit(1)
		}
		tradeCount := 0
		for _, ev := range result.Events {
			if ev.Type == "trade" {
				tradeCount++
			}
		}
		trades += tradeCount
		rejections += len(result.RejectedActions) + len(result.RejectedTrades)
		slog.Info("turn complete",
			"turn", result.Turn,
			"events", len(result.Events),
			"trades", tradeCount,
			"rejected", len(result.RejectedActions)+len(result.RejectedTrades),
		)
	}

	g, err := db.LoadGame(ctx, gameID)
	if err != nil {
		slog.Error("failed to reload game", "error", err)
		os.Exit(1)
	}
	stats, err := db.LoadStats(ctx, gameID, g.Turn)
	if err != nil {
		slog.Error("failed to load final stats", "error", err)
		os.Exit(1)
	}
	for _, c := range bootstrap.Countries {
		s := stats[c.ID]
		if s == nil {
			continue
		}
		slog.Info("final standing",
			"country", c.Name,
			"population", s.Population,
			"budget", s.Budget,
			"tech", s.TechnologyLevel,
			"infra", s.InfrastructureLevel,
			"military", s.MilitaryStrength,
		)
	}
	slog.Info("simulation complete", "turns", *turns, "trades", trades, "rejections", rejections)
}
