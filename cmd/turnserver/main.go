// Command turnserver runs the statecraft turn-processing service.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/talgya/statecraft/internal/api"
	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/llm"
	"github.com/talgya/statecraft/internal/store"
	"github.com/talgya/statecraft/internal/turn"
	"github.com/talgya/statecraft/internal/worldgen"
)

func main() {
	var (
		port       = flag.Int("port", 8080, "HTTP listen port")
		dbPath     = flag.String("db", "data/statecraft.db", "SQLite database path")
		tuningPath = flag.String("tuning", "", "optional tuning YAML file")
		newGame    = flag.Bool("new", false, "generate a new game on startup")
		seed       = flag.Int64("seed", 42, "world generation seed (with -new)")
		gameName   = flag.String("name", "New Game", "game name (with -new)")
		model      = flag.String("model", "", "plan model override (advisor uses ANTHROPIC_API_KEY)")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	tuning, err := config.Load(*tuningPath)
	if err != nil {
		slog.Error("failed to load tuning", "path", *tuningPath, "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(*dbPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := store.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "path", *dbPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *newGame {
		cfg := worldgen.DefaultConfig(*seed)
		cfg.Name = *gameName
		cfg.BiasFloor = tuning.Fairness.BiasFloor
		bootstrap := worldgen.Generate(cfg)
		if err := db.CreateGame(ctx, bootstrap); err != nil {
			slog.Error("failed to create game", "error", err)
			os.Exit(1)
		}
		slog.Info("game created",
			"game", bootstrap.Game.ID,
			"name", bootstrap.Game.Name,
			"seed", *seed,
			"countries", len(bootstrap.Countries),
		)
	}

	orch := turn.New(db, tuning)
	if client := llm.NewClient(os.Getenv("ANTHROPIC_API_KEY"), *model); client.Enabled() {
		orch = orch.WithAdvisor(llm.NewPool(llm.NewModelPlanner(client), tuning.PlanPool))
		slog.Info("model advisor enabled")
	} else {
		slog.Info("model advisor disabled, AI countries act through trade planning only")
	}

	srv := &api.Server{
		Store:        db,
		Orchestrator: orch,
		Port:         *port,
	}
	if err := srv.Run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}
