// Package api exposes the turn service over HTTP: advancing a game's turn
// and reading its current state and event log.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/talgya/statecraft/internal/store"
	"github.com/talgya/statecraft/internal/turn"
)

// Server serves game state and turn processing over HTTP.
type Server struct {
	Store        store.Store
	Orchestrator *turn.Orchestrator
	Port         int
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	advanceLimiter := newRateLimiter(30, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/games/{id}/advance", advanceLimiter.limit(s.handleAdvance))
	mux.HandleFunc("GET /api/v1/games/{id}/state", s.handleState)
	mux.HandleFunc("GET /api/v1/games/{id}/events", s.handleEvents)
	return mux
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	result, err := s.Orchestrator.AdvanceTurn(r.Context(), gameID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, store.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, turn.ErrStateInconsistency):
			status = http.StatusConflict
		}
		slog.Error("advance failed", "game", gameID, "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type stateResponse struct {
	Game      *store.Game        `json:"game"`
	Countries []countryState     `json:"countries"`
	Prices    map[string]float64 `json:"prices"`
}

type countryState struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Color              string `json:"color"`
	IsPlayerControlled bool   `json:"is_player_controlled"`
	Stats              any    `json:"stats"`
	Cities             []any  `json:"cities"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	ctx := r.Context()

	g, err := s.Store.LoadGame(ctx, gameID)
	if err != nil {
		s.storeError(w, gameID, err)
		return
	}
	countries, err := s.Store.LoadCountries(ctx, gameID)
	if err != nil {
		s.storeError(w, gameID, err)
		return
	}
	stats, err := s.Store.LoadStats(ctx, gameID, g.Turn)
	if err != nil {
		s.storeError(w, gameID, err)
		return
	}
	cities, err := s.Store.LoadCities(ctx, gameID)
	if err != nil {
		s.storeError(w, gameID, err)
		return
	}
	prices, err := s.Store.LoadPrices(ctx, gameID)
	if err != nil {
		s.storeError(w, gameID, err)
		return
	}

	resp := stateResponse{Game: g, Prices: prices}
	for _, c := range countries {
		cs := countryState{
			ID:                 c.ID,
			Name:               c.Name,
			Color:              c.Color,
			IsPlayerControlled: c.IsPlayerControlled,
			Stats:              stats[c.ID],
		}
		for _, city := range cities {
			if city.CountryID == c.ID {
				cs.Cities = append(cs.Cities, city)
			}
		}
		resp.Countries = append(resp.Countries, cs)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}

	events, err := s.Store.RecentEvents(r.Context(), gameID, limit)
	if err != nil {
		s.storeError(w, gameID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) storeError(w http.ResponseWriter, gameID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	slog.Error("state read failed", "game", gameID, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
