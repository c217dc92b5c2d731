// Package store defines the persistence port the turn engine depends on,
// plus its SQLite implementation. The engine only ever sees the Store
// interface; nothing in the core imports a concrete database.
package store

import (
	"context"
	"errors"

	"github.com/talgya/statecraft/internal/game"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Game is the top-level game row: identity, seed, and the current turn.
type Game struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Seed int64  `db:"seed" json:"seed"`
	Turn int    `db:"turn" json:"turn"`
}

// TurnWrite is everything one processed turn persists, committed atomically:
// the finalized turn-N stats, the fresh turn-N+1 rows, action and deal
// status updates, city changes, the ordered event log, cooldown updates,
// and the advanced turn number.
type TurnWrite struct {
	Turn      int // the turn that was processed
	Stats     []*game.CountryStats
	NextStats []*game.CountryStats
	Actions   []*game.Action
	Deals     []*game.Deal
	Cities    []*game.City
	Events    []game.TurnEvent
	Cooldowns map[string]map[string]int // country → partner → last offer turn
}

// Bootstrap is the initial state of a freshly generated game.
type Bootstrap struct {
	Game      *Game
	Countries []*game.Country
	Stats     []*game.CountryStats
	Cities    []*game.City
	Prices    map[string]float64
}

// Store is the persistence port. Reads happen before a turn, the single
// SaveTurn write after; transaction semantics inside SaveTurn are the
// implementation's responsibility.
type Store interface {
	CreateGame(ctx context.Context, b *Bootstrap) error
	LoadGame(ctx context.Context, gameID string) (*Game, error)
	LoadCountries(ctx context.Context, gameID string) ([]*game.Country, error)
	LoadStats(ctx context.Context, gameID string, turn int) (map[string]*game.CountryStats, error)
	LoadCities(ctx context.Context, gameID string) (map[string]*game.City, error)
	LoadPendingActions(ctx context.Context, gameID string, turn int) ([]*game.Action, error)
	LoadDeals(ctx context.Context, gameID string, statuses ...game.DealStatus) ([]*game.Deal, error)
	LoadPrices(ctx context.Context, gameID string) (map[string]float64, error)
	LoadCooldowns(ctx context.Context, gameID, countryID string) (map[string]int, error)
	RecentEvents(ctx context.Context, gameID string, limit int) ([]game.TurnEvent, error)
	SaveTurn(ctx context.Context, gameID string, w *TurnWrite) error
}
