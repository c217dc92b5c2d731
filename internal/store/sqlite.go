package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/statecraft/internal/game"
)

// DB is the SQLite implementation of Store.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		seed INTEGER NOT NULL,
		turn INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS countries (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		is_player INTEGER NOT NULL,
		profile_json TEXT
	);

	CREATE TABLE IF NOT EXISTS country_stats (
		game_id TEXT NOT NULL,
		country_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		population INTEGER NOT NULL,
		budget INTEGER NOT NULL,
		tech_level INTEGER NOT NULL,
		infra_level INTEGER NOT NULL,
		military_strength INTEGER NOT NULL,
		military_equipment INTEGER NOT NULL,
		resources_json TEXT NOT NULL,
		relations_json TEXT NOT NULL,
		PRIMARY KEY (game_id, country_id, turn)
	);

	CREATE TABLE IF NOT EXISTS cities (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		country_id TEXT NOT NULL,
		name TEXT NOT NULL,
		population INTEGER NOT NULL,
		yields_json TEXT NOT NULL,
		is_under_attack INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		country_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		plan_step TEXT
	);

	CREATE TABLE IF NOT EXISTS deals (
		id TEXT PRIMARY KEY,
		game_id TEXT NOT NULL,
		proposer_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		proposer_commitments TEXT NOT NULL,
		receiver_commitments TEXT NOT NULL,
		status TEXT NOT NULL,
		turn_created INTEGER NOT NULL,
		turn_expires INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS market_prices (
		game_id TEXT NOT NULL,
		resource_id TEXT NOT NULL,
		price REAL NOT NULL,
		PRIMARY KEY (game_id, resource_id)
	);

	CREATE TABLE IF NOT EXISTS turn_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT NOT NULL,
		turn INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		data_json TEXT
	);

	CREATE TABLE IF NOT EXISTS trade_cooldowns (
		game_id TEXT NOT NULL,
		country_id TEXT NOT NULL,
		partner_id TEXT NOT NULL,
		last_offer_turn INTEGER NOT NULL,
		PRIMARY KEY (game_id, country_id, partner_id)
	);

	CREATE INDEX IF NOT EXISTS idx_stats_turn ON country_stats(game_id, turn);
	CREATE INDEX IF NOT EXISTS idx_actions_turn ON actions(game_id, turn, status);
	CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(game_id, status);
	CREATE INDEX IF NOT EXISTS idx_events_turn ON turn_events(game_id, turn);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// CreateGame writes a freshly generated game in one transaction.
func (db *DB) CreateGame(ctx context.Context, b *Bootstrap) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO games (id, name, seed, turn) VALUES (?, ?, ?, ?)",
		b.Game.ID, b.Game.Name, b.Game.Seed, b.Game.Turn); err != nil {
		return fmt.Errorf("insert game: %w", err)
	}

	for _, c := range b.Countries {
		profileJSON, _ := json.Marshal(c.Profile)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO countries (id, game_id, name, color, is_player, profile_json) VALUES (?, ?, ?, ?, ?, ?)",
			c.ID, c.GameID, c.Name, c.Color, boolToInt(c.IsPlayerControlled), string(profileJSON)); err != nil {
			return fmt.Errorf("insert country %s: %w", c.ID, err)
		}
	}
	for _, s := range b.Stats {
		if err := upsertStats(ctx, tx, b.Game.ID, s); err != nil {
			return err
		}
	}
	for _, c := range b.Cities {
		if err := upsertCity(ctx, tx, c); err != nil {
			return err
		}
	}
	for id, price := range b.Prices {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO market_prices (game_id, resource_id, price) VALUES (?, ?, ?)",
			b.Game.ID, id, price); err != nil {
			return fmt.Errorf("insert price %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// LoadGame fetches the game row.
func (db *DB) LoadGame(ctx context.Context, gameID string) (*Game, error) {
	var g Game
	err := db.conn.GetContext(ctx, &g, "SELECT id, name, seed, turn FROM games WHERE id = ?", gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

type countryRow struct {
	ID          string         `db:"id"`
	GameID      string         `db:"game_id"`
	Name        string         `db:"name"`
	Color       string         `db:"color"`
	IsPlayer    int            `db:"is_player"`
	ProfileJSON sql.NullString `db:"profile_json"`
}

// LoadCountries fetches all countries of a game.
func (db *DB) LoadCountries(ctx context.Context, gameID string) ([]*game.Country, error) {
	var rows []countryRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT id, game_id, name, color, is_player, profile_json FROM countries WHERE game_id = ? ORDER BY id", gameID); err != nil {
		return nil, err
	}
	out := make([]*game.Country, 0, len(rows))
	for _, r := range rows {
		c := &game.Country{
			ID:                 r.ID,
			GameID:             r.GameID,
			Name:               r.Name,
			Color:              r.Color,
			IsPlayerControlled: r.IsPlayer != 0,
		}
		if r.ProfileJSON.Valid && r.ProfileJSON.String != "null" {
			var p game.ResourceProfile
			if err := json.Unmarshal([]byte(r.ProfileJSON.String), &p); err == nil {
				c.Profile = &p
			}
		}
		out = append(out, c)
	}
	return out, nil
}

type statsRow struct {
	GameID        string `db:"game_id"`
	CountryID     string `db:"country_id"`
	Turn          int    `db:"turn"`
	Population    int    `db:"population"`
	Budget        int    `db:"budget"`
	TechLevel     int    `db:"tech_level"`
	InfraLevel    int    `db:"infra_level"`
	Strength      int    `db:"military_strength"`
	Equipment     int    `db:"military_equipment"`
	ResourcesJSON string `db:"resources_json"`
	RelationsJSON string `db:"relations_json"`
}

// LoadStats fetches all countries' stats for one turn, keyed by country.
func (db *DB) LoadStats(ctx context.Context, gameID string, turn int) (map[string]*game.CountryStats, error) {
	var rows []statsRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM country_stats WHERE game_id = ? AND turn = ?", gameID, turn); err != nil {
		return nil, err
	}
	out := make(map[string]*game.CountryStats, len(rows))
	for _, r := range rows {
		s := &game.CountryStats{
			CountryID:           r.CountryID,
			Turn:                r.Turn,
			Population:          r.Population,
			Budget:              r.Budget,
			TechnologyLevel:     r.TechLevel,
			InfrastructureLevel: r.InfraLevel,
			MilitaryStrength:    r.Strength,
			MilitaryEquipment:   r.Equipment,
		}
		if err := json.Unmarshal([]byte(r.ResourcesJSON), &s.Resources); err != nil {
			return nil, fmt.Errorf("stats %s/%d resources: %w", r.CountryID, turn, err)
		}
		if err := json.Unmarshal([]byte(r.RelationsJSON), &s.DiplomaticRelations); err != nil {
			return nil, fmt.Errorf("stats %s/%d relations: %w", r.CountryID, turn, err)
		}
		out[r.CountryID] = s
	}
	return out, nil
}

type cityRow struct {
	ID            string `db:"id"`
	GameID        string `db:"game_id"`
	CountryID     string `db:"country_id"`
	Name          string `db:"name"`
	Population    int    `db:"population"`
	YieldsJSON    string `db:"yields_json"`
	IsUnderAttack int    `db:"is_under_attack"`
}

// LoadCities fetches all cities of a game, keyed by city ID.
func (db *DB) LoadCities(ctx context.Context, gameID string) (map[string]*game.City, error) {
	var rows []cityRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT * FROM cities WHERE game_id = ? ORDER BY id", gameID); err != nil {
		return nil, err
	}
	out := make(map[string]*game.City, len(rows))
	for _, r := range rows {
		c := &game.City{
			ID:            r.ID,
			GameID:        r.GameID,
			CountryID:     r.CountryID,
			Name:          r.Name,
			Population:    r.Population,
			IsUnderAttack: r.IsUnderAttack != 0,
		}
		if err := json.Unmarshal([]byte(r.YieldsJSON), &c.Yields); err != nil {
			return nil, fmt.Errorf("city %s yields: %w", r.ID, err)
		}
		out[r.ID] = c
	}
	return out, nil
}

type actionRow struct {
	ID        string         `db:"id"`
	GameID    string         `db:"game_id"`
	CountryID string         `db:"country_id"`
	Turn      int            `db:"turn"`
	Type      string         `db:"type"`
	Payload   string         `db:"payload"`
	Status    string         `db:"status"`
	PlanStep  sql.NullString `db:"plan_step"`
}

// LoadPendingActions fetches the turn's pending actions in submission order
// (insertion order by rowid).
func (db *DB) LoadPendingActions(ctx context.Context, gameID string, turn int) ([]*game.Action, error) {
	var rows []actionRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT id, game_id, country_id, turn, type, payload, status, plan_step FROM actions WHERE game_id = ? AND turn = ? AND status = ? ORDER BY rowid",
		gameID, turn, string(game.ActionPending)); err != nil {
		return nil, err
	}
	out := make([]*game.Action, 0, len(rows))
	for _, r := range rows {
		out = append(out, &game.Action{
			ID:        r.ID,
			GameID:    r.GameID,
			CountryID: r.CountryID,
			Turn:      r.Turn,
			Type:      game.ActionType(r.Type),
			Payload:   json.RawMessage(r.Payload),
			Status:    game.ActionStatus(r.Status),
			PlanStep:  r.PlanStep.String,
		})
	}
	return out, nil
}

type dealRow struct {
	ID            string `db:"id"`
	GameID        string `db:"game_id"`
	ProposerID    string `db:"proposer_id"`
	ReceiverID    string `db:"receiver_id"`
	ProposerJSON  string `db:"proposer_commitments"`
	ReceiverJSON  string `db:"receiver_commitments"`
	Status        string `db:"status"`
	TurnCreated   int    `db:"turn_created"`
	TurnExpires   int    `db:"turn_expires"`
}

// LoadDeals fetches deals in the given statuses (all statuses when empty).
func (db *DB) LoadDeals(ctx context.Context, gameID string, statuses ...game.DealStatus) ([]*game.Deal, error) {
	query := "SELECT * FROM deals WHERE game_id = ?"
	args := []any{gameID}
	if len(statuses) > 0 {
		query += " AND status IN (?" + strings.Repeat(", ?", len(statuses)-1) + ")"
		for _, s := range statuses {
			args = append(args, string(s))
		}
	}
	query += " ORDER BY rowid"

	var rows []dealRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]*game.Deal, 0, len(rows))
	for _, r := range rows {
		d := &game.Deal{
			ID:          r.ID,
			GameID:      r.GameID,
			ProposerID:  r.ProposerID,
			ReceiverID:  r.ReceiverID,
			Status:      game.DealStatus(r.Status),
			TurnCreated: r.TurnCreated,
			TurnExpires: r.TurnExpires,
		}
		if err := json.Unmarshal([]byte(r.ProposerJSON), &d.ProposerCommitments); err != nil {
			return nil, fmt.Errorf("deal %s proposer commitments: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.ReceiverJSON), &d.ReceiverCommitments); err != nil {
			return nil, fmt.Errorf("deal %s receiver commitments: %w", r.ID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadPrices fetches the market price table.
func (db *DB) LoadPrices(ctx context.Context, gameID string) (map[string]float64, error) {
	var rows []struct {
		ResourceID string  `db:"resource_id"`
		Price      float64 `db:"price"`
	}
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT resource_id, price FROM market_prices WHERE game_id = ?", gameID); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.ResourceID] = r.Price
	}
	return out, nil
}

// LoadCooldowns fetches one country's last-offer turns keyed by partner.
func (db *DB) LoadCooldowns(ctx context.Context, gameID, countryID string) (map[string]int, error) {
	var rows []struct {
		PartnerID string `db:"partner_id"`
		LastTurn  int    `db:"last_offer_turn"`
	}
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT partner_id, last_offer_turn FROM trade_cooldowns WHERE game_id = ? AND country_id = ?",
		gameID, countryID); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.PartnerID] = r.LastTurn
	}
	return out, nil
}

// RecentEvents returns the most recent events, newest first.
func (db *DB) RecentEvents(ctx context.Context, gameID string, limit int) ([]game.TurnEvent, error) {
	var rows []struct {
		Type     string         `db:"type"`
		Message  string         `db:"message"`
		DataJSON sql.NullString `db:"data_json"`
	}
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT type, message, data_json FROM turn_events WHERE game_id = ? ORDER BY id DESC LIMIT ?",
		gameID, limit); err != nil {
		return nil, err
	}
	out := make([]game.TurnEvent, 0, len(rows))
	for _, r := range rows {
		e := game.TurnEvent{Type: r.Type, Message: r.Message}
		if r.DataJSON.Valid && r.DataJSON.String != "" {
			_ = json.Unmarshal([]byte(r.DataJSON.String), &e.Data)
		}
		out = append(out, e)
	}
	return out, nil
}

// SaveTurn commits a processed turn in a single transaction. Nothing
// persists on error, so a failed turn leaves the prior state intact.
func (db *DB) SaveTurn(ctx context.Context, gameID string, w *TurnWrite) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE games SET turn = ? WHERE id = ?", w.Turn+1, gameID); err != nil {
		return fmt.Errorf("advance turn: %w", err)
	}

	for _, s := range w.Stats {
		if err := upsertStats(ctx, tx, gameID, s); err != nil {
			return err
		}
	}
	for _, s := range w.NextStats {
		if err := upsertStats(ctx, tx, gameID, s); err != nil {
			return err
		}
	}
	for _, a := range w.Actions {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO actions (id, game_id, country_id, turn, type, payload, status, plan_step)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.GameID, a.CountryID, a.Turn, string(a.Type), string(a.Payload), string(a.Status), a.PlanStep); err != nil {
			return fmt.Errorf("upsert action %s: %w", a.ID, err)
		}
	}
	for _, d := range w.Deals {
		pc, _ := json.Marshal(d.ProposerCommitments)
		rc, _ := json.Marshal(d.ReceiverCommitments)
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO deals (id, game_id, proposer_id, receiver_id, proposer_commitments, receiver_commitments, status, turn_created, turn_expires)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.GameID, d.ProposerID, d.ReceiverID, string(pc), string(rc), string(d.Status), d.TurnCreated, d.TurnExpires); err != nil {
			return fmt.Errorf("upsert deal %s: %w", d.ID, err)
		}
	}
	for _, c := range w.Cities {
		if err := upsertCity(ctx, tx, c); err != nil {
			return err
		}
	}
	for seq, e := range w.Events {
		dataJSON, _ := json.Marshal(e.Data)
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO turn_events (game_id, turn, seq, type, message, data_json) VALUES (?, ?, ?, ?, ?, ?)",
			gameID, w.Turn, seq, e.Type, e.Message, string(dataJSON)); err != nil {
			return fmt.Errorf("insert event %d: %w", seq, err)
		}
	}
	for countryID, partners := range w.Cooldowns {
		for partnerID, lastTurn := range partners {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO trade_cooldowns (game_id, country_id, partner_id, last_offer_turn)
				 VALUES (?, ?, ?, ?)`,
				gameID, countryID, partnerID, lastTurn); err != nil {
				return fmt.Errorf("upsert cooldown %s/%s: %w", countryID, partnerID, err)
			}
		}
	}

	return tx.Commit()
}

func upsertStats(ctx context.Context, tx *sqlx.Tx, gameID string, s *game.CountryStats) error {
	resJSON, _ := json.Marshal(s.Resources)
	relJSON, _ := json.Marshal(s.DiplomaticRelations)
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO country_stats
		 (game_id, country_id, turn, population, budget, tech_level, infra_level,
		  military_strength, military_equipment, resources_json, relations_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gameID, s.CountryID, s.Turn, s.Population, s.Budget, s.TechnologyLevel,
		s.InfrastructureLevel, s.MilitaryStrength, s.MilitaryEquipment,
		string(resJSON), string(relJSON))
	if err != nil {
		return fmt.Errorf("upsert stats %s/%d: %w", s.CountryID, s.Turn, err)
	}
	return nil
}

func upsertCity(ctx context.Context, tx *sqlx.Tx, c *game.City) error {
	yieldsJSON, _ := json.Marshal(c.Yields)
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO cities (id, game_id, country_id, name, population, yields_json, is_under_attack)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.GameID, c.CountryID, c.Name, c.Population, string(yieldsJSON), boolToInt(c.IsUnderAttack))
	if err != nil {
		return fmt.Errorf("upsert city %s: %w", c.ID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

