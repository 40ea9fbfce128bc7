package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNoPlayer is returned when a lookup matches no player row.
var ErrNoPlayer = errors.New("no such player")

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Database struct {
	db     *sql.DB
	driver string
}

// PlayerRow is a row of the players table.
type PlayerRow struct {
	ID           string
	ClientID     string
	Tokens       int
	GameState    []byte
	LastActivity time.Time
}

// PlayerStats summarizes a player's settled hands.
type PlayerStats struct {
	PlayerID     string    `json:"playerId"`
	HandsPlayed  int       `json:"handsPlayed"`
	HandsWon     int       `json:"handsWon"`
	HandsPushed  int       `json:"handsPushed"`
	Blackjacks   int       `json:"blackjacks"`
	TotalBets    int       `json:"totalBets"`
	TotalPayouts int       `json:"totalPayouts"`
	LastPlayed   time.Time `json:"lastPlayed"`
}

// NewDatabase opens a database connection and creates the tables if needed
func NewDatabase(ctx context.Context, driver, dsn string) (*Database, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db, driver: driver}, nil
}

// initTables creates the necessary tables if they don't exist
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			client_id TEXT NOT NULL UNIQUE,
			tokens INTEGER NOT NULL DEFAULT 1000,
			game_state TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_activity TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating players table: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS hand_results (
			player_id TEXT NOT NULL,
			bet INTEGER NOT NULL,
			result TEXT NOT NULL,
			natural TEXT NOT NULL,
			payout INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("error creating hand_results table: %w", err)
	}

	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetPlayer retrieves a player by ID
func (d *Database) GetPlayer(ctx context.Context, id string) (*PlayerRow, error) {
	return d.scanPlayer(d.db.QueryRowContext(ctx,
		"SELECT id, client_id, tokens, game_state, last_activity FROM players WHERE id = $1", id))
}

// GetPlayerByClientID retrieves a player by client ID
func (d *Database) GetPlayerByClientID(ctx context.Context, clientID string) (*PlayerRow, error) {
	return d.scanPlayer(d.db.QueryRowContext(ctx,
		"SELECT id, client_id, tokens, game_state, last_activity FROM players WHERE client_id = $1", clientID))
}

func (d *Database) scanPlayer(row *sql.Row) (*PlayerRow, error) {
	var p PlayerRow
	var state sql.NullString

	err := row.Scan(&p.ID, &p.ClientID, &p.Tokens, &state, &p.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoPlayer
		}
		return nil, err
	}

	if state.Valid {
		p.GameState = []byte(state.String)
	}
	return &p, nil
}

// SavePlayer inserts a player or updates their tokens and game state
func (d *Database) SavePlayer(ctx context.Context, p *PlayerRow) error {
	var state any
	if p.GameState != nil {
		state = string(p.GameState)
	}

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO players (id, client_id, tokens, game_state, last_activity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET tokens = $3, game_state = $4, last_activity = $5
	`, p.ID, p.ClientID, p.Tokens, state, p.LastActivity.UTC())
	return err
}

// DeletePlayer removes a player and their results
func (d *Database) DeletePlayer(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM players WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNoPlayer
	}

	_, err = d.db.ExecContext(ctx, "DELETE FROM hand_results WHERE player_id = $1", id)
	return err
}

// DeleteIdlePlayers removes players inactive since before, with their results,
// and returns how many players were removed
func (d *Database) DeleteIdlePlayers(ctx context.Context, before time.Time) (int64, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"DELETE FROM hand_results WHERE player_id IN (SELECT id FROM players WHERE last_activity < $1)",
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("error deleting idle results: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM players WHERE last_activity < $1", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("error deleting idle players: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return n, tx.Commit()
}

// RecordResult saves the outcome of one settled hand, stamped with at
func (d *Database) RecordResult(ctx context.Context, playerID string, bet int, result, natural string, payout int, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO hand_results (player_id, bet, result, natural, payout, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		playerID, bet, result, natural, payout, at.UTC(),
	)
	return err
}

// GetPlayerStats aggregates a player's hand results
func (d *Database) GetPlayerStats(ctx context.Context, playerID string) (*PlayerStats, error) {
	stats := PlayerStats{PlayerID: playerID}
	var lastPlayed sql.NullString

	err := d.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN result = 'playerWon' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN result = 'push' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN natural = 'playerBlackjack' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(bet), 0),
			COALESCE(SUM(payout), 0),
			CAST(MAX(created_at) AS TEXT)
		FROM hand_results WHERE player_id = $1
	`, playerID).Scan(
		&stats.HandsPlayed,
		&stats.HandsWon,
		&stats.HandsPushed,
		&stats.Blackjacks,
		&stats.TotalBets,
		&stats.TotalPayouts,
		&lastPlayed,
	)
	if err != nil {
		return nil, fmt.Errorf("error getting player stats: %w", err)
	}

	if lastPlayed.Valid {
		if t, err := parseTimestamp(lastPlayed.String); err == nil {
			stats.LastPlayed = t
		}
	}

	return &stats, nil
}

// parseTimestamp reads a timestamp rendered as text by either backend.
func parseTimestamp(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02 15:04:05.999999999-07",
		"2006-01-02 15:04:05.999999999",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
