package store

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/calvinwijaya/blackjack-engine/internal/db"
)

// DatabaseStore is a database implementation of player storage
type DatabaseStore struct {
	db       *db.Database
	lifetime time.Duration
	clock    quartz.Clock
	logger   *log.Logger
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(database *db.Database, lifetime time.Duration, clock quartz.Clock, logger *log.Logger) *DatabaseStore {
	return &DatabaseStore{
		db:       database,
		lifetime: lifetime,
		clock:    clock,
		logger:   logger,
	}
}

// GetPlayer retrieves a player by ID
func (s *DatabaseStore) GetPlayer(ctx context.Context, id string) (*Player, error) {
	row, err := s.db.GetPlayer(ctx, id)
	if err != nil {
		return nil, mapDBError(err)
	}
	return fromRow(row), nil
}

// GetPlayerByClientID retrieves a player by client ID
func (s *DatabaseStore) GetPlayerByClientID(ctx context.Context, clientID string) (*Player, error) {
	row, err := s.db.GetPlayerByClientID(ctx, clientID)
	if err != nil {
		return nil, mapDBError(err)
	}
	return fromRow(row), nil
}

// SavePlayer saves a player and refreshes their last activity
func (s *DatabaseStore) SavePlayer(ctx context.Context, p *Player) error {
	p.LastActivity = s.clock.Now()
	return s.db.SavePlayer(ctx, &db.PlayerRow{
		ID:           p.ID,
		ClientID:     p.ClientID,
		Tokens:       p.Tokens,
		GameState:    p.GameState,
		LastActivity: p.LastActivity,
	})
}

// DeletePlayer removes a player from the database
func (s *DatabaseStore) DeletePlayer(ctx context.Context, id string) error {
	return mapDBError(s.db.DeletePlayer(ctx, id))
}

// ExpireIdle removes players idle for longer than the lifetime.
func (s *DatabaseStore) ExpireIdle(ctx context.Context) (int64, error) {
	if s.lifetime <= 0 {
		return 0, nil
	}
	return s.db.DeleteIdlePlayers(ctx, s.clock.Now().Add(-s.lifetime))
}

// RunSweeper expires idle players every interval until ctx is done.
func (s *DatabaseStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := s.clock.NewTicker(interval, "store", "sweeper")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.ExpireIdle(ctx)
			if err != nil {
				s.logger.Error("Failed to expire idle players", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("Expired idle players", "count", n)
			}
		}
	}
}

func fromRow(row *db.PlayerRow) *Player {
	return &Player{
		ID:           row.ID,
		ClientID:     row.ClientID,
		Tokens:       row.Tokens,
		GameState:    row.GameState,
		LastActivity: row.LastActivity,
	}
}

func mapDBError(err error) error {
	if errors.Is(err, db.ErrNoPlayer) {
		return ErrNotFound
	}
	return err
}
