package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no player matches the lookup.
var ErrNotFound = errors.New("player not found")

// Player is a player's token balance together with their serialized round.
type Player struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"clientId"`
	Tokens       int       `json:"tokens"`
	GameState    []byte    `json:"-"`
	LastActivity time.Time `json:"lastActivity"`
}

// Store defines the interface for player storage
type Store interface {
	// GetPlayer retrieves a player by ID
	GetPlayer(ctx context.Context, id string) (*Player, error)

	// GetPlayerByClientID retrieves a player by the ID their client generated
	GetPlayerByClientID(ctx context.Context, clientID string) (*Player, error)

	// SavePlayer creates or updates a player
	SavePlayer(ctx context.Context, p *Player) error

	// DeletePlayer removes a player
	DeletePlayer(ctx context.Context, id string) error
}
