package store

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// MemoryStore is an in-memory implementation of player storage.
// Players idle for longer than the configured lifetime are expired.
type MemoryStore struct {
	players  map[string]*Player
	clients  map[string]string // client ID -> player ID
	lifetime time.Duration
	clock    quartz.Clock
	logger   *log.Logger
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory store. A zero lifetime disables expiry.
func NewMemoryStore(lifetime time.Duration, clock quartz.Clock, logger *log.Logger) *MemoryStore {
	return &MemoryStore{
		players:  make(map[string]*Player),
		clients:  make(map[string]string),
		lifetime: lifetime,
		clock:    clock,
		logger:   logger,
	}
}

// GetPlayer retrieves a player by ID
func (s *MemoryStore) GetPlayer(_ context.Context, id string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.players[id]
	if !exists {
		return nil, ErrNotFound
	}

	return clonePlayer(p), nil
}

// GetPlayerByClientID retrieves a player by client ID
func (s *MemoryStore) GetPlayerByClientID(_ context.Context, clientID string) (*Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.clients[clientID]
	if !exists {
		return nil, ErrNotFound
	}

	return clonePlayer(s.players[id]), nil
}

// SavePlayer saves a player and refreshes their last activity
func (s *MemoryStore) SavePlayer(_ context.Context, p *Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.LastActivity = s.clock.Now()
	s.players[p.ID] = clonePlayer(p)
	if p.ClientID != "" {
		s.clients[p.ClientID] = p.ID
	}

	return nil
}

// DeletePlayer removes a player from the store
func (s *MemoryStore) DeletePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.players[id]
	if !exists {
		return ErrNotFound
	}

	s.remove(p)
	return nil
}

func (s *MemoryStore) remove(p *Player) {
	delete(s.players, p.ID)
	if s.clients[p.ClientID] == p.ID {
		delete(s.clients, p.ClientID)
	}
}

// ExpireIdle removes players whose last activity is older than the lifetime
// and returns how many were removed.
func (s *MemoryStore) ExpireIdle() int {
	if s.lifetime <= 0 {
		return 0
	}

	cutoff := s.clock.Now().Add(-s.lifetime)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for _, p := range s.players {
		if p.LastActivity.Before(cutoff) {
			s.remove(p)
			expired++
		}
	}

	return expired
}

// RunSweeper expires idle players every interval until ctx is done.
func (s *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := s.clock.NewTicker(interval, "store", "sweeper")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.ExpireIdle(); n > 0 {
				s.logger.Info("Expired idle players", "count", n)
			}
		}
	}
}

func clonePlayer(p *Player) *Player {
	c := *p
	c.GameState = append([]byte(nil), p.GameState...)
	return &c
}
