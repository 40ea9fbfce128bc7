package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/calvinwijaya/blackjack-engine/internal/db"
	"github.com/calvinwijaya/blackjack-engine/internal/game"
	"github.com/calvinwijaya/blackjack-engine/internal/store"
)

const (
	sessionCookie = "player_id"
	sessionHeader = "X-Player-ID"
)

// Options holds the table rules the handlers enforce around the engine.
type Options struct {
	InitialTokens   int
	MinimumBet      int
	SessionLifetime time.Duration
	SecureCookie    bool

	// Rand returns the source used for new shoes. Nil seeds from the clock.
	Rand func() *rand.Rand

	// Clock stamps recorded hand results. Nil uses the real clock.
	Clock quartz.Clock
}

// Handlers contains all the API handlers
type Handlers struct {
	store    store.Store
	database *db.Database
	hub      *Hub
	opts     Options
	logger   *log.Logger
	locks    sessionLocks
}

// NewHandlers creates a new instance of Handlers. database and hub may be nil.
func NewHandlers(s store.Store, database *db.Database, hub *Hub, opts Options, logger *log.Logger) *Handlers {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	return &Handlers{
		store:    s,
		database: database,
		hub:      hub,
		opts:     opts,
		logger:   logger,
		locks:    sessionLocks{locks: make(map[string]*sessionLock)},
	}
}

// RegisterRoutes registers all API routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/session", h.Session).Methods("POST")

	// Round state
	r.HandleFunc("/api/game", h.GetGame).Methods("GET")
	r.HandleFunc("/api/deck_len", h.DeckLen).Methods("GET")
	r.HandleFunc("/api/deck", h.CreateDeck).Methods("POST")

	// Betting
	r.HandleFunc("/api/bet", h.PlaceBet).Methods("POST")
	r.HandleFunc("/api/retake_bet", h.RetakeBet).Methods("POST")

	// Play
	r.HandleFunc("/api/start", h.Start).Methods("POST")
	r.HandleFunc("/api/hit", h.Hit).Methods("POST")
	r.HandleFunc("/api/stand", h.Stand).Methods("POST")
	r.HandleFunc("/api/double", h.Double).Methods("POST")
	r.HandleFunc("/api/insurance", h.Insurance).Methods("POST")

	// Splits
	r.HandleFunc("/api/split", h.Split).Methods("POST")
	r.HandleFunc("/api/split/done", h.SplitDone).Methods("POST")
	r.HandleFunc("/api/split/next", h.SplitNext).Methods("POST")
	r.HandleFunc("/api/split/resume", h.SplitResume).Methods("POST")

	// Settlement
	r.HandleFunc("/api/rewards", h.Rewards).Methods("POST")
	r.HandleFunc("/api/round_end", h.RoundEnd).Methods("POST")
	r.HandleFunc("/api/restart", h.Restart).Methods("POST")

	r.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// WebSocket endpoint
	r.HandleFunc("/ws", h.WebSocket)
}

// apiError is a request failure with the status and hint returned to the client.
type apiError struct {
	status  int
	message string
	hint    string
}

func (e *apiError) Error() string {
	return e.message
}

func newError(status int, message, hint string) *apiError {
	return &apiError{status: status, message: message, hint: hint}
}

var (
	errNoSession   = newError(http.StatusUnauthorized, "No session", "POST /api/session first")
	errRoundActive = newError(http.StatusConflict, "Round in progress", "finish the current round first")
	errNoRound     = newError(http.StatusConflict, "No round in progress", "POST /api/start first")
	errUnsettled   = newError(http.StatusConflict, "Hand not settled", "POST /api/rewards or /api/round_end first")
)

// stateResponse is the body returned by every round operation.
type stateResponse struct {
	PlayerID string    `json:"playerId"`
	Tokens   int       `json:"tokens"`
	Game     game.View `json:"game"`
	Result   any       `json:"result,omitempty"`
}

// response helper function to send JSON responses
func response(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// error response helper function
func errorResponse(w http.ResponseWriter, status int, message, hint string) {
	body := map[string]string{"error": message}
	if hint != "" {
		body["hint"] = hint
	}
	response(w, status, body)
}

// fail maps err to a response. Engine errors keep their meaning for the client;
// anything else is logged and reported as an internal error.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	switch {
	case errors.As(err, &apiErr):
		errorResponse(w, apiErr.status, apiErr.message, apiErr.hint)
	case errors.Is(err, game.ErrEmptyShoe):
		errorResponse(w, http.StatusConflict, "Not enough cards in the shoe", "POST /api/deck to create a new shoe")
	case errors.Is(err, game.ErrCorruptState):
		h.logger.Error("Stored round is corrupt", "path", r.URL.Path, "error", err)
		errorResponse(w, http.StatusInternalServerError, "Stored round is unreadable", "POST /api/restart to start over")
	default:
		h.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		errorResponse(w, http.StatusInternalServerError, "Internal error", "")
	}
}

// sessionPlayerID returns the player ID from the session cookie or header.
func sessionPlayerID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(sessionHeader)
}

func (h *Handlers) newRand() *rand.Rand {
	if h.opts.Rand == nil {
		return nil
	}
	return h.opts.Rand()
}

// loadPlayer fetches the session's player. An unknown or expired session is a 401.
func (h *Handlers) loadPlayer(ctx context.Context, r *http.Request) (*store.Player, error) {
	id := sessionPlayerID(r)
	if id == "" {
		return nil, errNoSession
	}

	p, err := h.store.GetPlayer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newError(http.StatusUnauthorized, "Session expired", "POST /api/session to start a new one")
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", id, err)
	}
	return p, nil
}

// loadRound restores the player's round, or creates an idle one for a new player.
func (h *Handlers) loadRound(p *store.Player) (*game.Round, error) {
	if len(p.GameState) == 0 {
		return game.NewRound(h.newRand()), nil
	}
	return game.Deserialize(p.GameState, h.newRand())
}

// roundOp is one engine operation. It may adjust the player's tokens and
// returns an optional result that is included in the response.
type roundOp func(ctx context.Context, p *store.Player, rd *game.Round) (any, error)

// withRound loads the session's player and round, applies op and persists both.
// Nothing is saved when op fails, so a failed operation leaves no trace.
func (h *Handlers) withRound(w http.ResponseWriter, r *http.Request, op roundOp) {
	h.mutate(w, r, false, op)
}

func (h *Handlers) mutate(w http.ResponseWriter, r *http.Request, discardCorrupt bool, op roundOp) {
	ctx := r.Context()

	id := sessionPlayerID(r)
	if id == "" {
		h.fail(w, r, errNoSession)
		return
	}
	unlock := h.locks.lock(id)
	defer unlock()

	p, err := h.loadPlayer(ctx, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rd, err := h.loadRound(p)
	if err != nil {
		if !discardCorrupt || !errors.Is(err, game.ErrCorruptState) {
			h.fail(w, r, err)
			return
		}
		h.logger.Warn("Discarding corrupt round", "player", p.ID, "error", err)
		rd = game.NewRound(h.newRand())
	}

	result, err := op(ctx, p, rd)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	state, err := rd.Serialize()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p.GameState = state

	if err := h.store.SavePlayer(ctx, p); err != nil {
		h.fail(w, r, fmt.Errorf("save player %s: %w", p.ID, err))
		return
	}

	body := stateResponse{PlayerID: p.ID, Tokens: p.Tokens, Game: rd.View(), Result: result}
	h.push(p.ID, body)
	response(w, http.StatusOK, body)
}

// push sends the new state to the player's open websocket connections.
func (h *Handlers) push(playerID string, body stateResponse) {
	if h.hub == nil {
		return
	}
	h.hub.SendToPlayer(playerID, Message{Type: "state", PlayerID: playerID, Data: body})
}

// Session finds or creates the player for a client and sets the session cookie
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"clientId"`
	}

	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorResponse(w, http.StatusBadRequest, "Invalid request body", `expected {"clientId": "..."}`)
			return
		}
	}
	if req.ClientID == "" {
		req.ClientID = uuid.NewString()
	}

	ctx := r.Context()
	p, err := h.store.GetPlayerByClientID(ctx, req.ClientID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		p = &store.Player{
			ID:       uuid.NewString(),
			ClientID: req.ClientID,
			Tokens:   h.opts.InitialTokens,
		}
		h.logger.Info("New player", "player", p.ID)
	case err != nil:
		h.fail(w, r, err)
		return
	}

	// Saving refreshes the player's last activity
	if err := h.store.SavePlayer(ctx, p); err != nil {
		h.fail(w, r, fmt.Errorf("save player %s: %w", p.ID, err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    p.ID,
		Path:     "/",
		MaxAge:   int(h.opts.SessionLifetime.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	rd, err := h.loadRound(p)
	if err != nil {
		h.logger.Warn("Stored round is corrupt", "player", p.ID, "error", err)
		rd = game.NewRound(h.newRand())
	}

	response(w, http.StatusOK, map[string]any{
		"playerId": p.ID,
		"clientId": p.ClientID,
		"tokens":   p.Tokens,
		"game":     rd.View(),
	})
}

// GetGame returns the current state of the round
func (h *Handlers) GetGame(w http.ResponseWriter, r *http.Request) {
	p, err := h.loadPlayer(r.Context(), r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rd, err := h.loadRound(p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response(w, http.StatusOK, stateResponse{PlayerID: p.ID, Tokens: p.Tokens, Game: rd.View()})
}

// DeckLen returns the number of cards left in the shoe
func (h *Handlers) DeckLen(w http.ResponseWriter, r *http.Request) {
	p, err := h.loadPlayer(r.Context(), r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rd, err := h.loadRound(p)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response(w, http.StatusOK, map[string]int{"deckLen": rd.ShoeLen()})
}

// CreateDeck replaces the shoe with a freshly shuffled one
func (h *Handlers) CreateDeck(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		rd.CreateShoe()
		return nil, nil
	})
}

// PlaceBet moves tokens from the player's balance onto the table
func (h *Handlers) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body", `expected {"amount": n}`)
		return
	}

	h.withRound(w, r, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		if req.Amount < h.opts.MinimumBet {
			return nil, newError(http.StatusBadRequest, "Bet below table minimum", fmt.Sprintf("minimum bet is %d", h.opts.MinimumBet))
		}
		if p.Tokens < req.Amount {
			return nil, newError(http.StatusPaymentRequired, "Not enough tokens", fmt.Sprintf("balance is %d", p.Tokens))
		}
		if !rd.PlaceBet(req.Amount) {
			return nil, errRoundActive
		}

		p.Tokens -= req.Amount
		return map[string]int{"placed": req.Amount}, nil
	})
}

// RetakeBet returns the most recent bet increment to the player
func (h *Handlers) RetakeBet(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		if rd.IsActive() {
			return nil, errRoundActive
		}

		amount := rd.RetakeBet()
		if amount == 0 {
			return nil, newError(http.StatusBadRequest, "No bet to take back", "")
		}

		p.Tokens += amount
		return map[string]int{"returned": amount}, nil
	})
}

// Start deals a new round on the bet placed so far
func (h *Handlers) Start(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		if rd.IsActive() {
			return nil, errRoundActive
		}
		if unsettled(rd) {
			return nil, errUnsettled
		}
		if rd.Bet() < h.opts.MinimumBet {
			return nil, newError(http.StatusBadRequest, "Bet below table minimum", fmt.Sprintf("bet at least %d before dealing", h.opts.MinimumBet))
		}
		return nil, rd.StartRound()
	})
}

// unsettled reports whether a dealt hand still holds a stake that neither
// Rewards nor RoundEnd has cleared.
func unsettled(rd *game.Round) bool {
	if len(rd.Dealer().Cards) == 0 {
		return false
	}
	return rd.Player().Bet > 0 || len(rd.QueuedHands()) > 0
}

// Hit draws a card into the active hand
func (h *Handlers) Hit(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		if rd.IsActive() && rd.Player().Bet > rd.Bet() {
			return nil, newError(http.StatusBadRequest, "Doubled hand takes one card", "POST /api/stand to finish the hand")
		}
		return nil, rd.Hit()
	})
}

// Stand ends the player's turn and plays the dealer's hand
func (h *Handlers) Stand(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		if err := rd.Stand(); err != nil {
			return nil, err
		}
		return map[string]game.Winner{"winner": rd.Winner()}, nil
	})
}

// Double doubles the stake and deals exactly one more card
func (h *Handlers) Double(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		if !rd.IsActive() {
			return nil, errNoRound
		}
		if hand := rd.Player(); len(hand.Cards) != 2 || hand.Bet != rd.Bet() {
			return nil, newError(http.StatusBadRequest, "Hand cannot be doubled", "only an untouched two-card hand can double")
		}
		if p.Tokens < rd.Bet() {
			return nil, newError(http.StatusPaymentRequired, "Not enough tokens to double", fmt.Sprintf("doubling costs %d", rd.Bet()))
		}

		p.Tokens -= rd.DoubleRequest()
		if err := rd.Hit(); err != nil {
			return nil, err
		}
		return map[string]int{"stake": rd.Player().Bet}, nil
	})
}

// Insurance settles an insurance side bet against a dealer ace
func (h *Handlers) Insurance(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		if !rd.IsActive() {
			return nil, errNoRound
		}
		if !rd.MaskedDealer().CanInsure {
			return nil, newError(http.StatusBadRequest, "Insurance not offered", "the dealer is not showing an ace")
		}
		if rd.Insured() || len(rd.Player().Cards) != 2 || len(rd.QueuedHands()) > 0 {
			return nil, newError(http.StatusBadRequest, "Insurance not offered", "insurance is taken once, on the opening hand")
		}

		cost := game.InsuranceCost(rd.Bet())
		if p.Tokens < cost {
			return nil, newError(http.StatusPaymentRequired, "Not enough tokens for insurance", fmt.Sprintf("insurance costs %d", cost))
		}

		delta := rd.InsuranceRequest()
		p.Tokens += delta
		return map[string]int{"insurance": delta}, nil
	})
}

// Split splits the active pair into two hands, staking the bet again
func (h *Handlers) Split(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		if !rd.CanSplitActive() {
			return nil, newError(http.StatusBadRequest, "Hand cannot be split", fmt.Sprintf("a pair is required and at most %d hands are allowed", game.MaxHands))
		}
		if p.Tokens < rd.Bet() {
			return nil, newError(http.StatusPaymentRequired, "Not enough tokens to split", fmt.Sprintf("splitting costs %d", rd.Bet()))
		}

		if !rd.SplitHand() {
			return nil, fmt.Errorf("split refused after eligibility check: %w", game.ErrInvalidSplit)
		}
		p.Tokens -= rd.Bet()
		return nil, nil
	})
}

// SplitDone parks the active hand so the next split hand can be played
func (h *Handlers) SplitDone(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		if len(rd.Player().Cards) == 0 {
			return nil, newError(http.StatusBadRequest, "No active hand", "")
		}
		rd.MarkActiveHandDone()
		return nil, nil
	})
}

// SplitNext deals the next split hand into play
func (h *Handlers) SplitNext(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		hand, ok := rd.ActivateNextSplitHand()
		if !ok {
			return nil, newError(http.StatusBadRequest, "No split hands waiting", "")
		}
		return hand, nil
	})
}

// SplitResume brings back a finished split hand for settlement
func (h *Handlers) SplitResume(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, _ *store.Player, rd *game.Round) (any, error) {
		hand, ok := rd.ResumeQueuedHand()
		if !ok {
			return nil, newError(http.StatusBadRequest, "No split hands waiting", "")
		}
		return hand, nil
	})
}

// Rewards settles the active hand and credits the payout
func (h *Handlers) Rewards(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(ctx context.Context, p *store.Player, rd *game.Round) (any, error) {
		if rd.IsActive() {
			return nil, newError(http.StatusConflict, "Round in progress", "POST /api/stand before settling")
		}
		if len(rd.Dealer().Cards) == 0 {
			return nil, errNoRound
		}

		hand := rd.Player()
		payout := rd.Rewards()
		p.Tokens += payout

		if h.database != nil && hand.Bet > 0 {
			err := h.database.RecordResult(ctx, p.ID, hand.Bet, string(rd.Winner()), string(hand.Natural), payout, h.opts.Clock.Now())
			if err != nil {
				// The payout stands even if history can't be written
				h.logger.Error("Failed to record result", "player", p.ID, "error", err)
			}
		}

		h.logger.Debug("Hand settled", "player", p.ID, "bet", hand.Bet, "winner", rd.Winner(), "natural", hand.Natural, "payout", payout)
		return map[string]int{"payout": payout}, nil
	})
}

// RoundEnd clears the table, keeping the shoe. Bets not yet dealt are returned.
func (h *Handlers) RoundEnd(w http.ResponseWriter, r *http.Request) {
	h.withRound(w, r, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		refund := 0
		if !rd.IsActive() {
			for _, amount := range rd.BetList() {
				refund += amount
			}
		}

		rd.RoundEnd()
		p.Tokens += refund
		return map[string]int{"returned": refund}, nil
	})
}

// Restart throws the round away and resets the balance
func (h *Handlers) Restart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, true, func(_ context.Context, p *store.Player, rd *game.Round) (any, error) {
		rd.Restart()
		p.Tokens = h.opts.InitialTokens
		return nil, nil
	})
}

// GetStats returns the player's settled hand statistics
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.database == nil {
		errorResponse(w, http.StatusNotImplemented, "Statistics require a database", "run the server with a sqlite3 or postgres database")
		return
	}

	p, err := h.loadPlayer(r.Context(), r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	stats, err := h.database.GetPlayerStats(r.Context(), p.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response(w, http.StatusOK, stats)
}

// WebSocket subscribes the connection to the session player's round updates
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Live updates unavailable", "")
		return
	}

	// Browsers can't set headers on websocket requests
	if sessionPlayerID(r) == "" {
		if id := r.URL.Query().Get("playerId"); id != "" {
			r.Header.Set(sessionHeader, id)
		}
	}

	p, err := h.loadPlayer(r.Context(), r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.hub.serveWS(w, r, p.ID)
}

// sessionLocks serializes requests per player so concurrent requests from
// several tabs can't interleave load and save.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	sync.Mutex
	refs int
}

func (s *sessionLocks) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
