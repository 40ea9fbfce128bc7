package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// snapshot is the persisted form of a Round. Pointer fields tell an absent
// field apart from a zero value so a truncated snapshot is rejected.
type snapshot struct {
	Shoe          *[]Card     `json:"shoe"`
	Player        *Hand       `json:"player"`
	Dealer        *Hand       `json:"dealer"`
	DealerMasked  *DealerView `json:"dealerMasked,omitempty"`
	SplitQueue    *SplitQueue `json:"splitQueue"`
	Bet           *int        `json:"bet"`
	BetList       *[]int      `json:"betList"`
	Natural       *Natural    `json:"natural"`
	Winner        *Winner     `json:"winner"`
	SplitRequests *int        `json:"splitReq"`
	NextHandID    *int        `json:"nextHandId"`
	IsRoundActive *bool       `json:"isRoundActive"`
	Insured       bool        `json:"insured,omitempty"`
	ShoeLen       *int        `json:"shoeLen"`
}

// Serialize returns a complete snapshot of the round.
func (r *Round) Serialize() ([]byte, error) {
	shoe := append([]Card{}, r.shoe.Cards...)
	betList := append([]int{}, r.betList...)
	masked := r.MaskedDealer()
	shoeLen := len(shoe)

	data, err := json.Marshal(snapshot{
		Shoe:          &shoe,
		Player:        &r.player,
		Dealer:        &r.dealer,
		DealerMasked:  &masked,
		SplitQueue:    r.queue,
		Bet:           &r.bet,
		BetList:       &betList,
		Natural:       &r.natural,
		Winner:        &r.winner,
		SplitRequests: &r.splitReq,
		NextHandID:    &r.nextID,
		IsRoundActive: &r.active,
		Insured:       r.insured,
		ShoeLen:       &shoeLen,
	})
	if err != nil {
		return nil, fmt.Errorf("serialize round: %w", err)
	}
	return data, nil
}

// Deserialize rebuilds a round from a snapshot produced by Serialize. Only
// isRoundActive may be missing, in which case the round is idle. A nil rng
// seeds one from the clock; it is used for shoes created after the restore.
func Deserialize(data []byte, rng *rand.Rand) (*Round, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	required := []struct {
		name    string
		missing bool
	}{
		{"shoe", s.Shoe == nil},
		{"player", s.Player == nil},
		{"dealer", s.Dealer == nil},
		{"splitQueue", s.SplitQueue == nil},
		{"bet", s.Bet == nil},
		{"betList", s.BetList == nil},
		{"natural", s.Natural == nil},
		{"winner", s.Winner == nil},
		{"splitReq", s.SplitRequests == nil},
		{"nextHandId", s.NextHandID == nil},
		{"shoeLen", s.ShoeLen == nil},
	}
	for _, f := range required {
		if f.missing {
			return nil, fmt.Errorf("%w: missing %s", ErrCorruptState, f.name)
		}
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}

	r := NewRound(rng)
	r.shoe = NewShoeFromCards(*s.Shoe...)
	r.player = *s.Player
	r.dealer = *s.Dealer
	r.queue = s.SplitQueue
	r.bet = *s.Bet
	r.betList = *s.BetList
	r.natural = *s.Natural
	r.winner = *s.Winner
	r.splitReq = *s.SplitRequests
	r.nextID = *s.NextHandID
	if s.IsRoundActive != nil {
		r.active = *s.IsRoundActive
	}
	r.insured = s.Insured

	return r, nil
}

func (s *snapshot) validate() error {
	if *s.ShoeLen != len(*s.Shoe) {
		return fmt.Errorf("shoe length %d does not match %d cards", *s.ShoeLen, len(*s.Shoe))
	}
	if len(*s.Shoe) > DecksPerShoe*len(suits)*len(ranks) {
		return fmt.Errorf("shoe holds %d cards", len(*s.Shoe))
	}
	if *s.Bet < 0 || *s.SplitRequests < 0 {
		return fmt.Errorf("negative counter")
	}

	if len(*s.BetList) > 0 {
		sum := 0
		for _, b := range *s.BetList {
			sum += b
		}
		if sum != *s.Bet {
			return fmt.Errorf("bet %d does not match bet list total %d", *s.Bet, sum)
		}
	}

	hands := append([]Hand{*s.Player, *s.Dealer}, s.SplitQueue.Hands()...)
	for _, h := range hands {
		if h.ID >= *s.NextHandID {
			return fmt.Errorf("hand id %d not below next hand id %d", h.ID, *s.NextHandID)
		}
		for _, c := range h.Cards {
			if c.IsHole() {
				return fmt.Errorf("hole card inside hand %d", h.ID)
			}
		}
	}
	for _, c := range *s.Shoe {
		if c.IsHole() {
			return fmt.Errorf("hole card inside shoe")
		}
	}

	return nil
}
