package game

import "fmt"

// BlackjackLimit is the highest total a hand can have without busting.
const BlackjackLimit = 21

type HandStatus string

const (
	StatusNone      HandStatus = ""
	StatusUnder21   HandStatus = "under21"
	StatusTwentyOne HandStatus = "twentyOne" // 21 reached by a hit or a split draw
	StatusBust      HandStatus = "bust"
	StatusBlackjack HandStatus = "blackjack" // two-card 21 on the initial deal
)

func (s *HandStatus) UnmarshalText(text []byte) error {
	switch v := HandStatus(text); v {
	case StatusNone, StatusUnder21, StatusTwentyOne, StatusBust, StatusBlackjack:
		*s = v
		return nil
	}
	return fmt.Errorf("unknown hand status %q", text)
}

// Hand is one player hand, or the dealer's hand.
type Hand struct {
	ID       int        `json:"id"`
	Cards    []Card     `json:"cards"`
	Sum      int        `json:"sum"`
	Status   HandStatus `json:"status"`
	CanSplit bool       `json:"canSplit"`
	Acted    bool       `json:"acted"`
	Bet      int        `json:"bet"`
	AcePair  bool       `json:"acePair"`
	Natural  Natural    `json:"natural"`
}

// recompute refreshes the derived fields from the cards. initialDeal marks the
// two-card hand dealt at round start, the only hand that can be a blackjack.
func (h *Hand) recompute(initialDeal bool) {
	h.Sum, _ = ComputeSum(h.Cards)
	h.Status = Classify(h.Cards, h.Sum, initialDeal)
	h.CanSplit = CanSplit(h.Cards)
}

// ComputeSum returns the blackjack total of cards and how many aces are still counted as 11.
func ComputeSum(cards []Card) (total, softAces int) {
	for _, card := range cards {
		if card.Rank == Ace {
			softAces++
		}
		total += card.Value()
	}

	// Demote aces from 11 to 1 until the hand no longer busts
	for softAces > 0 && total > BlackjackLimit {
		total -= 10
		softAces--
	}

	return total, softAces
}

// Classify maps a total to a hand status.
func Classify(cards []Card, total int, initialDeal bool) HandStatus {
	switch {
	case total > BlackjackLimit:
		return StatusBust
	case total == BlackjackLimit && initialDeal && len(cards) == 2:
		return StatusBlackjack
	case total == BlackjackLimit:
		return StatusTwentyOne
	default:
		return StatusUnder21
	}
}

// CanSplit reports whether a hand is a splittable pair: two cards of the same
// rank, or two ten-valued cards.
func CanSplit(cards []Card) bool {
	if len(cards) != 2 {
		return false
	}
	a, b := cards[0], cards[1]
	return a.Rank == b.Rank || (a.IsTenValued() && b.IsTenValued())
}

func isAcePair(cards []Card) bool {
	return len(cards) == 2 && cards[0].Rank == Ace && cards[1].Rank == Ace
}
