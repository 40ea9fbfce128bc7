package game

import "fmt"

// Natural is the natural-21 outcome frozen into a hand when it is dealt.
type Natural string

const (
	NoNatural       Natural = ""
	PlayerBlackjack Natural = "playerBlackjack"
	BlackjackPush   Natural = "blackjackPush"
	DealerBlackjack Natural = "dealerBlackjack"
)

func (n *Natural) UnmarshalText(text []byte) error {
	switch v := Natural(text); v {
	case NoNatural, PlayerBlackjack, BlackjackPush, DealerBlackjack:
		*n = v
		return nil
	}
	return fmt.Errorf("unknown natural state %q", text)
}

// Winner is the result of comparing a player hand against the dealer.
type Winner string

const (
	NoWinner   Winner = ""
	Push       Winner = "push"
	PlayerLost Winner = "playerLost"
	PlayerWon  Winner = "playerWon"
	DealerWon  Winner = "dealerWon"
)

func (w *Winner) UnmarshalText(text []byte) error {
	switch v := Winner(text); v {
	case NoWinner, Push, PlayerLost, PlayerWon, DealerWon:
		*w = v
		return nil
	}
	return fmt.Errorf("unknown winner %q", text)
}

func isNatural(cards []Card) bool {
	if len(cards) != 2 {
		return false
	}
	total, _ := ComputeSum(cards)
	return total == BlackjackLimit
}

// NaturalState compares two-card hands for a natural 21.
func NaturalState(player, dealer []Card) Natural {
	playerNatural := isNatural(player)
	dealerNatural := isNatural(dealer)

	switch {
	case playerNatural && dealerNatural:
		return BlackjackPush
	case playerNatural:
		return PlayerBlackjack
	case dealerNatural:
		return DealerBlackjack
	default:
		return NoNatural
	}
}

// DecideWinner compares a player total with the dealer total.
// A busted player loses whatever the dealer holds.
func DecideWinner(player, dealer int) Winner {
	switch {
	case player > BlackjackLimit:
		return PlayerLost
	case dealer > BlackjackLimit:
		return PlayerWon
	case player == dealer:
		return Push
	case player > dealer:
		return PlayerWon
	default:
		return DealerWon
	}
}

// Payout returns what a settled hand pays back, stake included.
func Payout(bet int, natural Natural, winner Winner) int {
	switch {
	case natural == PlayerBlackjack:
		return bet * 5 / 2 // 3:2 plus the stake, rounded down
	case winner == PlayerWon && natural != DealerBlackjack:
		return bet * 2
	case winner == Push && natural != DealerBlackjack, natural == BlackjackPush:
		return bet
	default:
		return 0
	}
}
