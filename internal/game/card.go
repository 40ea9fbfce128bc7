package game

import (
	"fmt"
	"strings"
)

type Suit string
type Rank string

const (
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
	Spades   Suit = "♠"
)

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// holeToken is how the dealer's face-down card is rendered in the masked view.
const holeToken = "✪"

var (
	suits = []Suit{Hearts, Diamonds, Clubs, Spades}
	ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// Card is a single playing card. The zero Card is the hole-card placeholder.
type Card struct {
	Suit Suit
	Rank Rank
}

// HoleCard stands in for the dealer's hidden card.
var HoleCard = Card{}

// IsHole reports whether c is the hole-card placeholder.
func (c Card) IsHole() bool {
	return c == HoleCard
}

// Value returns the blackjack value of the card with aces counted as 11
func (c Card) Value() int {
	switch c.Rank {
	case Ace:
		return 11
	case Ten, Jack, Queen, King:
		return 10
	case Two:
		return 2
	case Three:
		return 3
	case Four:
		return 4
	case Five:
		return 5
	case Six:
		return 6
	case Seven:
		return 7
	case Eight:
		return 8
	case Nine:
		return 9
	default:
		return 0
	}
}

// IsTenValued reports whether the card belongs to the {10, J, Q, K} group.
func (c Card) IsTenValued() bool {
	switch c.Rank {
	case Ten, Jack, Queen, King:
		return true
	}
	return false
}

func (c Card) String() string {
	if c.IsHole() {
		return holeToken
	}
	return string(c.Suit) + string(c.Rank)
}

// MarshalText encodes the card as its token, e.g. "♥10".
func (c Card) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a card token produced by MarshalText.
func (c *Card) UnmarshalText(text []byte) error {
	card, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = card
	return nil
}

// ParseCard parses a card token such as "♠A" or "♦10".
func ParseCard(token string) (Card, error) {
	if token == holeToken {
		return HoleCard, nil
	}
	for _, s := range suits {
		rest, ok := strings.CutPrefix(token, string(s))
		if !ok {
			continue
		}
		for _, r := range ranks {
			if rest == string(r) {
				return Card{Suit: s, Rank: r}, nil
			}
		}
		return Card{}, fmt.Errorf("unknown rank in card %q", token)
	}
	return Card{}, fmt.Errorf("unknown suit in card %q", token)
}

// MustParseCards parses a list of card tokens and panics on a bad token.
// It is meant for fixed card lists such as test shoes.
func MustParseCards(tokens ...string) []Card {
	cards := make([]Card, 0, len(tokens))
	for _, t := range tokens {
		c, err := ParseCard(t)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}
