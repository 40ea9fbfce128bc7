package game

import (
	"math/rand"
	"time"
)

// DecksPerShoe is the number of standard 52-card sets combined into one shoe.
const DecksPerShoe = 2

// Shoe is the pool of cards available to deal from. Cards are consumed from the front.
type Shoe struct {
	Cards []Card
}

// NewShoe creates a shoe holding DecksPerShoe standard decks and shuffles it with rng
func NewShoe(rng *rand.Rand) *Shoe {
	shoe := &Shoe{Cards: make([]Card, 0, DecksPerShoe*len(suits)*len(ranks))}

	for i := 0; i < DecksPerShoe; i++ {
		for _, suit := range suits {
			for _, rank := range ranks {
				shoe.Cards = append(shoe.Cards, Card{Suit: suit, Rank: rank})
			}
		}
	}

	shoe.Shuffle(rng)
	return shoe
}

// NewShoeFromCards creates a shoe that deals the given cards in order.
func NewShoeFromCards(cards ...Card) *Shoe {
	return &Shoe{Cards: append([]Card(nil), cards...)}
}

// Shuffle randomizes the order of cards in the shoe
func (s *Shoe) Shuffle(rng *rand.Rand) {
	if rng == nil {
		rng = newRand()
	}

	// Fisher-Yates
	for i := len(s.Cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s.Cards[i], s.Cards[j] = s.Cards[j], s.Cards[i]
	}
}

// Draw removes and returns the top card of the shoe
func (s *Shoe) Draw() (Card, error) {
	if len(s.Cards) == 0 {
		return Card{}, ErrEmptyShoe
	}

	card := s.Cards[0]
	s.Cards = s.Cards[1:]
	return card, nil
}

// Remaining returns the number of cards left in the shoe
func (s *Shoe) Remaining() int {
	return len(s.Cards)
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
