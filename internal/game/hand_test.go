package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard(t *testing.T) {
	for _, token := range []string{"♥A", "♦10", "♣K", "♠7", "✪"} {
		card, err := ParseCard(token)
		require.NoError(t, err, token)
		assert.Equal(t, token, card.String())
	}

	_, err := ParseCard("X10")
	assert.Error(t, err)
	_, err = ParseCard("♥1")
	assert.Error(t, err)
	_, err = ParseCard("")
	assert.Error(t, err)
}

func TestComputeSum(t *testing.T) {
	tests := []struct {
		name     string
		cards    []string
		total    int
		softAces int
	}{
		{"soft ace", []string{"♥A", "♣6"}, 17, 1},
		{"ace demoted to avoid bust", []string{"♥A", "♣6", "♦9"}, 16, 0},
		{"two aces", []string{"♥A", "♠A"}, 12, 1},
		{"three aces and nine", []string{"♥A", "♠A", "♦A", "♣9"}, 12, 0},
		{"face cards", []string{"♥K", "♣Q"}, 20, 0},
		{"bust without aces", []string{"♥K", "♣Q", "♦2"}, 22, 0},
		{"blackjack", []string{"♠A", "♦J"}, 21, 1},
		{"empty", nil, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, soft := ComputeSum(MustParseCards(tt.cards...))
			assert.Equal(t, tt.total, total)
			assert.Equal(t, tt.softAces, soft)
		})
	}
}

func TestComputeSumSingleAceNeverBustsWhenItCanBeOne(t *testing.T) {
	others := []string{"♥2", "♥3", "♥4", "♥5", "♥6", "♥7", "♥8", "♥9", "♥10", "♥J"}
	for _, a := range others {
		for _, b := range others {
			cards := MustParseCards("♠A", a, b)
			total, soft := ComputeSum(cards)
			hard := cards[1].Value() + cards[2].Value()
			if hard+11 <= BlackjackLimit {
				assert.Equal(t, hard+11, total, cards)
				assert.Equal(t, 1, soft, cards)
			} else {
				assert.Equal(t, hard+1, total, cards)
				assert.Equal(t, 0, soft, cards)
			}
		}
	}
}

func TestClassify(t *testing.T) {
	natural := MustParseCards("♥A", "♣K")
	assert.Equal(t, StatusBlackjack, Classify(natural, 21, true))
	assert.Equal(t, StatusTwentyOne, Classify(natural, 21, false), "split draws never make a blackjack")

	three := MustParseCards("♥7", "♣7", "♦7")
	assert.Equal(t, StatusTwentyOne, Classify(three, 21, true))

	assert.Equal(t, StatusBust, Classify(MustParseCards("♥K", "♣Q", "♦5"), 25, false))
	assert.Equal(t, StatusUnder21, Classify(MustParseCards("♥K", "♣5"), 15, true))
}

func TestCanSplit(t *testing.T) {
	assert.True(t, CanSplit(MustParseCards("♥10", "♣K")))
	assert.True(t, CanSplit(MustParseCards("♦7", "♠7")))
	assert.True(t, CanSplit(MustParseCards("♦A", "♠A")))
	assert.True(t, CanSplit(MustParseCards("♦J", "♠Q")))
	assert.False(t, CanSplit(MustParseCards("♥10", "♣9")))
	assert.False(t, CanSplit(MustParseCards("♥8", "♣8", "♦8")))
	assert.False(t, CanSplit(MustParseCards("♥8")))
}

func TestNaturalState(t *testing.T) {
	bj := MustParseCards("♥A", "♣K")
	other := MustParseCards("♥9", "♣K")

	assert.Equal(t, BlackjackPush, NaturalState(bj, bj))
	assert.Equal(t, PlayerBlackjack, NaturalState(bj, other))
	assert.Equal(t, DealerBlackjack, NaturalState(other, bj))
	assert.Equal(t, NoNatural, NaturalState(other, other))
	assert.Equal(t, NoNatural, NaturalState(MustParseCards("♥7", "♣7", "♦7"), other))
}

func TestDecideWinner(t *testing.T) {
	assert.Equal(t, PlayerLost, DecideWinner(22, 25), "busted player loses even to a busted dealer")
	assert.Equal(t, PlayerWon, DecideWinner(12, 22))
	assert.Equal(t, Push, DecideWinner(18, 18))
	assert.Equal(t, PlayerWon, DecideWinner(20, 18))
	assert.Equal(t, DealerWon, DecideWinner(17, 19))
}

func TestPayout(t *testing.T) {
	assert.Equal(t, 25, Payout(10, PlayerBlackjack, PlayerWon))
	assert.Equal(t, 27, Payout(11, PlayerBlackjack, PlayerWon))
	assert.Equal(t, 20, Payout(10, NoNatural, PlayerWon))
	assert.Equal(t, 10, Payout(10, NoNatural, Push))
	assert.Equal(t, 10, Payout(10, BlackjackPush, Push))
	assert.Equal(t, 0, Payout(10, DealerBlackjack, Push))
	assert.Equal(t, 0, Payout(10, NoNatural, DealerWon))
	assert.Equal(t, 0, Payout(10, NoNatural, PlayerLost))
}
