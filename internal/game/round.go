package game

import (
	"fmt"
	"math/rand"
	"slices"
)

// DealerStandsOn is the total at which the dealer stops drawing, soft totals included.
const DealerStandsOn = 17

// cardsPerDeal is the number of cards drawn by StartRound.
const cardsPerDeal = 4

// Round is one player's blackjack round against the dealer.
//
// A Round is not safe for concurrent use; callers serialize access per player.
type Round struct {
	rng      *rand.Rand
	shoe     *Shoe
	player   Hand
	dealer   Hand
	queue    *SplitQueue
	natural  Natural
	winner   Winner
	splitReq int
	nextID   int
	insured  bool
	bet      int
	betList  []int
	active   bool
}

// DealerView is what the dealer's hand looks like from one side of the table.
type DealerView struct {
	Cards     []Card     `json:"cards"`
	Sum       int        `json:"sum"`
	Status    HandStatus `json:"status"`
	CanInsure bool       `json:"canInsure"`
}

// NewRound creates an idle round with an empty shoe. A nil rng seeds one from the clock.
func NewRound(rng *rand.Rand) *Round {
	if rng == nil {
		rng = newRand()
	}
	r := &Round{rng: rng, shoe: &Shoe{}}
	r.clearHands()
	return r
}

// NewRoundWithShoe creates an idle round that deals from shoe.
func NewRoundWithShoe(rng *rand.Rand, shoe *Shoe) *Round {
	r := NewRound(rng)
	r.shoe = shoe
	return r
}

func (r *Round) clearHands() {
	r.player = Hand{}
	r.dealer = Hand{}
	r.queue = NewSplitQueue()
	r.natural = NoNatural
	r.winner = NoWinner
	r.splitReq = 0
	r.nextID = 1
	r.insured = false
}

func (r *Round) mintID() int {
	id := r.nextID
	r.nextID++
	return id
}

// CreateShoe replaces the shoe with a freshly shuffled one.
func (r *Round) CreateShoe() {
	r.shoe = NewShoe(r.rng)
}

// ShoeLen returns the number of cards left in the shoe
func (r *Round) ShoeLen() int {
	return r.shoe.Remaining()
}

// StartRound deals a new round: dealer, player, dealer, player.
// The first dealer card is the hole card. The bet placed so far is carried into the hand.
func (r *Round) StartRound() error {
	if r.shoe.Remaining() < cardsPerDeal {
		return fmt.Errorf("start round: %w", ErrEmptyShoe)
	}

	r.clearHands()
	r.betList = nil

	var dealt [cardsPerDeal]Card
	for i := range dealt {
		dealt[i], _ = r.shoe.Draw()
	}

	r.dealer = Hand{Cards: []Card{dealt[0], dealt[2]}}
	r.dealer.recompute(true)
	r.dealer.CanSplit = false

	r.player = Hand{
		ID:    r.mintID(),
		Cards: []Card{dealt[1], dealt[3]},
		Bet:   r.bet,
	}
	r.player.recompute(true)
	r.player.AcePair = isAcePair(r.player.Cards)

	r.natural = NaturalState(r.player.Cards, r.dealer.Cards)
	r.player.Natural = r.natural
	r.active = true

	return nil
}

// Hit draws a card into the active hand. It does nothing unless the round is active.
func (r *Round) Hit() error {
	if !r.active {
		return nil
	}

	card, err := r.shoe.Draw()
	if err != nil {
		return fmt.Errorf("hit: %w", err)
	}

	r.player.Cards = append(r.player.Cards, card)
	r.player.recompute(false)
	if r.player.Status == StatusBust {
		r.active = false
	}

	return nil
}

// Stand ends the player's turn. While a player hand is still live the dealer
// draws until reaching DealerStandsOn. If the shoe runs out mid-draw the
// caller can create a new shoe and call Stand again to finish the dealer's hand.
func (r *Round) Stand() error {
	if len(r.dealer.Cards) == 0 {
		return nil
	}

	if r.playerLive() {
		for r.dealer.Sum < DealerStandsOn {
			card, err := r.shoe.Draw()
			if err != nil {
				return fmt.Errorf("stand: %w", err)
			}
			r.dealer.Cards = append(r.dealer.Cards, card)
			r.dealer.recompute(false)
			r.dealer.CanSplit = false
		}
	}

	r.WinnerState()
	r.active = false
	return nil
}

// playerLive reports whether any player hand, active or queued, is still at 21 or under.
func (r *Round) playerLive() bool {
	live := func(h Hand) bool {
		return len(h.Cards) > 0 && h.Sum <= BlackjackLimit
	}
	if live(r.player) {
		return true
	}
	return slices.ContainsFunc(r.queue.Hands(), live)
}

// WinnerState compares the active hand with the dealer and records the result.
func (r *Round) WinnerState() Winner {
	r.winner = DecideWinner(r.player.Sum, r.dealer.Sum)
	return r.winner
}

// Rewards settles the active hand and returns its payout, stake included.
// The bet is cleared and the round deactivated whatever the outcome.
func (r *Round) Rewards() int {
	winner := r.WinnerState()
	payout := Payout(r.player.Bet, r.player.Natural, winner)

	r.bet = 0
	r.betList = nil
	r.player.Bet = 0
	r.active = false

	return payout
}

// PlaceBet adds a wager increment while no round is in play.
func (r *Round) PlaceBet(amount int) bool {
	if amount <= 0 || r.active {
		return false
	}
	r.bet += amount
	r.betList = append(r.betList, amount)
	return true
}

// RetakeBet takes back the most recent wager increment and returns it, or 0 if there is none.
func (r *Round) RetakeBet() int {
	if len(r.betList) == 0 {
		return 0
	}
	last := r.betList[len(r.betList)-1]
	r.betList = r.betList[:len(r.betList)-1]
	r.bet -= last
	return last
}

// DoubleRequest doubles the active hand's stake and returns the amount the
// caller must deduct from the player's balance. The balance itself is not
// checked here. A double is conventionally followed by exactly one Hit.
func (r *Round) DoubleRequest() int {
	if !r.active {
		return 0
	}
	r.player.Bet += r.bet
	return r.bet
}

// InsuranceRequest settles an insurance side bet costing half the bet, rounded up.
// Against a dealer natural it returns the bet as a positive payout, forfeits the
// main bet and ends the round immediately. Otherwise it returns the lost cost as a
// negative amount.
func (r *Round) InsuranceRequest() int {
	r.insured = true
	cost := InsuranceCost(r.bet)
	if !isNatural(r.dealer.Cards) {
		return -cost
	}

	paid := r.bet
	r.bet = 0
	r.player.Bet = 0
	r.winner = DealerWon
	r.active = false
	return paid
}

// InsuranceCost returns the price of insurance for a bet.
func InsuranceCost(bet int) int {
	return (bet + 1) / 2
}

// CanSplitActive reports whether SplitHand would accept the active hand.
// The shoe must hold the card dealt to the first hand.
func (r *Round) CanSplitActive() bool {
	return r.active && CanSplit(r.player.Cards) && !r.queue.Full() && r.shoe.Remaining() > 0
}

// SplitHand splits the active pair into two hands. The first keeps the active
// slot and is dealt a second card; the other waits in the split queue for its
// own card. It returns false, changing nothing, when the hand cannot be split.
func (r *Round) SplitHand() bool {
	if !r.CanSplitActive() {
		return false
	}

	card, err := r.shoe.Draw()
	if err != nil {
		return false
	}

	acePair := isAcePair(r.player.Cards)
	first := Hand{ID: r.player.ID, Cards: []Card{r.player.Cards[0], card}, Bet: r.bet, AcePair: acePair}
	second := Hand{ID: r.mintID(), Cards: []Card{r.player.Cards[1]}, Bet: r.bet, AcePair: acePair}

	first.recompute(false)
	first.Natural = NaturalState(first.Cards, r.dealer.Cards)
	second.recompute(false)

	r.player = first
	r.queue.Put(second)
	r.splitReq++

	return true
}

// ActivateNextSplitHand moves the next queued hand into the active slot,
// replacing the active hand. A hand that has not acted yet is dealt its second
// card. It returns false when the queue is empty.
func (r *Round) ActivateNextSplitHand() (Hand, bool) {
	h, ok := r.queue.Pop()
	if !ok {
		return Hand{}, false
	}

	if !h.Acted {
		if card, err := r.shoe.Draw(); err == nil {
			h.Cards = append(h.Cards, card)
			h.recompute(false)
			h.Natural = NaturalState(h.Cards, r.dealer.Cards)
		}
	}

	r.player = h
	r.active = !h.Acted && h.Status != StatusBust
	if r.splitReq > 0 {
		r.splitReq--
	}

	return r.Player(), true
}

// ResumeQueuedHand moves the next queued hand into the active slot without
// dealing to it. It is used to settle finished split hands one by one.
func (r *Round) ResumeQueuedHand() (Hand, bool) {
	h, ok := r.queue.Pop()
	if !ok {
		return Hand{}, false
	}
	r.player = h
	return r.Player(), true
}

// MarkActiveHandDone parks the active hand in the split queue as acted.
func (r *Round) MarkActiveHandDone() {
	if len(r.player.Cards) == 0 {
		return
	}
	r.player.Acted = true
	r.queue.Put(r.player)
	r.player = Hand{}
	r.active = false
}

// RoundEnd clears the round and the bet ledger, keeping the shoe.
func (r *Round) RoundEnd() {
	r.clearHands()
	r.bet = 0
	r.betList = nil
	r.active = false
}

// Restart throws everything away, shoe included.
func (r *Round) Restart() {
	r.RoundEnd()
	r.shoe = &Shoe{}
}

// Player returns a copy of the active hand
func (r *Round) Player() Hand {
	h := r.player
	h.Cards = slices.Clone(h.Cards)
	return h
}

// QueuedHands returns the split hands waiting in the queue, in ascending ID order.
func (r *Round) QueuedHands() []Hand {
	return r.queue.Hands()
}

// Dealer returns the dealer's hand with every card face up.
func (r *Round) Dealer() DealerView {
	return DealerView{
		Cards:     slices.Clone(r.dealer.Cards),
		Sum:       r.dealer.Sum,
		Status:    r.dealer.Status,
		CanInsure: r.canInsure(),
	}
}

// MaskedDealer returns the dealer's hand as seen while the player acts: the
// hole card is replaced by a placeholder and only the exposed cards are counted.
func (r *Round) MaskedDealer() DealerView {
	cards := slices.Clone(r.dealer.Cards)
	if len(cards) > 0 {
		cards[0] = HoleCard
	}
	sum, _ := ComputeSum(cards)
	status := StatusNone
	if len(cards) > 0 {
		status = Classify(cards, sum, false)
	}
	return DealerView{
		Cards:     cards,
		Sum:       sum,
		Status:    status,
		CanInsure: r.canInsure(),
	}
}

// canInsure reports whether the dealer's exposed card is an ace.
func (r *Round) canInsure() bool {
	return len(r.dealer.Cards) == 2 && r.dealer.Cards[1].Rank == Ace
}

// Bet returns the running bet total
func (r *Round) Bet() int { return r.bet }

// BetList returns the wager increments placed since the last deal
func (r *Round) BetList() []int { return slices.Clone(r.betList) }

// Natural returns the natural-21 outcome frozen at the deal
func (r *Round) Natural() Natural { return r.natural }

// Winner returns the last computed winner
func (r *Round) Winner() Winner { return r.winner }

// SplitRequests returns how many split hands are still waiting to be dealt
func (r *Round) SplitRequests() int { return r.splitReq }

// Insured reports whether insurance was taken on this deal
func (r *Round) Insured() bool { return r.insured }

// IsActive reports whether the player can still act on the active hand
func (r *Round) IsActive() bool { return r.active }
