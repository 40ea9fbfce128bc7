package game

// View is the client-facing state of a round. The dealer's hole card stays
// masked until the round has a winner.
type View struct {
	Player        Hand       `json:"player"`
	SplitHands    []Hand     `json:"splitHands"`
	Dealer        DealerView `json:"dealer"`
	Bet           int        `json:"bet"`
	BetList       []int      `json:"betList"`
	Natural       Natural    `json:"natural"`
	Winner        Winner     `json:"winner"`
	SplitRequests int        `json:"splitReq"`
	IsRoundActive bool       `json:"isRoundActive"`
	ShoeLen       int        `json:"deckLen"`
}

// View returns the round as the player is allowed to see it.
func (r *Round) View() View {
	dealer := r.MaskedDealer()
	if r.winner != NoWinner {
		dealer = r.Dealer()
	}

	return View{
		Player:        r.Player(),
		SplitHands:    r.QueuedHands(),
		Dealer:        dealer,
		Bet:           r.bet,
		BetList:       r.BetList(),
		Natural:       r.natural,
		Winner:        r.winner,
		SplitRequests: r.splitReq,
		IsRoundActive: r.active,
		ShoeLen:       r.ShoeLen(),
	}
}
