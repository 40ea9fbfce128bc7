package game

import "errors"

var (
	// ErrEmptyShoe is returned when a card is drawn from a shoe with no cards left.
	// Callers either check ShoeLen beforehand or create a new shoe and retry.
	ErrEmptyShoe = errors.New("shoe is empty")

	// ErrInvalidSplit names a split attempted on an ineligible hand or with a full split queue.
	// SplitHand reports it as a false return and leaves the round untouched.
	ErrInvalidSplit = errors.New("split not possible")

	// ErrCorruptState is returned when a snapshot cannot be turned back into a round.
	ErrCorruptState = errors.New("corrupt round state")
)
