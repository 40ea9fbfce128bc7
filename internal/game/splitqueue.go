package game

import (
	"encoding/json"
	"fmt"
	"slices"
)

const (
	// MaxHands is the most hands a player may hold at once, the active hand included.
	MaxHands = 4

	// MaxQueuedHands is how many split hands may wait alongside the active hand.
	MaxQueuedHands = MaxHands - 1
)

// SplitQueue holds split hands waiting for their turn, keyed by hand ID.
type SplitQueue struct {
	hands map[int]Hand
}

// NewSplitQueue creates an empty split queue
func NewSplitQueue() *SplitQueue {
	return &SplitQueue{hands: make(map[int]Hand)}
}

// Len returns the number of queued hands
func (q *SplitQueue) Len() int {
	return len(q.hands)
}

// Full reports whether another hand can no longer be queued.
func (q *SplitQueue) Full() bool {
	return len(q.hands) >= MaxQueuedHands
}

// Put queues a hand under its ID, replacing any hand with the same ID.
func (q *SplitQueue) Put(h Hand) {
	q.hands[h.ID] = h
}

// Hands returns the queued hands in ascending ID order.
func (q *SplitQueue) Hands() []Hand {
	ids := q.ids()
	hands := make([]Hand, 0, len(ids))
	for _, id := range ids {
		hands = append(hands, q.hands[id])
	}
	return hands
}

// Next returns the ID of the hand to resume: the lowest ID among hands that
// have not acted yet, or the lowest ID overall once every hand has acted.
func (q *SplitQueue) Next() (int, bool) {
	if len(q.hands) == 0 {
		return 0, false
	}

	ids := q.ids()
	slices.SortStableFunc(ids, func(a, b int) int {
		return compareResumeOrder(q.hands[a], q.hands[b])
	})
	return ids[0], true
}

// Pop removes and returns the hand chosen by Next.
func (q *SplitQueue) Pop() (Hand, bool) {
	id, ok := q.Next()
	if !ok {
		return Hand{}, false
	}
	h := q.hands[id]
	delete(q.hands, id)
	return h, true
}

func (q *SplitQueue) ids() []int {
	ids := make([]int, 0, len(q.hands))
	for id := range q.hands {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// compareResumeOrder orders hands that have not acted before hands that have, then by ID.
func compareResumeOrder(a, b Hand) int {
	if a.Acted != b.Acted {
		if !a.Acted {
			return -1
		}
		return 1
	}
	return a.ID - b.ID
}

func (q *SplitQueue) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Hands())
}

func (q *SplitQueue) UnmarshalJSON(data []byte) error {
	var hands []Hand
	if err := json.Unmarshal(data, &hands); err != nil {
		return err
	}
	if len(hands) > MaxHands {
		return fmt.Errorf("split queue holds %d hands, limit is %d", len(hands), MaxHands)
	}

	q.hands = make(map[int]Hand, len(hands))
	for _, h := range hands {
		if _, dup := q.hands[h.ID]; dup {
			return fmt.Errorf("duplicate split hand id %d", h.ID)
		}
		q.hands[h.ID] = h
	}
	return nil
}
