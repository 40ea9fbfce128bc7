package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitQueueNext(t *testing.T) {
	q := NewSplitQueue()

	_, ok := q.Next()
	assert.False(t, ok)

	q.Put(Hand{ID: 4})
	q.Put(Hand{ID: 1, Acted: true})
	q.Put(Hand{ID: 3})

	id, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, 3, id, "hands that have not acted go first")

	h, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, h.ID)

	h, _ = q.Pop()
	assert.Equal(t, 4, h.ID)

	h, _ = q.Pop()
	assert.Equal(t, 1, h.ID, "acted hands are used once nothing else is left")
	assert.Equal(t, 0, q.Len())
}

func TestSplitQueueAllActedByID(t *testing.T) {
	q := NewSplitQueue()
	q.Put(Hand{ID: 3, Acted: true})
	q.Put(Hand{ID: 2, Acted: true})

	id, ok := q.Next()
	require.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestSplitQueueFull(t *testing.T) {
	q := NewSplitQueue()
	for id := 1; id <= MaxQueuedHands; id++ {
		assert.False(t, q.Full())
		q.Put(Hand{ID: id})
	}
	assert.True(t, q.Full())
}

func TestSplitQueueJSON(t *testing.T) {
	q := NewSplitQueue()
	q.Put(Hand{ID: 3, Cards: MustParseCards("♥8")})
	q.Put(Hand{ID: 2, Cards: MustParseCards("♦8"), Acted: true})

	data, err := q.MarshalJSON()
	require.NoError(t, err)

	var back SplitQueue
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, q.Hands(), back.Hands())

	assert.Error(t, back.UnmarshalJSON([]byte(`[{"id":2},{"id":2}]`)))
}
