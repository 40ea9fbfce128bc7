package game

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTripReplaysIdentically(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		original := NewRound(rand.New(rand.NewSource(seed)))
		original.CreateShoe()
		require.True(t, original.PlaceBet(10))
		require.NoError(t, original.StartRound())

		data, err := original.Serialize()
		require.NoError(t, err)

		restored, err := Deserialize(data, nil)
		require.NoError(t, err)

		for _, r := range []*Round{original, restored} {
			require.NoError(t, r.Hit())
			require.NoError(t, r.Stand())
		}

		assert.Equal(t, original.Player(), restored.Player(), "seed %d", seed)
		assert.Equal(t, original.Dealer(), restored.Dealer(), "seed %d", seed)
		assert.Equal(t, original.Winner(), restored.Winner(), "seed %d", seed)
		assert.Equal(t, original.ShoeLen(), restored.ShoeLen(), "seed %d", seed)
		assert.Equal(t, original.Rewards(), restored.Rewards(), "seed %d", seed)
	}
}

func TestSnapshotRoundTripWithSplitQueue(t *testing.T) {
	r := pairShoe()
	require.True(t, r.PlaceBet(10))
	require.NoError(t, r.StartRound())
	require.True(t, r.SplitHand())
	require.True(t, r.SplitHand())
	r.MarkActiveHandDone()

	data, err := r.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data, nil)
	require.NoError(t, err)

	again, err := restored.Serialize()
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))

	assert.Equal(t, r.QueuedHands(), restored.QueuedHands())
	assert.Equal(t, r.SplitRequests(), restored.SplitRequests())
	assert.Equal(t, r.IsActive(), restored.IsActive())

	a, _ := r.ActivateNextSplitHand()
	b, _ := restored.ActivateNextSplitHand()
	assert.Equal(t, a, b)
}

func TestSnapshotKeepsBetLedger(t *testing.T) {
	r := newTestRound("♣10", "♥10")
	require.True(t, r.PlaceBet(5))
	require.True(t, r.PlaceBet(20))

	data, err := r.Serialize()
	require.NoError(t, err)
	restored, err := Deserialize(data, nil)
	require.NoError(t, err)

	assert.Equal(t, 25, restored.Bet())
	assert.Equal(t, 20, restored.RetakeBet())
	assert.Equal(t, 5, restored.Bet())
}

func snapshotFields(t *testing.T) map[string]json.RawMessage {
	t.Helper()
	r := newTestRound("♣9", "♥A", "♦7", "♠K", "♥2")
	require.True(t, r.PlaceBet(10))
	require.NoError(t, r.StartRound())

	data, err := r.Serialize()
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	return fields
}

func TestDeserializeMissingFields(t *testing.T) {
	required := []string{
		"shoe", "player", "dealer", "splitQueue", "bet", "betList",
		"natural", "winner", "splitReq", "nextHandId", "shoeLen",
	}
	for _, name := range required {
		t.Run(name, func(t *testing.T) {
			fields := snapshotFields(t)
			delete(fields, name)
			data, err := json.Marshal(fields)
			require.NoError(t, err)

			_, err = Deserialize(data, nil)
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestDeserializeRoundActiveDefaultsToFalse(t *testing.T) {
	fields := snapshotFields(t)
	delete(fields, "isRoundActive")
	delete(fields, "dealerMasked")
	data, err := json.Marshal(fields)
	require.NoError(t, err)

	r, err := Deserialize(data, nil)
	require.NoError(t, err)
	assert.False(t, r.IsActive())
	assert.Equal(t, PlayerBlackjack, r.Natural())
}

func TestDeserializeRejectsBadValues(t *testing.T) {
	tests := map[string]struct {
		field string
		value string
	}{
		"null shoe":         {"shoe", `null`},
		"bad card":          {"shoe", `["X9"]`},
		"hole card in shoe": {"shoe", `["✪"]`},
		"shoe length":       {"shoeLen", `7`},
		"unknown natural":   {"natural", `"maybe"`},
		"unknown winner":    {"winner", `"nobody"`},
		"negative bet":      {"bet", `-1`},
		"bet list mismatch": {"betList", `[3]`},
		"hand id too high":  {"nextHandId", `1`},
		"bad hand status":   {"player", `{"id":1,"cards":["♥A"],"status":"winning"}`},
		"duplicate split":   {"splitQueue", `[{"id":1},{"id":1}]`},
		"not json":          {"dealer", `{`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			fields := snapshotFields(t)
			if tt.field == "shoe" {
				fields["shoeLen"] = json.RawMessage(`1`)
			}
			fields[tt.field] = json.RawMessage(tt.value)

			data, err := json.Marshal(fields)
			if err != nil {
				// Malformed raw values cannot even be re-encoded.
				data = []byte(`{"dealer":{`)
			}

			_, err = Deserialize(data, nil)
			assert.ErrorIs(t, err, ErrCorruptState)
		})
	}
}

func TestDeserializeGarbage(t *testing.T) {
	_, err := Deserialize([]byte("not a snapshot"), nil)
	assert.ErrorIs(t, err, ErrCorruptState)

	_, err = Deserialize([]byte(`{}`), nil)
	assert.ErrorIs(t, err, ErrCorruptState)
}
