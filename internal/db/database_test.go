package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	d, err := NewDatabase(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(context.Background(), "mysql", "")
	assert.Error(t, err)
}

func TestSaveAndGetPlayer(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, d.SavePlayer(ctx, &PlayerRow{
		ID: "p1", ClientID: "c1", Tokens: 1000, LastActivity: now,
	}))

	p, err := d.GetPlayer(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "c1", p.ClientID)
	assert.Equal(t, 1000, p.Tokens)
	assert.Nil(t, p.GameState)
	assert.True(t, now.Equal(p.LastActivity))

	require.NoError(t, d.SavePlayer(ctx, &PlayerRow{
		ID: "p1", ClientID: "c1", Tokens: 990, GameState: []byte(`{"bet":10}`), LastActivity: now.Add(time.Minute),
	}))

	p, err = d.GetPlayerByClientID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 990, p.Tokens)
	assert.Equal(t, `{"bet":10}`, string(p.GameState))
}

func TestGetPlayerMissing(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	_, err := d.GetPlayer(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoPlayer)

	_, err = d.GetPlayerByClientID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoPlayer)

	assert.ErrorIs(t, d.DeletePlayer(ctx, "nobody"), ErrNoPlayer)
}

func TestDeleteIdlePlayers(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, d.SavePlayer(ctx, &PlayerRow{ID: "old", ClientID: "c-old", LastActivity: base}))
	require.NoError(t, d.SavePlayer(ctx, &PlayerRow{ID: "new", ClientID: "c-new", LastActivity: base.Add(2 * time.Hour)}))
	require.NoError(t, d.RecordResult(ctx, "old", 10, "playerWon", "", 20, base))
	require.NoError(t, d.RecordResult(ctx, "new", 10, "push", "", 10, base))

	n, err := d.DeleteIdlePlayers(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = d.GetPlayer(ctx, "old")
	assert.ErrorIs(t, err, ErrNoPlayer)
	_, err = d.GetPlayer(ctx, "new")
	assert.NoError(t, err)

	stats, err := d.GetPlayerStats(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.HandsPlayed, "results of expired players are removed")

	stats, err = d.GetPlayerStats(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.HandsPlayed)
}

func TestPlayerStats(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()

	empty, err := d.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.HandsPlayed)
	assert.True(t, empty.LastPlayed.IsZero())

	played := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, d.RecordResult(ctx, "p1", 10, "playerWon", "", 20, played))
	require.NoError(t, d.RecordResult(ctx, "p1", 10, "push", "", 10, played.Add(time.Minute)))
	require.NoError(t, d.RecordResult(ctx, "p1", 10, "", "playerBlackjack", 25, played.Add(2*time.Minute)))
	require.NoError(t, d.RecordResult(ctx, "p1", 5, "playerLost", "", 0, played.Add(3*time.Minute)))
	require.NoError(t, d.RecordResult(ctx, "p2", 100, "playerWon", "", 200, played.Add(time.Hour)))

	stats, err := d.GetPlayerStats(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.HandsPlayed)
	assert.Equal(t, 1, stats.HandsWon)
	assert.Equal(t, 1, stats.HandsPushed)
	assert.Equal(t, 1, stats.Blackjacks)
	assert.Equal(t, 35, stats.TotalBets)
	assert.Equal(t, 55, stats.TotalPayouts)
	assert.True(t, played.Add(3*time.Minute).Equal(stats.LastPlayed), "last played is %v", stats.LastPlayed)
}
