package pairing_test

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/coffee-chat/internal/db"
	"github.com/oggyb/coffee-chat/internal/logger"
	"github.com/oggyb/coffee-chat/internal/pairing"
)

func (f *fixture) service(rnd pairing.Random) *pairing.Service {
	return pairing.NewService(f.users, f.pairings, f.manager, logger.Discard()).WithRandom(rnd)
}

func (f *fixture) history(t *testing.T, a, b string, at time.Time) {
	t.Helper()
	require.NoError(t, f.pairings.Create(context.Background(), &db.Pairing{
		User1ID:     f.people[a].ID,
		User2ID:     f.people[b].ID,
		ScheduledAt: at.UnixMilli(),
		Status:      db.StatusSent,
	}))
}

func TestCreateRound_RepeatsOnlyPairAvailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "UA", "UB")
	f.history(t, "UA", "UB", now.Add(-5*24*time.Hour))

	res, err := f.service(inOrder{}).CreateRound(ctx, 14, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PairCount)
	assert.Empty(t, res.Unpaired)
	require.Len(t, res.PairingIDs, 1)

	rec, err := f.pairings.Get(ctx, res.PairingIDs[0])
	require.NoError(t, err)
	assert.Equal(t, db.StatusScheduled, rec.Status)
	assert.ElementsMatch(t, []uint64{f.people["UA"].ID, f.people["UB"].ID}, []uint64{rec.User1ID, rec.User2ID})
}

func TestCreateRound_AvoidsRecentPartners(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "UA", "UB", "UC", "UD")
	f.history(t, "UA", "UB", now.Add(-5*24*time.Hour))
	f.history(t, "UC", "UD", now.Add(-13*24*time.Hour))

	for seed := uint64(0); seed < 10; seed++ {
		res, err := f.service(rand.New(rand.NewPCG(seed, 7))).CreateRound(ctx, 14, now)
		require.NoError(t, err)
		require.Len(t, res.PairingIDs, 2)
		for _, id := range res.PairingIDs {
			rec, err := f.pairings.Get(ctx, id)
			require.NoError(t, err)
			pair := map[uint64]bool{rec.User1ID: true, rec.User2ID: true}
			assert.False(t, pair[f.people["UA"].ID] && pair[f.people["UB"].ID], "seed %d repeated A/B", seed)
			assert.False(t, pair[f.people["UC"].ID] && pair[f.people["UD"].ID], "seed %d repeated C/D", seed)
		}
		// forget this round so the next seed sees the same history
		require.NoError(t, f.db.Where("id IN ?", res.PairingIDs).Delete(&db.Pairing{}).Error)
	}
}

func TestCreateRound_OddRosterAndDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "UA", "UB", "UC")

	res, err := f.service(inOrder{}).CreateRound(ctx, 14, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PairCount)
	require.Len(t, res.Unpaired, 1)
	assert.Equal(t, "UC", res.Unpaired[0].SlackID)

	results, err := f.service(inOrder{}).Deliver(ctx, res.PairingIDs)
	require.NoError(t, err)
	ok, failed := pairing.Tally(results)
	assert.Equal(t, 1, ok)
	assert.Zero(t, failed)
}

func TestCreateRound_InsufficientUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "UA", "UB")
	require.NoError(t, f.db.Model(&db.SlackUser{}).Where("slack_id = ?", "UB").Update("is_active", false).Error)

	_, err := f.service(inOrder{}).CreateRound(ctx, 14, now)
	assert.ErrorIs(t, err, pairing.ErrInsufficientUsers)

	scheduled, err := f.pairings.ListScheduled(ctx)
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}
