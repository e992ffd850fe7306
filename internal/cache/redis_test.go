package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/coffee-chat/internal/cache"
	"github.com/oggyb/coffee-chat/internal/testutil"
)

type counters struct {
	Eligible int `json:"eligible"`
}

func TestRosterStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	rc, mr := testutil.NewRedis(t)
	require.NoError(t, rc.Ping(ctx))

	var got counters
	hit, err := rc.GetJSON(ctx, rc.KeyForRosterStats(), &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, rc.SetJSON(ctx, rc.KeyForRosterStats(), counters{Eligible: 7}, cache.StatsTTL))
	assert.Equal(t, cache.StatsTTL, mr.TTL(rc.KeyForRosterStats()))

	hit, err = rc.GetJSON(ctx, rc.KeyForRosterStats(), &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 7, got.Eligible)

	require.NoError(t, rc.InvalidateRosterStats(ctx))
	assert.False(t, mr.Exists(rc.KeyForRosterStats()))
}
