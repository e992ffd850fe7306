package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackUser_EligibleAt(t *testing.T) {
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	yes, no := true, false
	future := now.Add(time.Millisecond).UnixMilli()
	exact := now.UnixMilli()
	past := now.Add(-time.Hour).UnixMilli()

	cases := []struct {
		name string
		user SlackUser
		want bool
	}{
		{"active, no prefs", SlackUser{IsActive: true}, true},
		{"inactive", SlackUser{IsActive: false}, false},
		{"opted out", SlackUser{IsActive: true, IsOptedOut: &yes}, false},
		{"explicitly opted in", SlackUser{IsActive: true, IsOptedOut: &no}, true},
		{"snoozed into the future", SlackUser{IsActive: true, SnoozeUntil: &future}, false},
		{"snooze ends exactly now", SlackUser{IsActive: true, SnoozeUntil: &exact}, true},
		{"snooze expired", SlackUser{IsActive: true, SnoozeUntil: &past}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.EligibleAt(now))
		})
	}
}

func TestPairing_PartnerOf(t *testing.T) {
	p := Pairing{User1ID: 4, User2ID: 9}
	assert.Equal(t, uint64(9), p.PartnerOf(4))
	assert.Equal(t, uint64(4), p.PartnerOf(9))
	assert.Equal(t, uint64(0), p.PartnerOf(1))
}

func TestBotConfig_EncodeDecode(t *testing.T) {
	value, kind, err := EncodeConfigValue(14)
	require.NoError(t, err)
	assert.Equal(t, "14", value)
	assert.Equal(t, KindNumber, kind)

	got, err := (&BotConfig{Key: "excludeRecentDays", Value: value, Kind: kind}).Decoded()
	require.NoError(t, err)
	assert.Equal(t, float64(14), got)

	value, kind, err = EncodeConfigValue(true)
	require.NoError(t, err)
	got, err = (&BotConfig{Key: "flag", Value: value, Kind: kind}).Decoded()
	require.NoError(t, err)
	assert.Equal(t, true, got)

	_, _, err = EncodeConfigValue([]string{"nope"})
	assert.Error(t, err)

	_, err = (&BotConfig{Key: "broken", Value: "abc", Kind: KindNumber}).Decoded()
	assert.Error(t, err)
}
