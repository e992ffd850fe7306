package pagination_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/coffee-chat/internal/utils/pagination"
)

func TestEncodeDecode(t *testing.T) {
	token, err := pagination.Encode(pagination.Cursor{ID: 42, ScheduledUnix: 1700000000000})
	require.NoError(t, err)

	c, err := pagination.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.ID)
	assert.Equal(t, int64(1700000000000), c.ScheduledUnix)
	assert.False(t, c.First())
}

func TestDecodeEmptyIsFirstPage(t *testing.T) {
	c, err := pagination.Decode("")
	require.NoError(t, err)
	assert.True(t, c.First())
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, token := range []string{
		"not base64!!",
		base64.URLEncoding.EncodeToString([]byte("{")),
		base64.URLEncoding.EncodeToString([]byte(`{"id":0}`)),
	} {
		_, err := pagination.Decode(token)
		assert.ErrorIs(t, err, pagination.ErrInvalidToken, token)
	}
}
