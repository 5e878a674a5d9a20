package pagination

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	pos := Position{ID: snowflake.ID(123), CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 5, time.UTC)}
	decoded, err := DecodeToken(EncodeToken(pos))
	require.NoError(t, err)
	assert.Equal(t, pos.ID, decoded.ID)
	assert.True(t, pos.CreatedAt.Equal(decoded.CreatedAt))
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	_, err := DecodeToken("%%%")
	assert.ErrorIs(t, err, ErrInvalidToken)

	pos, err := DecodeToken("  ")
	assert.NoError(t, err)
	assert.Nil(t, pos)
}

func TestPageTrimsExtraRow(t *testing.T) {
	items := []int{5, 4, 3}
	out, info := Page(items, 2, func(i int) Position { return Position{ID: snowflake.ID(i), CreatedAt: time.Unix(int64(i), 0)} })
	assert.Equal(t, []int{5, 4}, out)
	assert.True(t, info.HasMore)

	next, err := DecodeToken(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(4), next.ID)

	out, info = Page(items, 3, func(i int) Position { return Position{} })
	assert.Len(t, out, 3)
	assert.False(t, info.HasMore)
}

func TestLimitClamp(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 7, Pagination{PageSize: 7}.Limit())
}
