package sqlxstore

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	db, err := sqlx.Open("sqlite3", "file:client-state?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewStore(db)
	require.NoError(t, err)

	_, found, err := s.Get("token")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set("token", "abc"))
	require.NoError(t, s.Set("token", "rotated"))
	require.NoError(t, s.Set("refreshToken", "def"))

	val, found, err := s.Get("token")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "rotated", val)

	require.NoError(t, s.Delete("token", "refreshToken"))
	require.NoError(t, s.Delete())
	for _, key := range []string{"token", "refreshToken"} {
		_, found, err = s.Get(key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}
