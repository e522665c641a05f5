package session

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/storage/database/inmem"
)

func signedToken(t *testing.T, claims *Claims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestStore_lifecycle(t *testing.T) {
	storage := inmemdb.NewStore()
	s := NewStore(storage)

	assert.False(t, s.IsAuthenticated())
	_, err := s.Claims()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.Set(Session{RefreshToken: "r"}), ErrNoSession)

	require.NoError(t, s.Set(Session{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, storage.Set(core.KeyAuthSnapshot, `{"isAuthenticated":true}`))
	assert.True(t, s.IsAuthenticated())

	require.NoError(t, s.Rotate("a2", ""))
	sess, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, Session{AccessToken: "a2", RefreshToken: "r1"}, sess)

	require.NoError(t, s.Rotate("a3", "r3"))
	sess, err = s.Get()
	require.NoError(t, err)
	assert.Equal(t, Session{AccessToken: "a3", RefreshToken: "r3"}, sess)

	require.NoError(t, s.Clear())
	for _, key := range []string{core.KeyToken, core.KeyRefreshToken, core.KeyAuthSnapshot} {
		_, found, err := storage.Get(key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}

func TestStore_Claims(t *testing.T) {
	s := NewStore(inmemdb.NewStore())
	exp := time.Now().Add(time.Hour)
	token := signedToken(t, &Claims{
		StandardClaims: jwt.StandardClaims{Subject: "u-1", ExpiresAt: exp.Unix()},
		Email:          "admin@demo.educloud.com",
		Role:           "admin",
		Tenant:         "demo",
	})
	require.NoError(t, s.Set(Session{AccessToken: token}))

	claims, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID())
	assert.Equal(t, "demo", claims.Tenant)
	assert.False(t, claims.Expired(time.Now()))
	assert.True(t, claims.Expired(exp.Add(time.Second)))

	_, err = ParseClaims("not-a-jwt")
	assert.Error(t, err)
}
