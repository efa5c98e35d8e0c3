package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var testUserID = uuid.MustParse("123e4567-e89b-12d3-a456-426614174000")

func newTestManager() *Manager {
	return NewManager(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestVerify_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.NewAccessToken(testUserID, "test@example.com")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, testUserID.String(), claims.Subject)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.False(t, claims.IsDemo)
	assert.Empty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
}

func TestVerify_RefreshTokenCarriesJTI(t *testing.T) {
	m := newTestManager()

	t1, err := m.NewRefreshToken(testUserID, "test@example.com")
	require.NoError(t, err)
	t2, err := m.NewRefreshToken(testUserID, "test@example.com")
	require.NoError(t, err)

	c1, err := m.Verify(t1)
	require.NoError(t, err)
	c2, err := m.Verify(t2)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeRefresh, c1.TokenType)
	require.NotEmpty(t, c1.ID)
	_, err = uuid.Parse(c1.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID, "jti must be fresh per token")
	assert.NotEqual(t, c1.Subject, c1.ID)
}

func TestVerify_ExpiredToken(t *testing.T) {
	m := NewManager(testSecret, -time.Second, 7*24*time.Hour)

	token, err := m.NewAccessToken(testUserID, "test@example.com")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	// exp == iat: the token is already invalid at the instant it expires,
	// not one second after.
	m := newTestManager()

	token, err := m.NewDemoToken(testUserID, 0)
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_TamperedSignature(t *testing.T) {
	m := newTestManager()

	token, err := m.NewAccessToken(testUserID, "test@example.com")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewManager("another-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := m.NewAccessToken(testUserID, "test@example.com")
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Malformed(t *testing.T) {
	m := newTestManager()

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestNewTokenPair(t *testing.T) {
	m := newTestManager()

	pair, err := m.NewTokenPair(testUserID, "test@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	access, err := m.Verify(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := m.Verify(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.Equal(t, access.Subject, refresh.Subject)
}

func TestNewDemoToken(t *testing.T) {
	m := newTestManager()

	token, err := m.NewDemoToken(testUserID, 2*time.Hour)
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)

	assert.True(t, claims.IsDemo)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Empty(t, claims.Email)
	assert.Empty(t, claims.ID)
}
