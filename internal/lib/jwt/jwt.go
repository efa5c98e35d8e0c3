package jwt

import (
	"errors"
	"fmt"
	"time"

	"habitarc/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the signed token payload. Refresh tokens carry a fresh jti so
// two tokens minted in the same second for the same user never collide.
type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	IsDemo    bool   `json:"is_demo,omitempty"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

func (m *Manager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *Manager) NewAccessToken(userID uuid.UUID, email string) (string, error) {
	const op = "jwt.Manager.NewAccessToken"

	token, err := m.sign(Claims{
		Email:     email,
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.accessTTL)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

func (m *Manager) NewRefreshToken(userID uuid.UUID, email string) (string, error) {
	const op = "jwt.Manager.NewRefreshToken"

	token, err := m.sign(Claims{
		Email:     email,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.refreshTTL)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// NewTokenPair mints an access/refresh pair for one subject. ExpiresIn
// reports the access token lifetime in seconds.
func (m *Manager) NewTokenPair(userID uuid.UUID, email string) (*models.TokenPair, error) {
	accessToken, err := m.NewAccessToken(userID, email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := m.NewRefreshToken(userID, email)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(m.accessTTL.Seconds()),
	}, nil
}

// NewDemoToken mints a short-lived access token with is_demo set. Demo
// sessions never get a refresh counterpart: expiry of the access token is
// the end of the session.
func (m *Manager) NewDemoToken(userID uuid.UUID, ttl time.Duration) (string, error) {
	const op = "jwt.Manager.NewDemoToken"

	token, err := m.sign(Claims{
		TokenType: TokenTypeAccess,
		IsDemo:    true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Verify parses and validates a token: HS256 signature, mandatory expiry.
// Every failure collapses to ErrInvalidToken so callers cannot leak which
// check rejected the token.
func (m *Manager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (m *Manager) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
