package repository

import (
	"context"
	"time"

	"habitarc/internal/domain/models"

	"github.com/google/uuid"
)

type UserRepository interface {
	SaveUser(ctx context.Context, user models.User) (uuid.UUID, error)
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	GuestByToken(ctx context.Context, guestToken uuid.UUID) (models.User, error)
	PromoteGuest(ctx context.Context, userID uuid.UUID, email, name string, passwordHash []byte) error
	DeleteExpiredDemoUsers(ctx context.Context) (int64, error)
}

// TokenRepository is the refresh-token ledger. Raw tokens are digested on
// the way in; rows are looked up by digest and never store the raw value.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, userID uuid.UUID, rawToken string, ttl time.Duration, parentTokenID *uuid.UUID) (uuid.UUID, error)
	FindRefreshToken(ctx context.Context, rawToken string) (models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}
