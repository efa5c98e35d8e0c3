package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"habitarc/internal/domain/models"
	"habitarc/internal/lib/logger/sl"
	"habitarc/internal/repository"
	"habitarc/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// TokenIssuer is the slice of the token service the auth flows need.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, user models.User) (*models.TokenPair, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type Auth struct {
	log    *slog.Logger
	users  repository.UserRepository
	tokens TokenIssuer
}

func New(log *slog.Logger, users repository.UserRepository, tokens TokenIssuer) *Auth {
	return &Auth{
		log:    log,
		users:  users,
		tokens: tokens,
	}
}

func (a *Auth) Login(ctx context.Context, email, password string) (*models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.users.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(user.PasswordHash) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	log.Info("user logged in", slog.String("user_id", user.ID.String()))

	return a.tokens.IssueTokens(ctx, user)
}

// Register creates a full account and returns its first token pair. When a
// guest token is supplied and matches a guest account, that account is
// promoted instead so the guest's data survives sign-up.
func (a *Auth) Register(ctx context.Context, email, password, name string, guestToken *uuid.UUID) (*models.TokenPair, error) {
	const op = "auth.Register"

	log := a.log.With(slog.String("op", op))

	_, err := a.users.UserByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to check existing user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if guestToken != nil {
		guest, err := a.users.GuestByToken(ctx, *guestToken)
		switch {
		case err == nil:
			if err := a.users.PromoteGuest(ctx, guest.ID, email, name, passHash); err != nil {
				log.Error("failed to promote guest", sl.Err(err))
				return nil, fmt.Errorf("%s: %w", op, err)
			}

			log.Info("guest promoted to full account", slog.String("user_id", guest.ID.String()))

			guest.Email = email
			return a.tokens.IssueTokens(ctx, guest)
		case !errors.Is(err, storage.ErrUserNotFound):
			log.Error("failed to look up guest", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		// Unknown guest token: fall through and register from scratch.
	}

	user := models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passHash,
		Timezone:     "UTC",
	}

	if _, err := a.users.SaveUser(ctx, user); err != nil {
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()))

	return a.tokens.IssueTokens(ctx, user)
}

// Guest creates an anonymous account with a full token pair. The returned
// guest token lets the client later promote the account via Register.
func (a *Auth) Guest(ctx context.Context, timezone string) (*models.TokenPair, uuid.UUID, error) {
	const op = "auth.Guest"

	if timezone == "" {
		timezone = "UTC"
	}

	guestToken := uuid.New()
	user := models.User{
		ID:         uuid.New(),
		Name:       "Guest",
		IsGuest:    true,
		GuestToken: &guestToken,
		Timezone:   timezone,
	}

	if _, err := a.users.SaveUser(ctx, user); err != nil {
		a.log.Error("failed to save guest user", sl.Err(err))
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.tokens.IssueTokens(ctx, user)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("guest session created",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return pair, guestToken, nil
}

// Logout revokes every refresh token for the caller. Access tokens stay
// valid until their own expiry; only the refresh lineage dies.
func (a *Auth) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "auth.Logout"

	if err := a.tokens.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info("user logged out",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	return nil
}

// UserByID exposes profile lookup for the /me endpoint.
func (a *Auth) UserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	return a.users.UserByID(ctx, userID)
}
