package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"habitarc/internal/domain/models"
	jwtlib "habitarc/internal/lib/jwt"
	"habitarc/internal/lib/logger/sl"
	"habitarc/internal/repository"
	"habitarc/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDemoDisabled = errors.New("demo mode disabled")
	ErrNotDemoUser  = errors.New("not a demo user")
	ErrEmailTaken   = errors.New("email already registered")
)

// TokenIssuer is the slice of the token service demo conversion needs.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, user models.User) (*models.TokenPair, error)
}

// DemoSession is the response for a started try-me session. There is no
// refresh token: the access token's expiry ends the session.
type DemoSession struct {
	AccessToken   string    `json:"access_token"`
	ExpiresIn     int64     `json:"expires_in"`
	DemoExpiresAt time.Time `json:"demo_expires_at"`
}

type DemoStatus struct {
	IsDemo           bool       `json:"is_demo"`
	DemoExpiresAt    *time.Time `json:"demo_expires_at,omitempty"`
	SecondsRemaining int64      `json:"seconds_remaining"`
}

type DemoService struct {
	log     *slog.Logger
	users   repository.UserRepository
	jwt     *jwtlib.Manager
	tokens  TokenIssuer
	enabled bool
	ttl     time.Duration
}

func NewDemoService(log *slog.Logger, users repository.UserRepository, manager *jwtlib.Manager, tokens TokenIssuer, enabled bool, ttl time.Duration) *DemoService {
	return &DemoService{
		log:     log,
		users:   users,
		jwt:     manager,
		tokens:  tokens,
		enabled: enabled,
		ttl:     ttl,
	}
}

// StartDemo creates a throwaway demo account and mints an ephemeral access
// token for it.
func (s *DemoService) StartDemo(ctx context.Context, timezone string) (*DemoSession, error) {
	const op = "demo_service.StartDemo"

	if !s.enabled {
		return nil, ErrDemoDisabled
	}

	if timezone == "" {
		timezone = "UTC"
	}

	expiresAt := time.Now().UTC().Add(s.ttl)
	user := models.User{
		ID:            uuid.New(),
		Name:          "Demo User",
		IsGuest:       true,
		IsDemo:        true,
		DemoExpiresAt: &expiresAt,
		Timezone:      timezone,
	}

	if _, err := s.users.SaveUser(ctx, user); err != nil {
		s.log.Error("failed to save demo user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := s.jwt.NewDemoToken(user.ID, s.ttl)
	if err != nil {
		s.log.Error("failed to mint demo token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("demo session started",
		slog.String("op", op),
		slog.String("user_id", user.ID.String()),
	)

	return &DemoSession{
		AccessToken:   token,
		ExpiresIn:     int64(s.ttl.Seconds()),
		DemoExpiresAt: expiresAt,
	}, nil
}

func (s *DemoService) Status(ctx context.Context, userID uuid.UUID) (*DemoStatus, error) {
	const op = "demo_service.Status"

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := &DemoStatus{
		IsDemo:        user.IsDemo,
		DemoExpiresAt: user.DemoExpiresAt,
	}
	if user.DemoExpiresAt != nil {
		if remaining := time.Until(*user.DemoExpiresAt); remaining > 0 {
			status.SecondsRemaining = int64(remaining.Seconds())
		}
	}

	return status, nil
}

// Convert promotes a demo account to a full one, keeping its data, and
// issues the first real token pair.
func (s *DemoService) Convert(ctx context.Context, userID uuid.UUID, email, password, name string) (*models.TokenPair, error) {
	const op = "demo_service.Convert"

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsDemo {
		return nil, fmt.Errorf("%s: %w", op, ErrNotDemoUser)
	}

	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	} else if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.users.PromoteGuest(ctx, userID, email, name, passHash); err != nil {
		s.log.Error("failed to promote demo user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("demo account converted",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	user.Email = email
	user.IsDemo = false
	return s.tokens.IssueTokens(ctx, user)
}

// PurgeExpired deletes demo accounts past their expiry.
func (s *DemoService) PurgeExpired(ctx context.Context) (int64, error) {
	const op = "demo_service.PurgeExpired"

	deleted, err := s.users.DeleteExpiredDemoUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return deleted, nil
}

// Run sweeps expired demo accounts until the context is cancelled. Sweep
// failures are logged and never stop the loop.
func (s *DemoService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.PurgeExpired(ctx)
			if err != nil {
				s.log.Error("demo cleanup failed", sl.Err(err))
				continue
			}
			if deleted > 0 {
				s.log.Info("purged expired demo users", slog.Int64("count", deleted))
			}
		}
	}
}
