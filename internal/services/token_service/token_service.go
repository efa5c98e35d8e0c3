package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"habitarc/internal/domain/models"
	jwtlib "habitarc/internal/lib/jwt"
	"habitarc/internal/lib/logger/sl"
	"habitarc/internal/metrics"
	"habitarc/internal/repository"
	"habitarc/internal/storage"

	"github.com/google/uuid"
)

// ErrInvalidToken covers every refresh/access validation failure: bad
// signature, expiry, wrong kind, unknown or revoked ledger row, subject
// mismatch. Collapsing them keeps the boundary from leaking which check
// rejected the token.
var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	log  *slog.Logger
	jwt  *jwtlib.Manager
	repo repository.TokenRepository
}

func NewTokenService(log *slog.Logger, manager *jwtlib.Manager, repo repository.TokenRepository) *TokenService {
	return &TokenService{
		log:  log,
		jwt:  manager,
		repo: repo,
	}
}

// IssueTokens mints a fresh access/refresh pair for the user and records
// the refresh digest in the ledger as a new lineage (no parent).
func (s *TokenService) IssueTokens(ctx context.Context, user models.User) (*models.TokenPair, error) {
	const op = "token_service.IssueTokens"

	pair, err := s.jwt.NewTokenPair(user.ID, user.Email)
	if err != nil {
		s.log.Error("failed to mint token pair", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.SaveRefreshToken(ctx, user.ID, pair.RefreshToken, s.jwt.RefreshTTL(), nil); err != nil {
		s.log.Error("failed to store refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked
// and a new pair is issued with the old ledger row as parent. Presenting
// an already revoked token is treated as theft and revokes every live
// token for that subject before the request is rejected.
func (s *TokenService) RefreshTokens(ctx context.Context, rawToken string) (*models.TokenPair, error) {
	const op = "token_service.RefreshTokens"

	log := s.log.With(slog.String("op", op))

	// Expiry and signature are enforced cryptographically before the
	// ledger is consulted.
	claims, err := s.jwt.Verify(rawToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwtlib.TokenTypeRefresh {
		return nil, ErrInvalidToken
	}

	stored, err := s.repo.FindRefreshToken(ctx, rawToken)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		log.Error("refresh token lookup failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if stored.Revoked {
		log.Warn("refresh token reuse detected, revoking all tokens for user",
			slog.String("user_id", stored.UserID.String()),
			slog.String("token_id", stored.ID.String()),
		)
		metrics.TokenReuseDetectedTotal.Inc()

		// The family revocation is the security control, not cleanup:
		// it must complete even though the request is rejected.
		if err := s.repo.RevokeAllUserTokens(ctx, stored.UserID); err != nil {
			log.Error("failed to revoke token family", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return nil, ErrInvalidToken
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil || stored.UserID != subject {
		return nil, ErrInvalidToken
	}

	// Revoke before issuing: a crash in between only forces a re-login,
	// it can never leave the same raw token spendable twice.
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID); err != nil {
		log.Error("failed to revoke rotated token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.jwt.NewTokenPair(subject, claims.Email)
	if err != nil {
		log.Error("failed to mint token pair", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.repo.SaveRefreshToken(ctx, subject, pair.RefreshToken, s.jwt.RefreshTTL(), &stored.ID); err != nil {
		log.Error("failed to store rotated refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

// RevokeAll terminates every live refresh token for the subject (logout).
func (s *TokenService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	const op = "token_service.RevokeAll"

	if err := s.repo.RevokeAllUserTokens(ctx, userID); err != nil {
		s.log.Error("failed to revoke user tokens", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VerifyAccess validates an access token and returns its claims. Refresh
// tokens presented here fail closed regardless of validity.
func (s *TokenService) VerifyAccess(tokenString string) (*jwtlib.Claims, error) {
	claims, err := s.jwt.Verify(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != jwtlib.TokenTypeAccess {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
