package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitarc/internal/domain/models"
	"habitarc/internal/lib/hash"
	"habitarc/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const refreshTokenTable = "refresh_tokens"

type TokenRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewTokenRepository(db *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *TokenRepo) SaveRefreshToken(ctx context.Context, userID uuid.UUID, rawToken string, ttl time.Duration, parentTokenID *uuid.UUID) (uuid.UUID, error) {
	const op = "repository.token_repository.SaveRefreshToken"

	query, args, err := r.sb.Insert(refreshTokenTable).
		Columns(
			"id",
			"user_id",
			"token_hash",
			"expires_at",
			"parent_token_id",
		).
		Values(
			uuid.New(),
			userID,
			hash.Token(rawToken),
			time.Now().UTC().Add(ttl),
			parentTokenID,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *TokenRepo) FindRefreshToken(ctx context.Context, rawToken string) (models.RefreshToken, error) {
	const op = "repository.token_repository.FindRefreshToken"

	query, args, err := r.sb.Select(
		"id",
		"user_id",
		"token_hash",
		"expires_at",
		"revoked",
		"revoked_at",
		"parent_token_id",
		"created_at",
	).
		From(refreshTokenTable).
		Where(sq.Eq{"token_hash": hash.Token(rawToken)}).
		ToSql()
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	var token models.RefreshToken
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.RevokedAt,
		&token.ParentTokenID,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return models.RefreshToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// RevokeRefreshToken is idempotent: an already revoked row keeps its
// original revoked_at.
func (r *TokenRepo) RevokeRefreshToken(ctx context.Context, tokenID uuid.UUID) error {
	const op = "repository.token_repository.RevokeRefreshToken"

	query, args, err := r.sb.Update(refreshTokenTable).
		Set("revoked", true).
		Set("revoked_at", time.Now().UTC()).
		Where(sq.Eq{"id": tokenID, "revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *TokenRepo) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.token_repository.RevokeAllUserTokens"

	query, args, err := r.sb.Update(refreshTokenTable).
		Set("revoked", true).
		Set("revoked_at", time.Now().UTC()).
		Where(sq.Eq{"user_id": userID, "revoked": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpiredTokens is the retention sweep: rows may outlive their expiry
// until this runs, which the refresh path tolerates.
func (r *TokenRepo) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	const op = "repository.token_repository.DeleteExpiredTokens"

	query, args, err := r.sb.Delete(refreshTokenTable).
		Where(sq.Lt{"expires_at": time.Now().UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
