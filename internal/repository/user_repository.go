package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habitarc/internal/domain/models"
	"habitarc/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const userTable = "users"

var userColumns = []string{
	"id",
	"COALESCE(name, '')",
	"COALESCE(email, '')",
	"password_hash",
	"is_guest",
	"guest_token",
	"is_demo",
	"demo_expires_at",
	"COALESCE(timezone, 'UTC')",
	"created_at",
	"updated_at",
}

type UserRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewUserRepository(db *pgxpool.Pool) *UserRepo {
	return &UserRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *UserRepo) SaveUser(ctx context.Context, user models.User) (uuid.UUID, error) {
	const op = "repository.user_repository.SaveUser"

	builder := r.sb.Insert(userTable).
		Columns(
			"id",
			"name",
			"email",
			"password_hash",
			"is_guest",
			"guest_token",
			"is_demo",
			"demo_expires_at",
			"timezone",
		).
		Values(
			user.ID,
			user.Name,
			nullIfEmpty(user.Email),
			user.PasswordHash,
			user.IsGuest,
			user.GuestToken,
			user.IsDemo,
			user.DemoExpiresAt,
			user.Timezone,
		).
		Suffix("RETURNING id")

	query, args, err := builder.ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *UserRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "repository.user_repository.UserByEmail"

	return r.userBy(ctx, op, sq.Eq{"email": email, "is_guest": false})
}

func (r *UserRepo) UserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "repository.user_repository.UserByID"

	return r.userBy(ctx, op, sq.Eq{"id": userID})
}

func (r *UserRepo) GuestByToken(ctx context.Context, guestToken uuid.UUID) (models.User, error) {
	const op = "repository.user_repository.GuestByToken"

	return r.userBy(ctx, op, sq.Eq{"guest_token": guestToken, "is_guest": true})
}

// PromoteGuest turns a guest or demo account into a full one, keeping its
// id so existing data stays attached.
func (r *UserRepo) PromoteGuest(ctx context.Context, userID uuid.UUID, email, name string, passwordHash []byte) error {
	const op = "repository.user_repository.PromoteGuest"

	query, args, err := r.sb.Update(userTable).
		Set("email", email).
		Set("name", name).
		Set("password_hash", passwordHash).
		Set("is_guest", false).
		Set("guest_token", nil).
		Set("is_demo", false).
		Set("demo_expires_at", nil).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	return nil
}

func (r *UserRepo) DeleteExpiredDemoUsers(ctx context.Context) (int64, error) {
	const op = "repository.user_repository.DeleteExpiredDemoUsers"

	query, args, err := r.sb.Delete(userTable).
		Where(sq.Eq{"is_demo": true}).
		Where(sq.Lt{"demo_expires_at": time.Now().UTC()}).
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

func (r *UserRepo) userBy(ctx context.Context, op string, cond sq.Eq) (models.User, error) {
	query, args, err := r.sb.Select(userColumns...).
		From(userTable).
		Where(cond).
		ToSql()
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	var user models.User
	err = r.db.QueryRow(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.IsGuest,
		&user.GuestToken,
		&user.IsDemo,
		&user.DemoExpiresAt,
		&user.Timezone,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
