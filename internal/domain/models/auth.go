package models

import (
	"time"

	"github.com/google/uuid"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshToken is a ledger row for one issued refresh token. Only the
// SHA-256 digest of the raw token is stored, never the token itself.
// ParentTokenID links rotations into a chain: revoking on reuse walks
// the whole family via UserID.
type RefreshToken struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	TokenHash     string     `db:"token_hash" json:"-"`
	ExpiresAt     time.Time  `db:"expires_at" json:"expires_at"`
	Revoked       bool       `db:"revoked" json:"revoked"`
	RevokedAt     *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	ParentTokenID *uuid.UUID `db:"parent_token_id" json:"parent_token_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
