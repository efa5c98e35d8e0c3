package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Email         string     `db:"email" json:"email"`
	PasswordHash  []byte     `db:"password_hash" json:"-"`
	IsGuest       bool       `db:"is_guest" json:"is_guest"`
	GuestToken    *uuid.UUID `db:"guest_token" json:"-"`
	IsDemo        bool       `db:"is_demo" json:"is_demo"`
	DemoExpiresAt *time.Time `db:"demo_expires_at" json:"demo_expires_at,omitempty"`
	Timezone      string     `db:"timezone" json:"timezone"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
