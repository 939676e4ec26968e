package model

import (
	"time"
)

// Admin is the identity principal of the back office. It also carries the
// single active refresh token and the password reset artifact; both are
// overwritten in place, never duplicated.
type Admin struct {
	ID           string      `db:"id" json:"id"`
	Email        string      `db:"email" json:"email"`
	Username     string      `db:"username" json:"username"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Role         string      `db:"role" json:"role"`
	Status       AdminStatus `db:"status" json:"status"`

	TwoFactorEnabled bool    `db:"two_factor_enabled" json:"twoFactorEnabled"`
	OTPSecret        *string `db:"otp_secret" json:"-"`

	RefreshToken *string `db:"refresh_token" json:"-"`

	ResetTokenHash      *string    `db:"reset_token_hash" json:"-"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at" json:"-"`
	ResetTokenUsedAt    *time.Time `db:"reset_token_used_at" json:"-"`

	LastLoginAt           *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	LastPasswordChangedAt *time.Time `db:"last_password_changed_at" json:"lastPasswordChangedAt,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the account may authenticate.
func (a *Admin) IsActive() bool {
	return a.Status == AdminStatusActive
}

// Summary is the user shape echoed on login responses.
func (a *Admin) Summary() AdminSummary {
	return AdminSummary{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Username,
		Role:  a.Role,
	}
}

type AdminSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}
