package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lendstack/backoffice-server-go/internal/model"
)

type AdminRepository interface {
	FindByID(ctx context.Context, id string) (*model.Admin, error)
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Admin, error)
	List(ctx context.Context, limit, offset int) ([]model.Admin, int, error)
	UpdateLastLogin(ctx context.Context, id string) error
	EnableTwoFactor(ctx context.Context, id, otpSecret string) error
	SetRefreshToken(ctx context.Context, id string, token *string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	CompletePasswordReset(ctx context.Context, id, passwordHash string) error
}

type adminRepo struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins WHERE id = $1
	`, id)
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins WHERE LOWER(email) = LOWER($1)
	`, email)
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Admin, error) {
	var admin model.Admin
	err := r.db.GetContext(ctx, &admin, `
		SELECT * FROM admins WHERE reset_token_hash = $1
	`, tokenHash)
	return HandleNotFound(&admin, err)
}

func (r *adminRepo) List(ctx context.Context, limit, offset int) ([]model.Admin, int, error) {
	var admins []model.Admin
	err := r.db.SelectContext(ctx, &admins, `
		SELECT * FROM admins
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM admins`); err != nil {
		return nil, 0, err
	}

	return admins, total, nil
}

func (r *adminRepo) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins SET last_login_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (r *adminRepo) EnableTwoFactor(ctx context.Context, id, otpSecret string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins
		SET otp_secret = $2, two_factor_enabled = TRUE, updated_at = NOW()
		WHERE id = $1
	`, id, otpSecret)
	return err
}

func (r *adminRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins SET refresh_token = $2, updated_at = NOW()
		WHERE id = $1
	`, id, token)
	return err
}

func (r *adminRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins
		SET reset_token_hash = $2,
		    reset_token_expires_at = $3,
		    reset_token_used_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id, tokenHash, expiresAt)
	return err
}

// CompletePasswordReset swaps the password, stamps the change, consumes the
// reset artifact and revokes the persisted refresh token in a single update.
func (r *adminRepo) CompletePasswordReset(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE admins
		SET password_hash = $2,
		    last_password_changed_at = NOW(),
		    reset_token_used_at = NOW(),
		    refresh_token = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash)
	return err
}
