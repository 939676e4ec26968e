package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/lendstack/backoffice-server-go/internal/database"
	"github.com/lendstack/backoffice-server-go/internal/model"
)

type PendingSessionRepository interface {
	Create(ctx context.Context, params model.CreatePendingSessionParams) (*model.PendingSession, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.PendingSession, error)
	SetSecret(ctx context.Context, id, secret string) error
	MarkUsed(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) (int, error)
	DeleteStaleForAdmin(ctx context.Context, adminID string) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type pendingSessionRepo struct {
	db *database.DB
}

func NewPendingSessionRepository(db *database.DB) PendingSessionRepository {
	return &pendingSessionRepo{db: db}
}

// Create inserts a new pending session after marking any active session of
// the same (admin, type) as used. Both statements run in one transaction so
// concurrent logins cannot leave two usable sessions behind.
func (r *pendingSessionRepo) Create(ctx context.Context, params model.CreatePendingSessionParams) (*model.PendingSession, error) {
	var session model.PendingSession
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE pending_sessions SET used = TRUE
			WHERE admin_id = $1 AND type = $2 AND used = FALSE
		`, params.AdminID, params.Type); err != nil {
			return err
		}

		return tx.GetContext(ctx, &session, `
			INSERT INTO pending_sessions (token_hash, admin_id, type, secret, expires_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING *
		`, params.TokenHash, params.AdminID, params.Type, params.Secret, params.ExpiresAt)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *pendingSessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.PendingSession, error) {
	var session model.PendingSession
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM pending_sessions WHERE token_hash = $1
	`, tokenHash)
	return HandleNotFound(&session, err)
}

func (r *pendingSessionRepo) SetSecret(ctx context.Context, id, secret string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_sessions SET secret = $2 WHERE id = $1
	`, id, secret)
	return err
}

func (r *pendingSessionRepo) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE pending_sessions SET used = TRUE WHERE id = $1
	`, id)
	return err
}

func (r *pendingSessionRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.db.GetContext(ctx, &attempts, `
		UPDATE pending_sessions SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`, id)
	return attempts, err
}

// DeleteStaleForAdmin drops expired and already-used sessions for one
// administrator; called on every successful credential validation to keep
// the table bounded.
func (r *pendingSessionRepo) DeleteStaleForAdmin(ctx context.Context, adminID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_sessions
		WHERE admin_id = $1 AND (used = TRUE OR expires_at < NOW())
	`, adminID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *pendingSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_sessions WHERE used = TRUE OR expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
