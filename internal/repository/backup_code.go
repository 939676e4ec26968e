package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/lendstack/backoffice-server-go/internal/database"
	"github.com/lendstack/backoffice-server-go/internal/model"
)

type BackupCodeRepository interface {
	ReplaceForAdmin(ctx context.Context, adminID string, codeHashes []string) error
	FindUnusedByAdmin(ctx context.Context, adminID string) ([]model.BackupCode, error)
	MarkUsed(ctx context.Context, id string) error
	CountUnusedByAdmin(ctx context.Context, adminID string) (int, error)
}

type backupCodeRepo struct {
	db *database.DB
}

func NewBackupCodeRepository(db *database.DB) BackupCodeRepository {
	return &backupCodeRepo{db: db}
}

// ReplaceForAdmin deletes every existing code for the administrator and
// inserts the new batch in one transaction. Minting always replaces.
func (r *backupCodeRepo) ReplaceForAdmin(ctx context.Context, adminID string, codeHashes []string) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM backup_codes WHERE admin_id = $1
		`, adminID); err != nil {
			return err
		}

		for _, hash := range codeHashes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO backup_codes (admin_id, code_hash)
				VALUES ($1, $2)
			`, adminID, hash); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *backupCodeRepo) FindUnusedByAdmin(ctx context.Context, adminID string) ([]model.BackupCode, error) {
	var codes []model.BackupCode
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM backup_codes
		WHERE admin_id = $1 AND used = FALSE
		ORDER BY created_at
	`, adminID)
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *backupCodeRepo) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE backup_codes SET used = TRUE, used_at = NOW() WHERE id = $1
	`, id)
	return err
}

func (r *backupCodeRepo) CountUnusedByAdmin(ctx context.Context, adminID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM backup_codes WHERE admin_id = $1 AND used = FALSE
	`, adminID)
	return count, err
}
