package model

import (
	"time"
)

// BackupCode is a one-time recovery credential. Redemption flips the used
// flag; rows are only deleted when a fresh batch replaces them.
type BackupCode struct {
	ID        string     `db:"id" json:"id"`
	AdminID   string     `db:"admin_id" json:"adminId"`
	CodeHash  string     `db:"code_hash" json:"-"`
	Used      bool       `db:"used" json:"used"`
	UsedAt    *time.Time `db:"used_at" json:"usedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}
