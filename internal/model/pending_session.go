package model

import (
	"time"
)

// PendingSession is a short-lived, single-use record bridging password
// verification and second-factor verification. The external handle is the
// random 64-hex token, never a sequential id.
type PendingSession struct {
	ID        string      `db:"id" json:"id"`
	TokenHash string      `db:"token_hash" json:"-"`
	AdminID   string      `db:"admin_id" json:"adminId"`
	Type      SessionType `db:"type" json:"type"`

	// Secret holds the candidate authenticator secret for setup-typed
	// sessions; it is only copied onto the admin once a code generated
	// from it has been verified.
	Secret *string `db:"secret" json:"-"`

	Used      bool      `db:"used" json:"used"`
	Attempts  int       `db:"attempts" json:"attempts"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// IsExpired reports whether the session's fixed TTL has passed.
func (s *PendingSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

type CreatePendingSessionParams struct {
	TokenHash string
	AdminID   string
	Type      SessionType
	Secret    *string
	ExpiresAt time.Time
}
