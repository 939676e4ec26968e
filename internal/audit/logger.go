package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventLoginSuccess         EventType = "login_success"
	EventLoginFailure         EventType = "login_failure"
	EventMFASetupStarted      EventType = "mfa_setup_started"
	EventMFAEnabled           EventType = "mfa_enabled"
	EventMFASuccess           EventType = "mfa_success"
	EventMFAFailure           EventType = "mfa_failure"
	EventSessionConsumed      EventType = "session_consumed"
	EventBackupCodeUsed       EventType = "backup_code_used"
	EventBackupCodesMinted    EventType = "backup_codes_minted"
	EventTokenRefresh         EventType = "token_refresh"
	EventRefreshRejected      EventType = "refresh_rejected"
	EventResetRequested       EventType = "reset_requested"
	EventResetRequestDenied   EventType = "reset_request_denied"
	EventResetConsumed        EventType = "reset_consumed"
	EventLoanDecision         EventType = "loan_decision"
	EventTransactionRecorded  EventType = "transaction_recorded"
	EventTicketStatusChanged  EventType = "ticket_status_changed"
)

type Event struct {
	Type    EventType
	AdminID string
	Email   string
	IP      string
	Details map[string]interface{}
}

// Log emits a structured security audit record. True outcomes land here even
// when the external caller is told an opaque success.
func Log(ctx context.Context, event Event) {
	logger := log.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.AdminID != "" {
		logger = logger.With().Str("admin_id", event.AdminID).Logger()
	}
	if event.Email != "" {
		logger = logger.With().Str("email", event.Email).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = logEvent.Interface(k, v)
	}
	logEvent.Msg("audit event")
}
