package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lendstack/backoffice-server-go/internal/audit"
	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/mailer"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/repository"
	"github.com/lendstack/backoffice-server-go/internal/totp"
	"github.com/lendstack/backoffice-server-go/internal/util"
)

const mailDispatchTimeout = 30 * time.Second

// PasswordResetService issues, verifies and consumes password reset tokens.
// Request outcomes are deliberately uniform toward the caller to defeat
// account enumeration; true outcomes go to the audit log.
type PasswordResetService struct {
	adminRepo repository.AdminRepository
	totp      *totp.Engine
	mail      mailer.Mailer
	tokenTTL  time.Duration

	now func() time.Time
}

func NewPasswordResetService(
	adminRepo repository.AdminRepository,
	totpEngine *totp.Engine,
	mail mailer.Mailer,
	tokenTTL time.Duration,
) *PasswordResetService {
	return &PasswordResetService{
		adminRepo: adminRepo,
		totp:      totpEngine,
		mail:      mail,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Request starts a reset. It reports success regardless of whether the
// account exists, is active, or passed the 2FA gate; a reset mail is only
// dispatched when every check held.
func (s *PasswordResetService) Request(ctx context.Context, email, code string) error {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		return apperrors.Database(err)
	}
	if admin == nil || !admin.IsActive() {
		audit.Log(ctx, audit.Event{Type: audit.EventResetRequestDenied, Email: email,
			Details: map[string]interface{}{"reason": "account unavailable"}})
		return nil
	}

	// Accounts with an enrolled authenticator must additionally present a
	// currently valid code; password knowledge alone cannot trigger a reset.
	if admin.TwoFactorEnabled {
		if admin.OTPSecret == nil {
			audit.Log(ctx, audit.Event{Type: audit.EventResetRequestDenied, AdminID: admin.ID,
				Details: map[string]interface{}{"reason": "inconsistent 2fa state"}})
			return nil
		}
		ok, err := s.totp.VerifyCode(*admin.OTPSecret, code, s.now())
		if err != nil || !ok {
			audit.Log(ctx, audit.Event{Type: audit.EventResetRequestDenied, AdminID: admin.ID,
				Details: map[string]interface{}{"reason": "2fa gate failed"}})
			return nil
		}
	}

	rawToken, err := util.GenerateToken()
	if err != nil {
		return apperrors.Internal("failed to generate reset token")
	}

	expiresAt := s.now().Add(s.tokenTTL)
	if err := s.adminRepo.SetResetToken(ctx, admin.ID, util.HashToken(rawToken), expiresAt); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventResetRequested, AdminID: admin.ID})

	// Dispatch is asynchronous; the request must not block on (or reveal
	// anything about) mail delivery.
	go func(email, token string) {
		mailCtx, cancel := context.WithTimeout(context.Background(), mailDispatchTimeout)
		defer cancel()
		if err := s.mail.SendPasswordReset(mailCtx, email, token); err != nil {
			log.Error().Err(err).Msg("password reset mail dispatch failed")
		}
	}(admin.Email, rawToken)

	return nil
}

// VerifyResult reports reset-token validity with a human-readable reason for
// UI use; the token itself is never echoed.
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Verify is idempotent and side-effect-free: it checks the token without
// consuming it.
func (s *PasswordResetService) Verify(ctx context.Context, rawToken string) (*VerifyResult, error) {
	admin, err := s.adminRepo.FindByResetTokenHash(ctx, util.HashToken(rawToken))
	if err != nil {
		return nil, apperrors.Database(err)
	}

	switch s.classify(admin) {
	case apperrors.ErrCodeInvalidResetToken:
		return &VerifyResult{Valid: false, Message: "Reset link is invalid"}, nil
	case apperrors.ErrCodeResetTokenAlreadyUsed:
		return &VerifyResult{Valid: false, Message: "Reset link has already been used"}, nil
	case apperrors.ErrCodeResetTokenExpired:
		return &VerifyResult{Valid: false, Message: "Reset link has expired"}, nil
	}

	return &VerifyResult{Valid: true}, nil
}

// Consume performs the same three checks as Verify, then swaps the password,
// consumes the token and revokes the persisted refresh token, forcibly
// logging out any live session.
func (s *PasswordResetService) Consume(ctx context.Context, rawToken, newPassword string) error {
	admin, err := s.adminRepo.FindByResetTokenHash(ctx, util.HashToken(rawToken))
	if err != nil {
		return apperrors.Database(err)
	}

	switch s.classify(admin) {
	case apperrors.ErrCodeInvalidResetToken:
		return apperrors.InvalidResetToken()
	case apperrors.ErrCodeResetTokenAlreadyUsed:
		return apperrors.ResetTokenAlreadyUsed()
	case apperrors.ErrCodeResetTokenExpired:
		return apperrors.ResetTokenExpired()
	}

	passwordHash, err := util.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("failed to hash password")
	}

	if err := s.adminRepo.CompletePasswordReset(ctx, admin.ID, passwordHash); err != nil {
		return apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventResetConsumed, AdminID: admin.ID})
	return nil
}

// classify returns the failure code for a reset artifact, or "" when valid.
func (s *PasswordResetService) classify(admin *model.Admin) apperrors.ErrorCode {
	if admin == nil || admin.ResetTokenHash == nil || admin.ResetTokenExpiresAt == nil {
		return apperrors.ErrCodeInvalidResetToken
	}
	if admin.ResetTokenUsedAt != nil {
		return apperrors.ErrCodeResetTokenAlreadyUsed
	}
	if s.now().After(*admin.ResetTokenExpiresAt) {
		return apperrors.ErrCodeResetTokenExpired
	}
	return ""
}
