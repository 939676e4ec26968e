package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/lendstack/backoffice-server-go/internal/audit"
	"github.com/lendstack/backoffice-server-go/internal/config"
	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/repository"
	"github.com/lendstack/backoffice-server-go/internal/token"
	"github.com/lendstack/backoffice-server-go/internal/totp"
	"github.com/lendstack/backoffice-server-go/internal/util"
)

// Login outcome statuses returned to clients.
const (
	StatusMFASetupRequired = "MFA_SETUP_REQUIRED"
	StatusMFARequired      = "MFA_REQUIRED"
)

// AuthService drives the multi-step login ceremony: credential validation,
// pending session lifecycle, second-factor verification and token issuance.
type AuthService struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.PendingSessionRepository
	backupRepo  repository.BackupCodeRepository
	totp        *totp.Engine
	tokens      *token.Issuer

	sessionTTL time.Duration
	// maxAttempts caps failed code submissions per session; zero means
	// the session TTL is the only limit.
	maxAttempts int

	now func() time.Time
}

func NewAuthService(
	adminRepo repository.AdminRepository,
	sessionRepo repository.PendingSessionRepository,
	backupRepo repository.BackupCodeRepository,
	totpEngine *totp.Engine,
	tokens *token.Issuer,
	sessionTTL time.Duration,
	maxAttempts int,
) *AuthService {
	return &AuthService{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		backupRepo:  backupRepo,
		totp:        totpEngine,
		tokens:      tokens,
		sessionTTL:  sessionTTL,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// LoginResult is the outcome of successful credential validation: a pending
// session handle and the ceremony the caller must complete next.
type LoginResult struct {
	Status       string
	SessionToken string
	ExpiresAt    time.Time
	User         model.AdminSummary
}

// SetupInfo carries everything a client needs to enroll an authenticator.
type SetupInfo struct {
	OtpauthURL    string
	ManualKey     string
	QRCodeDataURL string
	BackupCodes   []string
}

// Login validates credentials and opens a pending session. The session type
// depends on enrollment state: setup when no authenticator is enrolled yet,
// mfa otherwise.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	admin, err := s.adminRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if admin == nil {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, Email: email,
			Details: map[string]interface{}{"reason": "unknown email"}})
		return nil, apperrors.InvalidCredentials()
	}
	if !admin.IsActive() {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, AdminID: admin.ID,
			Details: map[string]interface{}{"reason": "account not active", "status": admin.Status}})
		return nil, apperrors.AccountInactive()
	}
	if !util.CheckPasswordHash(password, admin.PasswordHash) {
		audit.Log(ctx, audit.Event{Type: audit.EventLoginFailure, AdminID: admin.ID,
			Details: map[string]interface{}{"reason": "password mismatch"}})
		return nil, apperrors.InvalidCredentials()
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.ID); err != nil {
		return nil, apperrors.Database(err)
	}

	// Opportunistic GC keeps the table bounded; failure is not fatal.
	if count, err := s.sessionRepo.DeleteStaleForAdmin(ctx, admin.ID); err != nil {
		log.Warn().Err(err).Str("admin_id", admin.ID).Msg("stale session cleanup failed")
	} else if count > 0 {
		log.Debug().Int64("count", count).Str("admin_id", admin.ID).Msg("stale pending sessions removed")
	}

	sessionType := model.SessionTypeMFA
	status := StatusMFARequired
	var secret *string
	if !admin.TwoFactorEnabled {
		sessionType = model.SessionTypeSetup
		status = StatusMFASetupRequired

		candidate, err := s.totp.GenerateSecret()
		if err != nil {
			return nil, apperrors.Internal("failed to generate authenticator secret")
		}
		secret = &candidate
	}

	rawToken, session, err := s.createSession(ctx, admin.ID, sessionType, secret)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventLoginSuccess, AdminID: admin.ID,
		Details: map[string]interface{}{"ceremony": sessionType}})

	return &LoginResult{
		Status:       status,
		SessionToken: rawToken,
		ExpiresAt:    session.ExpiresAt,
		User:         admin.Summary(),
	}, nil
}

func (s *AuthService) createSession(ctx context.Context, adminID string, sessionType model.SessionType, secret *string) (string, *model.PendingSession, error) {
	rawToken, err := util.GenerateToken()
	if err != nil {
		return "", nil, apperrors.Internal("failed to generate session token")
	}

	session, err := s.sessionRepo.Create(ctx, model.CreatePendingSessionParams{
		TokenHash: util.HashToken(rawToken),
		AdminID:   adminID,
		Type:      sessionType,
		Secret:    secret,
		ExpiresAt: s.now().Add(s.sessionTTL),
	})
	if err != nil {
		return "", nil, apperrors.Database(err)
	}

	return rawToken, session, nil
}

// loadSession resolves a raw session handle and enforces single-use
// semantics. A type mismatch is reported as not-found so the handle never
// leaks which ceremony it belongs to. Expiry consumes the session.
func (s *AuthService) loadSession(ctx context.Context, rawToken string, wantType model.SessionType) (*model.PendingSession, error) {
	session, err := s.sessionRepo.FindByTokenHash(ctx, util.HashToken(rawToken))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil || session.Type != wantType {
		return nil, apperrors.SessionNotFound()
	}
	if session.Used {
		return nil, apperrors.SessionAlreadyUsed()
	}
	if session.IsExpired(s.now()) {
		if err := s.sessionRepo.MarkUsed(ctx, session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to consume expired session")
		}
		return nil, apperrors.SessionExpired()
	}
	return session, nil
}

// consumeSession marks a session used; verification outcomes that terminate
// the ceremony always go through here.
func (s *AuthService) consumeSession(ctx context.Context, session *model.PendingSession) error {
	if err := s.sessionRepo.MarkUsed(ctx, session.ID); err != nil {
		return apperrors.Database(err)
	}
	audit.Log(ctx, audit.Event{Type: audit.EventSessionConsumed, AdminID: session.AdminID,
		Details: map[string]interface{}{"session_id": session.ID, "type": session.Type}})
	return nil
}

// registerFailedAttempt bumps the attempt counter and, when a cap is
// configured, consumes the session once the cap is reached.
func (s *AuthService) registerFailedAttempt(ctx context.Context, session *model.PendingSession) {
	attempts, err := s.sessionRepo.IncrementAttempts(ctx, session.ID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to record verification attempt")
		return
	}
	if s.maxAttempts > 0 && attempts >= s.maxAttempts {
		if err := s.sessionRepo.MarkUsed(ctx, session.ID); err != nil {
			log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to invalidate session at attempt cap")
			return
		}
		log.Info().Str("session_id", session.ID).Int("attempts", attempts).Msg("pending session invalidated at attempt cap")
	}
}

// issueTokens mints an access/refresh pair and persists the refresh token,
// displacing any previously issued one.
func (s *AuthService) issueTokens(ctx context.Context, admin *model.Admin) (*token.Pair, error) {
	pair, err := s.tokens.IssuePair(token.Subject{
		ID:       admin.ID,
		Email:    admin.Email,
		Username: admin.Username,
		Role:     admin.Role,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to issue tokens")
	}

	if err := s.adminRepo.SetRefreshToken(ctx, admin.ID, &pair.RefreshToken); err != nil {
		return nil, apperrors.Database(err)
	}

	return pair, nil
}

// StartSetup regenerates the enrollment secret on a setup session and
// returns the provisioning material together with a fresh batch of backup
// codes. Minting replaces any prior codes.
func (s *AuthService) StartSetup(ctx context.Context, sessionToken string) (*SetupInfo, error) {
	session, err := s.loadSession(ctx, sessionToken, model.SessionTypeSetup)
	if err != nil {
		return nil, err
	}

	admin, err := s.adminRepo.FindByID(ctx, session.AdminID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if admin == nil || !admin.IsActive() {
		if consumeErr := s.consumeSession(ctx, session); consumeErr != nil {
			return nil, consumeErr
		}
		return nil, apperrors.InvalidAccountState()
	}

	secret, err := s.totp.GenerateSecret()
	if err != nil {
		return nil, apperrors.Internal("failed to generate authenticator secret")
	}
	if err := s.sessionRepo.SetSecret(ctx, session.ID, secret); err != nil {
		return nil, apperrors.Database(err)
	}

	uri := s.totp.ProvisionURI(secret, admin.Email)
	qr, err := s.totp.QRCodeDataURL(uri)
	if err != nil {
		return nil, apperrors.Internal("failed to render enrollment QR code")
	}

	codes, err := s.mintBackupCodes(ctx, admin.ID)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMFASetupStarted, AdminID: admin.ID})

	return &SetupInfo{
		OtpauthURL:    uri,
		ManualKey:     secret,
		QRCodeDataURL: qr,
		BackupCodes:   codes,
	}, nil
}

// VerifySetup completes enrollment: the submitted code must match the
// session's candidate secret, which is then persisted onto the admin. The
// caller has proven both password and a working authenticator, so token
// issuance follows directly without a second MFA round-trip.
func (s *AuthService) VerifySetup(ctx context.Context, sessionToken, code string) (*token.Pair, error) {
	session, err := s.loadSession(ctx, sessionToken, model.SessionTypeSetup)
	if err != nil {
		return nil, err
	}

	admin, err := s.adminRepo.FindByID(ctx, session.AdminID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if admin == nil || !admin.IsActive() || session.Secret == nil {
		if consumeErr := s.consumeSession(ctx, session); consumeErr != nil {
			return nil, consumeErr
		}
		return nil, apperrors.InvalidAccountState()
	}

	ok, err := s.totp.VerifyCode(*session.Secret, code, s.now())
	if err != nil {
		return nil, apperrors.Internal("code verification failed")
	}
	if !ok {
		s.registerFailedAttempt(ctx, session)
		audit.Log(ctx, audit.Event{Type: audit.EventMFAFailure, AdminID: admin.ID,
			Details: map[string]interface{}{"ceremony": "setup", "attempts": session.Attempts + 1}})
		return nil, apperrors.InvalidCode()
	}

	if err := s.adminRepo.EnableTwoFactor(ctx, admin.ID, *session.Secret); err != nil {
		return nil, apperrors.Database(err)
	}
	if err := s.consumeSession(ctx, session); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMFAEnabled, AdminID: admin.ID})

	return s.issueTokens(ctx, admin)
}

// VerifyMFA completes an mfa session against the admin's persisted secret.
// A wrong code leaves the session open for retry until expiry (or the
// configured attempt cap).
func (s *AuthService) VerifyMFA(ctx context.Context, temporaryHash, code string) (*token.Pair, error) {
	session, err := s.loadSession(ctx, temporaryHash, model.SessionTypeMFA)
	if err != nil {
		return nil, err
	}

	admin, err := s.adminRepo.FindByID(ctx, session.AdminID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if admin == nil || !admin.TwoFactorEnabled || admin.OTPSecret == nil {
		if consumeErr := s.consumeSession(ctx, session); consumeErr != nil {
			return nil, consumeErr
		}
		return nil, apperrors.InvalidAccountState()
	}

	ok, err := s.totp.VerifyCode(*admin.OTPSecret, code, s.now())
	if err != nil {
		return nil, apperrors.Internal("code verification failed")
	}
	if !ok {
		s.registerFailedAttempt(ctx, session)
		audit.Log(ctx, audit.Event{Type: audit.EventMFAFailure, AdminID: admin.ID,
			Details: map[string]interface{}{"ceremony": "mfa", "attempts": session.Attempts + 1}})
		return nil, apperrors.InvalidCode()
	}

	if err := s.consumeSession(ctx, session); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventMFASuccess, AdminID: admin.ID})

	return s.issueTokens(ctx, admin)
}

// RedeemBackupCode completes an mfa session with a one-time recovery code in
// place of an authenticator code. Comparison is a linear scan over the
// admin's unused codes; the first match is consumed.
func (s *AuthService) RedeemBackupCode(ctx context.Context, temporaryHash, code string) (*token.Pair, error) {
	session, err := s.loadSession(ctx, temporaryHash, model.SessionTypeMFA)
	if err != nil {
		return nil, err
	}

	admin, err := s.adminRepo.FindByID(ctx, session.AdminID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if admin == nil || !admin.TwoFactorEnabled {
		if consumeErr := s.consumeSession(ctx, session); consumeErr != nil {
			return nil, consumeErr
		}
		return nil, apperrors.InvalidAccountState()
	}

	codes, err := s.backupRepo.FindUnusedByAdmin(ctx, admin.ID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	normalized := util.NormalizeBackupCode(code)
	var matched *model.BackupCode
	for i := range codes {
		if bcrypt.CompareHashAndPassword([]byte(codes[i].CodeHash), []byte(normalized)) == nil {
			matched = &codes[i]
			break
		}
	}

	if matched == nil {
		s.registerFailedAttempt(ctx, session)
		audit.Log(ctx, audit.Event{Type: audit.EventMFAFailure, AdminID: admin.ID,
			Details: map[string]interface{}{"ceremony": "backup_code", "code": util.MaskCode(normalized)}})
		return nil, apperrors.InvalidBackupCode()
	}

	if err := s.backupRepo.MarkUsed(ctx, matched.ID); err != nil {
		return nil, apperrors.Database(err)
	}
	if err := s.consumeSession(ctx, session); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventBackupCodeUsed, AdminID: admin.ID})

	return s.issueTokens(ctx, admin)
}

// Refresh rotates a refresh token. Every failure mode collapses into a
// single InvalidRefreshToken so callers learn nothing about which check
// failed; the true reason is logged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		audit.Log(ctx, audit.Event{Type: audit.EventRefreshRejected,
			Details: map[string]interface{}{"reason": "signature or expiry"}})
		return nil, apperrors.InvalidRefreshToken()
	}

	admin, err := s.adminRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if admin == nil || !admin.IsActive() {
		audit.Log(ctx, audit.Event{Type: audit.EventRefreshRejected, AdminID: claims.Subject,
			Details: map[string]interface{}{"reason": "account unavailable"}})
		return nil, apperrors.InvalidRefreshToken()
	}
	if admin.RefreshToken == nil || !util.ConstantTimeEqual(*admin.RefreshToken, refreshToken) {
		audit.Log(ctx, audit.Event{Type: audit.EventRefreshRejected, AdminID: admin.ID,
			Details: map[string]interface{}{"reason": "stale token"}})
		return nil, apperrors.InvalidRefreshToken()
	}

	pair, err := s.issueTokens(ctx, admin)
	if err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventTokenRefresh, AdminID: admin.ID})
	return pair, nil
}

// RegenerateBackupCodes mints a fresh batch for an authenticated admin,
// invalidating every previously issued code.
func (s *AuthService) RegenerateBackupCodes(ctx context.Context, admin *model.Admin) ([]string, error) {
	if !admin.TwoFactorEnabled {
		return nil, apperrors.InvalidAccountState()
	}
	return s.mintBackupCodes(ctx, admin.ID)
}

func (s *AuthService) mintBackupCodes(ctx context.Context, adminID string) ([]string, error) {
	plaintexts := make([]string, 0, config.BackupCodeCount)
	hashes := make([]string, 0, config.BackupCodeCount)

	for i := 0; i < config.BackupCodeCount; i++ {
		code, err := util.GenerateBackupCode()
		if err != nil {
			return nil, apperrors.Internal("failed to generate backup code")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.Internal("failed to hash backup code")
		}
		plaintexts = append(plaintexts, code)
		hashes = append(hashes, string(hash))
	}

	if err := s.backupRepo.ReplaceForAdmin(ctx, adminID, hashes); err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{Type: audit.EventBackupCodesMinted, AdminID: adminID,
		Details: map[string]interface{}{"count": config.BackupCodeCount}})

	return plaintexts, nil
}
