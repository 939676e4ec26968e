package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/middleware"
	"github.com/lendstack/backoffice-server-go/internal/service"
)

// AuthHandler exposes the login ceremony, token refresh, backup code
// management and the password reset flow.
type AuthHandler struct {
	authService      *service.AuthService
	resetService     *service.PasswordResetService
	authMiddleware   func(http.Handler) http.Handler
	loginRateLimiter *middleware.LoginRateLimiter
}

func NewAuthHandler(
	authService *service.AuthService,
	resetService *service.PasswordResetService,
	authMiddleware func(http.Handler) http.Handler,
) *AuthHandler {
	return &AuthHandler{
		authService:      authService,
		resetService:     resetService,
		authMiddleware:   authMiddleware,
		loginRateLimiter: middleware.NewLoginRateLimiter(),
	}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginRateLimiter.Handler).Post("/login", h.Login)
	r.Post("/mfa/setup", h.StartSetup)
	r.Post("/mfa/setup/verify", h.VerifySetup)
	r.Post("/mfa/verify", h.VerifyMFA)
	r.Post("/mfa/backup-code", h.RedeemBackupCode)
	r.Post("/refresh", h.Refresh)

	r.With(h.loginRateLimiter.Handler).Post("/password-reset/request", h.RequestReset)
	r.Get("/password-reset/verify", h.VerifyReset)
	r.Post("/password-reset/consume", h.ConsumeReset)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Post("/backup-codes/regenerate", h.RegenerateBackupCodes)
	})

	return r
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, apperrors.ValidationError("email and password are required"))
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	// The handle is named by the ceremony it opens: a setup session travels
	// as sessionToken, an mfa session as temporaryHash.
	resp := map[string]any{
		"status":    result.Status,
		"expiresAt": result.ExpiresAt,
		"user":      result.User,
	}
	if result.Status == service.StatusMFASetupRequired {
		resp["sessionToken"] = result.SessionToken
	} else {
		resp["temporaryHash"] = result.SessionToken
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) StartSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"sessionToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionToken == "" {
		writeError(w, apperrors.MissingRequired("sessionToken"))
		return
	}

	info, err := h.authService.StartSetup(r.Context(), req.SessionToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"otpauthUrl":    info.OtpauthURL,
		"manualKey":     info.ManualKey,
		"qrCodeDataUrl": info.QRCodeDataURL,
		"backupCodes":   info.BackupCodes,
	})
}

func (h *AuthHandler) VerifySetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionToken string `json:"sessionToken"`
		Code         string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionToken == "" || req.Code == "" {
		writeError(w, apperrors.ValidationError("sessionToken and code are required"))
		return
	}

	pair, err := h.authService.VerifySetup(r.Context(), req.SessionToken, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemporaryHash string `json:"temporaryHash"`
		Code          string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemporaryHash == "" || req.Code == "" {
		writeError(w, apperrors.ValidationError("temporaryHash and code are required"))
		return
	}

	pair, err := h.authService.VerifyMFA(r.Context(), req.TemporaryHash, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) RedeemBackupCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemporaryHash string `json:"temporaryHash"`
		Code          string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TemporaryHash == "" || req.Code == "" {
		writeError(w, apperrors.ValidationError("temporaryHash and code are required"))
		return
	}

	pair, err := h.authService.RedeemBackupCode(r.Context(), req.TemporaryHash, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeError(w, apperrors.MissingRequired("refreshToken"))
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	if admin == nil {
		writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	codes, err := h.authService.RegenerateBackupCodes(r.Context(), admin)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, apperrors.MissingRequired("email"))
		return
	}

	if err := h.resetService.Request(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, err)
		return
	}

	// Always the same shape, whatever happened internally.
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) VerifyReset(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, apperrors.MissingRequired("token"))
		return
	}

	result, err := h.resetService.Verify(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

const minPasswordLength = 8

func (h *AuthHandler) ConsumeReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		writeError(w, apperrors.ValidationError("token and newPassword are required"))
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, apperrors.InvalidInput("newPassword", "must be at least 8 characters"))
		return
	}

	if err := h.resetService.Consume(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
