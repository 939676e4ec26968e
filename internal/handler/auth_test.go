package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendstack/backoffice-server-go/internal/middleware"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/service"
	"github.com/lendstack/backoffice-server-go/internal/token"
	"github.com/lendstack/backoffice-server-go/internal/totp"
)

type stubBackupCodeRepo struct {
	replaced [][]string
	unused   int
}

func (s *stubBackupCodeRepo) ReplaceForAdmin(ctx context.Context, adminID string, codeHashes []string) error {
	s.replaced = append(s.replaced, codeHashes)
	return nil
}

func (s *stubBackupCodeRepo) FindUnusedByAdmin(ctx context.Context, adminID string) ([]model.BackupCode, error) {
	return nil, nil
}

func (s *stubBackupCodeRepo) MarkUsed(ctx context.Context, id string) error { return nil }

func (s *stubBackupCodeRepo) CountUnusedByAdmin(ctx context.Context, adminID string) (int, error) {
	return s.unused, nil
}

func TestRegenerateBackupCodes_ResponseShape(t *testing.T) {
	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  "handler-test-access-secret",
		RefreshSecret: "handler-test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "backoffice-test",
	})
	require.NoError(t, err)

	backupRepo := &stubBackupCodeRepo{}
	authService := service.NewAuthService(
		nil, nil, backupRepo,
		totp.NewEngine("backoffice-test"), issuer,
		10*time.Minute, 0,
	)

	h := NewAuthHandler(authService, nil, nil)

	admin := &model.Admin{
		ID:               "admin-1",
		Email:            "ops@lendstack.io",
		Status:           model.AdminStatusActive,
		TwoFactorEnabled: true,
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/backup-codes/regenerate", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.AdminContextKey, admin))
	rec := httptest.NewRecorder()

	h.RegenerateBackupCodes(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "codes")
	assert.NotContains(t, body, "backupCodes")

	var codes []string
	require.NoError(t, json.Unmarshal(body["codes"], &codes))
	assert.Len(t, codes, 10)
	require.Len(t, backupRepo.replaced, 1)
	assert.Len(t, backupRepo.replaced[0], 10)
}
