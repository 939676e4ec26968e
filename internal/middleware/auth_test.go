package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/token"
)

type stubAdminRepo struct {
	admin *model.Admin
}

func (s *stubAdminRepo) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	if s.admin != nil && s.admin.ID == id {
		return s.admin, nil
	}
	return nil, nil
}

func (s *stubAdminRepo) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	return nil, nil
}

func (s *stubAdminRepo) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.Admin, error) {
	return nil, nil
}

func (s *stubAdminRepo) List(ctx context.Context, limit, offset int) ([]model.Admin, int, error) {
	return nil, 0, nil
}

func (s *stubAdminRepo) UpdateLastLogin(ctx context.Context, id string) error { return nil }

func (s *stubAdminRepo) EnableTwoFactor(ctx context.Context, id, otpSecret string) error {
	return nil
}

func (s *stubAdminRepo) SetRefreshToken(ctx context.Context, id string, token *string) error {
	return nil
}

func (s *stubAdminRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	return nil
}

func (s *stubAdminRepo) CompletePasswordReset(ctx context.Context, id, passwordHash string) error {
	return nil
}

func testIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  "middleware-test-access-secret",
		RefreshSecret: "middleware-test-refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "backoffice-test",
	})
	require.NoError(t, err)
	return issuer
}

func TestAuthMiddleware(t *testing.T) {
	admin := &model.Admin{
		ID:     "admin-1",
		Email:  "ops@lendstack.io",
		Status: model.AdminStatusActive,
	}
	issuer := testIssuer(t)

	pair, err := issuer.IssuePair(token.Subject{ID: admin.ID, Email: admin.Email, Role: "operator"})
	require.NoError(t, err)

	var seen *model.Admin
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAdmin(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes through", func(t *testing.T) {
		seen = nil
		mw := NewAuthMiddleware(&stubAdminRepo{admin: admin}, issuer)

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Token)
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "admin-1", seen.ID)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		seen = nil
		mw := NewAuthMiddleware(&stubAdminRepo{admin: admin}, issuer)

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		seen = nil
		mw := NewAuthMiddleware(&stubAdminRepo{admin: admin}, issuer)

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown subject rejected", func(t *testing.T) {
		seen = nil
		mw := NewAuthMiddleware(&stubAdminRepo{}, issuer)

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Token)
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("inactive account rejected", func(t *testing.T) {
		seen = nil
		suspended := &model.Admin{ID: "admin-1", Status: model.AdminStatusSuspended}
		mw := NewAuthMiddleware(&stubAdminRepo{admin: suspended}, issuer)

		req := httptest.NewRequest(http.MethodGet, "/api/loans", nil)
		req.Header.Set("Authorization", "Bearer "+pair.Token)
		rec := httptest.NewRecorder()

		mw.Handler(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("GetAdmin returns nil outside middleware", func(t *testing.T) {
		assert.Nil(t, GetAdmin(context.Background()))
	})
}
