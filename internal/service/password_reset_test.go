package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/totp"
	"github.com/lendstack/backoffice-server-go/internal/util"
)

type captureMailer struct {
	sent chan string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{sent: make(chan string, 1)}
}

func (m *captureMailer) SendPasswordReset(ctx context.Context, email, resetToken string) error {
	m.sent <- resetToken
	return nil
}

func (m *captureMailer) waitForToken(t *testing.T) string {
	t.Helper()
	select {
	case token := <-m.sent:
		return token
	case <-time.After(2 * time.Second):
		t.Fatal("reset mail was not dispatched")
		return ""
	}
}

func newTestResetService(adminRepo *mockAdminRepo, mail *captureMailer) *PasswordResetService {
	return &PasswordResetService{
		adminRepo: adminRepo,
		totp:      totp.NewEngine("backoffice-test"),
		mail:      mail,
		tokenTTL:  time.Hour,
		now:       func() time.Time { return testNow },
	}
}

func TestResetRequest_UnknownEmailReportsSuccess(t *testing.T) {
	adminRepo := new(mockAdminRepo)
	adminRepo.On("FindByEmail", mock.Anything, "nobody@lendstack.io").Return(nil, nil)

	mail := newCaptureMailer()
	svc := newTestResetService(adminRepo, mail)

	err := svc.Request(context.Background(), "nobody@lendstack.io", "")

	require.NoError(t, err)
	adminRepo.AssertNotCalled(t, "SetResetToken")
	assert.Empty(t, mail.sent)
}

func TestResetRequest_InactiveAccountReportsSuccess(t *testing.T) {
	admin := testAdmin(t, "correct-horse", false)
	admin.Status = model.AdminStatusSuspended

	adminRepo := new(mockAdminRepo)
	adminRepo.On("FindByEmail", mock.Anything, admin.Email).Return(admin, nil)

	mail := newCaptureMailer()
	svc := newTestResetService(adminRepo, mail)

	err := svc.Request(context.Background(), admin.Email, "")

	require.NoError(t, err)
	adminRepo.AssertNotCalled(t, "SetResetToken")
}

func TestResetRequest_TwoFactorGate(t *testing.T) {
	t.Run("wrong code silently denies", func(t *testing.T) {
		admin := testAdmin(t, "correct-horse", true)

		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByEmail", mock.Anything, admin.Email).Return(admin, nil)

		mail := newCaptureMailer()
		svc := newTestResetService(adminRepo, mail)

		err := svc.Request(context.Background(), admin.Email, "000000")

		require.NoError(t, err)
		adminRepo.AssertNotCalled(t, "SetResetToken")
	})

	t.Run("valid code issues a token", func(t *testing.T) {
		admin := testAdmin(t, "correct-horse", true)

		var storedHash string
		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByEmail", mock.Anything, admin.Email).Return(admin, nil)
		adminRepo.On("SetResetToken", mock.Anything, admin.ID, mock.AnythingOfType("string"), testNow.Add(time.Hour)).
			Run(func(args mock.Arguments) {
				storedHash = args.Get(2).(string)
			}).
			Return(nil)

		mail := newCaptureMailer()
		svc := newTestResetService(adminRepo, mail)

		err := svc.Request(context.Background(), admin.Email, testValidCode)

		require.NoError(t, err)

		// The mail carries the raw token; the store only ever sees its hash.
		raw := mail.waitForToken(t)
		assert.Len(t, raw, 64)
		assert.Equal(t, util.HashToken(raw), storedHash)
	})
}

func TestResetRequest_NoTwoFactorSkipsGate(t *testing.T) {
	admin := testAdmin(t, "correct-horse", false)

	adminRepo := new(mockAdminRepo)
	adminRepo.On("FindByEmail", mock.Anything, admin.Email).Return(admin, nil)
	adminRepo.On("SetResetToken", mock.Anything, admin.ID, mock.AnythingOfType("string"), testNow.Add(time.Hour)).Return(nil)

	mail := newCaptureMailer()
	svc := newTestResetService(adminRepo, mail)

	err := svc.Request(context.Background(), admin.Email, "")

	require.NoError(t, err)
	mail.waitForToken(t)
}

func resetAdmin(t *testing.T, raw string) *model.Admin {
	t.Helper()
	admin := testAdmin(t, "correct-horse", false)
	hash := util.HashToken(raw)
	expires := testNow.Add(30 * time.Minute)
	admin.ResetTokenHash = &hash
	admin.ResetTokenExpiresAt = &expires
	return admin
}

func TestResetVerify(t *testing.T) {
	raw := "feedface"

	t.Run("valid token", func(t *testing.T) {
		admin := resetAdmin(t, raw)
		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, util.HashToken(raw)).Return(admin, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		result, err := svc.Verify(context.Background(), raw)

		require.NoError(t, err)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Message)
	})

	t.Run("unknown token", func(t *testing.T) {
		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		result, err := svc.Verify(context.Background(), "bogus")

		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Message, "invalid")
	})

	t.Run("already used token", func(t *testing.T) {
		admin := resetAdmin(t, raw)
		used := testNow.Add(-time.Minute)
		admin.ResetTokenUsedAt = &used

		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, util.HashToken(raw)).Return(admin, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		result, err := svc.Verify(context.Background(), raw)

		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Message, "already been used")
	})

	t.Run("expired token", func(t *testing.T) {
		admin := resetAdmin(t, raw)
		expired := testNow.Add(-time.Minute)
		admin.ResetTokenExpiresAt = &expired

		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, util.HashToken(raw)).Return(admin, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		result, err := svc.Verify(context.Background(), raw)

		require.NoError(t, err)
		assert.False(t, result.Valid)
		assert.Contains(t, result.Message, "expired")
	})
}

func TestResetConsume_Success(t *testing.T) {
	raw := "feedface"
	admin := resetAdmin(t, raw)

	var newHash string
	adminRepo := new(mockAdminRepo)
	adminRepo.On("FindByResetTokenHash", mock.Anything, util.HashToken(raw)).Return(admin, nil)
	adminRepo.On("CompletePasswordReset", mock.Anything, admin.ID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) {
			newHash = args.Get(2).(string)
		}).
		Return(nil)

	svc := newTestResetService(adminRepo, newCaptureMailer())

	err := svc.Consume(context.Background(), raw, "brand-new-password")

	require.NoError(t, err)
	assert.True(t, util.CheckPasswordHash("brand-new-password", newHash))
}

func TestResetConsume_Failures(t *testing.T) {
	raw := "feedface"

	t.Run("unknown token", func(t *testing.T) {
		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		err := svc.Consume(context.Background(), "bogus", "brand-new-password")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeInvalidResetToken, apperrors.GetCode(err))
	})

	t.Run("double consume", func(t *testing.T) {
		admin := resetAdmin(t, raw)
		used := testNow.Add(-time.Minute)
		admin.ResetTokenUsedAt = &used

		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, util.HashToken(raw)).Return(admin, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		err := svc.Consume(context.Background(), raw, "brand-new-password")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeResetTokenAlreadyUsed, apperrors.GetCode(err))
		adminRepo.AssertNotCalled(t, "CompletePasswordReset")
	})

	t.Run("expired token", func(t *testing.T) {
		admin := resetAdmin(t, raw)
		expired := testNow.Add(-time.Minute)
		admin.ResetTokenExpiresAt = &expired

		adminRepo := new(mockAdminRepo)
		adminRepo.On("FindByResetTokenHash", mock.Anything, util.HashToken(raw)).Return(admin, nil)

		svc := newTestResetService(adminRepo, newCaptureMailer())

		err := svc.Consume(context.Background(), raw, "brand-new-password")

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeResetTokenExpired, apperrors.GetCode(err))
	})
}
