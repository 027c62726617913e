package verification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/example/zerowaste/internal/models"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) IsPhoneClaimed(ctx context.Context, phone string, excludeUserID uuid.UUID) (bool, error) {
	args := m.Called(ctx, phone, excludeUserID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) StageVerification(ctx context.Context, userID uuid.UUID, phone, code string, expiry time.Time, referredBy *string) error {
	args := m.Called(ctx, userID, phone, code, expiry, referredBy)
	return args.Error(0)
}

func (m *MockUserRepository) FinalizeVerification(ctx context.Context, f Finalization) (bool, error) {
	args := m.Called(ctx, f)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) CreditReferrers(ctx context.Context, code string, amount float64) ([]uuid.UUID, error) {
	args := m.Called(ctx, code, amount)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

func (m *MockUserRepository) RecordCreditTransactions(ctx context.Context, entries []models.CreditTransaction) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, message string) error {
	args := m.Called(ctx, to, message)
	return args.Error(0)
}

type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Allocate(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.EchoCodeOnFailure = false
	return cfg
}

func newTestService(repo *MockUserRepository, sender *MockSender, allocator *MockAllocator, cfg Config) *Service {
	return NewService(repo, sender, allocator, cfg)
}

func TestSendCode_PhoneValidation(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr error
	}{
		{name: "missing phone", phone: "", wantErr: ErrPhoneRequired},
		{name: "no plus prefix", phone: "40711111111", wantErr: ErrInvalidPhoneFormat},
		{name: "leading zero", phone: "+0711111111", wantErr: ErrInvalidPhoneFormat},
		{name: "single digit", phone: "+4", wantErr: ErrInvalidPhoneFormat},
		{name: "too long", phone: "+1234567890123456", wantErr: ErrInvalidPhoneFormat},
		{name: "letters", phone: "+40abc111111", wantErr: ErrInvalidPhoneFormat},
		{name: "internal spaces", phone: "+40 711 111 111", wantErr: ErrInvalidPhoneFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			sender := new(MockSender)

			svc := newTestService(repo, sender, new(MockAllocator), testConfig())
			_, err := svc.SendCode(context.Background(), uuid.New(), tt.phone, "")

			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "StageVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSendCode_PhoneClaimedByOther(t *testing.T) {
	userID := uuid.New()
	repo := new(MockUserRepository)
	sender := new(MockSender)
	repo.On("IsPhoneClaimed", mock.Anything, "+40700000001", userID).Return(true, nil)

	svc := newTestService(repo, sender, new(MockAllocator), testConfig())
	_, err := svc.SendCode(context.Background(), userID, "+40700000001", "")

	assert.ErrorIs(t, err, ErrPhoneAlreadyClaimed)
	repo.AssertExpectations(t)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendCode_InvalidReferralCode(t *testing.T) {
	userID := uuid.New()
	repo := new(MockUserRepository)
	repo.On("IsPhoneClaimed", mock.Anything, "+40711111111", userID).Return(false, nil)
	repo.On("ReferralCodeExists", mock.Anything, "NOPE1234").Return(false, nil)

	svc := newTestService(repo, new(MockSender), new(MockAllocator), testConfig())
	_, err := svc.SendCode(context.Background(), userID, "+40711111111", "NOPE1234")

	assert.ErrorIs(t, err, ErrInvalidReferralCode)
	// Nothing may be persisted when the referral code is rejected.
	repo.AssertNotCalled(t, "StageVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendCode_Success(t *testing.T) {
	userID := uuid.New()
	repo := new(MockUserRepository)
	sender := new(MockSender)

	var stagedCode string
	repo.On("IsPhoneClaimed", mock.Anything, "+40711111111", userID).Return(false, nil)
	repo.On("ReferralCodeExists", mock.Anything, "ALI1234").Return(true, nil)
	repo.On("StageVerification", mock.Anything, userID, "+40711111111", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stagedCode = args.String(3)
			referredBy := args.Get(5).(*string)
			require.NotNil(t, referredBy)
			assert.Equal(t, "ALI1234", *referredBy)
		}).
		Return(nil)
	sender.On("Send", mock.Anything, "+40711111111", mock.Anything).Return(nil)

	svc := newTestService(repo, sender, new(MockAllocator), testConfig())
	result, err := svc.SendCode(context.Background(), userID, "+40711111111", "ALI1234")

	require.NoError(t, err)
	assert.Empty(t, result.DevCode)
	assert.Len(t, stagedCode, 6)
	repo.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestSendCode_DeliveryFailure(t *testing.T) {
	t.Run("production surfaces the error, code stays staged", func(t *testing.T) {
		userID := uuid.New()
		repo := new(MockUserRepository)
		sender := new(MockSender)
		repo.On("IsPhoneClaimed", mock.Anything, "+40711111111", userID).Return(false, nil)
		repo.On("StageVerification", mock.Anything, userID, "+40711111111", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		sender.On("Send", mock.Anything, "+40711111111", mock.Anything).Return(assert.AnError)

		svc := newTestService(repo, sender, new(MockAllocator), testConfig())
		_, err := svc.SendCode(context.Background(), userID, "+40711111111", "")

		assert.ErrorIs(t, err, ErrSMSDeliveryFailed)
		repo.AssertExpectations(t)
	})

	t.Run("development echoes the code", func(t *testing.T) {
		userID := uuid.New()
		repo := new(MockUserRepository)
		sender := new(MockSender)

		var stagedCode string
		repo.On("IsPhoneClaimed", mock.Anything, "+40711111111", userID).Return(false, nil)
		repo.On("StageVerification", mock.Anything, userID, "+40711111111", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stagedCode = args.String(3) }).
			Return(nil)
		sender.On("Send", mock.Anything, "+40711111111", mock.Anything).Return(assert.AnError)

		cfg := testConfig()
		cfg.EchoCodeOnFailure = true
		svc := newTestService(repo, sender, new(MockAllocator), cfg)
		result, err := svc.SendCode(context.Background(), userID, "+40711111111", "")

		require.NoError(t, err)
		assert.Equal(t, stagedCode, result.DevCode)
	})
}

func pendingUser(code string, expiry time.Time) *models.User {
	user := &models.User{
		Email:                   "bob@x.com",
		Phone:                   "+40711111111",
		PhoneVerificationCode:   &code,
		PhoneVerificationExpiry: &expiry,
	}
	user.ID = uuid.New()
	return user
}

func TestConfirmCode_Validation(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		submitted string
		user      func() *models.User
		wantErr   error
	}{
		{
			name:      "missing code",
			submitted: "",
			user:      func() *models.User { return pendingUser("123456", now.Add(time.Minute)) },
			wantErr:   ErrCodeRequired,
		},
		{
			name:      "no stored code",
			submitted: "123456",
			user: func() *models.User {
				u := pendingUser("123456", now.Add(time.Minute))
				u.PhoneVerificationCode = nil
				return u
			},
			wantErr: ErrInvalidOrExpiredCode,
		},
		{
			name:      "wrong code",
			submitted: "654321",
			user:      func() *models.User { return pendingUser("123456", now.Add(time.Minute)) },
			wantErr:   ErrInvalidOrExpiredCode,
		},
		{
			name:      "expired one second past the deadline",
			submitted: "123456",
			user:      func() *models.User { return pendingUser("123456", now.Add(-time.Second)) },
			wantErr:   ErrInvalidOrExpiredCode,
		},
		{
			name:      "expiry exactly now",
			submitted: "123456",
			user:      func() *models.User { return pendingUser("123456", now) },
			wantErr:   ErrInvalidOrExpiredCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := tt.user()
			repo := new(MockUserRepository)
			repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

			svc := newTestService(repo, new(MockSender), new(MockAllocator), testConfig())
			svc.now = func() time.Time { return now }

			_, err := svc.ConfirmCode(context.Background(), user.ID, tt.submitted)
			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "FinalizeVerification", mock.Anything, mock.Anything)
		})
	}
}

func TestConfirmCode_JustBeforeExpirySucceeds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := pendingUser("123456", now.Add(time.Second))
	ownCode := "BOB1234"
	user.ReferralCode = &ownCode

	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("FinalizeVerification", mock.Anything, mock.Anything).Return(true, nil)

	svc := newTestService(repo, new(MockSender), new(MockAllocator), testConfig())
	svc.now = func() time.Time { return now }

	result, err := svc.ConfirmCode(context.Background(), user.ID, "123456")
	require.NoError(t, err)
	assert.Zero(t, result.BonusAmount)
	assert.Equal(t, "BOB1234", result.ReferralCode)
}

func TestConfirmCode_ReferralPayout(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := pendingUser("123456", now.Add(5*time.Minute))
	referredBy := "ALI1234"
	user.ReferredBy = &referredBy

	referrerID := uuid.New()
	repo := new(MockUserRepository)
	allocator := new(MockAllocator)

	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	allocator.On("Allocate", mock.Anything, "bob@x.com").Return("BOB5678", nil)
	repo.On("FinalizeVerification", mock.Anything, Finalization{
		UserID:       user.ID,
		Code:         "123456",
		Now:          now,
		BonusAmount:  25.00,
		ReferralCode: "BOB5678",
	}).Return(true, nil)
	repo.On("CreditReferrers", mock.Anything, "ALI1234", 15.00).Return([]uuid.UUID{referrerID}, nil)
	repo.On("RecordCreditTransactions", mock.Anything, mock.MatchedBy(func(entries []models.CreditTransaction) bool {
		return len(entries) == 2 &&
			entries[0].UserID == user.ID && entries[0].Amount == 25.00 &&
			entries[1].UserID == referrerID && entries[1].Amount == 15.00
	})).Return(nil)

	svc := newTestService(repo, new(MockSender), allocator, testConfig())
	svc.now = func() time.Time { return now }

	result, err := svc.ConfirmCode(context.Background(), user.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, 25.00, result.BonusAmount)
	assert.Contains(t, result.BonusMessage, "25.00 RON")
	assert.Equal(t, "BOB5678", result.ReferralCode)
	repo.AssertExpectations(t)
	allocator.AssertExpectations(t)
}

func TestConfirmCode_NoSecondPayout(t *testing.T) {
	// hasUsedReferral guards re-granting: a user who already consumed a
	// referral gets no bonus on a later verification.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := pendingUser("123456", now.Add(5*time.Minute))
	referredBy := "ALI1234"
	ownCode := "BOB5678"
	user.ReferredBy = &referredBy
	user.ReferralCode = &ownCode
	user.HasUsedReferral = true

	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	repo.On("FinalizeVerification", mock.Anything, mock.MatchedBy(func(f Finalization) bool {
		return f.BonusAmount == 0
	})).Return(true, nil)

	svc := newTestService(repo, new(MockSender), new(MockAllocator), testConfig())
	svc.now = func() time.Time { return now }

	result, err := svc.ConfirmCode(context.Background(), user.ID, "123456")
	require.NoError(t, err)
	assert.Zero(t, result.BonusAmount)
	assert.Empty(t, result.BonusMessage)
	repo.AssertNotCalled(t, "CreditReferrers", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmCode_ConcurrentConfirmationLoses(t *testing.T) {
	// The conditional finalize matched zero rows: another request already
	// consumed the code. No payout may fire.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	user := pendingUser("123456", now.Add(5*time.Minute))
	referredBy := "ALI1234"
	user.ReferredBy = &referredBy

	repo := new(MockUserRepository)
	allocator := new(MockAllocator)
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	allocator.On("Allocate", mock.Anything, mock.Anything).Return("BOB5678", nil)
	repo.On("FinalizeVerification", mock.Anything, mock.Anything).Return(false, nil)

	svc := newTestService(repo, new(MockSender), allocator, testConfig())
	svc.now = func() time.Time { return now }

	_, err := svc.ConfirmCode(context.Background(), user.ID, "123456")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	repo.AssertNotCalled(t, "CreditReferrers", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmCode_UserNotFound(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("GetByID", mock.Anything, mock.Anything).Return(nil, nil)

	svc := newTestService(repo, new(MockSender), new(MockAllocator), testConfig())
	_, err := svc.ConfirmCode(context.Background(), uuid.New(), "123456")

	assert.ErrorIs(t, err, ErrUserNotFound)
}
