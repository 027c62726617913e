package verification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services/referral"
)

// fakeUserStore is an in-memory UserRepository with the same conditional
// update semantics as the gorm implementation.
type fakeUserStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	ledger  []models.CreditTransaction
	sends   []string
	sendErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[uuid.UUID]*models.User{}}
}

func (s *fakeUserStore) add(user *models.User) *models.User {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	snapshot := *user
	return &snapshot, nil
}

func (s *fakeUserStore) IsPhoneClaimed(ctx context.Context, phone string, excludeUserID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID != excludeUserID && u.Phone == phone && u.PhoneVerified {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeUserStore) StageVerification(ctx context.Context, userID uuid.UUID, phone, code string, expiry time.Time, referredBy *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[userID]
	user.Phone = phone
	user.PhoneVerificationCode = &code
	user.PhoneVerificationExpiry = &expiry
	if referredBy != nil {
		user.ReferredBy = referredBy
	}
	return nil
}

func (s *fakeUserStore) FinalizeVerification(ctx context.Context, f Finalization) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[f.UserID]
	if user.PhoneVerificationCode == nil ||
		*user.PhoneVerificationCode != f.Code ||
		user.PhoneVerificationExpiry == nil ||
		!user.PhoneVerificationExpiry.After(f.Now) {
		return false, nil
	}

	user.PhoneVerified = true
	user.PhoneVerificationCode = nil
	user.PhoneVerificationExpiry = nil
	user.HasUsedReferral = true
	code := f.ReferralCode
	user.ReferralCode = &code
	user.Credits += f.BonusAmount
	if f.BonusAmount > 0 {
		user.ReferralBonus = f.BonusAmount
	}
	return true, nil
}

func (s *fakeUserStore) CreditReferrers(ctx context.Context, code string, amount float64) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for _, u := range s.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			u.Credits += amount
			u.ReferralBonus += amount
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (s *fakeUserStore) RecordCreditTransactions(ctx context.Context, entries []models.CreditTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger = append(s.ledger, entries...)
	return nil
}

// Send makes the store double as the SMS sender, recording outgoing messages.
func (s *fakeUserStore) Send(ctx context.Context, to, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sends = append(s.sends, message)
	return nil
}

func TestReferralWorkflow_EndToEnd(t *testing.T) {
	// Alice already verified and holds a referral code. Bob signs up with it,
	// verifies his phone and both sides get paid exactly once.
	ctx := context.Background()
	store := newFakeUserStore()

	aliceCode := "ALI4821"
	alice := store.add(&models.User{
		Email:         "alice@example.com",
		Phone:         "+40722000001",
		PhoneVerified: true,
		ReferralCode:  &aliceCode,
		Credits:       10.00,
		ReferralBonus: 5.00,
	})
	bob := store.add(&models.User{Email: "bob@example.com"})

	cfg := DefaultConfig()
	cfg.EchoCodeOnFailure = true
	svc := NewService(store, store, referral.NewAllocator(store), cfg)

	// Delivery fails so the staged code is echoed back, same as dev mode.
	store.sendErr = assert.AnError
	sent, err := svc.SendCode(ctx, bob.ID, "+40722000002", aliceCode)
	require.NoError(t, err)
	require.NotEmpty(t, sent.DevCode)

	result, err := svc.ConfirmCode(ctx, bob.ID, sent.DevCode)
	require.NoError(t, err)
	assert.Equal(t, 25.00, result.BonusAmount)
	require.NotEmpty(t, result.ReferralCode)
	assert.NotEqual(t, aliceCode, result.ReferralCode)

	bobRow, _ := store.GetByID(ctx, bob.ID)
	assert.True(t, bobRow.PhoneVerified)
	assert.True(t, bobRow.HasUsedReferral)
	assert.Nil(t, bobRow.PhoneVerificationCode)
	assert.Equal(t, 25.00, bobRow.Credits)
	assert.Equal(t, 25.00, bobRow.ReferralBonus)

	aliceRow, _ := store.GetByID(ctx, alice.ID)
	assert.Equal(t, 25.00, aliceRow.Credits)
	assert.Equal(t, 20.00, aliceRow.ReferralBonus)

	require.Len(t, store.ledger, 2)
	assert.Equal(t, models.CreditTypeRefereeBonus, store.ledger[0].Type)
	assert.Equal(t, models.CreditTypeReferrerBonus, store.ledger[1].Type)

	// A second confirmation with the consumed code must fail and pay nothing.
	_, err = svc.ConfirmCode(ctx, bob.ID, sent.DevCode)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	aliceRow, _ = store.GetByID(ctx, alice.ID)
	assert.Equal(t, 25.00, aliceRow.Credits)
}

func TestReferralWorkflow_VerifyWithoutReferral(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	carol := store.add(&models.User{Email: "carol@example.com"})

	svc := NewService(store, store, referral.NewAllocator(store), DefaultConfig())

	_, err := svc.SendCode(ctx, carol.ID, "+40722000003", "")
	require.NoError(t, err)
	require.Len(t, store.sends, 1)
	assert.Contains(t, store.sends[0], "verification code")

	row, _ := store.GetByID(ctx, carol.ID)
	require.NotNil(t, row.PhoneVerificationCode)

	result, err := svc.ConfirmCode(ctx, carol.ID, *row.PhoneVerificationCode)
	require.NoError(t, err)
	assert.Zero(t, result.BonusAmount)
	assert.Empty(t, result.BonusMessage)

	row, _ = store.GetByID(ctx, carol.ID)
	assert.True(t, row.PhoneVerified)
	assert.Zero(t, row.Credits)
	require.NotNil(t, row.ReferralCode)
	assert.Equal(t, result.ReferralCode, *row.ReferralCode)
	assert.Empty(t, store.ledger)
}

func TestReferralWorkflow_ReverifyKeepsExistingCode(t *testing.T) {
	// Changing the phone later re-runs verification but must not reallocate
	// the referral code or grant another bonus.
	ctx := context.Background()
	store := newFakeUserStore()

	code := "DAN7777"
	referredBy := "ALI4821"
	dan := store.add(&models.User{
		Email:           "dan@example.com",
		Phone:           "+40722000004",
		PhoneVerified:   true,
		ReferralCode:    &code,
		ReferredBy:      &referredBy,
		HasUsedReferral: true,
		Credits:         25.00,
	})

	svc := NewService(store, store, referral.NewAllocator(store), DefaultConfig())

	_, err := svc.SendCode(ctx, dan.ID, "+40722999999", "")
	require.NoError(t, err)

	row, _ := store.GetByID(ctx, dan.ID)
	result, err := svc.ConfirmCode(ctx, dan.ID, *row.PhoneVerificationCode)
	require.NoError(t, err)

	assert.Zero(t, result.BonusAmount)
	assert.Equal(t, "DAN7777", result.ReferralCode)

	row, _ = store.GetByID(ctx, dan.ID)
	assert.Equal(t, "+40722999999", row.Phone)
	assert.Equal(t, 25.00, row.Credits)
	assert.Empty(t, store.ledger)
}
