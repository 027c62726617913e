package verification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/zerowaste/internal/models"
)

// UserRepository is the data access surface the verification workflow needs.
// The gorm implementation lives in internal/repository.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// IsPhoneClaimed reports whether the phone belongs to a *verified* user
	// other than excludeUserID. Unverified phones may collide.
	IsPhoneClaimed(ctx context.Context, phone string, excludeUserID uuid.UUID) (bool, error)

	ReferralCodeExists(ctx context.Context, code string) (bool, error)

	// StageVerification persists phone, code, expiry and (optionally)
	// referredBy onto the user row in a single update.
	StageVerification(ctx context.Context, userID uuid.UUID, phone, code string, expiry time.Time, referredBy *string) error

	// FinalizeVerification applies the confirmation state transition as a
	// conditional update, succeeding only if the stored code still matches
	// and has not expired. Returns false when a concurrent confirmation won.
	FinalizeVerification(ctx context.Context, f Finalization) (bool, error)

	// CreditReferrers increments credits and referral bonus for every user
	// holding the given referral code, returning the IDs credited.
	CreditReferrers(ctx context.Context, code string, amount float64) ([]uuid.UUID, error)

	RecordCreditTransactions(ctx context.Context, entries []models.CreditTransaction) error
}

// Finalization describes the conditional update applied on confirmation.
type Finalization struct {
	UserID uuid.UUID
	// Code is the stored verification code the update is conditioned on.
	Code string
	Now  time.Time
	// BonusAmount is added to the user's credits. When positive it also
	// overwrites referral_bonus; when zero referral_bonus is left untouched.
	BonusAmount float64
	// ReferralCode is written back to the row (existing value or a fresh
	// allocation for users without one).
	ReferralCode string
}

// Sender delivers verification messages to a phone number.
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// CodeAllocator produces unique referral codes for backfilling.
type CodeAllocator interface {
	Allocate(ctx context.Context, email string) (string, error)
}
