package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services/verification"
)

// UserRepository is the gorm-backed data access layer for user rows. It
// satisfies verification.UserRepository and referral.CodeChecker.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns the user or nil when no row exists.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail returns the user or nil when no row exists.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// IsPhoneClaimed reports whether the phone is verified on another account.
// Unverified phones may collide, so only phone_verified rows count.
func (r *UserRepository) IsPhoneClaimed(ctx context.Context, phone string, excludeUserID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("phone = ? AND phone_verified = ? AND id <> ?", phone, true, excludeUserID).
		Count(&count).Error
	return count > 0, err
}

// ReferralCodeExists reports whether any user holds the given referral code.
func (r *UserRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("referral_code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// StageVerification writes the pending verification state in a single update.
// Code and expiry are always written together.
func (r *UserRepository) StageVerification(ctx context.Context, userID uuid.UUID, phone, code string, expiry time.Time, referredBy *string) error {
	updates := map[string]interface{}{
		"phone":                     phone,
		"phone_verification_code":   code,
		"phone_verification_expiry": expiry,
	}
	if referredBy != nil {
		updates["referred_by"] = *referredBy
	}

	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

// FinalizeVerification applies the confirmation transition conditionally: the
// update only matches while the stored code equals the submitted one and has
// not expired. Clearing the code inside the same statement guarantees a
// concurrent confirmation cannot win twice.
func (r *UserRepository) FinalizeVerification(ctx context.Context, f verification.Finalization) (bool, error) {
	updates := map[string]interface{}{
		"phone_verified":            true,
		"phone_verification_code":   nil,
		"phone_verification_expiry": nil,
		"has_used_referral":         true,
		"referral_code":             f.ReferralCode,
		"credits":                   gorm.Expr("credits + ?", f.BonusAmount),
	}
	if f.BonusAmount > 0 {
		updates["referral_bonus"] = f.BonusAmount
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND phone_verification_code = ? AND phone_verification_expiry > ?", f.UserID, f.Code, f.Now).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// CreditReferrers credits every holder of the referral code. Codes are
// allocated uniquely so this matches one row in practice, but the update is
// deliberately expressed as a bulk operation.
func (r *UserRepository) CreditReferrers(ctx context.Context, code string, amount float64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("referral_code = ?", code).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("referral_code = ?", code).
		UpdateColumns(map[string]interface{}{
			"credits":        gorm.Expr("credits + ?", amount),
			"referral_bonus": gorm.Expr("referral_bonus + ?", amount),
		}).Error
	return ids, err
}

// RecordCreditTransactions persists ledger entries for applied payouts.
func (r *UserRepository) RecordCreditTransactions(ctx context.Context, entries []models.CreditTransaction) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}
