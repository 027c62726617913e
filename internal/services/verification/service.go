package verification

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/zerowaste/internal/models"
)

// Permissive E.164 shape: "+", non-zero leading digit, 2-15 digits total.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// Config tunes the verification workflow.
type Config struct {
	CodeTTL       time.Duration
	RefereeBonus  float64
	ReferrerBonus float64
	Currency      string
	// EchoCodeOnFailure returns the code to the caller when SMS delivery
	// fails instead of surfacing an error. Enabled outside production only.
	EchoCodeOnFailure bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CodeTTL:       10 * time.Minute,
		RefereeBonus:  25.00,
		ReferrerBonus: 15.00,
		Currency:      "RON",
	}
}

// Service implements the phone verification and referral bonus workflow.
type Service struct {
	users     UserRepository
	sender    Sender
	allocator CodeAllocator
	cfg       Config
	now       func() time.Time
}

// NewService constructs a Service.
func NewService(users UserRepository, sender Sender, allocator CodeAllocator, cfg Config) *Service {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	return &Service{
		users:     users,
		sender:    sender,
		allocator: allocator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SendResult is the outcome of a send-code request.
type SendResult struct {
	// DevCode carries the verification code when delivery failed and the
	// echo fallback is enabled. Empty otherwise.
	DevCode string
}

// SendCode validates the phone and optional referral code, stages a pending
// verification on the user row and attempts SMS delivery. The pending code is
// persisted before delivery is attempted, so a stored code can exist even if
// the SMS never went out.
func (s *Service) SendCode(ctx context.Context, userID uuid.UUID, phone, referralCode string) (*SendResult, error) {
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhoneFormat
	}

	claimed, err := s.users.IsPhoneClaimed(ctx, phone, userID)
	if err != nil {
		return nil, fmt.Errorf("phone claim lookup: %w", err)
	}
	if claimed {
		return nil, ErrPhoneAlreadyClaimed
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}
	expiry := s.now().Add(s.cfg.CodeTTL)

	var referredBy *string
	if referralCode != "" {
		exists, err := s.users.ReferralCodeExists(ctx, referralCode)
		if err != nil {
			return nil, fmt.Errorf("referral code lookup: %w", err)
		}
		if !exists {
			return nil, ErrInvalidReferralCode
		}
		referredBy = &referralCode
	}

	if err := s.users.StageVerification(ctx, userID, phone, code, expiry, referredBy); err != nil {
		return nil, fmt.Errorf("stage verification: %w", err)
	}

	message := fmt.Sprintf("Your ZeroWaste verification code is: %s. Valid for 10 minutes.", code)
	if err := s.sender.Send(ctx, phone, message); err != nil {
		log.Printf("sms delivery failed for user %s: %v", userID, err)
		if s.cfg.EchoCodeOnFailure {
			return &SendResult{DevCode: code}, nil
		}
		return nil, ErrSMSDeliveryFailed
	}

	return &SendResult{}, nil
}

// ConfirmResult is the outcome of a successful confirmation.
type ConfirmResult struct {
	BonusAmount  float64
	BonusMessage string
	ReferralCode string
}

// ConfirmCode validates the submitted code and, on success, marks the phone
// verified, applies referral payouts at most once and backfills the user's
// own referral code. Finalization is a conditional update so concurrent
// confirmations with the same code cannot both pay out.
func (s *Service) ConfirmCode(ctx context.Context, userID uuid.UUID, code string) (*ConfirmResult, error) {
	if code == "" {
		return nil, ErrCodeRequired
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := s.now()
	if user.PhoneVerificationCode == nil ||
		*user.PhoneVerificationCode != code ||
		user.PhoneVerificationExpiry == nil ||
		!user.PhoneVerificationExpiry.After(now) {
		return nil, ErrInvalidOrExpiredCode
	}

	var bonusAmount float64
	var bonusMessage string
	if user.ReferredBy != nil && !user.HasUsedReferral {
		bonusAmount = s.cfg.RefereeBonus
		bonusMessage = fmt.Sprintf("Welcome! You received %.2f %s bonus from referral!", bonusAmount, s.cfg.Currency)
	}

	ownCode := ""
	if user.ReferralCode != nil {
		ownCode = *user.ReferralCode
	} else {
		ownCode, err = s.allocator.Allocate(ctx, user.Email)
		if err != nil {
			return nil, fmt.Errorf("allocate referral code: %w", err)
		}
	}

	won, err := s.users.FinalizeVerification(ctx, Finalization{
		UserID:       userID,
		Code:         code,
		Now:          now,
		BonusAmount:  bonusAmount,
		ReferralCode: ownCode,
	})
	if err != nil {
		return nil, fmt.Errorf("finalize verification: %w", err)
	}
	if !won {
		// A concurrent confirmation already consumed the code.
		return nil, ErrInvalidOrExpiredCode
	}

	if bonusAmount > 0 {
		referrerIDs, err := s.users.CreditReferrers(ctx, *user.ReferredBy, s.cfg.ReferrerBonus)
		if err != nil {
			return nil, fmt.Errorf("credit referrer: %w", err)
		}
		s.recordPayouts(ctx, user, bonusAmount, referrerIDs)
	}

	return &ConfirmResult{
		BonusAmount:  bonusAmount,
		BonusMessage: bonusMessage,
		ReferralCode: ownCode,
	}, nil
}

// recordPayouts writes ledger entries for both sides of a referral payout.
// Ledger writes are best effort; a failure here never unwinds the payout.
func (s *Service) recordPayouts(ctx context.Context, user *models.User, refereeBonus float64, referrerIDs []uuid.UUID) {
	occurredAt := s.now()
	entries := []models.CreditTransaction{{
		UserID:            user.ID,
		TransactionNumber: newTransactionNumber(),
		Type:              models.CreditTypeRefereeBonus,
		Amount:            refereeBonus,
		Currency:          s.cfg.Currency,
		Description:       fmt.Sprintf("Referral welcome bonus (code %s)", *user.ReferredBy),
		OccurredAt:        occurredAt,
	}}

	for _, id := range referrerIDs {
		entries = append(entries, models.CreditTransaction{
			UserID:            id,
			TransactionNumber: newTransactionNumber(),
			Type:              models.CreditTypeReferrerBonus,
			Amount:            s.cfg.ReferrerBonus,
			Currency:          s.cfg.Currency,
			Description:       fmt.Sprintf("Referral bonus for inviting %s", user.Email),
			OccurredAt:        occurredAt,
		})
	}

	if err := s.users.RecordCreditTransactions(ctx, entries); err != nil {
		log.Printf("failed to record credit transactions: %v", err)
	}
}

// generateCode draws a 6-digit code uniformly from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func newTransactionNumber() string {
	return "CT-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}
