package verification

import "errors"

// Sentinel errors surfaced to the HTTP layer. The messages are user-facing.
var (
	ErrPhoneRequired        = errors.New("Phone number required")
	ErrInvalidPhoneFormat   = errors.New("Invalid phone number format. Please include country code (e.g., +40...)")
	ErrPhoneAlreadyClaimed  = errors.New("This phone number is already verified by another account")
	ErrInvalidReferralCode  = errors.New("Invalid referral code")
	ErrCodeRequired         = errors.New("Verification code required")
	ErrInvalidOrExpiredCode = errors.New("Invalid or expired verification code")
	ErrSMSDeliveryFailed    = errors.New("Failed to send SMS. Please try again.")
	ErrUserNotFound         = errors.New("User not found")
)
