package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit transaction types.
const (
	CreditTypeRefereeBonus  = "referral_referee"
	CreditTypeReferrerBonus = "referral_referrer"
)

// CreditTransaction is a ledger entry recording a credit movement on a user
// balance. The referral workflow writes one entry per payout.
type CreditTransaction struct {
	BaseModel
	UserID            uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	TransactionNumber string    `gorm:"uniqueIndex" json:"transaction_number"`
	Type              string    `json:"type"`
	Amount            float64   `json:"amount"`
	Currency          string    `json:"currency"`
	Description       string    `json:"description"`
	OccurredAt        time.Time `json:"occurred_at"`
}
