package models

import (
	"time"
)

// User roles.
const (
	RoleCustomer   = "CUSTOMER"
	RoleRestaurant = "RESTAURANT"
)

// User represents a customer or a restaurant account. Restaurants carry the
// presentation fields (logo, coordinates); customers carry referral and
// phone-verification state.
type User struct {
	BaseModel
	Email        string `gorm:"uniqueIndex" json:"email"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	Role         string `gorm:"default:CUSTOMER" json:"role"`

	// Phone verification. Code and expiry are set together on each send
	// request and cleared together on successful confirmation.
	Phone                   string     `json:"phone"`
	PhoneVerified           bool       `json:"phone_verified"`
	PhoneVerificationCode   *string    `json:"-"`
	PhoneVerificationExpiry *time.Time `json:"-"`

	// Referral program. ReferralCode is allocated lazily, either at first
	// Google sign-in or at successful phone verification. ReferredBy holds
	// another user's referral code, validated by lookup when entered.
	ReferralCode    *string `gorm:"uniqueIndex" json:"referral_code"`
	ReferredBy      *string `json:"referred_by"`
	HasUsedReferral bool    `json:"has_used_referral"`
	Credits         float64 `json:"credits"`
	ReferralBonus   float64 `json:"referral_bonus"`

	// Restaurant presentation.
	LogoURL string  `json:"logo_url"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	CropX   int     `json:"crop_x"`
	CropY   int     `json:"crop_y"`

	FoodItems []FoodItem  `gorm:"foreignKey:RestaurantID" json:"food_items,omitempty"`
	Offers    []FoodOffer `gorm:"foreignKey:UserID" json:"offers,omitempty"`
}
