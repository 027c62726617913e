package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/utils"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type referralStat struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	PhoneVerified bool      `json:"phone_verified"`
}

// GetProfile returns the authenticated user's profile, referral stats and
// order history.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return err
	}

	// Users the current user has referred, and how many of them verified.
	var referralStats []referralStat
	if user.ReferralCode != nil {
		if err := h.db.Model(&models.User{}).
			Select("name", "email", "created_at", "phone_verified").
			Where("referred_by = ?", *user.ReferralCode).
			Find(&referralStats).Error; err != nil {
			return err
		}
	}

	verifiedReferrals := 0
	for _, stat := range referralStats {
		if stat.PhoneVerified {
			verifiedReferrals++
		}
	}

	var orders []models.Order
	if err := h.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("placed_at desc").
		Limit(20).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"phone":              user.Phone,
			"phone_verified":     user.PhoneVerified,
			"credits":            user.Credits,
			"referral_code":      user.ReferralCode,
			"referred_by":        user.ReferredBy,
			"referral_bonus":     user.ReferralBonus,
			"has_used_referral":  user.HasUsedReferral,
			"created_at":         user.CreatedAt,
			"logo_url":           user.LogoURL,
			"crop_x":             user.CropX,
			"crop_y":             user.CropY,
			"total_referrals":    len(referralStats),
			"verified_referrals": verifiedReferrals,
		},
		"referralStats": referralStats,
		"orderHistory":  orders,
	})
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UpdateProfile updates name and phone. A phone change resets verification,
// forcing the user back through the SMS flow.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
		updates["phone_verified"] = false
	}
	if len(updates) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}
	updates["updated_at"] = time.Now()

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return err
	}

	message := "Profile updated successfully"
	if req.Phone != "" {
		message = "Phone updated. Please verify your new number."
	}

	return c.JSON(fiber.Map{"success": true, "message": message})
}

// ListCreditTransactions returns the paginated credit ledger.
func (h *ProfileHandler) ListCreditTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.CreditTransaction{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var items []models.CreditTransaction
	if err := query.Order("occurred_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
