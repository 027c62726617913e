package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/services/verification"
)

// VerificationHandler exposes the phone verification workflow over HTTP.
type VerificationHandler struct {
	svc *verification.Service
}

// NewVerificationHandler constructs a VerificationHandler.
func NewVerificationHandler(svc *verification.Service) *VerificationHandler {
	return &VerificationHandler{svc: svc}
}

type sendCodeRequest struct {
	Phone        string `json:"phone"`
	ReferralCode string `json:"referralCode"`
}

// SendCode handles POST /phone-verification/send.
func (h *VerificationHandler) SendCode(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var req sendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.SendCode(c.Context(), userID, req.Phone, req.ReferralCode)
	if err != nil {
		return mapVerificationError(err, "Failed to send verification code")
	}

	if result.DevCode != "" {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "SMS service unavailable. Your verification code is:",
			"devCode": result.DevCode,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Verification code sent to your phone",
	})
}

type confirmCodeRequest struct {
	Code string `json:"code"`
}

// ConfirmCode handles PATCH /phone-verification/confirm.
func (h *VerificationHandler) ConfirmCode(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var req confirmCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.ConfirmCode(c.Context(), userID, req.Code)
	if err != nil {
		return mapVerificationError(err, "Failed to verify phone")
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Phone verified successfully!",
		"bonusMessage": result.BonusMessage,
		"bonusAmount":  result.BonusAmount,
		"referralCode": result.ReferralCode,
	})
}

// mapVerificationError translates workflow sentinels into HTTP errors,
// hiding internal detail behind a generic message for everything else.
func mapVerificationError(err error, fallback string) error {
	switch {
	case errors.Is(err, verification.ErrPhoneRequired),
		errors.Is(err, verification.ErrInvalidPhoneFormat),
		errors.Is(err, verification.ErrPhoneAlreadyClaimed),
		errors.Is(err, verification.ErrInvalidReferralCode),
		errors.Is(err, verification.ErrCodeRequired),
		errors.Is(err, verification.ErrInvalidOrExpiredCode):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, verification.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, verification.ErrSMSDeliveryFailed):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}
