package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/config"
	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services/referral"
	"github.com/example/zerowaste/internal/utils"
)

// GoogleOAuthHandler implements Google sign-in for customers.
type GoogleOAuthHandler struct {
	db        *gorm.DB
	cfg       *config.Config
	allocator *referral.Allocator
}

// NewGoogleOAuthHandler constructs a GoogleOAuthHandler.
func NewGoogleOAuthHandler(db *gorm.DB, cfg *config.Config, allocator *referral.Allocator) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{db: db, cfg: cfg, allocator: allocator}
}

func (h *GoogleOAuthHandler) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleRedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// Redirect sends the user to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *fiber.Ctx) error {
	if h.cfg.GoogleClientID == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Google sign-in not configured")
	}
	return c.Redirect(h.oauthConfig().AuthCodeURL("state", oauth2.AccessTypeOffline), fiber.StatusFound)
}

type googleUserInfo struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Callback exchanges the authorization code, creates the customer account on
// first sign-in (allocating their referral code) and returns a JWT.
func (h *GoogleOAuthHandler) Callback(c *fiber.Ctx) error {
	if h.cfg.GoogleClientID == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Google sign-in not configured")
	}

	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing code")
	}

	ctx := c.Context()
	conf := h.oauthConfig()

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "code exchange failed")
	}

	resp, err := conf.Client(ctx, tok).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil || resp.StatusCode != http.StatusOK {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch user info")
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.Email == "" {
		return fiber.NewError(fiber.StatusInternalServerError, "invalid user info")
	}

	var user models.User
	err = h.db.Where("email = ?", info.Email).First(&user).Error
	switch {
	case err == gorm.ErrRecordNotFound:
		user = models.User{
			Email: info.Email,
			Name:  info.Name,
			Role:  models.RoleCustomer,
		}
		// Referral codes are allocated at first Google sign-in; phone
		// verification backfills them for everyone else.
		if ownCode, allocErr := h.allocator.Allocate(ctx, info.Email); allocErr == nil {
			user.ReferralCode = &ownCode
		} else {
			log.Printf("referral code allocation at sign-in failed: %v", allocErr)
		}
		if err := h.db.Create(&user).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user.ID, user.Role, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":            user.ID,
			"name":          user.Name,
			"email":         user.Email,
			"role":          user.Role,
			"referral_code": user.ReferralCode,
		},
		"token": token,
	})
}
