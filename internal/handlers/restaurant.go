package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services"
)

// RestaurantHandler manages restaurant settings.
type RestaurantHandler struct {
	db    *gorm.DB
	cloud *services.CloudinaryService
	cache *services.CacheService
}

// NewRestaurantHandler constructs RestaurantHandler.
func NewRestaurantHandler(db *gorm.DB, cloud *services.CloudinaryService, cache *services.CacheService) *RestaurantHandler {
	return &RestaurantHandler{db: db, cloud: cloud, cache: cache}
}

// GetSettings returns the restaurant's public presentation settings.
func (h *RestaurantHandler) GetSettings(c *fiber.Ctx) error {
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

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"name":     user.Name,
			"email":    user.Email,
			"lat":      user.Lat,
			"lng":      user.Lng,
			"logo_url": user.LogoURL,
			"crop_x":   user.CropX,
			"crop_y":   user.CropY,
		},
	})
}

// UpdateSettings updates name, coordinates and logo from a multipart form.
func (h *RestaurantHandler) UpdateSettings(c *fiber.Ctx) error {
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

	logoURL := user.LogoURL
	if file, err := c.FormFile("image"); err == nil && file.Size > 0 {
		if h.cloud == nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to upload image")
		}

		src, err := file.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read image")
		}
		defer src.Close()

		url, err := h.cloud.UploadRestaurantLogo(c.Context(), src, fmt.Sprintf("restaurant-%s", userID))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to upload image")
		}
		logoURL = url
	}

	cropX, _ := strconv.Atoi(c.FormValue("cropX", "0"))
	cropY, _ := strconv.Atoi(c.FormValue("cropY", "0"))

	updates := map[string]interface{}{
		"logo_url":   logoURL,
		"crop_x":     cropX,
		"crop_y":     cropY,
		"updated_at": time.Now(),
	}
	if name := c.FormValue("name"); name != "" {
		updates["name"] = name
	}
	if lat := c.FormValue("lat"); lat != "" {
		if parsed, err := strconv.ParseFloat(lat, 64); err == nil {
			updates["lat"] = parsed
		}
	}
	if lng := c.FormValue("lng"); lng != "" {
		if parsed, err := strconv.ParseFloat(lng, 64); err == nil {
			updates["lng"] = parsed
		}
	}

	if err := h.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return err
	}

	h.cache.Invalidate(c.Context(), restaurantsCacheKey)

	return c.JSON(fiber.Map{
		"success":  true,
		"logo_url": logoURL,
		"crop_x":   cropX,
		"crop_y":   cropY,
	})
}
