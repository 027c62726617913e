package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services"
)

// FoodHandler manages a restaurant's registered food items.
type FoodHandler struct {
	db    *gorm.DB
	cloud *services.CloudinaryService
}

// NewFoodHandler constructs FoodHandler.
func NewFoodHandler(db *gorm.DB, cloud *services.CloudinaryService) *FoodHandler {
	return &FoodHandler{db: db, cloud: cloud}
}

// RegisterFoodItem creates a food item from a multipart form, uploading the
// optional image to the asset host.
func (h *FoodHandler) RegisterFoodItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	name := c.FormValue("name")
	category := c.FormValue("category")
	if name == "" || category == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name and category are required")
	}

	item := models.FoodItem{
		RestaurantID: userID,
		Name:         name,
		Description:  c.FormValue("description"),
		Category:     category,
		Ingredients:  parseJSONList(c.FormValue("ingredients")),
		Allergens:    parseJSONList(c.FormValue("allergens")),
		Calories:     parseFloat(c.FormValue("calories")),
		Protein:      parseFloat(c.FormValue("protein")),
		Carbs:        parseFloat(c.FormValue("carbs")),
		Fat:          parseFloat(c.FormValue("fat")),
		Fiber:        parseFloat(c.FormValue("fiber")),
		Sugar:        parseFloat(c.FormValue("sugar")),
		Sodium:       parseFloat(c.FormValue("sodium")),
	}

	if file, err := c.FormFile("image"); err == nil && file.Size > 0 {
		if h.cloud == nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to upload image")
		}

		src, err := file.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read image")
		}
		defer src.Close()

		publicID := fmt.Sprintf("food-%s-%d", userID, time.Now().UnixMilli())
		url, err := h.cloud.UploadFoodImage(c.Context(), src, publicID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Failed to upload image")
		}
		item.ImageURL = url
	}

	if err := h.db.Create(&item).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"foodItem": fiber.Map{
			"id":        item.ID,
			"name":      item.Name,
			"category":  item.Category,
			"image_url": item.ImageURL,
		},
	})
}

// ListFoodItems returns all food items registered by the restaurant.
func (h *FoodHandler) ListFoodItems(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var items []models.FoodItem
	if err := h.db.Where("restaurant_id = ?", userID).
		Order("created_at desc").
		Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"foodItems": items})
}

type registeredFoodItem struct {
	models.FoodItem
	ActiveOffers int64 `json:"active_offers"`
}

// SearchRegisteredFood filters the restaurant's catalog by category and free
// text, annotating each item with its current offer count.
func (h *FoodHandler) SearchRegisteredFood(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	query := h.db.Where("restaurant_id = ?", userID)

	if category := c.Query("category"); category != "" && category != "All" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ? OR ? = ANY(ingredients)", pattern, pattern, search)
	}

	var items []models.FoodItem
	if err := query.Order("category asc").Order("name asc").Find(&items).Error; err != nil {
		return err
	}

	results := make([]registeredFoodItem, 0, len(items))
	for _, item := range items {
		var count int64
		if err := h.db.Model(&models.FoodOffer{}).
			Where("food_item_id = ?", item.ID).
			Count(&count).Error; err != nil {
			return err
		}
		results = append(results, registeredFoodItem{FoodItem: item, ActiveOffers: count})
	}

	return c.JSON(fiber.Map{"foodItems": results})
}

func parseJSONList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

func parseFloat(raw string) float64 {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}
