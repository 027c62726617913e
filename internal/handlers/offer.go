package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services"
)

const restaurantsCacheKey = "listings:restaurants-with-offers"

// OfferHandler manages surplus food offers.
type OfferHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
	cache    *services.CacheService
}

// NewOfferHandler constructs OfferHandler.
func NewOfferHandler(db *gorm.DB, telegram *services.TelegramService, cache *services.CacheService) *OfferHandler {
	return &OfferHandler{db: db, telegram: telegram, cache: cache}
}

type createOfferRequest struct {
	Food       string  `json:"food"`
	Quantity   int     `json:"quantity"`
	Unit       string  `json:"unit"`
	Price      float64 `json:"price"`
	FoodItemID string  `json:"food_item_id"`
}

// CreateOffer publishes a new offer for the authenticated restaurant.
func (h *OfferHandler) CreateOffer(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var req createOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Food == "" || req.Quantity == 0 || req.Unit == "" || req.Price == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}

	offer := models.FoodOffer{
		UserID:   userID,
		Food:     req.Food,
		Quantity: req.Quantity,
		Unit:     req.Unit,
		Price:    req.Price,
		PostedAt: time.Now(),
	}

	// A linked food item must exist and belong to this restaurant.
	if req.FoodItemID != "" {
		itemID, err := uuid.Parse(req.FoodItemID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid food_item_id")
		}

		var item models.FoodItem
		if err := h.db.First(&item, "id = ? AND restaurant_id = ?", itemID, userID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusBadRequest, "Food item not found or doesn't belong to your restaurant")
			}
			return err
		}
		offer.FoodItemID = &item.ID
	}

	if err := h.db.Create(&offer).Error; err != nil {
		return err
	}

	h.cache.Invalidate(c.Context(), restaurantsCacheKey)

	var restaurant models.User
	if err := h.db.Select("name").First(&restaurant, "id = ?", userID).Error; err == nil {
		go h.telegram.NotifyNewOffer(services.OfferNotification{
			RestaurantName: restaurant.Name,
			Food:           offer.Food,
			Quantity:       offer.Quantity,
			Unit:           offer.Unit,
			Price:          offer.Price,
			Currency:       "RON",
		})
	}

	if offer.FoodItemID != nil {
		if err := h.db.Preload("FoodItem").First(&offer, "id = ?", offer.ID).Error; err != nil {
			return err
		}
	}

	return c.JSON(fiber.Map{"success": true, "offer": offer})
}

// ListMyOffers returns the authenticated restaurant's offers, newest first.
func (h *OfferHandler) ListMyOffers(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var offers []models.FoodOffer
	if err := h.db.Preload("FoodItem").
		Where("user_id = ?", userID).
		Order("posted_at desc").
		Find(&offers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"offers": offers})
}

type deleteOfferRequest struct {
	ID string `json:"id"`
}

// DeleteOffer removes an offer owned by the authenticated restaurant.
func (h *OfferHandler) DeleteOffer(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var req deleteOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.ID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing offer ID")
	}

	offerID, err := uuid.Parse(req.ID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid offer ID")
	}

	res := h.db.Where("id = ? AND user_id = ?", offerID, userID).Delete(&models.FoodOffer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Offer not found or doesn't belong to you")
	}

	h.cache.Invalidate(c.Context(), restaurantsCacheKey)

	return c.JSON(fiber.Map{"success": true, "deletedCount": res.RowsAffected})
}

// RestaurantOffers returns one restaurant's public offer list.
func (h *OfferHandler) RestaurantOffers(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing id")
	}

	restaurantID, err := uuid.Parse(id)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var restaurant models.User
	if err := h.db.Select("id", "name", "email", "logo_url").
		First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Not found")
		}
		return err
	}

	var offers []models.FoodOffer
	if err := h.db.Preload("FoodItem").
		Where("user_id = ?", restaurantID).
		Order("posted_at desc").
		Find(&offers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"restaurant": fiber.Map{
			"id":       restaurant.ID,
			"name":     restaurant.Name,
			"email":    restaurant.Email,
			"logo_url": restaurant.LogoURL,
		},
		"offers": offers,
	})
}

type restaurantListing struct {
	ID      uuid.UUID          `json:"id"`
	Name    string             `json:"name"`
	LogoURL string             `json:"logo_url"`
	Lat     float64            `json:"lat"`
	Lng     float64            `json:"lng"`
	CropX   int                `json:"crop_x"`
	CropY   int                `json:"crop_y"`
	Offers  []models.FoodOffer `json:"offers"`
}

// RestaurantsWithOffers returns every restaurant with its offers. The
// response is cached briefly since this backs the public landing page.
func (h *OfferHandler) RestaurantsWithOffers(c *fiber.Ctx) error {
	ctx := c.Context()

	if payload, ok := h.cache.Get(ctx, restaurantsCacheKey); ok {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(payload)
	}

	var restaurants []models.User
	if err := h.db.Preload("Offers", func(db *gorm.DB) *gorm.DB {
		return db.Order("posted_at desc")
	}).Preload("Offers.FoodItem").
		Where("role = ?", models.RoleRestaurant).
		Find(&restaurants).Error; err != nil {
		return err
	}

	listings := make([]restaurantListing, 0, len(restaurants))
	for _, r := range restaurants {
		listings = append(listings, restaurantListing{
			ID:      r.ID,
			Name:    r.Name,
			LogoURL: r.LogoURL,
			Lat:     r.Lat,
			Lng:     r.Lng,
			CropX:   r.CropX,
			CropY:   r.CropY,
			Offers:  r.Offers,
		})
	}

	body := fiber.Map{"restaurants": listings}
	if payload, err := json.Marshal(body); err == nil {
		h.cache.Set(ctx, restaurantsCacheKey, payload)
	}

	return c.JSON(body)
}
