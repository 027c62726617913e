package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/models"
	"github.com/example/zerowaste/internal/services"
)

// OrderHandler manages pickup orders placed from the cart.
type OrderHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB, telegram *services.TelegramService) *OrderHandler {
	return &OrderHandler{db: db, telegram: telegram}
}

type orderItemRequest struct {
	OfferID  string `json:"offer_id"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Items      []orderItemRequest `json:"items"`
	PickupTime string             `json:"pickup_time"`
	Notes      string             `json:"notes"`
}

// CreateOrder places a pickup order against a single restaurant's offers.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order has no items")
	}

	order := models.Order{
		UserID:      userID,
		OrderNumber: newOrderNumber(),
		Status:      "pending",
		PlacedAt:    time.Now(),
		PickupTime:  req.PickupTime,
		Currency:    "RON",
		Notes:       req.Notes,
	}

	var subtotal float64
	var restaurantID uuid.UUID
	for _, item := range req.Items {
		offerID, err := uuid.Parse(item.OfferID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid offer_id")
		}
		if item.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid quantity")
		}

		var offer models.FoodOffer
		if err := h.db.First(&offer, "id = ?", offerID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fiber.NewError(fiber.StatusBadRequest, "offer not found")
			}
			return err
		}

		if restaurantID == uuid.Nil {
			restaurantID = offer.UserID
		} else if restaurantID != offer.UserID {
			return fiber.NewError(fiber.StatusBadRequest, "all items must belong to the same restaurant")
		}

		lineTotal := offer.Price * float64(item.Quantity)
		subtotal += lineTotal
		order.Items = append(order.Items, models.OrderItem{
			OfferID:   &offer.ID,
			FoodName:  offer.Food,
			Quantity:  item.Quantity,
			UnitPrice: offer.Price,
			LineTotal: lineTotal,
		})
	}

	var restaurant models.User
	if err := h.db.Select("id", "name").First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		return err
	}

	order.RestaurantID = restaurant.ID
	order.RestaurantName = restaurant.Name
	order.Subtotal = subtotal
	order.TotalAmount = subtotal

	if err := h.db.Create(&order).Error; err != nil {
		return err
	}

	var customer models.User
	if err := h.db.Select("name", "email").First(&customer, "id = ?", userID).Error; err == nil {
		notification := services.OrderNotification{
			OrderNumber:    order.OrderNumber,
			RestaurantName: order.RestaurantName,
			CustomerName:   customer.Name,
			TotalAmount:    order.TotalAmount,
			Currency:       order.Currency,
			PickupTime:     order.PickupTime,
		}
		for _, item := range order.Items {
			notification.Items = append(notification.Items, services.OrderItemNotification{
				Name:     item.FoodName,
				Quantity: item.Quantity,
				Price:    item.UnitPrice,
			})
		}
		go h.telegram.NotifyNewOrder(notification)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "order": order})
}

// ListOrders returns the authenticated user's order history, newest first.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	var orders []models.Order
	if err := h.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("placed_at desc").
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"orders": orders})
}

func newOrderNumber() string {
	return "ZW-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:10])
}
