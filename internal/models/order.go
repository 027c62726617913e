package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is a pickup order placed by a customer against a restaurant's offers.
type Order struct {
	BaseModel
	UserID         uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	RestaurantID   uuid.UUID   `gorm:"type:uuid;index" json:"restaurant_id"`
	RestaurantName string      `json:"restaurant_name"`
	OrderNumber    string      `gorm:"uniqueIndex" json:"order_number"`
	Status         string      `json:"status"`
	PlacedAt       time.Time   `json:"placed_at"`
	PickupTime     string      `json:"pickup_time"`
	Subtotal       float64     `json:"subtotal"`
	CreditsUsed    float64     `json:"credits_used"`
	TotalAmount    float64     `json:"total_amount"`
	Currency       string      `json:"currency"`
	Notes          string      `json:"notes"`
	Items          []OrderItem `json:"items,omitempty"`
}

// OrderItem is a single offer line inside an order.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	OfferID   *uuid.UUID `gorm:"type:uuid" json:"offer_id"`
	FoodName  string     `json:"food_name"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unit_price"`
	LineTotal float64    `json:"line_total"`
}
