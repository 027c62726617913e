package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// FoodItem is a dish a restaurant has registered once, with nutrition facts
// and an optional hosted image. Offers may link back to it.
type FoodItem struct {
	BaseModel
	RestaurantID uuid.UUID      `gorm:"type:uuid;index" json:"restaurant_id"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	ImageURL     string         `json:"image_url"`
	Category     string         `gorm:"index" json:"category"`
	Ingredients  pq.StringArray `gorm:"type:text[]" json:"ingredients"`
	Allergens    pq.StringArray `gorm:"type:text[]" json:"allergens"`
	Calories     float64        `json:"calories"`
	Protein      float64        `json:"protein"`
	Carbs        float64        `json:"carbs"`
	Fat          float64        `json:"fat"`
	Fiber        float64        `json:"fiber"`
	Sugar        float64        `json:"sugar"`
	Sodium       float64        `json:"sodium"`

	Offers []FoodOffer `gorm:"foreignKey:FoodItemID" json:"offers,omitempty"`
}

// FoodOffer is a surplus-food listing published by a restaurant.
type FoodOffer struct {
	BaseModel
	UserID     uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	FoodItemID *uuid.UUID `gorm:"type:uuid" json:"food_item_id"`
	FoodItem   *FoodItem  `json:"food_item,omitempty"`
	Food       string     `json:"food"`
	Quantity   int        `json:"quantity"`
	Unit       string     `json:"unit"`
	Price      float64    `json:"price"`
	PostedAt   time.Time  `json:"posted_at"`
}
