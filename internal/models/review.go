package models

import (
	"github.com/google/uuid"
)

// Review is a customer rating of a restaurant.
type Review struct {
	BaseModel
	RestaurantID uuid.UUID `gorm:"type:uuid;index" json:"restaurant_id"`
	CustomerID   uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Customer     *User     `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
}
