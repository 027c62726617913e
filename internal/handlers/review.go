package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/models"
)

// ReviewHandler manages restaurant reviews.
type ReviewHandler struct {
	db *gorm.DB
}

// NewReviewHandler constructs ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{db: db}
}

type reviewResponse struct {
	ID           uuid.UUID `json:"id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CustomerName string    `json:"customer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListReviews returns a restaurant's reviews with the rating summary.
func (h *ReviewHandler) ListReviews(c *fiber.Ctx) error {
	restaurantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Restaurant ID required")
	}

	restaurant, summary, reviews, err := h.reviewSummary(restaurantID)
	if err != nil {
		return err
	}
	if restaurant == nil {
		return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
	}

	return c.JSON(fiber.Map{
		"restaurant": summary,
		"reviews":    reviews,
	})
}

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateReview posts a customer review and returns the refreshed summary.
func (h *ReviewHandler) CreateReview(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
	}

	restaurantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Restaurant ID required")
	}

	var req createReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Rating == 0 || req.Comment == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing required fields")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fiber.NewError(fiber.StatusBadRequest, "Rating must be between 1 and 5")
	}

	var restaurant models.User
	if err := h.db.First(&restaurant, "id = ? AND role = ?", restaurantID, models.RoleRestaurant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "Restaurant not found")
		}
		return err
	}

	review := models.Review{
		RestaurantID: restaurantID,
		CustomerID:   userID,
		Rating:       req.Rating,
		Comment:      req.Comment,
	}
	if err := h.db.Create(&review).Error; err != nil {
		return err
	}

	_, summary, reviews, err := h.reviewSummary(restaurantID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"restaurant": summary,
		"reviews":    reviews,
	})
}

func (h *ReviewHandler) reviewSummary(restaurantID uuid.UUID) (*models.User, fiber.Map, []reviewResponse, error) {
	var restaurant models.User
	if err := h.db.Select("name", "logo_url").First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, err
	}

	var reviews []models.Review
	if err := h.db.Preload("Customer").
		Where("restaurant_id = ?", restaurantID).
		Order("created_at desc").
		Find(&reviews).Error; err != nil {
		return nil, nil, nil, err
	}

	var ratingSum int
	responses := make([]reviewResponse, 0, len(reviews))
	for _, review := range reviews {
		ratingSum += review.Rating

		customerName := "Anonymous"
		if review.Customer != nil && review.Customer.Name != "" {
			customerName = review.Customer.Name
		}

		responses = append(responses, reviewResponse{
			ID:           review.ID,
			Rating:       review.Rating,
			Comment:      review.Comment,
			CustomerName: customerName,
			CreatedAt:    review.CreatedAt,
		})
	}

	averageRating := 0.0
	if len(reviews) > 0 {
		averageRating = float64(ratingSum) / float64(len(reviews))
	}

	summary := fiber.Map{
		"name":          restaurant.Name,
		"logo_url":      restaurant.LogoURL,
		"averageRating": averageRating,
		"totalReviews":  len(reviews),
	}

	return &restaurant, summary, responses, nil
}
