package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/zerowaste/internal/config"
	"github.com/example/zerowaste/internal/handlers"
	"github.com/example/zerowaste/internal/middleware"
	"github.com/example/zerowaste/internal/repository"
	"github.com/example/zerowaste/internal/services"
	"github.com/example/zerowaste/internal/services/referral"
	"github.com/example/zerowaste/internal/services/verification"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	users := repository.NewUserRepository(db)
	allocator := referral.NewAllocator(users)

	sms := services.NewTwilioService(services.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		FromNumber: cfg.TwilioFromNumber,
		Skip:       cfg.SkipSMS && !cfg.IsProduction(),
	})

	verificationCfg := verification.DefaultConfig()
	verificationCfg.EchoCodeOnFailure = !cfg.IsProduction()
	verificationSvc := verification.NewService(users, sms, allocator, verificationCfg)

	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	cache := services.NewCacheService(cfg.RedisURL, 2*time.Minute)

	cloud, err := services.NewCloudinaryService(services.CloudinaryConfig{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
	})
	if err != nil {
		log.Printf("image uploads disabled: %v", err)
	}

	authHandler := handlers.NewAuthHandler(db, cfg)
	oauthHandler := handlers.NewGoogleOAuthHandler(db, cfg, allocator)
	verificationHandler := handlers.NewVerificationHandler(verificationSvc)
	profileHandler := handlers.NewProfileHandler(db)
	offerHandler := handlers.NewOfferHandler(db, telegram, cache)
	foodHandler := handlers.NewFoodHandler(db, cloud)
	reviewHandler := handlers.NewReviewHandler(db)
	restaurantHandler := handlers.NewRestaurantHandler(db, cloud, cache)
	orderHandler := handlers.NewOrderHandler(db, telegram)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/google", oauthHandler.Redirect)
	auth.Get("/google/callback", oauthHandler.Callback)

	// Public listing routes
	api.Get("/restaurants-with-offers", offerHandler.RestaurantsWithOffers)
	api.Get("/restaurant-offers", offerHandler.RestaurantOffers)
	api.Get("/reviews/:id", reviewHandler.ListReviews)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/auth/user-status", authHandler.UserStatus)

	phone := protected.Group("/phone-verification")
	phone.Post("/send", verificationHandler.SendCode)
	phone.Patch("/confirm", verificationHandler.ConfirmCode)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Patch("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/credits", profileHandler.ListCreditTransactions)

	protected.Post("/reviews/:id", reviewHandler.CreateReview)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)

	// Restaurant-only routes
	restaurant := protected.Group("", middleware.RequireRestaurant())
	restaurant.Post("/food-offers", offerHandler.CreateOffer)
	restaurant.Get("/food-offers", offerHandler.ListMyOffers)
	restaurant.Delete("/food-offers", offerHandler.DeleteOffer)

	restaurant.Post("/register-food", foodHandler.RegisterFoodItem)
	restaurant.Get("/register-food", foodHandler.ListFoodItems)
	restaurant.Get("/registered-food", foodHandler.SearchRegisteredFood)

	restaurant.Get("/restaurant/settings", restaurantHandler.GetSettings)
	restaurant.Patch("/restaurant/settings", restaurantHandler.UpdateSettings)
}
