package services

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryConfig holds asset-host credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

// CloudinaryService uploads food images and restaurant logos to Cloudinary.
type CloudinaryService struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryService constructs a CloudinaryService. Returns an error when
// credentials are missing or malformed.
func NewCloudinaryService(cfg CloudinaryConfig) (*CloudinaryService, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not configured")
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &CloudinaryService{client: client}, nil
}

// UploadFoodImage stores a food-item image, cropped square for the listing UI.
func (s *CloudinaryService) UploadFoodImage(ctx context.Context, file io.Reader, publicID string) (string, error) {
	result, err := s.client.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         "food-items",
		PublicID:       publicID,
		Transformation: "w_400,h_400,c_fill,q_auto",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return result.SecureURL, nil
}

// UploadRestaurantLogo stores (and overwrites) a restaurant's logo.
func (s *CloudinaryService) UploadRestaurantLogo(ctx context.Context, file io.Reader, publicID string) (string, error) {
	result, err := s.client.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         "restaurant-logos",
		PublicID:       publicID,
		Overwrite:      api.Bool(true),
		Transformation: "w_1000,h_1000,c_fill,q_auto",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return result.SecureURL, nil
}
