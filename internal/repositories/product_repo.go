package repositories

import (
	"context"
	"errors"

	"catalog/internal/models"
)

// ErrProductNotFound is returned when no product has the requested ID.
var ErrProductNotFound = errors.New("product not found")

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	// Create stores product and sets its ID.
	Create(ctx context.Context, product *models.Product) error
	// Update applies changes to the stored product and refreshes product
	// with the persisted values.
	Update(ctx context.Context, product *models.Product, changes models.ProductChanges) error
	Delete(ctx context.Context, product *models.Product) error
}
