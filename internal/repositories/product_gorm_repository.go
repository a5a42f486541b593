package repositories

import (
	"context"
	"errors"
	"fmt"

	"catalog/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetAll retrieves all products from the database ordered by ID.
func (r *GORMProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0)
	if err := r.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to get all products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %d: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %d: %w", id, err)
	}
	return &product, nil
}

// Create inserts a new product; the database assigns the ID.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update writes only the supplied columns, then reloads the row into product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product, changes models.ProductChanges) error {
	db := r.db.WithContext(ctx)

	if !changes.IsEmpty() {
		// Updates with a map keeps zero values such as quantity 0.
		res := db.Model(&models.Product{ID: product.ID}).Updates(changes.Columns())
		if res.Error != nil {
			return fmt.Errorf("failed to update product %d: %w", product.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product with ID %d not updated: %w", product.ID, ErrProductNotFound)
		}
	}

	var fresh models.Product
	if err := db.First(&fresh, product.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product with ID %d: %w", product.ID, ErrProductNotFound)
		}
		return fmt.Errorf("failed to reload product %d: %w", product.ID, err)
	}
	*product = fresh
	return nil
}

// Delete permanently removes the product row.
func (r *GORMProductRepository) Delete(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, product.ID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product %d: %w", product.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %d not deleted: %w", product.ID, ErrProductNotFound)
	}
	return nil
}
