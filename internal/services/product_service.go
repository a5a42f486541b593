package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog/internal/apperrors"
	"catalog/internal/models"
	"catalog/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher delivers catalog events to a message broker.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	publisher EventPublisher
	log       *zap.Logger
}

// NewProductService creates a new ProductService. publisher may be nil, in
// which case no events are emitted.
func NewProductService(repo repositories.ProductRepository, publisher EventPublisher, log *zap.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, classify("list", err)
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, classify("get", err)
	}
	return product, nil
}

// CreateProduct stores a new product; the store assigns its ID.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.repo.Create(ctx, product); err != nil {
		return classify("create", err)
	}
	s.publish(models.EventProductCreated, product.ID, product)
	return nil
}

// UpdateProduct applies changes to product. On return product holds the
// persisted values.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product, changes models.ProductChanges) error {
	if err := s.repo.Update(ctx, product, changes); err != nil {
		return classify("update", err)
	}
	s.publish(models.EventProductUpdated, product.ID, product)
	return nil
}

// DeleteProduct permanently removes product.
func (s *ProductService) DeleteProduct(ctx context.Context, product *models.Product) error {
	if err := s.repo.Delete(ctx, product); err != nil {
		return classify("delete", err)
	}
	s.publish(models.EventProductDeleted, product.ID, nil)
	return nil
}

// classify maps repository failures onto the API error kinds.
func classify(op string, err error) error {
	if errors.Is(err, repositories.ErrProductNotFound) {
		return fmt.Errorf("%w: %w", apperrors.ErrNotFound, err)
	}
	return &apperrors.StoreError{Op: op, Err: err}
}

// publish sends a catalog event. Failures are logged and never returned.
func (s *ProductService) publish(eventType string, productID uint, product *models.Product) {
	if s.publisher == nil {
		return
	}

	event := models.ProductEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		ProductID:  productID,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.log.Error("failed to marshal product event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(eventType, body); err != nil {
		s.log.Warn("failed to publish product event",
			zap.String("type", eventType),
			zap.Uint("product_id", productID),
			zap.Error(err),
		)
		return
	}
	s.log.Debug("published product event", zap.String("type", eventType), zap.String("event_id", event.EventID))
}
