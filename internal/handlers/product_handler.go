package handlers

import (
	"fmt"
	"strconv"

	"catalog/internal/apperrors"
	"catalog/internal/models"
	"catalog/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	log      *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the product routes on router.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Post("/", h.HandleCreateProduct)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", h.HandleUpdateProduct)
	productRoutes.Patch("/:id", h.HandleUpdateProduct)
	productRoutes.Delete("/:id", h.HandleDeleteProduct)
}

// HandleGetProducts lists every product.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts(c.UserContext())
	if err != nil {
		return h.writeError(c, err, "retrieve")
	}
	return c.Status(fiber.StatusOK).JSON(products)
}

// HandleGetProductByID returns a single product.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.lookupProduct(c)
	if err != nil {
		return h.writeError(c, err, "retrieve")
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// HandleCreateProduct validates the payload and stores a new product.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	raw, err := decodeBody(c.Body())
	if err != nil {
		return writeBadBody(c, err)
	}

	product, err := parseCreateRequest(h.validate, raw)
	if err != nil {
		return h.writeError(c, err, "create")
	}

	if err := h.service.CreateProduct(c.UserContext(), product); err != nil {
		return h.writeError(c, err, "create")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies the supplied fields to an existing product and
// returns it as persisted.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	product, err := h.lookupProduct(c)
	if err != nil {
		return h.writeError(c, err, "update")
	}

	raw, err := decodeBody(c.Body())
	if err != nil {
		return writeBadBody(c, err)
	}

	changes, err := parseUpdateRequest(h.validate, raw)
	if err != nil {
		return h.writeError(c, err, "update")
	}

	if err := h.service.UpdateProduct(c.UserContext(), product, changes); err != nil {
		return h.writeError(c, err, "update")
	}
	return c.Status(fiber.StatusOK).JSON(product)
}

// HandleDeleteProduct permanently removes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	product, err := h.lookupProduct(c)
	if err != nil {
		return h.writeError(c, err, "delete")
	}

	if err := h.service.DeleteProduct(c.UserContext(), product); err != nil {
		return h.writeError(c, err, "delete")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// lookupProduct resolves the :id route parameter. An id that is not a
// positive integer is reported as not found.
func (h *ProductHandler) lookupProduct(c *fiber.Ctx) (*models.Product, error) {
	param := c.Params("id")
	id, err := strconv.ParseUint(param, 10, 0)
	if err != nil || id == 0 {
		return nil, fmt.Errorf("product id %q: %w", param, apperrors.ErrNotFound)
	}
	return h.service.GetProductByID(c.UserContext(), uint(id))
}
