package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/handlers"
	"catalog/internal/models"
	"catalog/internal/repositories"
	"catalog/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupApp returns a Fiber app serving the product routes from repo.
func setupApp(repo repositories.ProductRepository) *fiber.App {
	log := zap.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler(log)})

	productService := services.NewProductService(repo, nil, log)
	productHandler := handlers.NewProductHandler(productService, log)
	productHandler.RegisterRoutes(app.Group("/api/v1"))
	return app
}

// setupSQLiteApp backs the app with GORM on a private in-memory SQLite database.
func setupSQLiteApp(t *testing.T) *fiber.App {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		AutoMigrate: true,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return setupApp(repositories.NewGORMProductRepository(db))
}

// doRequest sends body (marshalled unless it is a string) and returns the
// status and raw response body.
func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func decodeMap(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

type validationResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func decodeValidation(t *testing.T, data []byte) validationResponse {
	t.Helper()
	var v validationResponse
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func listProducts(t *testing.T, app *fiber.App) []models.Product {
	t.Helper()
	status, data := doRequest(t, app, http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, status)
	var products []models.Product
	require.NoError(t, json.Unmarshal(data, &products))
	return products
}

func TestProductLifecycle(t *testing.T) {
	app := setupSQLiteApp(t)

	// Create
	status, data := doRequest(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":     "Widget",
		"price":    9.99,
		"quantity": 5,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, map[string]interface{}{
		"id":       float64(1),
		"name":     "Widget",
		"price":    9.99,
		"quantity": float64(5),
	}, decodeMap(t, data))

	// Partial update
	status, data = doRequest(t, app, http.MethodPut, "/api/v1/products/1", map[string]interface{}{
		"quantity": 3,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]interface{}{
		"id":       float64(1),
		"name":     "Widget",
		"price":    9.99,
		"quantity": float64(3),
	}, decodeMap(t, data))

	// Show reflects the update
	status, data = doRequest(t, app, http.MethodGet, "/api/v1/products/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), decodeMap(t, data)["quantity"])

	// Delete
	status, data = doRequest(t, app, http.MethodDelete, "/api/v1/products/1", nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, data)

	// Gone everywhere
	for _, p := range listProducts(t, app) {
		assert.NotEqual(t, uint(1), p.ID)
	}
	status, _ = doRequest(t, app, http.MethodGet, "/api/v1/products/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = doRequest(t, app, http.MethodDelete, "/api/v1/products/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListProducts_EmptyIsArray(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	status, data := doRequest(t, app, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(data))
}

func TestCreateProduct_AssignsFreshIDs(t *testing.T) {
	app := setupSQLiteApp(t)

	seen := make(map[float64]bool)
	for i := 0; i < 3; i++ {
		status, data := doRequest(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
			"name":     fmt.Sprintf("Item %d", i),
			"price":    float64(i) + 0.5,
			"quantity": i,
		})
		require.Equal(t, http.StatusCreated, status)
		body := decodeMap(t, data)
		id := body["id"].(float64)
		assert.False(t, seen[id], "id %v reused", id)
		seen[id] = true
		assert.Equal(t, fmt.Sprintf("Item %d", i), body["name"])
		assert.Equal(t, float64(i)+0.5, body["price"])
		assert.Equal(t, float64(i), body["quantity"])
	}
	assert.Len(t, listProducts(t, app), 3)
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		errors map[string][]string
	}{
		{
			name:   "missing name",
			body:   map[string]interface{}{"price": 1, "quantity": 1},
			errors: map[string][]string{"name": {"is required"}},
		},
		{
			name:   "non-numeric price",
			body:   map[string]interface{}{"name": "Widget", "price": "abc", "quantity": 1},
			errors: map[string][]string{"price": {"must be a number"}},
		},
		{
			name:   "fractional quantity",
			body:   map[string]interface{}{"name": "Widget", "price": 1, "quantity": 1.5},
			errors: map[string][]string{"quantity": {"must be an integer"}},
		},
		{
			name:   "name is not text",
			body:   map[string]interface{}{"name": 42, "price": 1, "quantity": 1},
			errors: map[string][]string{"name": {"must be a string"}},
		},
		{
			name:   "name too long",
			body:   map[string]interface{}{"name": strings.Repeat("a", 256), "price": 1, "quantity": 1},
			errors: map[string][]string{"name": {"must not be greater than 255 characters"}},
		},
		{
			name:   "blank name",
			body:   map[string]interface{}{"name": "   ", "price": 1, "quantity": 1},
			errors: map[string][]string{"name": {"is required"}},
		},
		{
			name:   "null price",
			body:   map[string]interface{}{"name": "Widget", "price": nil, "quantity": 1},
			errors: map[string][]string{"price": {"is required"}},
		},
		{
			name:   "boolean quantity",
			body:   map[string]interface{}{"name": "Widget", "price": 1, "quantity": true},
			errors: map[string][]string{"quantity": {"must be an integer"}},
		},
		{
			name:   "NaN price",
			body:   map[string]interface{}{"name": "Widget", "price": "NaN", "quantity": 1},
			errors: map[string][]string{"price": {"must be a number"}},
		},
		{
			name: "empty body",
			body: nil,
			errors: map[string][]string{
				"name":     {"is required"},
				"price":    {"is required"},
				"quantity": {"is required"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(repositories.NewMemoryProductRepository())

			status, data := doRequest(t, app, http.MethodPost, "/api/v1/products", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, status)

			resp := decodeValidation(t, data)
			assert.Equal(t, "The given data was invalid.", resp.Message)
			assert.Equal(t, tt.errors, resp.Errors)
			assert.Empty(t, listProducts(t, app))
		})
	}
}

func TestCreateProduct_AcceptsNumericStrings(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	status, data := doRequest(t, app, http.MethodPost, "/api/v1/products",
		`{"name": "Widget", "price": "9.99", "quantity": "5", "colour": "red"}`)
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"id":1,"name":"Widget","price":9.99,"quantity":5}`, string(data))
}

func TestCreateProduct_MaxLengthCountsCharacters(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	status, _ := doRequest(t, app, http.MethodPost, "/api/v1/products", map[string]interface{}{
		"name":     strings.Repeat("é", 255),
		"price":    1,
		"quantity": 1,
	})
	assert.Equal(t, http.StatusCreated, status)
}

func TestCreateProduct_MalformedBody(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	for _, body := range []string{`{"name":`, `[1,2,3]`, `"Widget"`, `{} {}`} {
		status, data := doRequest(t, app, http.MethodPost, "/api/v1/products", body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, "Invalid request body", decodeMap(t, data)["message"])
	}
}

func TestUpdateProduct_PartialFields(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	require.NoError(t, repo.Create(context.Background(), &models.Product{Name: "Widget", Price: 9.99, Quantity: 5}))
	app := setupApp(repo)

	status, data := doRequest(t, app, http.MethodPatch, "/api/v1/products/1", map[string]interface{}{
		"name": "Gadget",
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"name":"Gadget","price":9.99,"quantity":5}`, string(data))

	status, data = doRequest(t, app, http.MethodPut, "/api/v1/products/1", map[string]interface{}{
		"price":    "12.50",
		"quantity": 0,
	})
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"name":"Gadget","price":12.5,"quantity":0}`, string(data))

	// An empty body changes nothing.
	status, data = doRequest(t, app, http.MethodPut, "/api/v1/products/1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"name":"Gadget","price":12.5,"quantity":0}`, string(data))
}

func TestUpdateProduct_Validation(t *testing.T) {
	tests := []struct {
		name   string
		body   interface{}
		errors map[string][]string
	}{
		{
			name:   "non-numeric price",
			body:   map[string]interface{}{"price": "abc"},
			errors: map[string][]string{"price": {"must be a number"}},
		},
		{
			name:   "null name",
			body:   map[string]interface{}{"name": nil},
			errors: map[string][]string{"name": {"must be a string"}},
		},
		{
			name:   "name too long",
			body:   map[string]interface{}{"name": strings.Repeat("x", 300)},
			errors: map[string][]string{"name": {"must not be greater than 255 characters"}},
		},
		{
			name: "several fields",
			body: map[string]interface{}{"name": []string{"a"}, "quantity": "3.0"},
			errors: map[string][]string{
				"name":     {"must be a string"},
				"quantity": {"must be an integer"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := repositories.NewMemoryProductRepository()
			require.NoError(t, repo.Create(context.Background(), &models.Product{Name: "Widget", Price: 9.99, Quantity: 5}))
			app := setupApp(repo)

			status, data := doRequest(t, app, http.MethodPut, "/api/v1/products/1", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Equal(t, tt.errors, decodeValidation(t, data).Errors)

			stored, err := repo.GetByID(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, "Widget", stored.Name)
			assert.Equal(t, 9.99, stored.Price)
			assert.Equal(t, int64(5), stored.Quantity)
		})
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	repo := repositories.NewMemoryProductRepository()
	require.NoError(t, repo.Create(context.Background(), &models.Product{Name: "Widget", Price: 9.99, Quantity: 5}))
	app := setupApp(repo)

	for _, path := range []string{"/api/v1/products/999", "/api/v1/products/abc", "/api/v1/products/0"} {
		// The lookup runs before validation, so an invalid body still yields 404.
		status, data := doRequest(t, app, http.MethodPut, path, map[string]interface{}{"price": "abc"})
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, "Product not found", decodeMap(t, data)["message"])
	}

	products := listProducts(t, app)
	require.Len(t, products, 1)
	assert.Equal(t, "Widget", products[0].Name)
	assert.Equal(t, 9.99, products[0].Price)
	assert.Equal(t, int64(5), products[0].Quantity)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	status, _ := doRequest(t, app, http.MethodDelete, "/api/v1/products/5", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// failingRepository finds every product but fails every other call.
type failingRepository struct{}

var errDatabaseDown = errors.New("connection refused")

func (failingRepository) GetAll(context.Context) ([]models.Product, error) {
	return nil, errDatabaseDown
}

func (failingRepository) GetByID(_ context.Context, id uint) (*models.Product, error) {
	return &models.Product{ID: id, Name: "Widget", Price: 1, Quantity: 1}, nil
}

func (failingRepository) Create(context.Context, *models.Product) error {
	return errDatabaseDown
}

func (failingRepository) Update(context.Context, *models.Product, models.ProductChanges) error {
	return errDatabaseDown
}

func (failingRepository) Delete(context.Context, *models.Product) error {
	return errDatabaseDown
}

func TestStoreFailures(t *testing.T) {
	app := setupApp(failingRepository{})

	tests := []struct {
		method  string
		path    string
		body    interface{}
		message string
	}{
		{http.MethodGet, "/api/v1/products", nil, "Could not retrieve product"},
		{http.MethodPost, "/api/v1/products", map[string]interface{}{"name": "A", "price": 1, "quantity": 1}, "Could not create product"},
		{http.MethodPut, "/api/v1/products/1", map[string]interface{}{"quantity": 2}, "Could not update product"},
		{http.MethodDelete, "/api/v1/products/1", nil, "Could not delete product"},
	}
	for _, tt := range tests {
		status, data := doRequest(t, app, tt.method, tt.path, tt.body)
		assert.Equal(t, http.StatusInternalServerError, status, tt.path)
		body := decodeMap(t, data)
		assert.Equal(t, tt.message, body["message"])
		assert.NotContains(t, string(data), errDatabaseDown.Error())
	}
}

func TestUnknownRoute(t *testing.T) {
	app := setupApp(repositories.NewMemoryProductRepository())

	status, data := doRequest(t, app, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, decodeMap(t, data), "message")
}
