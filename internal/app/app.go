// Package app wires configuration, storage, events and HTTP routing into a
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"

	"catalog/internal/config"
	"catalog/internal/database"
	"catalog/internal/events"
	"catalog/internal/handlers"
	"catalog/internal/middleware"
	"catalog/internal/repositories"
	"catalog/internal/services"
	"catalog/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Name      string
	Products  repositories.ProductRepository
	Publisher services.EventPublisher // nil disables events
	DB        handlers.Pinger         // nil for the in-memory store
	Logger    *zap.Logger
}

// NewRouter builds the Fiber application serving the catalog API.
func NewRouter(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               d.Name,
		ErrorHandler:          handlers.ErrorHandler(d.Logger),
		DisableStartupMessage: true,
	})

	metrics := middleware.NewMetrics()

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(metrics.Middleware())

	handlers.NewHealthHandler(d.DB, d.Publisher != nil).RegisterRoutes(app)
	app.Get("/metrics", metrics.Handler())

	productService := services.NewProductService(d.Products, d.Publisher, d.Logger)
	productHandler := handlers.NewProductHandler(productService, d.Logger)

	apiV1 := app.Group("/api/v1")
	productHandler.RegisterRoutes(apiV1)

	return app
}

// App is the assembled service with the resources it owns.
type App struct {
	HTTP *fiber.App

	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
	mq  *rabbitmq.Client
}

// New opens the configured product store and event broker and builds the router.
func New(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, log: log}
	deps := Deps{Name: cfg.App.Name, Logger: log}

	if cfg.Database.Driver == "memory" {
		deps.Products = repositories.NewMemoryProductRepository()
		log.Warn("using in-memory product store; data is lost on restart")
	} else {
		db, err := database.Open(cfg.Database, log)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		a.db = db
		deps.Products = repositories.NewGORMProductRepository(db)
		deps.DB = sqlDB
	}

	if cfg.RabbitMQ.URL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
		}, log)
		if err != nil {
			_ = a.closeStores()
			return nil, err
		}
		a.mq = mq
		deps.Publisher = mq

		if cfg.RabbitMQ.Consume {
			queue := cfg.App.Name + events.AuditQueueSuffix
			if err := mq.Consume(queue, events.AllProductEvents, events.AuditLogger(log)); err != nil {
				_ = a.closeStores()
				return nil, err
			}
			log.Info("consuming product events", zap.String("queue", queue))
		}
	} else {
		log.Info("RABBITMQ_URL not set; product events disabled")
	}

	a.HTTP = NewRouter(deps)
	return a, nil
}

// Listen serves HTTP on the configured port until Shutdown is called.
func (a *App) Listen() error {
	a.log.Info("starting server", zap.String("port", a.cfg.App.Port))
	return a.HTTP.Listen(a.cfg.App.Port)
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done and releases the store and broker connections.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.HTTP.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down HTTP server: %w", err))
	}
	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeStores() error {
	var errs []error
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			errs = append(errs, err)
		}
		a.mq = nil
	}
	if a.db != nil {
		if err := database.Close(a.db); err != nil {
			errs = append(errs, err)
		}
		a.db = nil
	}
	return errors.Join(errs...)
}
