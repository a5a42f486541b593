// Package events consumes catalog change events.
package events

import (
	"encoding/json"
	"fmt"

	"catalog/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// AuditQueueSuffix is appended to the app name to form the audit queue name.
const AuditQueueSuffix = ".product-audit"

// AllProductEvents binds a queue to every product event.
const AllProductEvents = "product.#"

// AuditLogger returns a delivery handler that writes each product event to log.
// Deliveries that are not product events are rejected.
func AuditLogger(log *zap.Logger) func(msg amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event models.ProductEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("failed to decode product event: %w", err)
		}
		if event.Type == "" || event.ProductID == 0 {
			return fmt.Errorf("malformed product event %q", event.EventID)
		}

		log.Info("product event",
			zap.String("event_id", event.EventID),
			zap.String("type", event.Type),
			zap.String("routing_key", msg.RoutingKey),
			zap.Uint("product_id", event.ProductID),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return nil
	}
}
