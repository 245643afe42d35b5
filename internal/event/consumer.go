// Package event reacts to user domain events that affect supplier lookups.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/TradeCatalog/pkg/kafka"
)

// Kafka topics consumed by the catalog. Event types equal topic names.
var (
	TopicUserUpdated = pkgkafka.Topic("user", "updated")
	TopicUserDeleted = pkgkafka.Topic("user", "deleted")
)

// Topics lists every topic the catalog subscribes to.
func Topics() []string {
	return []string{TopicUserUpdated, TopicUserDeleted}
}

// UserEventData is the part of a user event payload the catalog reads.
type UserEventData struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// SupplierInvalidator drops cached supplier state.
type SupplierInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// Consumer invalidates cached supplier lookups when a user changes.
type Consumer struct {
	suppliers SupplierInvalidator
	logger    *slog.Logger
}

// NewConsumer creates a new user event consumer.
func NewConsumer(suppliers SupplierInvalidator, logger *slog.Logger) *Consumer {
	return &Consumer{suppliers: suppliers, logger: logger}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicUserUpdated, TopicUserDeleted:
		return c.invalidate(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) invalidate(ctx context.Context, event *pkgkafka.Event) error {
	var data UserEventData
	if len(event.Data) > 0 {
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
		}
	}

	id := firstNonEmpty(data.ID, data.UserID, event.AggregateID)
	if id == "" {
		c.logger.WarnContext(ctx, "user event carries no user id",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.suppliers.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("invalidate supplier from %s: %w", event.EventType, err)
	}

	c.logger.DebugContext(ctx, "invalidated supplier cache",
		slog.String("user_id", id),
		slog.String("event_type", event.EventType),
	)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
