package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gearvn/storefront/internal/domain"
	pkgkafka "github.com/gearvn/storefront/pkg/kafka"
	"github.com/gearvn/storefront/pkg/logger"
)

// Default Kafka topics for storefront domain events.
const (
	TopicOrderPlaced = "storefront.order.placed"
	TopicCartCleared = "storefront.cart.cleared"
)

// Aggregate type constants.
const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
)

// SourceStorefront identifies events originating from this service.
const SourceStorefront = "storefront-service"

// Reasons a cart is cleared.
const (
	ClearReasonOrderPlaced = "order_placed"
	ClearReasonShopper     = "shopper"
)

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	SessionID      string             `json:"session_id"`
	OrderID        string             `json:"order_id,omitempty"`
	Items          []domain.OrderItem `json:"items"`
	DiscountCode   string             `json:"discount_code,omitempty"`
	ShippingCost   int64              `json:"shipping_cost"`
	TotalAmount    int64              `json:"total_amount"`
	PaymentMethod  string             `json:"payment_method"`
	ShipmentMethod string             `json:"shipment_method"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// Publisher emits storefront domain events.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, data OrderPlacedData) error
	PublishCartCleared(ctx context.Context, sessionID, reason string) error
}

// Topics names the topics events are written to.
type Topics struct {
	OrderPlaced string
	CartCleared string
}

// DefaultTopics returns the default topic names.
func DefaultTopics() Topics {
	return Topics{OrderPlaced: TopicOrderPlaced, CartCleared: TopicCartCleared}
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	topics Topics
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, topics Topics, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		topics: topics,
		logger: logger,
	}
}

// PublishOrderPlaced publishes an order.placed event keyed by session.
func (p *Producer) PublishOrderPlaced(ctx context.Context, data OrderPlacedData) error {
	event, err := pkgkafka.NewEvent(p.topics.OrderPlaced, AggregateTypeOrder, data.SessionID, data,
		pkgkafka.WithSource(SourceStorefront),
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithMetadata("order_id", data.OrderID),
	)
	if err != nil {
		return fmt.Errorf("create order.placed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, p.topics.OrderPlaced, event); err != nil {
		return fmt.Errorf("publish order.placed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published order.placed event",
		slog.String("session_id", data.SessionID),
		slog.String("order_id", data.OrderID),
		slog.Int64("total_amount", data.TotalAmount),
	)
	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, sessionID, reason string) error {
	data := CartClearedData{SessionID: sessionID, Reason: reason}

	event, err := pkgkafka.NewEvent(p.topics.CartCleared, AggregateTypeCart, sessionID, data,
		pkgkafka.WithSource(SourceStorefront),
		pkgkafka.WithCorrelationID(logger.CorrelationIDFromContext(ctx)),
		pkgkafka.WithMetadata("reason", reason),
	)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, p.topics.CartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
	return nil
}

// NoopPublisher discards every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, OrderPlacedData) error { return nil }

func (NoopPublisher) PublishCartCleared(context.Context, string, string) error { return nil }
