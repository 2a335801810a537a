package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderPlaced = "order.placed"
)

// DefaultOrderTopic is used when no topic is configured.
const DefaultOrderTopic = "orders-placed"

// OrderPlacedEvent is emitted once an order has been committed
type OrderPlacedEvent struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	OrderID       int64             `json:"order_id"`
	UserID        int64             `json:"user_id"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	Status        string            `json:"status"`
	Items         []OrderPlacedItem `json:"items"`
	Timestamp     time.Time         `json:"timestamp"`
}

// OrderPlacedItem is one line of the placed order
type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, event OrderPlacedEvent) error
	Close() error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlacedEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
