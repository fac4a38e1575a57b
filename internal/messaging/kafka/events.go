package kafka

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType определяет тип события
type EventType string

const (
	// События жизненного цикла заказа
	EventTypeOrderCreated   EventType = "order.created"
	EventTypeOrderCompleted EventType = "order.completed"
	EventTypeOrderCancelled EventType = "order.cancelled"

	// Складские события
	EventTypeStockDeducted EventType = "stock.deducted"
	EventTypeStockRestored EventType = "stock.restored"
	EventTypeStockLow      EventType = "stock.low"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "printshop.order.events"
	TopicStockEvents     = "printshop.stock.events"
	TopicDeadLetterQueue = "printshop.dlq" // Dead Letter Queue для failed messages
)

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType   EventType       `json:"event_type"`
	OrderID     int64           `json:"order_id"`
	Reference   string          `json:"reference,omitempty"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// StockEvent представляет складское событие
type StockEvent struct {
	EventType   EventType `json:"event_type"`
	InventoryID int64     `json:"inventory_id"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewOrderEvent создаёт новое событие заказа
func NewOrderEvent(eventType EventType, orderID int64, reference, status string, totalAmount decimal.Decimal, metadata map[string]any) *OrderEvent {
	return &OrderEvent{
		EventType:   eventType,
		OrderID:     orderID,
		Reference:   reference,
		Status:      status,
		TotalAmount: totalAmount,
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}
}

// NewStockEvent создаёт новое складское событие
func NewStockEvent(eventType EventType, inventoryID int64, quantity int, status string) *StockEvent {
	return &StockEvent{
		EventType:   eventType,
		InventoryID: inventoryID,
		Quantity:    quantity,
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}
}
