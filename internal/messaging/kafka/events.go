package kafka

import "time"

// EventType определяет тип события
type EventType string

const (
	// События склада
	EventTypeProductRegistered EventType = "product.registered"
	EventTypeStockUpdated      EventType = "stock.updated"

	// События заказов
	EventTypeOrderFinalized EventType = "order.finalized"
)

// Topics для Kafka
const (
	TopicStockEvents     = "estoque.stock.events"
	TopicOrderEvents     = "estoque.order.events"
	TopicDeadLetterQueue = "estoque.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// StockEvent представляет событие изменения остатка товара
type StockEvent struct {
	EventType   EventType `json:"event_type"`
	ProductCode string    `json:"product_code"`
	ProductName string    `json:"product_name"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderEvent представляет событие финализации заказа
type OrderEvent struct {
	EventType EventType `json:"event_type"`
	OrderID   string    `json:"order_id"`
	OrderCode string    `json:"order_code"`
	LineCount int       `json:"line_count"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStockEvent создает новое событие остатка
func NewStockEvent(eventType EventType, code, name string, quantity float64, unit string) *StockEvent {
	return &StockEvent{
		EventType:   eventType,
		ProductCode: code,
		ProductName: name,
		Quantity:    quantity,
		Unit:        unit,
		Timestamp:   time.Now().UTC(),
	}
}

// NewOrderEvent создает новое событие заказа
func NewOrderEvent(orderID, orderCode string, lineCount int) *OrderEvent {
	return &OrderEvent{
		EventType: EventTypeOrderFinalized,
		OrderID:   orderID,
		OrderCode: orderCode,
		LineCount: lineCount,
		Timestamp: time.Now().UTC(),
	}
}
