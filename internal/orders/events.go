package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced    = "OrderPlaced"
	EventPaymentChanged = "PaymentChanged"
	EventRefundCreated  = "RefundCreated"
)

// Envelope wraps every event published for the notification collaborators.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID      string        `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	Email        string        `json:"email"`
	DeliveryDate string        `json:"delivery_date"`
	DeliveryType DeliveryType  `json:"delivery_type"`
	Method       PaymentMethod `json:"method"`
	Total        int64         `json:"total"`
}

type PaymentChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
}

type RefundCreatedPayload struct {
	OrderID   string `json:"order_id"`
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}
