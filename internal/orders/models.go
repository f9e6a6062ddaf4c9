package orders

import "time"

// Order is the aggregate root persisted as one document. Field names and
// nesting are load-bearing: reporting queries and the CSV/email collaborators
// read the stored JSON directly, so tags must stay stable.
type Order struct {
	ID         string      `json:"id"`
	CheckoutID string      `json:"checkoutId"`
	Items      []Item      `json:"items"`
	Details    Details     `json:"details"`
	Delivery   Delivery    `json:"delivery"`
	Recipients []Recipient `json:"recipients,omitempty"`
	Cost       Statement   `json:"cost"`
	Payment    Payment     `json:"payment"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Item is a basket line snapshot. Name is captured at order time so renaming
// a product later never rewrites order history.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

type Details struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
}

type Delivery struct {
	Date DeliveryDate `json:"date"`
	Type DeliveryType `json:"type"`
}

type DeliveryType string

const (
	TypeCollection    DeliveryType = "collection"
	TypeDelivery      DeliveryType = "delivery"
	TypeSplitDelivery DeliveryType = "split-delivery"
)

// Recipient is one drop-off of a delivery or split-delivery order. Its items
// are a partition slice of the order's basket: summed across recipients they
// must equal the order's quantities per product.
type Recipient struct {
	ID        string            `json:"id"`
	Zone      int               `json:"zone"`
	Name      string            `json:"name"`
	Telephone string            `json:"telephone"`
	Items     []RecipientItem   `json:"items"`
	Delivery  RecipientDelivery `json:"delivery"`
}

type RecipientItem struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

type RecipientDelivery struct {
	Address string `json:"address"`
	Notes   string `json:"notes,omitempty"`
	// Order sequences the physical delivery run; assigned append-at-end from
	// the shared counter.
	Order int64  `json:"order"`
	SMS   string `json:"sms,omitempty"`
}

// Statement is the order's computed bottom line, all öre.
type Statement struct {
	FoodCost     int64 `json:"foodCost"`
	DeliveryCost int64 `json:"deliveryCost"`
	FoodMoms     int64 `json:"foodMoms"`
	DeliveryMoms int64 `json:"deliveryMoms"`
	TotalMoms    int64 `json:"totalMoms"`
	Total        int64 `json:"total"`
}

type PaymentMethod string

const (
	MethodInvoice PaymentMethod = "Invoice"
	MethodSwish   PaymentMethod = "Swish"
)

type Payment struct {
	Method PaymentMethod `json:"method"`
	Status Status        `json:"status"`
	Swish  *SwishPayment `json:"swish,omitempty"`
}

type SwishPayment struct {
	PayerAlias string   `json:"payerAlias"`
	Reference  string   `json:"reference"`
	Refunds    []Refund `json:"refunds,omitempty"`
}

type Refund struct {
	Amount    int64     `json:"amount"`
	Reference string    `json:"reference"`
	Timestamp time.Time `json:"timestamp"`
}

// RefundedTotal sums the refund records on a Swish payment.
func (o *Order) RefundedTotal() int64 {
	if o.Payment.Swish == nil {
		return 0
	}
	var sum int64
	for _, r := range o.Payment.Swish.Refunds {
		sum += r.Amount
	}
	return sum
}
