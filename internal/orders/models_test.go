package orders

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stored document is the wire format: reporting and the export
// collaborators depend on these exact field names and nesting.
func TestOrderDocumentRoundTrip(t *testing.T) {
	paid := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	o := Order{
		ID:         "ord-1",
		CheckoutID: "chk-1",
		Items: []Item{
			{ID: "treat", Name: "Festlåda", Quantity: 2},
			{ID: "bubbly", Name: "Bubbel", Quantity: 1},
		},
		Details:  Details{Name: "Åsa Öberg", Email: "asa@example.se", Telephone: "+46701234567"},
		Delivery: Delivery{Date: DeliveryDate{Year: 2026, Week: 35, Weekday: 5}, Type: TypeSplitDelivery},
		Recipients: []Recipient{
			{
				ID: "r1", Zone: 2, Name: "Pelle", Telephone: "070-1",
				Items: []RecipientItem{{ID: "treat", Quantity: 2}},
				Delivery: RecipientDelivery{
					Address: "Storgatan 1", Notes: "porten kod 1234", Order: 17, SMS: "Grattis!",
				},
			},
			{
				ID: "r2", Zone: 0, Name: "Lisa", Telephone: "070-2",
				Items:    []RecipientItem{{ID: "bubbly", Quantity: 1}},
				Delivery: RecipientDelivery{Address: "Lillgatan 2", Order: 18},
			},
		},
		Cost: Statement{
			FoodCost: 91500, DeliveryCost: 5000,
			FoodMoms: 12304, DeliveryMoms: 1000,
			TotalMoms: 13304, Total: 96500,
		},
		Payment: Payment{
			Method: MethodSwish,
			Status: StatusPaid,
			Swish: &SwishPayment{
				PayerAlias: "46701234567",
				Reference:  "ABC123",
				Refunds: []Refund{
					{Amount: 5000, Reference: "REF1", Timestamp: paid},
				},
			},
		},
		CreatedAt: paid,
	}

	b, err := json.Marshal(o)
	require.NoError(t, err)

	var back Order
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, o, back)
}

func TestOrderDocumentFieldNames(t *testing.T) {
	o := Order{
		Recipients: []Recipient{{ID: "r1", Delivery: RecipientDelivery{Order: 5}}},
		Payment: Payment{
			Method: MethodSwish, Status: StatusOrdered,
			Swish: &SwishPayment{Refunds: []Refund{{Amount: 1}}},
		},
	}
	b, err := json.Marshal(o)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))

	recips := doc["recipients"].([]any)
	delivery := recips[0].(map[string]any)["delivery"].(map[string]any)
	assert.Equal(t, float64(5), delivery["order"])

	payment := doc["payment"].(map[string]any)
	assert.Equal(t, "Ordered", payment["status"])
	swishDoc := payment["swish"].(map[string]any)
	require.Len(t, swishDoc["refunds"].([]any), 1)
}

func TestRefundedTotal(t *testing.T) {
	o := Order{}
	assert.Equal(t, int64(0), o.RefundedTotal())

	o.Payment.Swish = &SwishPayment{Refunds: []Refund{{Amount: 100}, {Amount: 250}}}
	assert.Equal(t, int64(350), o.RefundedTotal())
}
