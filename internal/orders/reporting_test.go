package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(week, day int) DeliveryDate { return DeliveryDate{Year: 2026, Week: week, Weekday: day} }

func deliveryOrder(id string, d DeliveryDate, status Status, total int64, recipients ...Recipient) Order {
	typ := TypeSplitDelivery
	if len(recipients) == 1 {
		typ = TypeDelivery
	}
	return Order{
		ID:         id,
		Items:      []Item{{ID: "treat", Name: "treat box", Quantity: int64(len(recipients))}},
		Details:    Details{Name: "Köparen", Telephone: "070"},
		Delivery:   Delivery{Date: d, Type: typ},
		Recipients: recipients,
		Cost:       Statement{Total: total},
		Payment:    Payment{Method: MethodInvoice, Status: status},
	}
}

func collectionOrder(id string, d DeliveryDate, status Status, total int64) Order {
	o := deliveryOrder(id, d, status, total)
	o.Delivery.Type = TypeCollection
	o.Recipients = nil
	o.Items[0].Quantity = 1
	return o
}

func rec(id string, seq int64) Recipient {
	return Recipient{ID: id, Zone: 1, Name: "Mottagare " + id,
		Delivery: RecipientDelivery{Address: "Gatan " + id, Order: seq}}
}

func TestRecipientRowsSentinelOrdering(t *testing.T) {
	d := date(35, 5)
	os := []Order{
		deliveryOrder("active", d, StatusOrdered, 100, rec("a", 7)),
		collectionOrder("pickup", d, StatusOrdered, 100),
		deliveryOrder("gone", d, StatusCancelled, 100, rec("b", 3)),
	}
	rows := RecipientRows(os)
	require.Len(t, rows, 3)

	// cancelled first, collection next, live delivery last
	assert.Equal(t, "gone", rows[0].OrderID)
	assert.True(t, rows[0].Cancelled)
	assert.Equal(t, "pickup", rows[1].OrderID)
	assert.Equal(t, TypeCollection, rows[1].Type)
	assert.Equal(t, "active", rows[2].OrderID)
	assert.Equal(t, int64(7), rows[2].SequenceKey)
}

func TestRecipientRowsDeliverySequence(t *testing.T) {
	d := date(35, 5)
	os := []Order{
		deliveryOrder("o1", d, StatusOrdered, 100, rec("late", 9)),
		deliveryOrder("o2", d, StatusOrdered, 100, rec("early", 2), rec("mid", 5)),
	}
	rows := RecipientRows(os)
	require.Len(t, rows, 3)
	assert.Equal(t, "early", rows[0].RecipientID)
	assert.Equal(t, "mid", rows[1].RecipientID)
	assert.Equal(t, "late", rows[2].RecipientID)
}

func TestRecipientRowsCollectionSyntheticRow(t *testing.T) {
	rows := RecipientRows([]Order{collectionOrder("c1", date(35, 5), StatusOrdered, 100)})
	require.Len(t, rows, 1)
	assert.Equal(t, "Köparen", rows[0].Name)
	assert.Empty(t, rows[0].RecipientID)
	assert.Empty(t, rows[0].Address)
}

func TestWeeklyTotalsNoDoubleCountedIncome(t *testing.T) {
	d := date(35, 5)
	multi := deliveryOrder("multi", d, StatusPaid, 90000, rec("a", 1))
	multi.Items = []Item{
		{ID: "treat", Name: "treat box", Quantity: 2},
		{ID: "feast", Name: "feast box", Quantity: 1},
	}
	totals := WeeklyTotals([]Order{multi})
	require.Len(t, totals, 1)

	// two product lines, income counted once
	assert.Equal(t, int64(90000), totals[0].Income)
	require.Len(t, totals[0].Products, 2)
	assert.Equal(t, 1, totals[0].Deliveries)
}

func TestWeeklyTotalsGrouping(t *testing.T) {
	friday, saturday := date(35, 5), date(35, 6)
	os := []Order{
		deliveryOrder("f1", friday, StatusPaid, 50000, rec("a", 1)),
		deliveryOrder("f2", friday, StatusOrdered, 30000, rec("b", 2), rec("c", 3)),
		collectionOrder("f3", friday, StatusOrdered, 20000),
		deliveryOrder("s1", saturday, StatusOrdered, 40000, rec("d", 4)),
		deliveryOrder("gone", friday, StatusCancelled, 99999, rec("x", 5)),
	}
	totals := WeeklyTotals(os)
	require.Len(t, totals, 2)

	fri := totals[0]
	assert.Equal(t, friday, fri.Date)
	assert.Equal(t, int64(100000), fri.Income) // cancelled excluded
	assert.Equal(t, 3, fri.Deliveries)         // a + b + c
	assert.Equal(t, 1, fri.Collections)
	require.Len(t, fri.Products, 1)
	assert.Equal(t, int64(4), fri.Products[0].Quantity) // 1 + 2 + 1

	sat := totals[1]
	assert.Equal(t, int64(40000), sat.Income)
	assert.Equal(t, 1, sat.Deliveries)
	assert.Equal(t, 0, sat.Collections)
}

func TestHighestDeliverySequence(t *testing.T) {
	d := date(35, 5)
	os := []Order{
		deliveryOrder("o1", d, StatusOrdered, 100, rec("a", 3), rec("b", 11)),
		deliveryOrder("o2", d, StatusCancelled, 100, rec("c", 25)),
		collectionOrder("c1", d, StatusOrdered, 100),
	}
	// cancelled orders still hold their sequence slots
	assert.Equal(t, int64(25), HighestDeliverySequence(os))
	assert.Equal(t, int64(0), HighestDeliverySequence(nil))
}
