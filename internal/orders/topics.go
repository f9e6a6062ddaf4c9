package orders

const (
	TopicOrderPlaced    = "box.order.placed"
	TopicPaymentChanged = "box.order.payment"
	TopicRefundCreated  = "box.order.refund"
)

// Partition key = order id, so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
