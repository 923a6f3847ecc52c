package rental

const (
	TopicOrderConfirmed = "rental.order.confirmed"
	TopicPaymentEvents  = "rental.payment.events"
)

// Partition key per order / intent keeps events for one entity in order.
func PartitionKey(id string) []byte { return []byte(id) }
