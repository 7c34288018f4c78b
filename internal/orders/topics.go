package orders

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status_changed"
	TopicProductLowStock    = "product.low_stock"
)

// PartitionKey keeps every event of one order (or product) on one partition.
func PartitionKey(id string) []byte { return []byte(id) }
