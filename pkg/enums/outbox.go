package enums

// OutboxEventType identifies the domain event stored in outbox_events.
type OutboxEventType string

const (
	EventOrderDriverAssigned OutboxEventType = "order.driver_assigned"
	EventOrderStatusChanged  OutboxEventType = "order.status_changed"
)

// OutboxAggregateType identifies the aggregate the event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)
