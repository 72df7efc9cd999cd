package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (production-style: event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Event types emitted by the booking lifecycle.
const (
	EventBookingCreated   = "booking.created.v1"
	EventBookingPaid      = "booking.paid.v1"
	EventBookingCompleted = "booking.completed.v1"
)
