package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateItem        OutboxAggregateType = "item"
	AggregateTransaction OutboxAggregateType = "transaction"
	AggregateRating      OutboxAggregateType = "rating"
	AggregateMessage     OutboxAggregateType = "message"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateItem,
	AggregateTransaction,
	AggregateRating,
	AggregateMessage,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventTransactionCreated   OutboxEventType = "transaction_created"
	EventTransactionConfirmed OutboxEventType = "transaction_confirmed"
	EventTransactionCompleted OutboxEventType = "transaction_completed"
	EventTransactionCancelled OutboxEventType = "transaction_cancelled"
	EventRatingReceived       OutboxEventType = "rating_received"
	EventMessageCreated       OutboxEventType = "message_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTransactionCreated,
	EventTransactionConfirmed,
	EventTransactionCompleted,
	EventTransactionCancelled,
	EventRatingReceived,
	EventMessageCreated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
