package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox row belongs to.
type OutboxAggregateType string

const (
	AggregatePriceChange OutboxAggregateType = "price_change"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregatePriceChange
}

// OutboxEventType names the event stored in an outbox row.
type OutboxEventType string

const (
	EventPriceChangeApplied    OutboxEventType = "price_change_applied"
	EventPriceChangeRolledBack OutboxEventType = "price_change_rolled_back"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPriceChangeApplied,
	EventPriceChangeRolledBack,
}

func (e OutboxEventType) String() string {
	return string(e)
}

func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason explains why a row was moved to the dead letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
