// Package messaging defines the events the fulfillment service publishes and the publishers that carry them.
package messaging

import (
	"context"
)

const (
	OrdersCreatedSubject       = "orders.created"
	OrdersUpdatedSubject       = "orders.updated"
	OrdersStatusChangedSubject = "orders.status_changed"
	OrdersRemovedSubject       = "orders.removed"

	PaymentsStatusSubject = "payments.status"
)

type Event interface {
	// ID is unique per event and lets brokers drop duplicates.
	ID() string
	Subject() string
	// Key groups the events of one aggregate, e.g. for partitioning.
	Key() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}
