package events

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatusEvent is reported by the payment subsystem on payments.status.
type PaymentStatusEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Status     string    `json:"status"`
	ExternalID string    `json:"external_id,omitempty"`
	ReportedAt time.Time `json:"reported_at"`
}
