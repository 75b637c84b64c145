package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/gofulfillment/pkg/messaging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/propagation"
)

// Envelope holds the fields every order event carries.
type Envelope struct {
	EventID uuid.UUID              `json:"event_id"`
	Carrier propagation.MapCarrier `json:"carrier,omitempty"`
	OrderID uuid.UUID              `json:"order_id"`
}

func (e Envelope) ID() string {
	return e.EventID.String()
}

func (e Envelope) Key() string {
	return e.OrderID.String()
}

type OrderCreatedEvent struct {
	Envelope
	OrderNumber   int64           `json:"order_number"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int32           `json:"total_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (o OrderCreatedEvent) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (o OrderCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderUpdatedEvent struct {
	Envelope
	OrderNumber   int64           `json:"order_number"`
	ItemsChanged  bool            `json:"items_changed"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int32           `json:"total_quantity"`
	Version       int32           `json:"version"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (o OrderUpdatedEvent) Subject() string {
	return messaging.OrdersUpdatedSubject
}

func (o OrderUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderStatusChangedEvent struct {
	Envelope
	OrderNumber int64     `json:"order_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Restocked   bool      `json:"restocked"`
	ChangedAt   time.Time `json:"changed_at"`
}

func (o OrderStatusChangedEvent) Subject() string {
	return messaging.OrdersStatusChangedSubject
}

func (o OrderStatusChangedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderRemovedEvent struct {
	Envelope
	OrderNumber int64     `json:"order_number"`
	Status      string    `json:"status"`
	Restocked   bool      `json:"restocked"`
	RemovedAt   time.Time `json:"removed_at"`
}

func (o OrderRemovedEvent) Subject() string {
	return messaging.OrdersRemovedSubject
}

func (o OrderRemovedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
