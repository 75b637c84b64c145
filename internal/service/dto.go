package service

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPage  int32 = 1
	DefaultLimit int32 = 20
)

// OrderDto represents an order together with its items.
// Version is read-only and used for optimistic concurrency control.
type OrderDto struct {
	ID            uuid.UUID       `json:"id"`
	OrderNumber   int64           `json:"order_number"`
	Status        string          `json:"status"`
	UserID        *uuid.UUID      `json:"user_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	WarehouseID   uuid.UUID       `json:"warehouse_id"`
	DeliveryType  string          `json:"delivery_type,omitempty"`
	DeliveryData  json.RawMessage `json:"delivery_data,omitempty"`
	Comment       string          `json:"comment,omitempty"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalQuantity int32           `json:"total_quantity"`
	PaymentType   string          `json:"payment_type,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	Version       int32           `json:"version"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
	Items         []OrderItemDto  `json:"items,omitempty"`
}

// OrderItemDto is one order line with the product snapshot taken when it was reserved.
type OrderItemDto struct {
	ID                  uuid.UUID       `json:"id"`
	ProductID           uuid.UUID       `json:"product_id"`
	WarehouseID         uuid.UUID       `json:"warehouse_id"`
	Quantity            int32           `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	ProductName         string          `json:"product_name"`
	ProductCategoryID   *uuid.UUID      `json:"product_category_id,omitempty"`
	ProductCategoryName string          `json:"product_category_name,omitempty"`
	IsActive            bool            `json:"is_active"`
}

// OrderItemInput is a requested order line. WarehouseID defaults to the order's warehouse
// and Price to the catalog price.
type OrderItemInput struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"required"`
	WarehouseID *uuid.UUID       `json:"warehouse_id,omitempty"`
	Quantity    int32            `json:"quantity" validate:"required,min=1"`
	Price       *decimal.Decimal `json:"price,omitempty"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
type OrderCreateDto struct {
	UserID        *uuid.UUID       `json:"user_id,omitempty"`
	CustomerName  string           `json:"customer_name" validate:"omitempty,max=200"`
	CustomerPhone string           `json:"customer_phone" validate:"omitempty,max=50"`
	CustomerEmail string           `json:"customer_email" validate:"omitempty,email,max=200"`
	WarehouseID   uuid.UUID        `json:"warehouse_id" validate:"required"`
	DeliveryType  string           `json:"delivery_type" validate:"omitempty,max=50"`
	DeliveryData  json.RawMessage  `json:"delivery_data,omitempty"`
	Comment       string           `json:"comment" validate:"omitempty,max=2000"`
	PaymentType   string           `json:"payment_type" validate:"omitempty,max=50"`
	TotalPrice    *decimal.Decimal `json:"total_price,omitempty"`
	Items         []OrderItemInput `json:"items" validate:"required,gt=0,dive"`
}

// OrderUpdateDto patches an order. Nil fields are left unchanged.
// A non-nil Items replaces every order line and moves the stock accordingly.
type OrderUpdateDto struct {
	Version       *int32           `json:"version,omitempty" validate:"omitempty,min=1"`
	CustomerName  *string          `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	CustomerPhone *string          `json:"customer_phone,omitempty" validate:"omitempty,max=50"`
	CustomerEmail *string          `json:"customer_email,omitempty" validate:"omitempty,email,max=200"`
	WarehouseID   *uuid.UUID       `json:"warehouse_id,omitempty"`
	DeliveryType  *string          `json:"delivery_type,omitempty" validate:"omitempty,max=50"`
	DeliveryData  json.RawMessage  `json:"delivery_data,omitempty"`
	Comment       *string          `json:"comment,omitempty" validate:"omitempty,max=2000"`
	PaymentType   *string          `json:"payment_type,omitempty" validate:"omitempty,max=50"`
	TotalPrice    *decimal.Decimal `json:"total_price,omitempty"`
	Items         []OrderItemInput `json:"items,omitempty" validate:"omitempty,dive"`
}

type StatusChangeDto struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment" validate:"omitempty,max=2000"`
}

type CommentDto struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// PaymentReportDto is the payment status reported by the payment subsystem.
type PaymentReportDto struct {
	Status     string `json:"status" validate:"required,oneof=PENDING PAID FAILED REFUNDED"`
	ExternalID string `json:"external_id" validate:"omitempty,max=200"`
}

// ListOrdersQuery filters, sorts and pages the order listing.
type ListOrdersQuery struct {
	Search      string     `validate:"omitempty,max=200"`
	Status      string     `validate:"omitempty,oneof=NEW PROCESSING PAID SHIPPED DELIVERED CANCELLED RETURNED"`
	WarehouseID *uuid.UUID `validate:"omitempty"`
	UserID      *uuid.UUID `validate:"omitempty"`
	SortBy      string     `validate:"omitempty,oneof=createdAt price quantity name"`
	SortOrder   string     `validate:"omitempty,oneof=asc desc"`
	Page        int32      `validate:"gte=0"`
	Limit       int32      `validate:"gte=0,lte=100"`
}

type OrderPage struct {
	Items []OrderDto `json:"items"`
	Total int64      `json:"total"`
	Page  int32      `json:"page"`
	Limit int32      `json:"limit"`
}

// ListHistoryQuery filters and pages the status history of all orders.
type ListHistoryQuery struct {
	OrderID *uuid.UUID `validate:"omitempty"`
	Status  string     `validate:"omitempty,oneof=NEW PROCESSING PAID SHIPPED DELIVERED CANCELLED RETURNED"`
	Page    int32      `validate:"gte=0"`
	Limit   int32      `validate:"gte=0,lte=100"`
}

type HistoryPage struct {
	Items []HistoryDto `json:"items"`
	Total int64        `json:"total"`
	Page  int32        `json:"page"`
	Limit int32        `json:"limit"`
}

type HistoryDto struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt string    `json:"created_at"`
}

type StatusStatsDto struct {
	Status string          `json:"status"`
	Orders int64           `json:"orders"`
	Total  decimal.Decimal `json:"total"`
}

type StatsDto struct {
	TotalOrders int64            `json:"total_orders"`
	TotalSum    decimal.Decimal  `json:"total_sum"`
	ByStatus    []StatusStatsDto `json:"by_status"`
}

// toDto converts a db.Order and its items to an OrderDto.
func toDto(order *db.Order, items []db.OrderItem) *OrderDto {
	if order == nil {
		return nil
	}
	dto := &OrderDto{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		UserID:        order.UserID,
		CustomerName:  deref(order.CustomerName),
		CustomerPhone: deref(order.CustomerPhone),
		CustomerEmail: deref(order.CustomerEmail),
		WarehouseID:   order.WarehouseID,
		DeliveryType:  deref(order.DeliveryType),
		DeliveryData:  order.DeliveryData,
		Comment:       deref(order.Comment),
		TotalPrice:    order.TotalPrice,
		TotalQuantity: order.TotalQuantity,
		PaymentType:   deref(order.PaymentType),
		PaymentStatus: order.PaymentStatus,
		Version:       order.Version,
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
	if len(items) > 0 {
		dto.Items = make([]OrderItemDto, 0, len(items))
		for _, item := range items {
			dto.Items = append(dto.Items, OrderItemDto{
				ID:                  item.ID,
				ProductID:           item.ProductID,
				WarehouseID:         item.WarehouseID,
				Quantity:            item.Quantity,
				Price:               item.Price,
				ProductName:         item.ProductName,
				ProductCategoryID:   item.ProductCategoryID,
				ProductCategoryName: deref(item.ProductCategoryName),
				IsActive:            item.IsActive,
			})
		}
	}
	return dto
}

func toHistoryDto(h *db.OrderStatusHistory) HistoryDto {
	return HistoryDto{
		ID:        h.ID,
		OrderID:   h.OrderID,
		Status:    h.Status,
		Comment:   deref(h.Comment),
		CreatedAt: formatTime(h.CreatedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional returns nil for an empty string.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
