// Package service provides the order lifecycle: creation, editing, status transitions and removal,
// each applied to the order and the stock ledger in one transaction.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/inventory"
	"github.com/abgdnv/gofulfillment/internal/numbering"
	"github.com/abgdnv/gofulfillment/internal/reservation"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/abgdnv/gofulfillment/pkg/messaging"
	"github.com/abgdnv/gofulfillment/pkg/messaging/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// OrderService defines the methods for managing orders.
// Every error it returns can be mapped with ordererrors.Classify.
type OrderService interface {
	// Create reserves the stock of every line and persists a NEW order with the next order number.
	// Returns *InsufficientStockError listing every short line, in which case nothing is persisted.
	Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error)

	// Update patches an order. When items are supplied the old lines are released and the
	// new ones reserved in the same transaction.
	// Returns ErrOrderNotEditable if items are replaced after the order was shipped or closed.
	Update(ctx context.Context, id uuid.UUID, update OrderUpdateDto) (*OrderDto, error)

	// TransitionStatus moves the order along the status graph and restocks on cancel or return.
	// Returns ErrInvalidTransition for a transition the graph does not have.
	TransitionStatus(ctx context.Context, id uuid.UUID, change StatusChangeDto) (*OrderDto, error)

	// Remove deletes the order, releasing its stock unless it was already released.
	Remove(ctx context.Context, id uuid.UUID) error

	// FindByID returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*OrderDto, error)

	List(ctx context.Context, query ListOrdersQuery) (*OrderPage, error)

	StatusHistory(ctx context.Context, id uuid.UUID) ([]HistoryDto, error)

	// ListHistory pages through the status changes of every order, newest first.
	ListHistory(ctx context.Context, query ListHistoryQuery) (*HistoryPage, error)

	UpdateHistoryComment(ctx context.Context, historyID uuid.UUID, comment string) (*HistoryDto, error)
	AddComment(ctx context.Context, id uuid.UUID, comment string) (*OrderDto, error)

	// Repeat creates a new order with the customer data and lines of an existing one.
	Repeat(ctx context.Context, id uuid.UUID) (*OrderDto, error)

	Stats(ctx context.Context) (*StatsDto, error)

	// RecordPayment stores the payment status reported for the order. It never changes the order status.
	RecordPayment(ctx context.Context, id uuid.UUID, report PaymentReportDto) (*OrderDto, error)
}

// OrderLifecycleStore is everything the order lifecycle reads and writes.
type OrderLifecycleStore interface {
	store.OrderStore
	store.CatalogStore
}

// Service implements OrderService.
type Service struct {
	store          OrderLifecycleStore
	coordinator    *reservation.Coordinator
	publisher      messaging.Publisher
	ordersCounter  metric.Int64Counter
	rejected       metric.Int64Counter
	restockedUnits metric.Int64Counter
}

// NewService creates a new instance of OrderService.
func NewService(orderStore OrderLifecycleStore, coordinator *reservation.Coordinator, publisher messaging.Publisher) *Service {
	meter := otel.Meter("fulfillment-service")
	ordersCounter, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of created orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	rejected, err := meter.Int64Counter("orders_rejected", metric.WithDescription("Total number of failed order operations"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_rejected counter: %v", err))
	}
	restockedUnits, err := meter.Int64Counter("stock_restocked_units", metric.WithDescription("Total number of units returned to stock"))
	if err != nil {
		panic(fmt.Sprintf("failed to create stock_restocked_units counter: %v", err))
	}
	return &Service{
		store:          orderStore,
		coordinator:    coordinator,
		publisher:      publisher,
		ordersCounter:  ordersCounter,
		rejected:       rejected,
		restockedUnits: restockedUnits,
	}
}

func (s *Service) Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error) {
	lines, err := s.resolveLines(ctx, order.WarehouseID, order.Items)
	if err != nil {
		return nil, s.fail(ctx, "create", err)
	}
	totalPrice, totalQuantity := totals(lines)
	if order.TotalPrice != nil {
		if order.TotalPrice.IsNegative() {
			return nil, s.fail(ctx, "create", fmt.Errorf("%w: negative total price", ordererrors.ErrInvalidOrder))
		}
		totalPrice = *order.TotalPrice
	}

	var created *db.Order
	var items []db.OrderItem
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		if err := s.coordinator.Reserve(ctx, inventory.NewLedger(tx), toReservation(lines)); err != nil {
			return err
		}
		quantity, err := orderQuantity(totalQuantity)
		if err != nil {
			return err
		}
		number, err := numbering.New(tx).Next(ctx)
		if err != nil {
			return err
		}
		created, err = tx.CreateOrder(ctx, db.CreateOrderParams{
			OrderNumber:   number,
			Status:        StatusNew.String(),
			UserID:        order.UserID,
			CustomerName:  optional(order.CustomerName),
			CustomerPhone: optional(order.CustomerPhone),
			CustomerEmail: optional(order.CustomerEmail),
			WarehouseID:   order.WarehouseID,
			DeliveryType:  optional(order.DeliveryType),
			DeliveryData:  order.DeliveryData,
			Comment:       optional(order.Comment),
			TotalPrice:    totalPrice,
			TotalQuantity: quantity,
			PaymentType:   optional(order.PaymentType),
		})
		if err != nil {
			return err
		}
		if items, err = insertItems(ctx, tx, created.ID, lines); err != nil {
			return err
		}
		_, err = tx.AppendStatusHistory(ctx, db.AppendStatusHistoryParams{OrderID: created.ID, Status: StatusNew.String()})
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "create", withProductNames(err, lines))
	}

	slog.InfoContext(ctx, "Order created", "order_id", created.ID, "order_number", created.OrderNumber, "lines", len(items))
	s.publish(ctx, events.OrderCreatedEvent{
		Envelope:      envelope(ctx, created.ID),
		OrderNumber:   created.OrderNumber,
		UserID:        created.UserID,
		WarehouseID:   created.WarehouseID,
		TotalPrice:    created.TotalPrice,
		TotalQuantity: created.TotalQuantity,
		CreatedAt:     timeOrNow(created.CreatedAt),
	})
	// increase the number of created orders
	s.ordersCounter.Add(ctx, 1)

	return toDto(created, items), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, update OrderUpdateDto) (*OrderDto, error) {
	if update.TotalPrice != nil && update.TotalPrice.IsNegative() {
		return nil, s.fail(ctx, "update", fmt.Errorf("%w: negative total price", ordererrors.ErrInvalidOrder))
	}
	var lines []line
	if update.Items != nil {
		if len(update.Items) == 0 {
			return nil, s.fail(ctx, "update", fmt.Errorf("%w: an order needs at least one item", ordererrors.ErrInvalidOrder))
		}
		warehouseID := update.WarehouseID
		if warehouseID == nil {
			current, _, err := s.store.FindByID(ctx, id)
			if err != nil {
				return nil, s.fail(ctx, "update", err)
			}
			warehouseID = &current.WarehouseID
		}
		var err error
		if lines, err = s.resolveLines(ctx, *warehouseID, update.Items); err != nil {
			return nil, s.fail(ctx, "update", err)
		}
	} else if update.WarehouseID != nil {
		if _, err := s.store.FindWarehouse(ctx, *update.WarehouseID); err != nil {
			return nil, s.fail(ctx, "update", err)
		}
	}

	var updated *db.Order
	var items []db.OrderItem
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if update.Version != nil && *update.Version != current.Version {
			return ordererrors.ErrOptimisticLock
		}
		params := db.UpdateOrderParams{
			ID:            id,
			CustomerName:  update.CustomerName,
			CustomerPhone: update.CustomerPhone,
			CustomerEmail: update.CustomerEmail,
			WarehouseID:   update.WarehouseID,
			DeliveryType:  update.DeliveryType,
			DeliveryData:  update.DeliveryData,
			Comment:       update.Comment,
			PaymentType:   update.PaymentType,
		}
		if lines != nil {
			if !Status(current.Status).ItemsEditable() {
				return fmt.Errorf("%w: order is %s", ordererrors.ErrOrderNotEditable, current.Status)
			}
			if items, err = s.replaceItems(ctx, tx, id, lines); err != nil {
				return err
			}
			totalPrice, totalQuantity := totals(lines)
			quantity, err := orderQuantity(totalQuantity)
			if err != nil {
				return err
			}
			params.TotalPrice = decimal.NewNullDecimal(totalPrice)
			params.TotalQuantity = &quantity
		}
		if update.TotalPrice != nil {
			params.TotalPrice = decimal.NewNullDecimal(*update.TotalPrice)
		}
		if updated, err = tx.UpdateOrder(ctx, params); err != nil {
			return err
		}
		if lines == nil {
			items, err = tx.OrderItems(ctx, id)
		}
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "update", withProductNames(err, lines))
	}

	slog.InfoContext(ctx, "Order updated", "order_id", id, "version", updated.Version, "items_changed", lines != nil)
	s.publish(ctx, events.OrderUpdatedEvent{
		Envelope:      envelope(ctx, id),
		OrderNumber:   updated.OrderNumber,
		ItemsChanged:  lines != nil,
		TotalPrice:    updated.TotalPrice,
		TotalQuantity: updated.TotalQuantity,
		Version:       updated.Version,
		UpdatedAt:     timeOrNow(updated.UpdatedAt),
	})
	return toDto(updated, items), nil
}

// replaceItems releases the current lines and reserves the new ones. A failed
// reservation fails the transaction, which restores the released stock.
func (s *Service) replaceItems(ctx context.Context, tx store.Tx, orderID uuid.UUID, lines []line) ([]db.OrderItem, error) {
	old, err := tx.OrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ledger := inventory.NewLedger(tx)
	if err := s.coordinator.Release(ctx, ledger, itemsToReservation(old)); err != nil {
		return nil, err
	}
	if err := tx.DeleteOrderItems(ctx, orderID); err != nil {
		return nil, err
	}
	if err := s.coordinator.Reserve(ctx, ledger, toReservation(lines)); err != nil {
		return nil, err
	}
	return insertItems(ctx, tx, orderID, lines)
}

func (s *Service) TransitionStatus(ctx context.Context, id uuid.UUID, change StatusChangeDto) (*OrderDto, error) {
	next, err := ParseStatus(change.Status)
	if err != nil {
		return nil, s.fail(ctx, "transition", err)
	}

	var from Status
	var restocked int32
	var updated *db.Order
	var items []db.OrderItem
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		from = Status(current.Status)
		if !from.CanTransition(next) {
			return fmt.Errorf("%w: %s -> %s", ordererrors.ErrInvalidTransition, from, next)
		}
		if items, err = tx.OrderItems(ctx, id); err != nil {
			return err
		}
		// the order row lock makes the restock happen once per order
		if next.Restocks() && !from.Restocks() {
			if err := s.coordinator.Release(ctx, inventory.NewLedger(tx), itemsToReservation(items)); err != nil {
				return err
			}
			restocked = sumQuantity(items)
		}
		if updated, err = tx.UpdateOrderStatus(ctx, db.UpdateOrderStatusParams{ID: id, Status: next.String()}); err != nil {
			return err
		}
		_, err = tx.AppendStatusHistory(ctx, db.AppendStatusHistoryParams{OrderID: id, Status: next.String(), Comment: optional(change.Comment)})
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "transition", err)
	}

	slog.InfoContext(ctx, "Order status changed", "order_id", id, "from", from, "to", next, "restocked_units", restocked)
	if restocked > 0 {
		s.restockedUnits.Add(ctx, int64(restocked))
	}
	s.publish(ctx, events.OrderStatusChangedEvent{
		Envelope:    envelope(ctx, id),
		OrderNumber: updated.OrderNumber,
		From:        from.String(),
		To:          next.String(),
		Restocked:   restocked > 0,
		ChangedAt:   timeOrNow(updated.UpdatedAt),
	})
	return toDto(updated, items), nil
}

func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	var removed *db.Order
	var restocked int32
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		if removed, err = tx.LockOrder(ctx, id); err != nil {
			return err
		}
		if !Status(removed.Status).Restocks() {
			items, err := tx.OrderItems(ctx, id)
			if err != nil {
				return err
			}
			if len(items) > 0 {
				if err := s.coordinator.Release(ctx, inventory.NewLedger(tx), itemsToReservation(items)); err != nil {
					return err
				}
			}
			restocked = sumQuantity(items)
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return s.fail(ctx, "remove", err)
	}

	slog.InfoContext(ctx, "Order removed", "order_id", id, "status", removed.Status, "restocked_units", restocked)
	if restocked > 0 {
		s.restockedUnits.Add(ctx, int64(restocked))
	}
	s.publish(ctx, events.OrderRemovedEvent{
		Envelope:    envelope(ctx, id),
		OrderNumber: removed.OrderNumber,
		Status:      removed.Status,
		Restocked:   restocked > 0,
		RemovedAt:   time.Now().UTC(),
	})
	return nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*OrderDto, error) {
	order, items, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDto(order, items), nil
}

func (s *Service) List(ctx context.Context, query ListOrdersQuery) (*OrderPage, error) {
	pageNum, limit, offset, err := normalizePage(query.Page, query.Limit)
	if err != nil {
		return nil, err
	}
	params := db.ListOrdersParams{
		WarehouseID: query.WarehouseID,
		UserID:      query.UserID,
		SortBy:      query.SortBy,
		SortDesc:    strings.EqualFold(query.SortOrder, "desc"),
		RowLimit:    limit,
		RowOffset:   offset,
	}
	if query.Status != "" {
		status, err := ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		statusName := status.String()
		params.Status = &statusName
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		params.Search = &search
	}

	orders, total, err := s.store.ListOrders(ctx, params)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	items, err := s.store.FindItemsByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[uuid.UUID][]db.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	dtos := make([]OrderDto, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, *toDto(&orders[i], byOrder[orders[i].ID]))
	}
	return &OrderPage{Items: dtos, Total: total, Page: pageNum, Limit: limit}, nil
}

func (s *Service) StatusHistory(ctx context.Context, id uuid.UUID) ([]HistoryDto, error) {
	if _, _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.store.StatusHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	dtos := make([]HistoryDto, 0, len(history))
	for i := range history {
		dtos = append(dtos, toHistoryDto(&history[i]))
	}
	return dtos, nil
}

func (s *Service) ListHistory(ctx context.Context, query ListHistoryQuery) (*HistoryPage, error) {
	pageNum, limit, offset, err := normalizePage(query.Page, query.Limit)
	if err != nil {
		return nil, err
	}
	params := db.ListStatusHistoryPageParams{OrderID: query.OrderID, RowLimit: limit, RowOffset: offset}
	if query.Status != "" {
		status, err := ParseStatus(query.Status)
		if err != nil {
			return nil, err
		}
		statusName := status.String()
		params.Status = &statusName
	}

	history, total, err := s.store.ListHistory(ctx, params)
	if err != nil {
		return nil, err
	}
	dtos := make([]HistoryDto, 0, len(history))
	for i := range history {
		dtos = append(dtos, toHistoryDto(&history[i]))
	}
	return &HistoryPage{Items: dtos, Total: total, Page: pageNum, Limit: limit}, nil
}

func (s *Service) UpdateHistoryComment(ctx context.Context, historyID uuid.UUID, comment string) (*HistoryDto, error) {
	h, err := s.store.UpdateHistoryComment(ctx, db.UpdateStatusHistoryCommentParams{ID: historyID, Comment: optional(comment)})
	if err != nil {
		return nil, err
	}
	dto := toHistoryDto(h)
	return &dto, nil
}

func (s *Service) AddComment(ctx context.Context, id uuid.UUID, comment string) (*OrderDto, error) {
	return s.Update(ctx, id, OrderUpdateDto{Comment: &comment})
}

func (s *Service) Repeat(ctx context.Context, id uuid.UUID) (*OrderDto, error) {
	source, items, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	repeat := OrderCreateDto{
		UserID:        source.UserID,
		CustomerName:  deref(source.CustomerName),
		CustomerPhone: deref(source.CustomerPhone),
		CustomerEmail: deref(source.CustomerEmail),
		WarehouseID:   source.WarehouseID,
		DeliveryType:  deref(source.DeliveryType),
		DeliveryData:  source.DeliveryData,
		PaymentType:   deref(source.PaymentType),
		Items:         make([]OrderItemInput, 0, len(items)),
	}
	// prices are taken from the catalog again
	for _, item := range items {
		repeat.Items = append(repeat.Items, OrderItemInput{
			ProductID:   item.ProductID,
			WarehouseID: &item.WarehouseID,
			Quantity:    item.Quantity,
		})
	}
	created, err := s.Create(ctx, repeat)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Order repeated", "source_order_id", id, "order_id", created.ID)
	return created, nil
}

func (s *Service) Stats(ctx context.Context) (*StatsDto, error) {
	rows, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &StatsDto{TotalSum: decimal.Zero, ByStatus: make([]StatusStatsDto, 0, len(rows))}
	for _, row := range rows {
		stats.TotalOrders += row.Orders
		stats.TotalSum = stats.TotalSum.Add(row.Total)
		stats.ByStatus = append(stats.ByStatus, StatusStatsDto{Status: row.Status, Orders: row.Orders, Total: row.Total})
	}
	return stats, nil
}

func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, report PaymentReportDto) (*OrderDto, error) {
	paymentStatus := strings.ToUpper(strings.TrimSpace(report.Status))
	if _, ok := paymentStatuses[paymentStatus]; !ok {
		return nil, s.fail(ctx, "payment", fmt.Errorf("%w: unknown payment status %q", ordererrors.ErrInvalidOrder, report.Status))
	}

	var updated *db.Order
	var items []db.OrderItem
	changed := false
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		updated = current
		if current.PaymentStatus != paymentStatus {
			if updated, err = tx.UpdatePaymentStatus(ctx, db.UpdateOrderPaymentStatusParams{ID: id, PaymentStatus: paymentStatus}); err != nil {
				return err
			}
			changed = true
		}
		items, err = tx.OrderItems(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "payment", err)
	}

	if changed {
		slog.InfoContext(ctx, "Payment status recorded", "order_id", id, "payment_status", paymentStatus, "external_id", report.ExternalID)
		s.publish(ctx, events.OrderUpdatedEvent{
			Envelope:      envelope(ctx, id),
			OrderNumber:   updated.OrderNumber,
			TotalPrice:    updated.TotalPrice,
			TotalQuantity: updated.TotalQuantity,
			Version:       updated.Version,
			UpdatedAt:     timeOrNow(updated.UpdatedAt),
		})
	}
	return toDto(updated, items), nil
}

var paymentStatuses = map[string]struct{}{
	"PENDING":  {},
	"PAID":     {},
	"FAILED":   {},
	"REFUNDED": {},
}

// fail logs a failed operation by outcome and returns err unchanged.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	outcome := ordererrors.Classify(err)
	switch outcome {
	case ordererrors.OutcomeRejected:
		slog.InfoContext(ctx, "Order operation rejected", "op", op, "error", err)
	case ordererrors.OutcomeRetryable:
		slog.WarnContext(ctx, "Order operation aborted by a transaction conflict", "op", op, "error", err)
	case ordererrors.OutcomeInvariant:
		slog.ErrorContext(ctx, "Invariant violated, operation aborted", "op", op, "error", err)
	default:
		slog.ErrorContext(ctx, "Order operation failed", "op", op, "error", err)
	}
	s.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome.String()),
	))
	return err
}

// publish sends the event after commit. A failed publish does not fail the operation.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "order_id", event.Key(), "error", err)
	}
}

func envelope(ctx context.Context, orderID uuid.UUID) events.Envelope {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return events.Envelope{EventID: uuid.New(), Carrier: carrier, OrderID: orderID}
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return *t
}

// normalizePage applies the defaults and returns the row offset of the page.
func normalizePage(page, limit int32) (int32, int32, int32, error) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := (int64(page) - 1) * int64(limit)
	if offset > math.MaxInt32 {
		return 0, 0, 0, fmt.Errorf("%w: page %d with limit %d", ordererrors.ErrPageOutOfRange, page, limit)
	}
	return page, limit, int32(offset), nil
}
