package store

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stockKey struct {
	productID   uuid.UUID
	warehouseID uuid.UUID
}

type memState struct {
	stock      map[stockKey]int32
	sequence   int64
	orders     map[uuid.UUID]db.Order
	items      map[uuid.UUID][]db.OrderItem
	history    map[uuid.UUID][]db.OrderStatusHistory
	products   map[uuid.UUID]db.Product
	warehouses map[uuid.UUID]db.Warehouse
}

func (s *memState) clone() *memState {
	c := &memState{
		stock:      maps.Clone(s.stock),
		sequence:   s.sequence,
		orders:     maps.Clone(s.orders),
		items:      make(map[uuid.UUID][]db.OrderItem, len(s.items)),
		history:    make(map[uuid.UUID][]db.OrderStatusHistory, len(s.history)),
		products:   s.products,
		warehouses: s.warehouses,
	}
	for k, v := range s.items {
		c.items[k] = slices.Clone(v)
	}
	for k, v := range s.history {
		c.history[k] = slices.Clone(v)
	}
	return c
}

// MemoryStore is an in-process Store. Transactions are serialized by one mutex and
// their writes become visible only when fn returns without an error.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			stock:      make(map[stockKey]int32),
			orders:     make(map[uuid.UUID]db.Order),
			items:      make(map[uuid.UUID][]db.OrderItem),
			history:    make(map[uuid.UUID][]db.OrderStatusHistory),
			products:   make(map[uuid.UUID]db.Product),
			warehouses: make(map[uuid.UUID]db.Warehouse),
		},
		now: time.Now,
	}
}

// AddProduct registers a product in the catalog read model.
func (m *MemoryStore) AddProduct(p db.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
}

// AddWarehouse registers a warehouse in the directory read model.
func (m *MemoryStore) AddWarehouse(w db.Warehouse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.warehouses[w.ID] = w
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionBegin, err)
	}

	work := m.state.clone()
	if err := fn(&memTx{st: work, now: m.now}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.state.orders[id]
	if !ok {
		return nil, nil, ordererrors.ErrOrderNotFound
	}
	return &o, slices.Clone(m.state.items[id]), nil
}

func (m *MemoryStore) ListOrders(_ context.Context, params db.ListOrdersParams) ([]db.Order, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []db.Order
	for _, o := range m.state.orders {
		if orderMatches(o, params) {
			matched = append(matched, o)
		}
	}
	slices.SortStableFunc(matched, func(a, b db.Order) int {
		if c := compareOrders(a, b, params.SortBy, params.SortDesc); c != 0 {
			return c
		}
		return cmp.Compare(b.OrderNumber, a.OrderNumber)
	})
	return page(matched, params.RowOffset, params.RowLimit), int64(len(matched)), nil
}

func (m *MemoryStore) FindItemsByOrderIDs(_ context.Context, orderIDs []uuid.UUID) ([]db.OrderItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var items []db.OrderItem
	for _, id := range orderIDs {
		items = append(items, m.state.items[id]...)
	}
	return items, nil
}

func (m *MemoryStore) StatusHistory(_ context.Context, orderID uuid.UUID) ([]db.OrderStatusHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.state.history[orderID]), nil
}

func (m *MemoryStore) ListHistory(_ context.Context, params db.ListStatusHistoryPageParams) ([]db.OrderStatusHistory, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []db.OrderStatusHistory
	for orderID, entries := range m.state.history {
		if params.OrderID != nil && orderID != *params.OrderID {
			continue
		}
		for _, h := range entries {
			if params.Status == nil || h.Status == *params.Status {
				matched = append(matched, h)
			}
		}
	}
	slices.SortFunc(matched, func(a, b db.OrderStatusHistory) int {
		if c := compareTime(b.CreatedAt, a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return page(matched, params.RowOffset, params.RowLimit), int64(len(matched)), nil
}

func (m *MemoryStore) UpdateHistoryComment(_ context.Context, params db.UpdateStatusHistoryCommentParams) (*db.OrderStatusHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for orderID, entries := range m.state.history {
		for i := range entries {
			if entries[i].ID == params.ID {
				entries[i].Comment = params.Comment
				m.state.history[orderID] = entries
				h := entries[i]
				return &h, nil
			}
		}
	}
	return nil, ordererrors.ErrHistoryNotFound
}

func (m *MemoryStore) Stats(_ context.Context) ([]db.OrderStatsRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	byStatus := make(map[string]*db.OrderStatsRow)
	for _, o := range m.state.orders {
		row, ok := byStatus[o.Status]
		if !ok {
			row = &db.OrderStatsRow{Status: o.Status, Total: decimal.Zero}
			byStatus[o.Status] = row
		}
		row.Orders++
		row.Total = row.Total.Add(o.TotalPrice)
	}
	rows := make([]db.OrderStatsRow, 0, len(byStatus))
	for _, status := range slices.Sorted(maps.Keys(byStatus)) {
		rows = append(rows, *byStatus[status])
	}
	return rows, nil
}

func (m *MemoryStore) FindProducts(_ context.Context, ids []uuid.UUID) ([]db.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var products []db.Product
	for _, id := range ids {
		if p, ok := m.state.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (m *MemoryStore) FindWarehouse(_ context.Context, id uuid.UUID) (*db.Warehouse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.state.warehouses[id]
	if !ok {
		return nil, ordererrors.ErrWarehouseNotFound
	}
	return &w, nil
}

func (m *MemoryStore) StockQuantity(_ context.Context, productID, warehouseID uuid.UUID) (int32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.stock[stockKey{productID: productID, warehouseID: warehouseID}], nil
}

func (m *MemoryStore) ListWarehouseStock(_ context.Context, params db.ListWarehouseStockParams) ([]db.ListWarehouseStockRow, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []db.ListWarehouseStockRow
	for key, quantity := range m.state.stock {
		if key.warehouseID != params.WarehouseID {
			continue
		}
		p, ok := m.state.products[key.productID]
		if !ok || !productMatches(p, params) {
			continue
		}
		rows = append(rows, db.ListWarehouseStockRow{
			ProductID:    key.productID,
			WarehouseID:  key.warehouseID,
			Quantity:     quantity,
			Name:         p.Name,
			Description:  p.Description,
			CategoryID:   p.CategoryID,
			CategoryName: p.CategoryName,
			Price:        p.Price,
			IsActive:     p.IsActive,
		})
	}
	slices.SortStableFunc(rows, func(a, b db.ListWarehouseStockRow) int {
		var c int
		switch params.SortBy {
		case "price":
			c = a.Price.Cmp(b.Price)
		case "quantity":
			c = cmp.Compare(a.Quantity, b.Quantity)
		case "name":
			c = strings.Compare(a.Name, b.Name)
		}
		if params.SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		if c = strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ProductID.String(), b.ProductID.String())
	})
	return page(rows, params.RowOffset, params.RowLimit), int64(len(rows)), nil
}

// memTx is the write side of MemoryStore inside WithinTx.
type memTx struct {
	st  *memState
	now func() time.Time
}

func (t *memTx) TryDecrementStock(_ context.Context, params db.TryDecrementStockParams) (int32, bool, error) {
	key := stockKey{productID: params.ProductID, warehouseID: params.WarehouseID}
	current, ok := t.st.stock[key]
	if !ok || current < params.Amount {
		return 0, false, nil
	}
	t.st.stock[key] = current - params.Amount
	return current - params.Amount, true, nil
}

func (t *memTx) IncrementStock(_ context.Context, params db.IncrementStockParams) (int32, error) {
	key := stockKey{productID: params.ProductID, warehouseID: params.WarehouseID}
	next := int64(t.st.stock[key]) + int64(params.Quantity)
	switch {
	case next > math.MaxInt32:
		return 0, fmt.Errorf("%w: stock %s@%s", ordererrors.ErrQuantityOutOfRange, params.ProductID, params.WarehouseID)
	case next < 0:
		return 0, fmt.Errorf("%w: stock_records_quantity_check", ordererrors.ErrInvariantViolation)
	}
	t.st.stock[key] = int32(next)
	return t.st.stock[key], nil
}

func (t *memTx) StockQuantity(_ context.Context, productID, warehouseID uuid.UUID) (int32, error) {
	return t.st.stock[stockKey{productID: productID, warehouseID: warehouseID}], nil
}

func (t *memTx) NextOrderNumber(_ context.Context) (int64, error) {
	t.st.sequence++
	return t.st.sequence, nil
}

func (t *memTx) LockOrder(_ context.Context, id uuid.UUID) (*db.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, ordererrors.ErrOrderNotFound
	}
	return &o, nil
}

func (t *memTx) OrderItems(_ context.Context, orderID uuid.UUID) ([]db.OrderItem, error) {
	return slices.Clone(t.st.items[orderID]), nil
}

func (t *memTx) CreateOrder(_ context.Context, params db.CreateOrderParams) (*db.Order, error) {
	for _, o := range t.st.orders {
		if o.OrderNumber == params.OrderNumber {
			return nil, fmt.Errorf("%w: orders_order_number_key", ordererrors.ErrInvariantViolation)
		}
	}
	now := t.now()
	o := db.Order{
		ID:            uuid.New(),
		OrderNumber:   params.OrderNumber,
		Status:        params.Status,
		UserID:        params.UserID,
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		CustomerEmail: params.CustomerEmail,
		WarehouseID:   params.WarehouseID,
		DeliveryType:  params.DeliveryType,
		DeliveryData:  params.DeliveryData,
		Comment:       params.Comment,
		TotalPrice:    params.TotalPrice,
		TotalQuantity: params.TotalQuantity,
		PaymentType:   params.PaymentType,
		PaymentStatus: "PENDING",
		Version:       1,
		CreatedAt:     &now,
		UpdatedAt:     &now,
	}
	t.st.orders[o.ID] = o
	return &o, nil
}

func (t *memTx) CreateOrderItem(_ context.Context, params db.CreateOrderItemParams) (*db.OrderItem, error) {
	if _, ok := t.st.orders[params.OrderID]; !ok {
		return nil, fmt.Errorf("%w: order_items_order_id_fkey", ordererrors.ErrInvariantViolation)
	}
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: order_items_quantity_check", ordererrors.ErrInvariantViolation)
	}
	now := t.now()
	item := db.OrderItem{
		ID:                  uuid.New(),
		OrderID:             params.OrderID,
		ProductID:           params.ProductID,
		WarehouseID:         params.WarehouseID,
		Quantity:            params.Quantity,
		Price:               params.Price,
		ProductName:         params.ProductName,
		ProductCategoryID:   params.ProductCategoryID,
		ProductCategoryName: params.ProductCategoryName,
		IsActive:            params.IsActive,
		CreatedAt:           &now,
	}
	t.st.items[params.OrderID] = append(t.st.items[params.OrderID], item)
	return &item, nil
}

func (t *memTx) DeleteOrderItems(_ context.Context, orderID uuid.UUID) error {
	delete(t.st.items, orderID)
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, params db.UpdateOrderParams) (*db.Order, error) {
	o, ok := t.st.orders[params.ID]
	if !ok {
		return nil, ordererrors.ErrOrderNotFound
	}
	o.CustomerName = coalesce(params.CustomerName, o.CustomerName)
	o.CustomerPhone = coalesce(params.CustomerPhone, o.CustomerPhone)
	o.CustomerEmail = coalesce(params.CustomerEmail, o.CustomerEmail)
	o.DeliveryType = coalesce(params.DeliveryType, o.DeliveryType)
	o.Comment = coalesce(params.Comment, o.Comment)
	o.PaymentType = coalesce(params.PaymentType, o.PaymentType)
	if params.WarehouseID != nil {
		o.WarehouseID = *params.WarehouseID
	}
	if params.DeliveryData != nil {
		o.DeliveryData = params.DeliveryData
	}
	if params.TotalPrice.Valid {
		o.TotalPrice = params.TotalPrice.Decimal
	}
	if params.TotalQuantity != nil {
		o.TotalQuantity = *params.TotalQuantity
	}
	return t.touch(o), nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, params db.UpdateOrderStatusParams) (*db.Order, error) {
	o, ok := t.st.orders[params.ID]
	if !ok {
		return nil, ordererrors.ErrOrderNotFound
	}
	o.Status = params.Status
	return t.touch(o), nil
}

func (t *memTx) UpdatePaymentStatus(_ context.Context, params db.UpdateOrderPaymentStatusParams) (*db.Order, error) {
	o, ok := t.st.orders[params.ID]
	if !ok {
		return nil, ordererrors.ErrOrderNotFound
	}
	o.PaymentStatus = params.PaymentStatus
	return t.touch(o), nil
}

func (t *memTx) AppendStatusHistory(_ context.Context, params db.AppendStatusHistoryParams) (*db.OrderStatusHistory, error) {
	if _, ok := t.st.orders[params.OrderID]; !ok {
		return nil, fmt.Errorf("%w: order_status_history_order_id_fkey", ordererrors.ErrInvariantViolation)
	}
	now := t.now()
	h := db.OrderStatusHistory{
		ID:        uuid.New(),
		OrderID:   params.OrderID,
		Status:    params.Status,
		Comment:   params.Comment,
		CreatedAt: &now,
	}
	t.st.history[params.OrderID] = append(t.st.history[params.OrderID], h)
	return &h, nil
}

func (t *memTx) DeleteOrder(_ context.Context, id uuid.UUID) error {
	if _, ok := t.st.orders[id]; !ok {
		return ordererrors.ErrOrderNotFound
	}
	delete(t.st.orders, id)
	delete(t.st.items, id)
	delete(t.st.history, id)
	return nil
}

func (t *memTx) touch(o db.Order) *db.Order {
	now := t.now()
	o.Version++
	o.UpdatedAt = &now
	t.st.orders[o.ID] = o
	return &o
}

func coalesce[T any](v, fallback *T) *T {
	if v != nil {
		return v
	}
	return fallback
}

func page[T any](rows []T, offset, limit int32) []T {
	if offset < 0 || int(offset) >= len(rows) {
		return nil
	}
	end := len(rows)
	if limit > 0 && int(offset)+int(limit) < end {
		end = int(offset) + int(limit)
	}
	return rows[offset:end]
}

func containsFold(s *string, sub string) bool {
	return s != nil && strings.Contains(strings.ToLower(*s), strings.ToLower(sub))
}

func orderMatches(o db.Order, params db.ListOrdersParams) bool {
	if params.Status != nil && o.Status != *params.Status {
		return false
	}
	if params.WarehouseID != nil && o.WarehouseID != *params.WarehouseID {
		return false
	}
	if params.UserID != nil && (o.UserID == nil || *o.UserID != *params.UserID) {
		return false
	}
	if params.Search != nil {
		search := *params.Search
		return containsFold(o.CustomerName, search) ||
			containsFold(o.CustomerPhone, search) ||
			containsFold(o.CustomerEmail, search) ||
			strconv.FormatInt(o.OrderNumber, 10) == search
	}
	return true
}

func productMatches(p db.Product, params db.ListWarehouseStockParams) bool {
	if params.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *params.CategoryID) {
		return false
	}
	if params.IsActive != nil && p.IsActive != *params.IsActive {
		return false
	}
	if params.Search != nil {
		return containsFold(&p.Name, *params.Search) || containsFold(p.Description, *params.Search)
	}
	return true
}

func compareOrders(a, b db.Order, sortBy string, desc bool) int {
	var c int
	switch sortBy {
	case "createdAt":
		c = compareTime(a.CreatedAt, b.CreatedAt)
	case "price":
		c = a.TotalPrice.Cmp(b.TotalPrice)
	case "quantity":
		c = cmp.Compare(a.TotalQuantity, b.TotalQuantity)
	case "name":
		c = strings.Compare(deref(a.CustomerName), deref(b.CustomerName))
	}
	if desc {
		return -c
	}
	return c
}

func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
