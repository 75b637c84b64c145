// Package store provides persistence for orders, stock records and the catalog read models.
package store

import (
	"context"

	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
)

// TxRunner runs a unit of work in one transaction.
// Any error returned by fn rolls back every write made through tx.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// OrderStore defines the read side of orders plus the transactional write path.
type OrderStore interface {
	TxRunner

	// FindByID returns the order and its items. Returns ErrOrderNotFound if the order does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error)

	// ListOrders returns one page of orders and the total number of orders matching the filter.
	ListOrders(ctx context.Context, params db.ListOrdersParams) ([]db.Order, int64, error)

	FindItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]db.OrderItem, error)

	// StatusHistory returns the history of an order, oldest entry first.
	StatusHistory(ctx context.Context, orderID uuid.UUID) ([]db.OrderStatusHistory, error)

	// ListHistory returns one page of history entries across orders, newest first, and the number of matching entries.
	ListHistory(ctx context.Context, params db.ListStatusHistoryPageParams) ([]db.OrderStatusHistory, int64, error)

	// UpdateHistoryComment changes the comment of a history entry. Returns ErrHistoryNotFound if it does not exist.
	UpdateHistoryComment(ctx context.Context, params db.UpdateStatusHistoryCommentParams) (*db.OrderStatusHistory, error)

	Stats(ctx context.Context) ([]db.OrderStatsRow, error)
}

// CatalogStore reads the product and warehouse directories. The engine never writes them.
type CatalogStore interface {
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]db.Product, error)

	// FindWarehouse returns ErrWarehouseNotFound if the warehouse does not exist.
	FindWarehouse(ctx context.Context, id uuid.UUID) (*db.Warehouse, error)
}

// StockStore is the read side of the stock ledger.
type StockStore interface {
	TxRunner

	// StockQuantity returns the current quantity, 0 when no record exists.
	StockQuantity(ctx context.Context, productID, warehouseID uuid.UUID) (int32, error)

	ListWarehouseStock(ctx context.Context, params db.ListWarehouseStockParams) ([]db.ListWarehouseStockRow, int64, error)
}

// Store is implemented by PgStore and MemoryStore.
type Store interface {
	OrderStore
	CatalogStore
	StockStore
}

// StockTx holds the stock ledger primitives bound to one transaction.
type StockTx interface {
	// TryDecrementStock subtracts the amount only if the record holds at least that much.
	// ok is false, and the record is left untouched, when it does not.
	TryDecrementStock(ctx context.Context, params db.TryDecrementStockParams) (remaining int32, ok bool, err error)

	// IncrementStock adds the amount, creating the record when it does not exist.
	IncrementStock(ctx context.Context, params db.IncrementStockParams) (int32, error)

	StockQuantity(ctx context.Context, productID, warehouseID uuid.UUID) (int32, error)
}

// Tx is the set of writes available inside WithinTx.
type Tx interface {
	StockTx

	// NextOrderNumber issues the next order number. The number is returned to the
	// sequence if the transaction rolls back.
	NextOrderNumber(ctx context.Context) (int64, error)

	// LockOrder reads the order and locks it until the transaction ends.
	LockOrder(ctx context.Context, id uuid.UUID) (*db.Order, error)

	OrderItems(ctx context.Context, orderID uuid.UUID) ([]db.OrderItem, error)
	CreateOrder(ctx context.Context, params db.CreateOrderParams) (*db.Order, error)
	CreateOrderItem(ctx context.Context, params db.CreateOrderItemParams) (*db.OrderItem, error)
	DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error
	UpdateOrder(ctx context.Context, params db.UpdateOrderParams) (*db.Order, error)
	UpdateOrderStatus(ctx context.Context, params db.UpdateOrderStatusParams) (*db.Order, error)
	UpdatePaymentStatus(ctx context.Context, params db.UpdateOrderPaymentStatusParams) (*db.Order, error)
	AppendStatusHistory(ctx context.Context, params db.AppendStatusHistoryParams) (*db.OrderStatusHistory, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}
