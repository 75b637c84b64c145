package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes that mean the transaction lost a race and can be retried.
var conflictCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled (statement or lock timeout)
}

// PostgreSQL error codes raised by the schema constraints that guard the ledger and the sequence.
var invariantCodes = map[string]struct{}{
	"23505": {}, // unique_violation
	"23514": {}, // check_violation
}

// numeric_value_out_of_range: an int4 column such as stock_records.quantity would overflow.
const outOfRangeCode = "22003"

type PgStore struct {
	db          *pgxpool.Pool
	q           *db.Queries
	lockTimeout time.Duration
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
// A positive lockTimeout bounds how long a transaction waits for a row lock.
func NewPgStore(dbp *pgxpool.Pool, lockTimeout time.Duration) *PgStore {
	return &PgStore{
		db:          dbp,
		q:           db.New(dbp),
		lockTimeout: lockTimeout,
	}
}

func (p *PgStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return p.withTransaction(ctx, func(qtx *db.Queries) error {
		return fn(&pgTx{q: qtx})
	})
}

func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*db.Order, []db.OrderItem, error) {
	var order *db.Order
	var orderItems []db.OrderItem

	// Use transaction to read the order and its items from one snapshot
	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		o, err := qtx.FindOrderByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ordererrors.ErrOrderNotFound
			}
			return fmt.Errorf("failed to find order: %w", translate(err))
		}
		i, err := qtx.FindOrderItemsByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to find order items: %w", translate(err))
		}
		order = &o
		orderItems = i
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return order, orderItems, nil
}

func (p *PgStore) ListOrders(ctx context.Context, params db.ListOrdersParams) ([]db.Order, int64, error) {
	var orders []db.Order
	var total int64

	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		total, err = qtx.CountOrders(ctx, db.CountOrdersParams{
			Status:      params.Status,
			WarehouseID: params.WarehouseID,
			UserID:      params.UserID,
			Search:      params.Search,
		})
		if err != nil {
			return fmt.Errorf("failed to count orders: %w", translate(err))
		}
		orders, err = qtx.ListOrders(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list orders: %w", translate(err))
		}
		return nil
	})
	if txErr != nil {
		return nil, 0, txErr
	}
	return orders, total, nil
}

func (p *PgStore) FindItemsByOrderIDs(ctx context.Context, orderIDs []uuid.UUID) ([]db.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	items, err := p.q.FindOrderItemsByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to find order items: %w", translate(err))
	}
	return items, nil
}

func (p *PgStore) StatusHistory(ctx context.Context, orderID uuid.UUID) ([]db.OrderStatusHistory, error) {
	history, err := p.q.ListStatusHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", translate(err))
	}
	return history, nil
}

func (p *PgStore) ListHistory(ctx context.Context, params db.ListStatusHistoryPageParams) ([]db.OrderStatusHistory, int64, error) {
	var history []db.OrderStatusHistory
	var total int64

	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		total, err = qtx.CountStatusHistory(ctx, db.CountStatusHistoryParams{OrderID: params.OrderID, Status: params.Status})
		if err != nil {
			return fmt.Errorf("failed to count status history: %w", translate(err))
		}
		if history, err = qtx.ListStatusHistoryPage(ctx, params); err != nil {
			return fmt.Errorf("failed to list status history: %w", translate(err))
		}
		return nil
	})
	if txErr != nil {
		return nil, 0, txErr
	}
	return history, total, nil
}

func (p *PgStore) UpdateHistoryComment(ctx context.Context, params db.UpdateStatusHistoryCommentParams) (*db.OrderStatusHistory, error) {
	h, err := p.q.UpdateStatusHistoryComment(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to update status history: %w", translate(err))
	}
	return &h, nil
}

func (p *PgStore) Stats(ctx context.Context) ([]db.OrderStatsRow, error) {
	rows, err := p.q.OrderStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect order stats: %w", translate(err))
	}
	return rows, nil
}

func (p *PgStore) FindProducts(ctx context.Context, ids []uuid.UUID) ([]db.Product, error) {
	products, err := p.q.FindProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", translate(err))
	}
	return products, nil
}

func (p *PgStore) FindWarehouse(ctx context.Context, id uuid.UUID) (*db.Warehouse, error) {
	w, err := p.q.FindWarehouseByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("failed to find warehouse: %w", translate(err))
	}
	return &w, nil
}

func (p *PgStore) StockQuantity(ctx context.Context, productID, warehouseID uuid.UUID) (int32, error) {
	return stockQuantity(ctx, p.q, productID, warehouseID)
}

func (p *PgStore) ListWarehouseStock(ctx context.Context, params db.ListWarehouseStockParams) ([]db.ListWarehouseStockRow, int64, error) {
	var rows []db.ListWarehouseStockRow
	var total int64

	txErr := p.withTransaction(ctx, func(qtx *db.Queries) error {
		var err error
		total, err = qtx.CountWarehouseStock(ctx, db.CountWarehouseStockParams{
			WarehouseID: params.WarehouseID,
			Search:      params.Search,
			CategoryID:  params.CategoryID,
			IsActive:    params.IsActive,
		})
		if err != nil {
			return fmt.Errorf("failed to count stock records: %w", translate(err))
		}
		rows, err = qtx.ListWarehouseStock(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list stock records: %w", translate(err))
		}
		return nil
	})
	if txErr != nil {
		return nil, 0, txErr
	}
	return rows, total, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(qtx *db.Queries) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionBegin, translate(err))
	}
	qtx := p.q.WithTx(tx)

	if p.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", fmt.Sprintf("%dms", p.lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("%w: %w", ordererrors.ErrTransactionBegin, translate(err))
		}
	}

	err = fn(qtx)
	if err != nil {
		// the caller's context may already be done, rollback must still reach the server
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %w", ordererrors.ErrTransactionRollback, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if translated := translate(err); translated != err {
			return translated
		}
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionCommit, err)
	}

	return nil
}

// pgTx implements Tx on top of one pgx transaction.
type pgTx struct {
	q *db.Queries
}

func (t *pgTx) TryDecrementStock(ctx context.Context, params db.TryDecrementStockParams) (int32, bool, error) {
	remaining, err := t.q.TryDecrementStock(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to decrement stock: %w", translate(err))
	}
	return remaining, true, nil
}

func (t *pgTx) IncrementStock(ctx context.Context, params db.IncrementStockParams) (int32, error) {
	quantity, err := t.q.IncrementStock(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("failed to increment stock: %w", translate(err))
	}
	return quantity, nil
}

func (t *pgTx) StockQuantity(ctx context.Context, productID, warehouseID uuid.UUID) (int32, error) {
	return stockQuantity(ctx, t.q, productID, warehouseID)
}

func (t *pgTx) NextOrderNumber(ctx context.Context) (int64, error) {
	n, err := t.q.NextOrderNumber(ctx)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: order sequence row is missing", ordererrors.ErrInvariantViolation)
		}
		return 0, fmt.Errorf("failed to issue order number: %w", translate(err))
	}
	return n, nil
}

func (t *pgTx) LockOrder(ctx context.Context, id uuid.UUID) (*db.Order, error) {
	o, err := t.q.LockOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", translate(err))
	}
	return &o, nil
}

func (t *pgTx) OrderItems(ctx context.Context, orderID uuid.UUID) ([]db.OrderItem, error) {
	items, err := t.q.FindOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order items: %w", translate(err))
	}
	return items, nil
}

func (t *pgTx) CreateOrder(ctx context.Context, params db.CreateOrderParams) (*db.Order, error) {
	o, err := t.q.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", translate(err))
	}
	return &o, nil
}

func (t *pgTx) CreateOrderItem(ctx context.Context, params db.CreateOrderItemParams) (*db.OrderItem, error) {
	item, err := t.q.CreateOrderItem(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", translate(err))
	}
	return &item, nil
}

func (t *pgTx) DeleteOrderItems(ctx context.Context, orderID uuid.UUID) error {
	if err := t.q.DeleteOrderItems(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete order items: %w", translate(err))
	}
	return nil
}

func (t *pgTx) UpdateOrder(ctx context.Context, params db.UpdateOrderParams) (*db.Order, error) {
	o, err := t.q.UpdateOrder(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", translate(err))
	}
	return &o, nil
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, params db.UpdateOrderStatusParams) (*db.Order, error) {
	o, err := t.q.UpdateOrderStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update order status: %w", translate(err))
	}
	return &o, nil
}

func (t *pgTx) UpdatePaymentStatus(ctx context.Context, params db.UpdateOrderPaymentStatusParams) (*db.Order, error) {
	o, err := t.q.UpdateOrderPaymentStatus(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to update payment status: %w", translate(err))
	}
	return &o, nil
}

func (t *pgTx) AppendStatusHistory(ctx context.Context, params db.AppendStatusHistoryParams) (*db.OrderStatusHistory, error) {
	h, err := t.q.AppendStatusHistory(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", translate(err))
	}
	return &h, nil
}

func (t *pgTx) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	n, err := t.q.DeleteOrder(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", translate(err))
	}
	if n == 0 {
		return ordererrors.ErrOrderNotFound
	}
	return nil
}

func stockQuantity(ctx context.Context, q *db.Queries, productID, warehouseID uuid.UUID) (int32, error) {
	quantity, err := q.GetStockQuantity(ctx, db.GetStockQuantityParams{ProductID: productID, WarehouseID: warehouseID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read stock quantity: %w", translate(err))
	}
	return quantity, nil
}

// translate maps driver errors onto the service error taxonomy and keeps the original in the chain.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := conflictCodes[pgErr.Code]; ok {
			return fmt.Errorf("%w: %w", ordererrors.ErrTransactionConflict, err)
		}
		if _, ok := invariantCodes[pgErr.Code]; ok {
			return fmt.Errorf("%w: %s: %w", ordererrors.ErrInvariantViolation, pgErr.ConstraintName, err)
		}
		if pgErr.Code == outOfRangeCode {
			return fmt.Errorf("%w: %w", ordererrors.ErrQuantityOutOfRange, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionConflict, err)
	}
	return err
}
