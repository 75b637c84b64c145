package store

import (
	"context"
	"errors"
	"math"
	"testing"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore_WithinTx(t *testing.T) {
	productID, warehouseID := uuid.New(), uuid.New()
	abort := errors.New("abort")

	tests := []struct {
		name         string
		fnErr        error
		wantStock    int32
		wantSequence int64
	}{
		{name: "commit applies every write", fnErr: nil, wantStock: 7, wantSequence: 1},
		{name: "rollback discards every write", fnErr: abort, wantStock: 0, wantSequence: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			m := NewMemoryStore()

			// when
			err := m.WithinTx(ctx, func(tx Tx) error {
				if _, err := tx.IncrementStock(ctx, db.IncrementStockParams{ProductID: productID, WarehouseID: warehouseID, Quantity: 7}); err != nil {
					return err
				}
				if _, err := tx.NextOrderNumber(ctx); err != nil {
					return err
				}
				return tt.fnErr
			})

			// then
			if tt.fnErr != nil {
				require.ErrorIs(t, err, tt.fnErr)
			} else {
				require.NoError(t, err)
			}
			q, err := m.StockQuantity(ctx, productID, warehouseID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStock, q)

			var next int64
			require.NoError(t, m.WithinTx(ctx, func(tx Tx) error {
				next, err = tx.NextOrderNumber(ctx)
				return err
			}))
			assert.Equal(t, tt.wantSequence+1, next)
		})
	}
}

func Test_MemoryStore_TryDecrementStock(t *testing.T) {
	productID, warehouseID := uuid.New(), uuid.New()

	tests := []struct {
		name          string
		initial       int32
		amount        int32
		wantOK        bool
		wantRemaining int32
	}{
		{name: "enough stock", initial: 5, amount: 2, wantOK: true, wantRemaining: 3},
		{name: "exact stock", initial: 2, amount: 2, wantOK: true, wantRemaining: 0},
		{name: "short stock", initial: 1, amount: 2, wantOK: false, wantRemaining: 1},
		{name: "missing record", initial: 0, amount: 1, wantOK: false, wantRemaining: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			m := NewMemoryStore()
			if tt.initial > 0 {
				require.NoError(t, m.WithinTx(ctx, func(tx Tx) error {
					_, err := tx.IncrementStock(ctx, db.IncrementStockParams{ProductID: productID, WarehouseID: warehouseID, Quantity: tt.initial})
					return err
				}))
			}

			// when
			var ok bool
			err := m.WithinTx(ctx, func(tx Tx) error {
				var err error
				_, ok, err = tx.TryDecrementStock(ctx, db.TryDecrementStockParams{Amount: tt.amount, ProductID: productID, WarehouseID: warehouseID})
				return err
			})

			// then
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			q, err := m.StockQuantity(ctx, productID, warehouseID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRemaining, q)
		})
	}
}

func Test_MemoryStore_IncrementStock_Bounds(t *testing.T) {
	productID, warehouseID := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		initial int32
		amount  int32
		wantErr error
	}{
		{name: "negative balance", initial: 0, amount: -3, wantErr: ordererrors.ErrInvariantViolation},
		{name: "sum beyond int32", initial: math.MaxInt32, amount: 1, wantErr: ordererrors.ErrQuantityOutOfRange},
		{name: "sum at int32 limit", initial: math.MaxInt32 - 1, amount: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			m := NewMemoryStore()
			if tt.initial > 0 {
				require.NoError(t, m.WithinTx(ctx, func(tx Tx) error {
					_, err := tx.IncrementStock(ctx, db.IncrementStockParams{ProductID: productID, WarehouseID: warehouseID, Quantity: tt.initial})
					return err
				}))
			}

			// when
			err := m.WithinTx(ctx, func(tx Tx) error {
				_, err := tx.IncrementStock(ctx, db.IncrementStockParams{ProductID: productID, WarehouseID: warehouseID, Quantity: tt.amount})
				return err
			})

			// then
			q, qErr := m.StockQuantity(ctx, productID, warehouseID)
			require.NoError(t, qErr)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.initial, q, "failed increment leaves the record unchanged")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.initial+tt.amount, q)
		})
	}
}

func Test_MemoryStore_CreateOrder_DuplicateNumber(t *testing.T) {
	// given
	ctx := context.Background()
	m := NewMemoryStore()
	params := db.CreateOrderParams{OrderNumber: 7, Status: "NEW", WarehouseID: uuid.New(), TotalPrice: decimal.NewFromInt(1), TotalQuantity: 1}
	require.NoError(t, m.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateOrder(ctx, params)
		return err
	}))

	// when
	err := m.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.CreateOrder(ctx, params)
		return err
	})

	// then
	require.ErrorIs(t, err, ordererrors.ErrInvariantViolation)
	assert.Equal(t, ordererrors.OutcomeInvariant, ordererrors.Classify(err))
}

func Test_MemoryStore_DeleteOrder(t *testing.T) {
	// given
	ctx := context.Background()
	m := NewMemoryStore()
	var orderID uuid.UUID
	require.NoError(t, m.WithinTx(ctx, func(tx Tx) error {
		o, err := tx.CreateOrder(ctx, db.CreateOrderParams{OrderNumber: 1, Status: "NEW", WarehouseID: uuid.New(), TotalPrice: decimal.NewFromInt(10), TotalQuantity: 1})
		if err != nil {
			return err
		}
		orderID = o.ID
		_, err = tx.AppendStatusHistory(ctx, db.AppendStatusHistoryParams{OrderID: o.ID, Status: "NEW"})
		return err
	}))

	// when
	err := m.WithinTx(ctx, func(tx Tx) error {
		return tx.DeleteOrder(ctx, orderID)
	})

	// then
	require.NoError(t, err)
	_, _, err = m.FindByID(ctx, orderID)
	require.ErrorIs(t, err, ordererrors.ErrOrderNotFound)
	history, err := m.StatusHistory(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, history)

	err = m.WithinTx(ctx, func(tx Tx) error {
		return tx.DeleteOrder(ctx, orderID)
	})
	require.ErrorIs(t, err, ordererrors.ErrOrderNotFound)
}
