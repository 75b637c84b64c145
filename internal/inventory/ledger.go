// Package inventory implements the stock ledger and the stock query surface.
package inventory

import (
	"bytes"
	"context"
	"fmt"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
)

// Key identifies one stock record.
type Key struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
}

func (k Key) String() string {
	return k.ProductID.String() + "@" + k.WarehouseID.String()
}

// Compare orders keys by product, then warehouse.
func (k Key) Compare(other Key) int {
	if c := bytes.Compare(k.ProductID[:], other.ProductID[:]); c != 0 {
		return c
	}
	return bytes.Compare(k.WarehouseID[:], other.WarehouseID[:])
}

// Ledger applies stock changes through the transaction it is bound to.
type Ledger struct {
	tx store.StockTx
}

// NewLedger binds a Ledger to the given transaction.
func NewLedger(tx store.StockTx) *Ledger {
	return &Ledger{tx: tx}
}

// TryDecrement takes amount units from the record in one conditional update.
// When the record holds less, nothing changes and an *InsufficientStockError
// carrying the available quantity is returned.
func (l *Ledger) TryDecrement(ctx context.Context, key Key, amount int32) (int32, error) {
	if amount <= 0 {
		return 0, ordererrors.ErrInvalidQuantity
	}
	remaining, ok, err := l.tx.TryDecrementStock(ctx, db.TryDecrementStockParams{
		Amount:      amount,
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
	})
	if err != nil {
		return 0, err
	}
	if !ok {
		available, err := l.tx.StockQuantity(ctx, key.ProductID, key.WarehouseID)
		if err != nil {
			return 0, err
		}
		return 0, &ordererrors.InsufficientStockError{Shortfalls: []ordererrors.Shortfall{{
			ProductID:   key.ProductID,
			WarehouseID: key.WarehouseID,
			Requested:   int64(amount),
			Available:   available,
		}}}
	}
	if remaining < 0 {
		return 0, fmt.Errorf("%w: stock %s is negative after decrement", ordererrors.ErrInvariantViolation, key)
	}
	return remaining, nil
}

// Increment adds amount units to the record, creating it if needed.
func (l *Ledger) Increment(ctx context.Context, key Key, amount int32) (int32, error) {
	if amount <= 0 {
		return 0, ordererrors.ErrInvalidQuantity
	}
	return l.tx.IncrementStock(ctx, db.IncrementStockParams{
		ProductID:   key.ProductID,
		WarehouseID: key.WarehouseID,
		Quantity:    amount,
	})
}

// Peek reads the current quantity. It must not be used to decide a decrement.
func (l *Ledger) Peek(ctx context.Context, key Key) (int32, error) {
	return l.tx.StockQuantity(ctx, key.ProductID, key.WarehouseID)
}
