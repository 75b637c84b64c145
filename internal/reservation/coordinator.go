// Package reservation reserves and releases the stock of a set of order lines.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/inventory"
)

// Line is one product/warehouse/quantity request.
type Line struct {
	Key      inventory.Key
	Quantity int32
}

// StockLedger is the subset of inventory.Ledger the coordinator needs.
type StockLedger interface {
	TryDecrement(ctx context.Context, key inventory.Key, amount int32) (int32, error)
	Increment(ctx context.Context, key inventory.Key, amount int32) (int32, error)
	Peek(ctx context.Context, key inventory.Key) (int32, error)
}

// Total is the merged quantity of one key. It can exceed what a single
// stock record holds.
type Total struct {
	Key      inventory.Key
	Quantity int64
}

// Coordinator applies a line set to the ledger as a whole.
// Both operations must run inside the transaction the ledger is bound to:
// a failed Reserve leaves earlier decrements in place and relies on the
// caller's rollback to discard them.
type Coordinator struct {
	logger *slog.Logger
}

func NewCoordinator(logger *slog.Logger) *Coordinator {
	return &Coordinator{logger: logger.With("component", "reservation")}
}

// Reserve decrements every line or reports every line that could not be covered.
// Lines for the same key are merged and keys are processed in a fixed order.
func (c *Coordinator) Reserve(ctx context.Context, ledger StockLedger, lines []Line) error {
	merged, err := Merge(lines)
	if err != nil {
		return err
	}

	var shortfalls []ordererrors.Shortfall
	for _, line := range merged {
		if line.Quantity > math.MaxInt32 {
			// no record can hold this much
			available, err := ledger.Peek(ctx, line.Key)
			if err != nil {
				return err
			}
			shortfalls = append(shortfalls, ordererrors.Shortfall{
				ProductID:   line.Key.ProductID,
				WarehouseID: line.Key.WarehouseID,
				Requested:   line.Quantity,
				Available:   available,
			})
			continue
		}
		_, err := ledger.TryDecrement(ctx, line.Key, int32(line.Quantity))
		if err == nil {
			continue
		}
		var stockErr *ordererrors.InsufficientStockError
		if !errors.As(err, &stockErr) {
			return err
		}
		shortfalls = append(shortfalls, stockErr.Shortfalls...)
	}
	if len(shortfalls) > 0 {
		c.logger.WarnContext(ctx, "Reservation rejected", "lines", len(merged), "shortfalls", len(shortfalls))
		return &ordererrors.InsufficientStockError{Shortfalls: shortfalls}
	}
	c.logger.DebugContext(ctx, "Reservation applied", "lines", len(merged))
	return nil
}

// Release returns the stock of every line. It is not idempotent.
func (c *Coordinator) Release(ctx context.Context, ledger StockLedger, lines []Line) error {
	merged, err := Merge(lines)
	if err != nil {
		return err
	}
	for _, line := range merged {
		if line.Quantity > math.MaxInt32 {
			return fmt.Errorf("%w: release of %d units for %s", ordererrors.ErrQuantityOutOfRange, line.Quantity, line.Key)
		}
		if _, err := ledger.Increment(ctx, line.Key, int32(line.Quantity)); err != nil {
			return err
		}
	}
	c.logger.DebugContext(ctx, "Reservation released", "lines", len(merged))
	return nil
}

// Merge sums the quantities of lines sharing a key and sorts the result by key.
// Returns ErrInvalidQuantity if any line quantity is not positive.
func Merge(lines []Line) ([]Total, error) {
	byKey := make(map[inventory.Key]int64, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ordererrors.ErrInvalidQuantity
		}
		byKey[line.Key] += int64(line.Quantity)
	}
	merged := make([]Total, 0, len(byKey))
	for key, quantity := range byKey {
		merged = append(merged, Total{Key: key, Quantity: quantity})
	}
	slices.SortFunc(merged, func(a, b Total) int {
		return a.Key.Compare(b.Key)
	})
	return merged, nil
}
