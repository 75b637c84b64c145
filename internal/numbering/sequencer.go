// Package numbering issues human-facing order numbers.
package numbering

import (
	"context"
	"fmt"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
)

// Source is the durable counter behind the sequencer, bound to the order's transaction.
type Source interface {
	NextOrderNumber(ctx context.Context) (int64, error)
}

// Sequencer hands out gap-free order numbers from the counter row.
// It must be used on the same transaction that inserts the order, so a
// rolled back order gives its number back. Concurrent transactions are
// ordered by the counter row lock, and a number issued twice is caught by
// the UNIQUE constraint on orders.order_number, which the store reports
// as ErrInvariantViolation.
type Sequencer struct {
	src Source
}

func New(src Source) *Sequencer {
	return &Sequencer{src: src}
}

// Next returns the next order number.
func (s *Sequencer) Next(ctx context.Context) (int64, error) {
	n, err := s.src.NextOrderNumber(ctx)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: order number %d is not positive", ordererrors.ErrInvariantViolation, n)
	}
	return n, nil
}
