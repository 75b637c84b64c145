package errors

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Shortfall describes one order line that the stock could not cover.
type Shortfall struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	ProductName string    `json:"product_name,omitempty"`
	Requested   int64     `json:"requested"`
	Available   int32     `json:"available"`
}

// InsufficientStockError lists every line of a rejected reservation.
// errors.Is(err, ErrInsufficientStock) reports true for it.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		name := s.ProductName
		if name == "" {
			name = s.ProductID.String()
		}
		parts = append(parts, fmt.Sprintf("%s in warehouse %s: requested %d, available %d",
			name, s.WarehouseID, s.Requested, s.Available))
	}
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(parts, "; "))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
