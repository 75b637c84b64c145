package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/inventory"
	"github.com/abgdnv/gofulfillment/internal/reservation"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// line is a requested order line completed with the catalog snapshot.
type line struct {
	key      inventory.Key
	quantity int32
	price    decimal.Decimal
	product  db.Product
}

// resolveLines checks every referenced warehouse and product and fills the item snapshot.
func (s *Service) resolveLines(ctx context.Context, warehouseID uuid.UUID, inputs []OrderItemInput) ([]line, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: an order needs at least one item", ordererrors.ErrInvalidOrder)
	}

	warehouses := map[uuid.UUID]struct{}{warehouseID: {}}
	productIDs := make([]uuid.UUID, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for _, in := range inputs {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s", ordererrors.ErrInvalidQuantity, in.ProductID)
		}
		if in.Price != nil && in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: negative price for product %s", ordererrors.ErrInvalidOrder, in.ProductID)
		}
		if in.WarehouseID != nil {
			warehouses[*in.WarehouseID] = struct{}{}
		}
		if _, ok := seen[in.ProductID]; !ok {
			seen[in.ProductID] = struct{}{}
			productIDs = append(productIDs, in.ProductID)
		}
	}
	for id := range warehouses {
		if _, err := s.store.FindWarehouse(ctx, id); err != nil {
			return nil, err
		}
	}

	products, err := s.store.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]db.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	lines := make([]line, 0, len(inputs))
	for _, in := range inputs {
		product, ok := catalog[in.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ordererrors.ErrProductNotFound, in.ProductID)
		}
		l := line{
			key:      inventory.Key{ProductID: in.ProductID, WarehouseID: warehouseID},
			quantity: in.Quantity,
			price:    product.Price,
			product:  product,
		}
		if in.WarehouseID != nil {
			l.key.WarehouseID = *in.WarehouseID
		}
		if in.Price != nil {
			l.price = *in.Price
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// totals returns Σ price × quantity and Σ quantity.
func totals(lines []line) (decimal.Decimal, int64) {
	price := decimal.Zero
	var quantity int64
	for _, l := range lines {
		price = price.Add(l.price.Mul(decimal.NewFromInt32(l.quantity)))
		quantity += int64(l.quantity)
	}
	return price, quantity
}

// orderQuantity narrows a line total to the order's total_quantity column.
func orderQuantity(total int64) (int32, error) {
	if total > math.MaxInt32 {
		return 0, fmt.Errorf("%w: order total quantity %d", ordererrors.ErrQuantityOutOfRange, total)
	}
	return int32(total), nil
}

func toReservation(lines []line) []reservation.Line {
	out := make([]reservation.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, reservation.Line{Key: l.key, Quantity: l.quantity})
	}
	return out
}

func itemsToReservation(items []db.OrderItem) []reservation.Line {
	out := make([]reservation.Line, 0, len(items))
	for _, item := range items {
		out = append(out, reservation.Line{
			Key:      inventory.Key{ProductID: item.ProductID, WarehouseID: item.WarehouseID},
			Quantity: item.Quantity,
		})
	}
	return out
}

func insertItems(ctx context.Context, tx store.Tx, orderID uuid.UUID, lines []line) ([]db.OrderItem, error) {
	items := make([]db.OrderItem, 0, len(lines))
	for _, l := range lines {
		item, err := tx.CreateOrderItem(ctx, db.CreateOrderItemParams{
			OrderID:             orderID,
			ProductID:           l.key.ProductID,
			WarehouseID:         l.key.WarehouseID,
			Quantity:            l.quantity,
			Price:               l.price,
			ProductName:         l.product.Name,
			ProductCategoryID:   l.product.CategoryID,
			ProductCategoryName: l.product.CategoryName,
			IsActive:            l.product.IsActive,
		})
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

func sumQuantity(items []db.OrderItem) int32 {
	var n int32
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// withProductNames fills the product names of a stock shortfall report.
func withProductNames(err error, lines []line) error {
	var stockErr *ordererrors.InsufficientStockError
	if !errors.As(err, &stockErr) {
		return err
	}
	names := make(map[uuid.UUID]string, len(lines))
	for _, l := range lines {
		names[l.key.ProductID] = l.product.Name
	}
	for i := range stockErr.Shortfalls {
		if name, ok := names[stockErr.Shortfalls[i].ProductID]; ok {
			stockErr.Shortfalls[i].ProductName = name
		}
	}
	return err
}
