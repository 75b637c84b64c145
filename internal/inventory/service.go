package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultPage  int32 = 1
	DefaultLimit int32 = 20
)

// StockService exposes stock levels to callers outside the order lifecycle.
type StockService interface {
	// Peek returns the quantity of one stock record, 0 if it does not exist.
	Peek(ctx context.Context, productID, warehouseID uuid.UUID) (*StockDto, error)

	// ListByWarehouse returns one page of the stock of a warehouse joined with product data.
	ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, query StockQuery) (*StockPage, error)

	// Receive adds incoming units to a stock record.
	// Returns ErrProductNotFound or ErrWarehouseNotFound for unknown references.
	Receive(ctx context.Context, intake StockIntakeDto) (*StockDto, error)
}

type Service struct {
	stockStore    store.StockStore
	catalog       store.CatalogStore
	receivedUnits metric.Int64Counter
}

func NewService(stockStore store.StockStore, catalog store.CatalogStore) *Service {
	meter := otel.Meter("fulfillment-service")
	receivedUnits, err := meter.Int64Counter("stock_received_units", metric.WithDescription("Total number of units received into stock"))
	if err != nil {
		panic(fmt.Sprintf("failed to create stock_received_units counter: %v", err))
	}
	return &Service{
		stockStore:    stockStore,
		catalog:       catalog,
		receivedUnits: receivedUnits,
	}
}

type StockDto struct {
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int32     `json:"quantity"`
}

type StockIntakeDto struct {
	ProductID   uuid.UUID `json:"product_id" validate:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" validate:"required"`
	Quantity    int32     `json:"quantity" validate:"required,min=1"`
}

// StockQuery filters, sorts and pages the stock listing of a warehouse.
type StockQuery struct {
	Search     string     `validate:"omitempty,max=200"`
	CategoryID *uuid.UUID `validate:"omitempty"`
	IsActive   *bool      `validate:"omitempty"`
	SortBy     string     `validate:"omitempty,oneof=price quantity name"`
	SortOrder  string     `validate:"omitempty,oneof=asc desc"`
	Page       int32      `validate:"gte=0"`
	Limit      int32      `validate:"gte=0,lte=100"`
}

type StockItemDto struct {
	ProductID    uuid.UUID       `json:"product_id"`
	WarehouseID  uuid.UUID       `json:"warehouse_id"`
	Quantity     int32           `json:"quantity"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	CategoryID   *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	Price        decimal.Decimal `json:"price"`
	IsActive     bool            `json:"is_active"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

type StockPage struct {
	Items []StockItemDto `json:"items"`
	Total int64          `json:"total"`
	Page  int32          `json:"page"`
	Limit int32          `json:"limit"`
}

func (s *Service) Peek(ctx context.Context, productID, warehouseID uuid.UUID) (*StockDto, error) {
	quantity, err := s.stockStore.StockQuantity(ctx, productID, warehouseID)
	if err != nil {
		return nil, err
	}
	return &StockDto{ProductID: productID, WarehouseID: warehouseID, Quantity: quantity}, nil
}

func (s *Service) ListByWarehouse(ctx context.Context, warehouseID uuid.UUID, query StockQuery) (*StockPage, error) {
	if _, err := s.catalog.FindWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	pageNum, limit := normalizePage(query.Page, query.Limit)
	offset, err := rowOffset(pageNum, limit)
	if err != nil {
		return nil, err
	}
	params := db.ListWarehouseStockParams{
		WarehouseID: warehouseID,
		CategoryID:  query.CategoryID,
		IsActive:    query.IsActive,
		SortBy:      query.SortBy,
		SortDesc:    strings.EqualFold(query.SortOrder, "desc"),
		RowLimit:    limit,
		RowOffset:   offset,
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		params.Search = &search
	}

	rows, total, err := s.stockStore.ListWarehouseStock(ctx, params)
	if err != nil {
		return nil, err
	}
	items := make([]StockItemDto, 0, len(rows))
	for _, row := range rows {
		item := StockItemDto{
			ProductID:   row.ProductID,
			WarehouseID: row.WarehouseID,
			Quantity:    row.Quantity,
			Name:        row.Name,
			CategoryID:  row.CategoryID,
			Price:       row.Price,
			IsActive:    row.IsActive,
		}
		if row.Description != nil {
			item.Description = *row.Description
		}
		if row.CategoryName != nil {
			item.CategoryName = *row.CategoryName
		}
		if row.UpdatedAt != nil {
			item.UpdatedAt = row.UpdatedAt.Format(time.RFC3339)
		}
		items = append(items, item)
	}
	return &StockPage{Items: items, Total: total, Page: pageNum, Limit: limit}, nil
}

func (s *Service) Receive(ctx context.Context, intake StockIntakeDto) (*StockDto, error) {
	if intake.Quantity <= 0 {
		return nil, ordererrors.ErrInvalidQuantity
	}
	products, err := s.catalog.FindProducts(ctx, []uuid.UUID{intake.ProductID})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: %s", ordererrors.ErrProductNotFound, intake.ProductID)
	}
	if _, err := s.catalog.FindWarehouse(ctx, intake.WarehouseID); err != nil {
		return nil, err
	}

	key := Key{ProductID: intake.ProductID, WarehouseID: intake.WarehouseID}
	var quantity int32
	err = s.stockStore.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		quantity, err = NewLedger(tx).Increment(ctx, key, intake.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Stock received", "stock", key.String(), "added", intake.Quantity, "quantity", quantity)
	s.receivedUnits.Add(ctx, int64(intake.Quantity))
	return &StockDto{ProductID: intake.ProductID, WarehouseID: intake.WarehouseID, Quantity: quantity}, nil
}

func normalizePage(page, limit int32) (int32, int32) {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return page, limit
}

func rowOffset(page, limit int32) (int32, error) {
	offset := (int64(page) - 1) * int64(limit)
	if offset > math.MaxInt32 {
		return 0, fmt.Errorf("%w: page %d", ordererrors.ErrPageOutOfRange, page)
	}
	return int32(offset), nil
}
