package service

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/inventory"
	"github.com/abgdnv/gofulfillment/internal/reservation"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/store/db"
	"github.com/abgdnv/gofulfillment/pkg/messaging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	productP1  = uuid.MustParse("123e4567-e89b-12d3-a456-426614174001")
	productP2  = uuid.MustParse("123e4567-e89b-12d3-a456-426614174002")
	warehouseW = uuid.MustParse("123e4567-e89b-12d3-a456-426614174100")
	warehouseX = uuid.MustParse("123e4567-e89b-12d3-a456-426614174200")
)

// recordingPublisher keeps the subjects of published events.
type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, event messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, event.Subject())
	return nil
}

type fixture struct {
	store     *store.MemoryStore
	service   *Service
	publisher *recordingPublisher
}

func newFixture(t *testing.T, stock map[inventory.Key]int32) *fixture {
	t.Helper()
	s := store.NewMemoryStore()
	s.AddWarehouse(db.Warehouse{ID: warehouseW, Name: "Main", IsActive: true})
	s.AddWarehouse(db.Warehouse{ID: warehouseX, Name: "Spare", IsActive: true})
	category := "Tools"
	s.AddProduct(db.Product{ID: productP1, Name: "Hammer", CategoryName: &category, Price: decimal.RequireFromString("10.50"), IsActive: true})
	s.AddProduct(db.Product{ID: productP2, Name: "Saw", Price: decimal.RequireFromString("3"), IsActive: true})

	ctx := context.Background()
	require.NoError(t, s.WithinTx(ctx, func(tx store.Tx) error {
		ledger := inventory.NewLedger(tx)
		for k, q := range stock {
			if _, err := ledger.Increment(ctx, k, q); err != nil {
				return err
			}
		}
		return nil
	}))

	publisher := &recordingPublisher{}
	coordinator := reservation.NewCoordinator(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &fixture{store: s, service: NewService(s, coordinator, publisher), publisher: publisher}
}

func (f *fixture) stock(t *testing.T, product, warehouse uuid.UUID) int32 {
	t.Helper()
	q, err := f.store.StockQuantity(context.Background(), product, warehouse)
	require.NoError(t, err)
	return q
}

func key(product, warehouse uuid.UUID) inventory.Key {
	return inventory.Key{ProductID: product, WarehouseID: warehouse}
}

func createDto(items ...OrderItemInput) OrderCreateDto {
	return OrderCreateDto{CustomerName: "Jane Roe", CustomerEmail: "jane@example.com", WarehouseID: warehouseW, Items: items}
}

func item(product uuid.UUID, quantity int32) OrderItemInput {
	return OrderItemInput{ProductID: product, Quantity: quantity}
}

func Test_OrderService_Create(t *testing.T) {
	t.Run("reserves stock and numbers the order", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})

		// when
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 3)))

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(1), order.OrderNumber)
		assert.Equal(t, StatusNew.String(), order.Status)
		assert.Equal(t, "PENDING", order.PaymentStatus)
		assert.True(t, decimal.RequireFromString("31.50").Equal(order.TotalPrice))
		assert.Equal(t, int32(3), order.TotalQuantity)
		require.Len(t, order.Items, 1)
		assert.Equal(t, "Hammer", order.Items[0].ProductName)
		assert.Equal(t, "Tools", order.Items[0].ProductCategoryName)
		assert.Equal(t, warehouseW, order.Items[0].WarehouseID)
		assert.Equal(t, int32(2), f.stock(t, productP1, warehouseW))

		history, err := f.service.StatusHistory(context.Background(), order.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, StatusNew.String(), history[0].Status)
		assert.Equal(t, []string{messaging.OrdersCreatedSubject}, f.publisher.subjects)
	})

	t.Run("second order for the remaining stock is rejected", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		_, err := f.service.Create(context.Background(), createDto(item(productP1, 3)))
		require.NoError(t, err)

		// when
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 3)))

		// then
		assert.Nil(t, order)
		var stockErr *ordererrors.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		require.Len(t, stockErr.Shortfalls, 1)
		assert.Equal(t, ordererrors.Shortfall{
			ProductID: productP1, WarehouseID: warehouseW, ProductName: "Hammer", Requested: 3, Available: 2,
		}, stockErr.Shortfalls[0])
		assert.Equal(t, int32(2), f.stock(t, productP1, warehouseW))
		page, err := f.service.List(context.Background(), ListOrdersQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("all or nothing across lines", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 1, key(productP2, warehouseW): 1})

		// when
		_, err := f.service.Create(context.Background(), createDto(item(productP1, 2), item(productP2, 1)))

		// then
		var stockErr *ordererrors.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		require.Len(t, stockErr.Shortfalls, 1)
		assert.Equal(t, productP1, stockErr.Shortfalls[0].ProductID)
		assert.Equal(t, int32(1), f.stock(t, productP1, warehouseW))
		assert.Equal(t, int32(1), f.stock(t, productP2, warehouseW), "covered line is not decremented")
		assert.Empty(t, f.publisher.subjects)
	})

	t.Run("every short line is reported", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 1})

		// when
		_, err := f.service.Create(context.Background(), createDto(item(productP1, 2), item(productP2, 4)))

		// then
		var stockErr *ordererrors.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Len(t, stockErr.Shortfalls, 2)
		assert.ErrorIs(t, err, ordererrors.ErrInsufficientStock)
	})

	t.Run("line warehouse overrides order warehouse", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseX): 2})
		dto := createDto(OrderItemInput{ProductID: productP1, WarehouseID: &warehouseX, Quantity: 2})

		// when
		order, err := f.service.Create(context.Background(), dto)

		// then
		require.NoError(t, err)
		assert.Equal(t, warehouseX, order.Items[0].WarehouseID)
		assert.Equal(t, int32(0), f.stock(t, productP1, warehouseX))
	})

	t.Run("supplied prices win", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5, key(productP2, warehouseW): 5})
		price := decimal.RequireFromString("1.25")
		total := decimal.RequireFromString("99")
		dto := createDto(OrderItemInput{ProductID: productP1, Quantity: 2, Price: &price}, item(productP2, 1))

		// when
		order, err := f.service.Create(context.Background(), dto)
		dto.TotalPrice = &total
		withTotal, errWithTotal := f.service.Create(context.Background(), dto)

		// then
		require.NoError(t, err)
		require.NoError(t, errWithTotal)
		assert.True(t, decimal.RequireFromString("5.50").Equal(order.TotalPrice))
		assert.True(t, total.Equal(withTotal.TotalPrice))
	})

	t.Run("merged quantity beyond int32 is a shortfall", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})

		// when
		order, err := f.service.Create(context.Background(), createDto(item(productP1, math.MaxInt32), item(productP1, math.MaxInt32)))

		// then
		assert.Nil(t, order)
		var stockErr *ordererrors.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		require.Len(t, stockErr.Shortfalls, 1)
		assert.Equal(t, ordererrors.Shortfall{
			ProductID: productP1, WarehouseID: warehouseW, ProductName: "Hammer", Requested: 2 * math.MaxInt32, Available: 5,
		}, stockErr.Shortfalls[0])
		assert.Equal(t, int32(5), f.stock(t, productP1, warehouseW))
	})

	t.Run("order total quantity beyond int32 is rejected", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): math.MaxInt32, key(productP2, warehouseW): math.MaxInt32})

		// when
		order, err := f.service.Create(context.Background(), createDto(item(productP1, math.MaxInt32), item(productP2, math.MaxInt32)))

		// then
		assert.Nil(t, order)
		require.ErrorIs(t, err, ordererrors.ErrQuantityOutOfRange)
		assert.Equal(t, ordererrors.OutcomeRejected, ordererrors.Classify(err))
		assert.Equal(t, int32(math.MaxInt32), f.stock(t, productP1, warehouseW), "reservation is rolled back")
		assert.Equal(t, int32(math.MaxInt32), f.stock(t, productP2, warehouseW))
		assert.Empty(t, f.publisher.subjects)
	})

	testCases := []struct {
		name    string
		dto     OrderCreateDto
		wantErr error
	}{
		{name: "unknown product", dto: createDto(item(uuid.New(), 1)), wantErr: ordererrors.ErrProductNotFound},
		{name: "unknown warehouse", dto: OrderCreateDto{WarehouseID: uuid.New(), Items: []OrderItemInput{item(productP1, 1)}}, wantErr: ordererrors.ErrWarehouseNotFound},
		{name: "no items", dto: createDto(), wantErr: ordererrors.ErrInvalidOrder},
		{name: "zero quantity", dto: createDto(item(productP1, 0)), wantErr: ordererrors.ErrInvalidQuantity},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})

			// when
			order, err := f.service.Create(context.Background(), tc.dto)

			// then
			assert.Nil(t, order)
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, ordererrors.OutcomeRejected, ordererrors.Classify(err))
			assert.Equal(t, int32(5), f.stock(t, productP1, warehouseW))
		})
	}
}

func Test_OrderService_ConcurrentCreatesGetSequentialNumbers(t *testing.T) {
	// given
	const n = 20
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 100})

	// when
	numbers := make(chan int64, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := f.service.Create(context.Background(), createDto(item(productP1, 1)))
			if err == nil {
				numbers <- order.OrderNumber
			}
		}()
	}
	wg.Wait()
	close(numbers)

	// then
	seen := make(map[int64]bool, n)
	for number := range numbers {
		seen[number] = true
	}
	require.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "order number %d is missing", i)
	}
	assert.Equal(t, int32(100-n), f.stock(t, productP1, warehouseW))
}

func Test_OrderService_ConcurrentCreatesNeverOversell(t *testing.T) {
	// given
	const n = 12
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})

	// when
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Create(context.Background(), createDto(item(productP1, 1)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ordererrors.ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	// then
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, n-5, rejected)
	assert.Equal(t, int32(0), f.stock(t, productP1, warehouseW))
}

func Test_OrderService_Update(t *testing.T) {
	t.Run("replacing lines releases old stock before reserving", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 2)))
		require.NoError(t, err)
		require.Equal(t, int32(3), f.stock(t, productP1, warehouseW))

		// when
		updated, err := f.service.Update(context.Background(), order.ID, OrderUpdateDto{Items: []OrderItemInput{item(productP1, 5)}})

		// then
		require.NoError(t, err)
		assert.Equal(t, int32(0), f.stock(t, productP1, warehouseW))
		assert.Equal(t, int32(5), updated.TotalQuantity)
		assert.True(t, decimal.RequireFromString("52.50").Equal(updated.TotalPrice))
		assert.Equal(t, order.Version+1, updated.Version)
		require.Len(t, updated.Items, 1)
		assert.Equal(t, int32(5), updated.Items[0].Quantity)
	})

	t.Run("failed reservation keeps the original lines and stock", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5, key(productP2, warehouseW): 1})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 2)))
		require.NoError(t, err)

		// when
		_, err = f.service.Update(context.Background(), order.ID, OrderUpdateDto{Items: []OrderItemInput{item(productP1, 6), item(productP2, 1)}})

		// then
		var stockErr *ordererrors.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, int32(5), stockErr.Shortfalls[0].Available, "released stock counts as available")
		assert.Equal(t, int32(3), f.stock(t, productP1, warehouseW))
		assert.Equal(t, int32(1), f.stock(t, productP2, warehouseW))
		found, err := f.service.FindByID(context.Background(), order.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.Equal(t, int32(2), found.Items[0].Quantity)
		assert.Equal(t, order.Version, found.Version)
	})

	t.Run("total quantity beyond int32 keeps the original lines", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): math.MaxInt32, key(productP2, warehouseW): math.MaxInt32})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 2)))
		require.NoError(t, err)

		// when
		_, err = f.service.Update(context.Background(), order.ID, OrderUpdateDto{Items: []OrderItemInput{item(productP1, math.MaxInt32), item(productP2, math.MaxInt32)}})

		// then
		require.ErrorIs(t, err, ordererrors.ErrQuantityOutOfRange)
		assert.Equal(t, int32(math.MaxInt32-2), f.stock(t, productP1, warehouseW))
		assert.Equal(t, int32(math.MaxInt32), f.stock(t, productP2, warehouseW))
		found, err := f.service.FindByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Equal(t, int32(2), found.TotalQuantity)
	})

	t.Run("patches fields without touching stock", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 2)))
		require.NoError(t, err)
		name := "John Doe"

		// when
		updated, err := f.service.Update(context.Background(), order.ID, OrderUpdateDto{Version: &order.Version, CustomerName: &name})

		// then
		require.NoError(t, err)
		assert.Equal(t, "John Doe", updated.CustomerName)
		assert.Equal(t, "jane@example.com", updated.CustomerEmail)
		assert.Len(t, updated.Items, 1)
		assert.Equal(t, int32(3), f.stock(t, productP1, warehouseW))
	})

	t.Run("stale version", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 2)))
		require.NoError(t, err)
		stale := order.Version + 1

		// when
		_, err = f.service.Update(context.Background(), order.ID, OrderUpdateDto{Version: &stale, Items: []OrderItemInput{item(productP1, 1)}})

		// then
		require.ErrorIs(t, err, ordererrors.ErrOptimisticLock)
		assert.Equal(t, int32(3), f.stock(t, productP1, warehouseW))
	})

	t.Run("lines of a shipped order can not change", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 2)))
		require.NoError(t, err)
		for _, status := range []Status{StatusProcessing, StatusPaid, StatusShipped} {
			_, err := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: status.String()})
			require.NoError(t, err)
		}

		// when
		_, err = f.service.Update(context.Background(), order.ID, OrderUpdateDto{Items: []OrderItemInput{item(productP1, 1)}})

		// then
		require.ErrorIs(t, err, ordererrors.ErrOrderNotEditable)
		assert.Equal(t, int32(3), f.stock(t, productP1, warehouseW))
	})

	t.Run("unknown order", func(t *testing.T) {
		// given
		f := newFixture(t, nil)
		comment := "x"

		// when
		_, err := f.service.Update(context.Background(), uuid.New(), OrderUpdateDto{Comment: &comment})

		// then
		require.ErrorIs(t, err, ordererrors.ErrOrderNotFound)
	})
}

func Test_OrderService_TransitionStatus(t *testing.T) {
	t.Run("cancel twice restocks once", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5, key(productP2, warehouseW): 2})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 3), item(productP2, 2)))
		require.NoError(t, err)

		// when
		cancelled, err := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "CANCELLED", Comment: "customer request"})
		_, errAgain := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "CANCELLED"})
		_, errReopen := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "PROCESSING"})

		// then
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled.String(), cancelled.Status)
		require.ErrorIs(t, errAgain, ordererrors.ErrInvalidTransition)
		require.ErrorIs(t, errReopen, ordererrors.ErrInvalidTransition)
		assert.Equal(t, int32(5), f.stock(t, productP1, warehouseW))
		assert.Equal(t, int32(2), f.stock(t, productP2, warehouseW))

		history, err := f.service.StatusHistory(context.Background(), order.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "customer request", history[1].Comment)
	})

	t.Run("return after delivery restocks", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 4)))
		require.NoError(t, err)
		for _, status := range []Status{StatusProcessing, StatusPaid, StatusShipped, StatusDelivered} {
			_, err := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: status.String()})
			require.NoError(t, err)
		}
		require.Equal(t, int32(1), f.stock(t, productP1, warehouseW))

		// when
		returned, err := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "returned"})

		// then
		require.NoError(t, err)
		assert.Equal(t, StatusReturned.String(), returned.Status)
		assert.Equal(t, int32(5), f.stock(t, productP1, warehouseW))
		history, err := f.service.StatusHistory(context.Background(), order.ID)
		require.NoError(t, err)
		assert.Len(t, history, 6)
	})

	testCases := []struct {
		name    string
		path    []Status
		target  string
		wantErr error
	}{
		{name: "skip processing", target: "PAID", wantErr: ordererrors.ErrInvalidTransition},
		{name: "return before shipping", target: "RETURNED", wantErr: ordererrors.ErrInvalidTransition},
		{name: "cancel after shipping", path: []Status{StatusProcessing, StatusPaid, StatusShipped}, target: "CANCELLED", wantErr: ordererrors.ErrInvalidTransition},
		{name: "same status", target: "NEW", wantErr: ordererrors.ErrInvalidTransition},
		{name: "unknown status", target: "LOST", wantErr: ordererrors.ErrInvalidTransition},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
			order, err := f.service.Create(context.Background(), createDto(item(productP1, 1)))
			require.NoError(t, err)
			for _, status := range tc.path {
				_, err := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: status.String()})
				require.NoError(t, err)
			}
			stockBefore := f.stock(t, productP1, warehouseW)

			// when
			_, err = f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: tc.target})

			// then
			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, stockBefore, f.stock(t, productP1, warehouseW))
		})
	}

	t.Run("concurrent cancels restock once", func(t *testing.T) {
		// given
		f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
		order, err := f.service.Create(context.Background(), createDto(item(productP1, 5)))
		require.NoError(t, err)

		// when
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "CANCELLED"})
			}()
		}
		wg.Wait()

		// then
		assert.Equal(t, int32(5), f.stock(t, productP1, warehouseW))
	})
}

func Test_OrderService_Remove(t *testing.T) {
	testCases := []struct {
		name      string
		cancel    bool
		wantStock int32
	}{
		{name: "open order releases its stock", cancel: false, wantStock: 5},
		{name: "cancelled order is not restocked again", cancel: true, wantStock: 5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
			order, err := f.service.Create(context.Background(), createDto(item(productP1, 3)))
			require.NoError(t, err)
			if tc.cancel {
				_, err := f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "CANCELLED"})
				require.NoError(t, err)
			}

			// when
			err = f.service.Remove(context.Background(), order.ID)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.wantStock, f.stock(t, productP1, warehouseW))
			_, err = f.service.FindByID(context.Background(), order.ID)
			require.ErrorIs(t, err, ordererrors.ErrOrderNotFound)
			assert.Contains(t, f.publisher.subjects, messaging.OrdersRemovedSubject)
		})
	}

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t, nil)
		require.ErrorIs(t, f.service.Remove(context.Background(), uuid.New()), ordererrors.ErrOrderNotFound)
	})
}

func Test_OrderService_RecordPayment(t *testing.T) {
	// given
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
	order, err := f.service.Create(context.Background(), createDto(item(productP1, 1)))
	require.NoError(t, err)

	// when
	paid, err := f.service.RecordPayment(context.Background(), order.ID, PaymentReportDto{Status: "PAID", ExternalID: "pi_1"})
	require.NoError(t, err)
	again, errAgain := f.service.RecordPayment(context.Background(), order.ID, PaymentReportDto{Status: "PAID", ExternalID: "pi_1"})
	_, errInvalid := f.service.RecordPayment(context.Background(), order.ID, PaymentReportDto{Status: "STOLEN"})
	_, errMissing := f.service.RecordPayment(context.Background(), uuid.New(), PaymentReportDto{Status: "PAID"})

	// then
	assert.Equal(t, "PAID", paid.PaymentStatus)
	assert.Equal(t, StatusNew.String(), paid.Status, "payment never drives the order status")
	require.NoError(t, errAgain)
	assert.Equal(t, paid.Version, again.Version, "repeated report is a no-op")
	require.ErrorIs(t, errInvalid, ordererrors.ErrInvalidOrder)
	require.ErrorIs(t, errMissing, ordererrors.ErrOrderNotFound)
	assert.Equal(t, []string{messaging.OrdersCreatedSubject, messaging.OrdersUpdatedSubject}, f.publisher.subjects)
}

func Test_OrderService_HistoryComments(t *testing.T) {
	// given
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
	order, err := f.service.Create(context.Background(), createDto(item(productP1, 1)))
	require.NoError(t, err)
	_, err = f.service.TransitionStatus(context.Background(), order.ID, StatusChangeDto{Status: "PROCESSING", Comment: "picked"})
	require.NoError(t, err)
	history, err := f.service.StatusHistory(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	// when
	updated, err := f.service.UpdateHistoryComment(context.Background(), history[1].ID, "picked and packed")
	_, errMissing := f.service.UpdateHistoryComment(context.Background(), uuid.New(), "x")
	commented, errComment := f.service.AddComment(context.Background(), order.ID, "leave at the door")

	// then
	require.NoError(t, err)
	assert.Equal(t, "picked and packed", updated.Comment)
	assert.Equal(t, StatusProcessing.String(), updated.Status)
	require.ErrorIs(t, errMissing, ordererrors.ErrHistoryNotFound)
	require.NoError(t, errComment)
	assert.Equal(t, "leave at the door", commented.Comment)
	_, err = f.service.StatusHistory(context.Background(), uuid.New())
	require.ErrorIs(t, err, ordererrors.ErrOrderNotFound)
}

func Test_OrderService_ListHistory(t *testing.T) {
	// given
	ctx := context.Background()
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5})
	first, err := f.service.Create(ctx, createDto(item(productP1, 1)))
	require.NoError(t, err)
	second, err := f.service.Create(ctx, createDto(item(productP1, 1)))
	require.NoError(t, err)
	_, err = f.service.TransitionStatus(ctx, first.ID, StatusChangeDto{Status: "CANCELLED"})
	require.NoError(t, err)

	testCases := []struct {
		name         string
		query        ListHistoryQuery
		wantStatuses []string
		wantOrders   []uuid.UUID
		wantTotal    int64
		wantErr      error
	}{
		{
			name:         "one order newest first",
			query:        ListHistoryQuery{OrderID: &first.ID},
			wantStatuses: []string{"CANCELLED", "NEW"},
			wantOrders:   []uuid.UUID{first.ID, first.ID},
			wantTotal:    2,
		},
		{
			name:         "by status across orders",
			query:        ListHistoryQuery{Status: "new"},
			wantStatuses: []string{"NEW", "NEW"},
			wantOrders:   []uuid.UUID{second.ID, first.ID},
			wantTotal:    2,
		},
		{
			name:         "order and status",
			query:        ListHistoryQuery{OrderID: &second.ID, Status: "CANCELLED"},
			wantStatuses: []string{},
			wantOrders:   []uuid.UUID{},
			wantTotal:    0,
		},
		{
			name:         "last page",
			query:        ListHistoryQuery{Page: 2, Limit: 2},
			wantStatuses: []string{"NEW"},
			wantOrders:   []uuid.UUID{first.ID},
			wantTotal:    3,
		},
		{
			name:    "page beyond int32 offset",
			query:   ListHistoryQuery{Page: math.MaxInt32, Limit: 100},
			wantErr: ordererrors.ErrPageOutOfRange,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			page, err := f.service.ListHistory(ctx, tc.query)

			// then
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, page)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantTotal, page.Total)
			statuses := make([]string, 0, len(page.Items))
			orders := make([]uuid.UUID, 0, len(page.Items))
			for _, h := range page.Items {
				statuses = append(statuses, h.Status)
				orders = append(orders, h.OrderID)
			}
			assert.Equal(t, tc.wantStatuses, statuses)
			assert.Equal(t, tc.wantOrders, orders)
		})
	}
}

func Test_OrderService_Repeat(t *testing.T) {
	// given
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 5, key(productP2, warehouseW): 5})
	order, err := f.service.Create(context.Background(), createDto(item(productP1, 2), item(productP2, 1)))
	require.NoError(t, err)

	// when
	repeated, err := f.service.Repeat(context.Background(), order.ID)

	// then
	require.NoError(t, err)
	assert.NotEqual(t, order.ID, repeated.ID)
	assert.Equal(t, int64(2), repeated.OrderNumber)
	assert.Equal(t, order.CustomerEmail, repeated.CustomerEmail)
	assert.Equal(t, order.TotalQuantity, repeated.TotalQuantity)
	assert.Equal(t, int32(1), f.stock(t, productP1, warehouseW))
	assert.Equal(t, int32(3), f.stock(t, productP2, warehouseW))
}

func Test_OrderService_ListAndStats(t *testing.T) {
	// given
	f := newFixture(t, map[inventory.Key]int32{key(productP1, warehouseW): 10, key(productP2, warehouseW): 10})
	ctx := context.Background()
	first, err := f.service.Create(ctx, OrderCreateDto{CustomerName: "Alice", WarehouseID: warehouseW, Items: []OrderItemInput{item(productP1, 1)}})
	require.NoError(t, err)
	_, err = f.service.Create(ctx, OrderCreateDto{CustomerName: "Bob", WarehouseID: warehouseW, Items: []OrderItemInput{item(productP2, 3)}})
	require.NoError(t, err)
	_, err = f.service.TransitionStatus(ctx, first.ID, StatusChangeDto{Status: "CANCELLED"})
	require.NoError(t, err)

	testCases := []struct {
		name      string
		query     ListOrdersQuery
		wantNames []string
		wantTotal int64
	}{
		{name: "default newest first", query: ListOrdersQuery{}, wantNames: []string{"Bob", "Alice"}, wantTotal: 2},
		{name: "by status", query: ListOrdersQuery{Status: "cancelled"}, wantNames: []string{"Alice"}, wantTotal: 1},
		{name: "search", query: ListOrdersQuery{Search: "bo"}, wantNames: []string{"Bob"}, wantTotal: 1},
		{name: "by price asc", query: ListOrdersQuery{SortBy: "price", SortOrder: "asc"}, wantNames: []string{"Bob", "Alice"}, wantTotal: 2},
		{name: "second page", query: ListOrdersQuery{Page: 2, Limit: 1}, wantNames: []string{"Alice"}, wantTotal: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			page, err := f.service.List(ctx, tc.query)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.wantTotal, page.Total)
			names := make([]string, 0, len(page.Items))
			for _, o := range page.Items {
				names = append(names, o.CustomerName)
				assert.NotEmpty(t, o.Items)
			}
			assert.Equal(t, tc.wantNames, names)
		})
	}

	t.Run("page offset beyond int32 is rejected", func(t *testing.T) {
		// when
		page, err := f.service.List(ctx, ListOrdersQuery{Page: math.MaxInt32, Limit: 100})

		// then
		assert.Nil(t, page)
		require.ErrorIs(t, err, ordererrors.ErrPageOutOfRange)
		assert.Equal(t, ordererrors.OutcomeRejected, ordererrors.Classify(err))
	})

	t.Run("stats", func(t *testing.T) {
		// when
		stats, err := f.service.Stats(ctx)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalOrders)
		assert.True(t, decimal.RequireFromString("19.50").Equal(stats.TotalSum))
		require.Len(t, stats.ByStatus, 2)
		assert.Equal(t, StatusCancelled.String(), stats.ByStatus[0].Status)
		assert.Equal(t, StatusNew.String(), stats.ByStatus[1].Status)
	})
}
