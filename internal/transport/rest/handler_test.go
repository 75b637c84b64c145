package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/internal/service"
	"github.com/abgdnv/gofulfillment/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrderService struct {
	mock.Mock
}

func (m *mockOrderService) order(args mock.Arguments) (*service.OrderDto, error) {
	if v := args.Get(0); v != nil {
		return v.(*service.OrderDto), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) Create(ctx context.Context, order service.OrderCreateDto) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, order))
}

func (m *mockOrderService) Update(ctx context.Context, id uuid.UUID, update service.OrderUpdateDto) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, id, update))
}

func (m *mockOrderService) TransitionStatus(ctx context.Context, id uuid.UUID, change service.StatusChangeDto) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, id, change))
}

func (m *mockOrderService) Remove(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOrderService) FindByID(ctx context.Context, id uuid.UUID) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, id))
}

func (m *mockOrderService) List(ctx context.Context, query service.ListOrdersQuery) (*service.OrderPage, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.(*service.OrderPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) StatusHistory(ctx context.Context, id uuid.UUID) ([]service.HistoryDto, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.([]service.HistoryDto), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) ListHistory(ctx context.Context, query service.ListHistoryQuery) (*service.HistoryPage, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.(*service.HistoryPage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) UpdateHistoryComment(ctx context.Context, historyID uuid.UUID, comment string) (*service.HistoryDto, error) {
	args := m.Called(ctx, historyID, comment)
	if v := args.Get(0); v != nil {
		return v.(*service.HistoryDto), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) AddComment(ctx context.Context, id uuid.UUID, comment string) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, id, comment))
}

func (m *mockOrderService) Repeat(ctx context.Context, id uuid.UUID) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, id))
}

func (m *mockOrderService) Stats(ctx context.Context) (*service.StatsDto, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*service.StatsDto), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrderService) RecordPayment(ctx context.Context, id uuid.UUID, report service.PaymentReportDto) (*service.OrderDto, error) {
	return m.order(m.Called(ctx, id, report))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(svc service.OrderService) http.Handler {
	r := chi.NewRouter()
	r.Use(web.Identity(nil))
	NewHandler(svc, discardLogger()).RegisterRoutes(r)
	return r
}

func serve(h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func Test_Handler_Create(t *testing.T) {
	warehouseID := uuid.New()
	productID := uuid.New()
	userID := uuid.New()
	validBody := fmt.Sprintf(`{"warehouse_id":%q,"customer_name":"Alice","items":[{"product_id":%q,"quantity":2}]}`, warehouseID, productID)
	created := &service.OrderDto{ID: uuid.New(), OrderNumber: 7, Status: "NEW", WarehouseID: warehouseID, TotalPrice: decimal.NewFromInt(20)}

	tests := []struct {
		name           string
		body           string
		setup          func(m *mockOrderService)
		expectedStatus int
		assertBody     func(t *testing.T, body []byte)
	}{
		{
			name: "created",
			body: validBody,
			setup: func(m *mockOrderService) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(dto service.OrderCreateDto) bool {
					return dto.UserID != nil && *dto.UserID == userID && len(dto.Items) == 1 && dto.Items[0].Quantity == 2
				})).Return(created, nil)
			},
			expectedStatus: http.StatusCreated,
			assertBody: func(t *testing.T, body []byte) {
				var got service.OrderDto
				require.NoError(t, json.Unmarshal(body, &got))
				assert.Equal(t, int64(7), got.OrderNumber)
			},
		},
		{
			name:           "malformed json",
			body:           `{"items":`,
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no items",
			body:           fmt.Sprintf(`{"warehouse_id":%q,"items":[]}`, warehouseID),
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
			assertBody: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "validation_errors")
			},
		},
		{
			name:           "zero quantity",
			body:           fmt.Sprintf(`{"warehouse_id":%q,"items":[{"product_id":%q,"quantity":0}]}`, warehouseID, productID),
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "insufficient stock lists every shortfall",
			body: validBody,
			setup: func(m *mockOrderService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, &ordererrors.InsufficientStockError{Shortfalls: []ordererrors.Shortfall{
					{ProductID: productID, WarehouseID: warehouseID, ProductName: "Hammer", Requested: 2, Available: 1},
					{ProductID: uuid.New(), WarehouseID: warehouseID, ProductName: "Saw", Requested: 4, Available: 0},
				}})
			},
			expectedStatus: http.StatusConflict,
			assertBody: func(t *testing.T, body []byte) {
				var got stockErrorResponse
				require.NoError(t, json.Unmarshal(body, &got))
				require.Len(t, got.Shortfalls, 2)
				assert.Equal(t, "Hammer", got.Shortfalls[0].ProductName)
				assert.Equal(t, int32(1), got.Shortfalls[0].Available)
			},
		},
		{
			name: "unknown product",
			body: validBody,
			setup: func(m *mockOrderService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: %s", ordererrors.ErrProductNotFound, productID))
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "transaction conflict is retryable",
			body: validBody,
			setup: func(m *mockOrderService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, ordererrors.ErrTransactionConflict)
			},
			expectedStatus: http.StatusConflict,
			assertBody: func(t *testing.T, body []byte) {
				var got retryableErrorResponse
				require.NoError(t, json.Unmarshal(body, &got))
				assert.True(t, got.Retryable)
			},
		},
		{
			name: "invariant violation",
			body: validBody,
			setup: func(m *mockOrderService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, ordererrors.ErrInvariantViolation)
			},
			expectedStatus: http.StatusInternalServerError,
		},
		{
			name: "database unavailable",
			body: validBody,
			setup: func(m *mockOrderService) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: dial tcp", ordererrors.ErrTransactionBegin))
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			svc := new(mockOrderService)
			tt.setup(svc)

			// when
			rr := serve(newRouter(svc), http.MethodPost, "/api/v1/orders", tt.body, web.XUserId, userID.String())

			// then
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.assertBody != nil {
				tt.assertBody(t, rr.Body.Bytes())
			}
			svc.AssertExpectations(t)
		})
	}
}

func Test_Handler_TransitionStatus(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name           string
		target         string
		body           string
		setup          func(m *mockOrderService)
		expectedStatus int
	}{
		{
			name:   "cancelled",
			target: "/api/v1/orders/" + id.String() + "/status",
			body:   `{"status":"cancelled","comment":"customer request"}`,
			setup: func(m *mockOrderService) {
				m.On("TransitionStatus", mock.Anything, id, service.StatusChangeDto{Status: "cancelled", Comment: "customer request"}).
					Return(&service.OrderDto{ID: id, Status: "CANCELLED"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown status",
			target:         "/api/v1/orders/" + id.String() + "/status",
			body:           `{"status":"LOST"}`,
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "edge not in the graph",
			target: "/api/v1/orders/" + id.String() + "/status",
			body:   `{"status":"NEW"}`,
			setup: func(m *mockOrderService) {
				m.On("TransitionStatus", mock.Anything, id, mock.Anything).
					Return(nil, fmt.Errorf("%w: SHIPPED -> NEW", ordererrors.ErrInvalidTransition))
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "malformed id",
			target:         "/api/v1/orders/42/status",
			body:           `{"status":"PAID"}`,
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			svc := new(mockOrderService)
			tt.setup(svc)

			// when
			rr := serve(newRouter(svc), http.MethodPost, tt.target, tt.body)

			// then
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func Test_Handler_List(t *testing.T) {
	warehouseID := uuid.New()
	tests := []struct {
		name           string
		query          string
		setup          func(m *mockOrderService)
		expectedStatus int
	}{
		{
			name:  "filters and paging",
			query: "?search=alice&status=paid&warehouseId=" + warehouseID.String() + "&sortBy=price&sortOrder=DESC&page=2&limit=10",
			setup: func(m *mockOrderService) {
				m.On("List", mock.Anything, service.ListOrdersQuery{
					Search:      "alice",
					Status:      "PAID",
					WarehouseID: &warehouseID,
					SortBy:      "price",
					SortOrder:   "desc",
					Page:        2,
					Limit:       10,
				}).Return(&service.OrderPage{Items: []service.OrderDto{}, Page: 2, Limit: 10}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown sort field",
			query:          "?sortBy=color",
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "limit above maximum",
			query:          "?limit=1000",
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed warehouse",
			query:          "?warehouseId=w1",
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "page beyond addressable rows",
			query: "?page=2147483647&limit=100",
			setup: func(m *mockOrderService) {
				m.On("List", mock.Anything, service.ListOrdersQuery{Page: 2147483647, Limit: 100}).Return(nil, ordererrors.ErrPageOutOfRange)
			},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			svc := new(mockOrderService)
			tt.setup(svc)

			// when
			rr := serve(newRouter(svc), http.MethodGet, "/api/v1/orders"+tt.query, "")

			// then
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}

func Test_Handler_Routes(t *testing.T) {
	id := uuid.New()
	historyID := uuid.New()
	order := &service.OrderDto{ID: id, Status: "NEW"}
	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		setup          func(m *mockOrderService)
		expectedStatus int
	}{
		{
			name: "find", method: http.MethodGet, target: "/api/v1/orders/" + id.String(),
			setup:          func(m *mockOrderService) { m.On("FindByID", mock.Anything, id).Return(order, nil) },
			expectedStatus: http.StatusOK,
		},
		{
			name: "find missing", method: http.MethodGet, target: "/api/v1/orders/" + id.String(),
			setup:          func(m *mockOrderService) { m.On("FindByID", mock.Anything, id).Return(nil, ordererrors.ErrOrderNotFound) },
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "update stale version", method: http.MethodPut, target: "/api/v1/orders/" + id.String(), body: `{"version":1,"comment":"x"}`,
			setup: func(m *mockOrderService) {
				m.On("Update", mock.Anything, id, mock.Anything).Return(nil, ordererrors.ErrOptimisticLock)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "update not editable", method: http.MethodPut, target: "/api/v1/orders/" + id.String(),
			body: fmt.Sprintf(`{"items":[{"product_id":%q,"quantity":1}]}`, uuid.New()),
			setup: func(m *mockOrderService) {
				m.On("Update", mock.Anything, id, mock.Anything).Return(nil, ordererrors.ErrOrderNotEditable)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "remove", method: http.MethodDelete, target: "/api/v1/orders/" + id.String(),
			setup:          func(m *mockOrderService) { m.On("Remove", mock.Anything, id).Return(nil) },
			expectedStatus: http.StatusNoContent,
		},
		{
			name: "comment", method: http.MethodPost, target: "/api/v1/orders/" + id.String() + "/comment", body: `{"comment":"call first"}`,
			setup:          func(m *mockOrderService) { m.On("AddComment", mock.Anything, id, "call first").Return(order, nil) },
			expectedStatus: http.StatusOK,
		},
		{
			name: "repeat", method: http.MethodPost, target: "/api/v1/orders/" + id.String() + "/repeat",
			setup:          func(m *mockOrderService) { m.On("Repeat", mock.Anything, id).Return(&service.OrderDto{ID: uuid.New()}, nil) },
			expectedStatus: http.StatusCreated,
		},
		{
			name: "payment", method: http.MethodPost, target: "/api/v1/orders/" + id.String() + "/payment", body: `{"status":"paid","external_id":"tx-1"}`,
			setup: func(m *mockOrderService) {
				m.On("RecordPayment", mock.Anything, id, service.PaymentReportDto{Status: "PAID", ExternalID: "tx-1"}).Return(order, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "payment unknown status", method: http.MethodPost, target: "/api/v1/orders/" + id.String() + "/payment", body: `{"status":"MAYBE"}`,
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "history", method: http.MethodGet, target: "/api/v1/orders/" + id.String() + "/history",
			setup: func(m *mockOrderService) {
				m.On("StatusHistory", mock.Anything, id).Return([]service.HistoryDto{{ID: historyID, OrderID: id, Status: "NEW"}}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "all history", method: http.MethodGet, target: "/api/v1/orders/history?orderId=" + id.String() + "&status=cancelled&page=2&limit=5",
			setup: func(m *mockOrderService) {
				m.On("ListHistory", mock.Anything, service.ListHistoryQuery{OrderID: &id, Status: "CANCELLED", Page: 2, Limit: 5}).
					Return(&service.HistoryPage{Items: []service.HistoryDto{}, Total: 6, Page: 2, Limit: 5}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "all history unknown status", method: http.MethodGet, target: "/api/v1/orders/history?status=LOST",
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "all history malformed order", method: http.MethodGet, target: "/api/v1/orders/history?orderId=o1",
			setup:          func(m *mockOrderService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "history comment", method: http.MethodPatch, target: "/api/v1/orders/history/" + historyID.String(), body: `{"comment":"checked"}`,
			setup: func(m *mockOrderService) {
				m.On("UpdateHistoryComment", mock.Anything, historyID, "checked").Return(&service.HistoryDto{ID: historyID, Comment: "checked"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "stats", method: http.MethodGet, target: "/api/v1/orders/stats",
			setup:          func(m *mockOrderService) { m.On("Stats", mock.Anything).Return(&service.StatsDto{TotalOrders: 3}, nil) },
			expectedStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			svc := new(mockOrderService)
			tt.setup(svc)

			// when
			rr := serve(newRouter(svc), tt.method, tt.target, tt.body)

			// then
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
