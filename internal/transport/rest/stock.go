package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/abgdnv/gofulfillment/internal/inventory"
	"github.com/abgdnv/gofulfillment/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type StockHandler struct {
	service  inventory.StockService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewStockHandler(service inventory.StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest-stock"),
	}
}

func (h *StockHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/v1/stock/{productId}/{warehouseId}", h.Peek)
	r.Post("/api/v1/stock", h.Receive)
	r.Get("/api/v1/warehouses/{id}/stock", h.ListByWarehouse)
}

func (h *StockHandler) Peek(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger.With("request_id", middleware.GetReqID(r.Context()))
	productID, ok := web.ParseUUID(w, r, mLogger, "productId")
	if !ok {
		return
	}
	warehouseID, ok := web.ParseUUID(w, r, mLogger, "warehouseId")
	if !ok {
		return
	}
	stock, err := h.service.Peek(r.Context(), productID, warehouseID)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, stock)
}

func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger.With("request_id", middleware.GetReqID(r.Context()))
	var dto inventory.StockIntakeDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}
	stock, err := h.service.Receive(r.Context(), dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, stock)
}

// ListByWarehouse supports search, categoryId, isActive, sortBy, sortOrder, page and limit query parameters.
func (h *StockHandler) ListByWarehouse(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger.With("request_id", middleware.GetReqID(r.Context()))
	warehouseID, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	page, ok := web.ParseOptionalGt(r, w, mLogger, "page", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseOptionalGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}
	categoryID, ok := web.ParseOptionalUUID(w, r, mLogger, "categoryId")
	if !ok {
		return
	}
	q := r.URL.Query()
	query := inventory.StockQuery{
		Search:     q.Get("search"),
		CategoryID: categoryID,
		SortBy:     q.Get("sortBy"),
		SortOrder:  strings.ToLower(q.Get("sortOrder")),
		Page:       page,
		Limit:      limit,
	}
	if raw := q.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid isActive: "+raw)
			return
		}
		query.IsActive = &active
	}
	if err := h.validate.Struct(query); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}

	list, err := h.service.ListByWarehouse(r.Context(), warehouseID, query)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}
