// Package rest exposes the order lifecycle and the stock queries over HTTP.
package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/gofulfillment/internal/service"
	"github.com/abgdnv/gofulfillment/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  service.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service service.OrderService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes mounts the order routes under /api/v1/orders.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/stats", h.Stats)
		r.Get("/history", h.ListHistory)
		r.Patch("/history/{historyId}", h.UpdateHistoryComment)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Remove)
			r.Post("/status", h.TransitionStatus)
			r.Post("/comment", h.AddComment)
			r.Post("/repeat", h.Repeat)
			r.Post("/payment", h.RecordPayment)
			r.Get("/history", h.StatusHistory)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.OrderCreateDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if dto.UserID == nil {
		dto.UserID = web.UserID(r.Context())
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}

	created, err := h.service.Create(r.Context(), dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order created", slog.String("ID", created.ID.String()), slog.Int64("number", created.OrderNumber))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// List supports search, status, warehouseId, userId, sortBy, sortOrder, page and limit query parameters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	q := r.URL.Query()
	page, ok := web.ParseOptionalGt(r, w, mLogger, "page", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseOptionalGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}
	warehouseID, ok := web.ParseOptionalUUID(w, r, mLogger, "warehouseId")
	if !ok {
		return
	}
	userID, ok := web.ParseOptionalUUID(w, r, mLogger, "userId")
	if !ok {
		return
	}
	query := service.ListOrdersQuery{
		Search:      q.Get("search"),
		Status:      strings.ToUpper(q.Get("status")),
		WarehouseID: warehouseID,
		UserID:      userID,
		SortBy:      q.Get("sortBy"),
		SortOrder:   strings.ToLower(q.Get("sortOrder")),
		Page:        page,
		Limit:       limit,
	}
	if err := h.validate.Struct(query); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}

	list, err := h.service.List(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.OrderUpdateDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}

	updated, err := h.service.Update(r.Context(), id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order updated", slog.String("ID", updated.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) TransitionStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.StatusChangeDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}
	if _, err := service.ParseStatus(dto.Status); err != nil {
		web.RespondError(w, mLogger, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.service.TransitionStatus(r.Context(), id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order status changed", slog.String("ID", updated.ID.String()), slog.String("status", updated.Status))
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order removed", slog.String("ID", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.CommentDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}
	updated, err := h.service.AddComment(r.Context(), id, dto.Comment)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) Repeat(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	created, err := h.service.Repeat(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order repeated", slog.String("source", id.String()), slog.String("ID", created.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, created)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.PaymentReportDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	dto.Status = strings.ToUpper(dto.Status)
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}
	updated, err := h.service.RecordPayment(r.Context(), id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

func (h *Handler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	history, err := h.service.StatusHistory(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, history)
}

// ListHistory supports orderId, status, page and limit query parameters.
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	page, ok := web.ParseOptionalGt(r, w, mLogger, "page", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseOptionalGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}
	orderID, ok := web.ParseOptionalUUID(w, r, mLogger, "orderId")
	if !ok {
		return
	}
	query := service.ListHistoryQuery{
		OrderID: orderID,
		Status:  strings.ToUpper(r.URL.Query().Get("status")),
		Page:    page,
		Limit:   limit,
	}
	if err := h.validate.Struct(query); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}

	history, err := h.service.ListHistory(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, history)
}

func (h *Handler) UpdateHistoryComment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	historyID, ok := web.ParseUUID(w, r, mLogger, "historyId")
	if !ok {
		return
	}
	var dto service.CommentDto
	if !web.DecodeJSON(w, r, mLogger, &dto) {
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondValidation(w, mLogger, err)
		return
	}
	entry, err := h.service.UpdateHistoryComment(r.Context(), historyID, dto.Comment)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, entry)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, stats)
}

// HealthCheck is a simple health check endpoint.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	return h.logger.With("request_id", middleware.GetReqID(r.Context()))
}
