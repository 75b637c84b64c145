package rest

import (
	"errors"
	"log/slog"
	"net/http"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
	"github.com/abgdnv/gofulfillment/pkg/web"
)

var conflicts = []error{
	ordererrors.ErrInvalidTransition,
	ordererrors.ErrOrderNotEditable,
	ordererrors.ErrOptimisticLock,
}

var notFound = []error{
	ordererrors.ErrOrderNotFound,
	ordererrors.ErrProductNotFound,
	ordererrors.ErrWarehouseNotFound,
	ordererrors.ErrHistoryNotFound,
}

type stockErrorResponse struct {
	Error      string                  `json:"error"`
	Shortfalls []ordererrors.Shortfall `json:"shortfalls"`
}

type retryableErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// respondServiceError maps a service error to the HTTP response by its outcome.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	switch ordererrors.Classify(err) {
	case ordererrors.OutcomeRejected:
		var stockErr *ordererrors.InsufficientStockError
		if errors.As(err, &stockErr) {
			web.RespondJSON(w, logger, http.StatusConflict, stockErrorResponse{Error: err.Error(), Shortfalls: stockErr.Shortfalls})
			return
		}
		web.RespondError(w, logger, rejectionStatus(err), err.Error())
	case ordererrors.OutcomeRetryable:
		web.RespondJSON(w, logger, http.StatusConflict, retryableErrorResponse{Error: err.Error(), Retryable: true})
	case ordererrors.OutcomeInvariant:
		logger.ErrorContext(r.Context(), "Invariant violated", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
	default:
		logger.ErrorContext(r.Context(), "Request failed", "error", err)
		if errors.Is(err, ordererrors.ErrTransactionBegin) {
			web.RespondError(w, logger, http.StatusServiceUnavailable, "Service is temporarily unavailable")
			return
		}
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}

func rejectionStatus(err error) int {
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflicts {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusBadRequest
}
