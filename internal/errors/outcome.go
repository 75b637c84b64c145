package errors

import (
	"context"
	"errors"
)

// Outcome separates requests rejected by business rules from requests
// that were not carried out because of the infrastructure.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRejected
	OutcomeRetryable
	OutcomeInvariant
	OutcomeInfrastructure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeInvariant:
		return "invariant"
	default:
		return "infrastructure"
	}
}

var rejections = []error{
	ErrInsufficientStock,
	ErrInvalidQuantity,
	ErrInvalidOrder,
	ErrQuantityOutOfRange,
	ErrPageOutOfRange,
	ErrInvalidTransition,
	ErrOrderNotEditable,
	ErrOptimisticLock,
	ErrOrderNotFound,
	ErrProductNotFound,
	ErrWarehouseNotFound,
	ErrHistoryNotFound,
}

// Classify maps an error returned by the service layer to its Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return OutcomeRejected
		}
	}
	switch {
	case errors.Is(err, ErrInvariantViolation):
		return OutcomeInvariant
	case errors.Is(err, ErrTransactionConflict), errors.Is(err, context.DeadlineExceeded):
		return OutcomeRetryable
	}
	return OutcomeInfrastructure
}
