// Package errors provides the error taxonomy of the fulfillment service.
package errors

import "errors"

var ErrInsufficientStock = errors.New("insufficient stock")
var ErrInvalidQuantity = errors.New("quantity must be greater than zero")
var ErrInvalidOrder = errors.New("invalid order")
var ErrQuantityOutOfRange = errors.New("quantity out of range")
var ErrPageOutOfRange = errors.New("page out of range")

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrOrderNotEditable = errors.New("order items can not be changed in the current status")
var ErrOptimisticLock = errors.New("optimistic lock error: the record has been modified by another transaction")

var ErrOrderNotFound = errors.New("order not found")
var ErrProductNotFound = errors.New("product not found")
var ErrWarehouseNotFound = errors.New("warehouse not found")
var ErrHistoryNotFound = errors.New("status history entry not found")

var ErrTransactionConflict = errors.New("transaction conflict, retry the request")
var ErrInvariantViolation = errors.New("invariant violation")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")
