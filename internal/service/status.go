package service

import (
	"fmt"
	"strings"

	ordererrors "github.com/abgdnv/gofulfillment/internal/errors"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusReturned   Status = "RETURNED"
)

var transitions = map[Status][]Status{
	StatusNew:        {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusPaid, StatusCancelled},
	StatusPaid:       {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusReturned},
	StatusDelivered:  {StatusReturned},
	StatusCancelled:  nil,
	StatusReturned:   nil,
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", ordererrors.ErrInvalidTransition, s)
	}
	return status, nil
}

// CanTransition reports whether the graph has an edge from s to next.
// A status never transitions to itself.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Restocks reports whether entering s returns the order's stock.
func (s Status) Restocks() bool {
	return s == StatusCancelled || s == StatusReturned
}

// ItemsEditable reports whether the order lines may still be replaced.
func (s Status) ItemsEditable() bool {
	return s == StatusNew || s == StatusProcessing || s == StatusPaid
}

func (s Status) String() string {
	return string(s)
}
