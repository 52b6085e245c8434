// Package repository implements the persistence layer over MySQL.  The
// sentinel errors below let handlers map failure modes to HTTP codes
// without inspecting driver errors.  Ownership-filtered lookups report
// ErrProductNotFound / ErrOrderNotFound for rows that exist but belong to
// someone else, so a caller cannot distinguish "absent" from "not yours".
package repository

import (
	"errors"
	"fmt"
)

// ErrEmailExists is returned when registering with an email that is
// already taken.
var ErrEmailExists = errors.New("email already registered")

// ErrProductNotFound is returned when a product does not exist or is
// filtered out by ownership scoping.
var ErrProductNotFound = errors.New("product not found")

// ErrOrderNotFound is returned when an order does not exist or is filtered
// out by ownership scoping.
var ErrOrderNotFound = errors.New("order not found")

// ErrOrderNotPending is returned when cancelling an order that has already
// left the pending state.  Handlers translate this into HTTP 400.
var ErrOrderNotPending = errors.New("only pending orders can be cancelled")

// InsufficientStockError is returned when a reservation asks for more units
// than the product currently has.  Available reports the stock observed at
// the time of the failed reservation.
type InsufficientStockError struct {
	Available uint32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}
