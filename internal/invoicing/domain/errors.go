package invoicing

import "errors"

var (
	// ErrEmptyBookingID is returned when a payload has no booking id.
	ErrEmptyBookingID = errors.New("invoicing: empty booking id")
	// ErrNoItems is returned when a payload carries no line items.
	ErrNoItems = errors.New("invoicing: no line items")
	// ErrBookingAlreadyInvoiced is returned when a second invoice is
	// attempted for the same booking.
	ErrBookingAlreadyInvoiced = errors.New("invoicing: booking already invoiced")
)
