package checkin

import "errors"

var (
	// ErrNoBooking is returned when no booking is loaded.
	ErrNoBooking = errors.New("checkin: no booking loaded")
	// ErrAlreadyApproved is returned when the booking was already approved.
	ErrAlreadyApproved = errors.New("checkin: booking already approved")
	// ErrMissingSelection is returned when aircraft or flight type is unselected.
	ErrMissingSelection = errors.New("checkin: aircraft and flight type must be selected")
	// ErrUnsupportedBasis is returned when no billable metering basis is configured.
	ErrUnsupportedBasis = errors.New("checkin: billing basis is not configured or not supported")
	// ErrNoBillableHours is returned when billing hours are zero or negative.
	ErrNoBillableHours = errors.New("checkin: billing hours must be greater than zero")
	// ErrInvalidSplit is returned when the flight time split failed validation.
	ErrInvalidSplit = errors.New("checkin: flight time split is invalid")
	// ErrBasisConflict is returned when instructor and aircraft bill on
	// different meters while a solo split is in effect.
	ErrBasisConflict = errors.New("checkin: instructor rate uses a different meter than the aircraft for a solo split")
	// ErrNoDraft is returned when approval is requested without a calculated draft.
	ErrNoDraft = errors.New("checkin: no draft calculated")
	// ErrStaleDraft is returned when inputs changed after the draft was calculated.
	ErrStaleDraft = errors.New("checkin: draft is stale, recalculate before approving")
	// ErrEmptyDraft is returned when the draft carries no line items.
	ErrEmptyDraft = errors.New("checkin: draft has no line items")
	// ErrInvalidLine is returned when a line has a non-positive quantity or
	// a negative or non-finite price.
	ErrInvalidLine = errors.New("checkin: every line needs a positive quantity and a non-negative unit price")
	// ErrInvalidTotal is returned when the invoice total is not a positive finite amount.
	ErrInvalidTotal = errors.New("checkin: invoice total must be a positive amount")
)
