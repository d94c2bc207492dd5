package masterdata

import (
	"context"
	"time"
)

// Booking statuses. A booking is approved once its flight has been checked
// in and invoiced; approval is terminal.
const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusFlying    = "flying"
	BookingStatusComplete  = "complete"
	BookingStatusApproved  = "approved"
)

// Booking is one flight booking together with the meter fields captured at
// check-in. Meter readings are nil until entered. The denormalized name
// fields are filled by the repository join so callers do not need extra
// lookups to render invoice lines.
type Booking struct {
	ID           string
	OrgID        string
	AircraftID   string
	InstructorID string
	FlightTypeID string

	AircraftRegistration string
	InstructorName       string
	FlightTypeName       string

	// InstructionKind is dual, trial or solo.
	InstructionKind string
	Status          string
	HasSoloAtEnd    bool

	HobbsStart   *float64
	HobbsEnd     *float64
	HobbsSoloEnd *float64
	TachoStart   *float64
	TachoEnd     *float64
	TachoSoloEnd *float64

	StartAt   time.Time
	EndAt     time.Time
	Remarks   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Approved reports whether the booking has already been invoiced.
func (b *Booking) Approved() bool {
	return b != nil && b.Status == BookingStatusApproved
}

// NormalizeInstructionKind maps loosely-typed instruction kind values from
// the data layer onto the canonical set. Unknown or empty values default to
// dual, the most common instruction kind.
func NormalizeInstructionKind(value string) string {
	switch value {
	case "dual", "trial", "solo":
		return value
	default:
		return "dual"
	}
}

// BookingRepository manages booking persistence.
type BookingRepository interface {
	GetBooking(ctx context.Context, id string) (*Booking, error)
	MarkApproved(ctx context.Context, id string, at time.Time) error
}
