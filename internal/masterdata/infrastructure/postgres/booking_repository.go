package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	masterdata "flightline-cloud/internal/masterdata/domain"
)

const defaultBookingsTable = "bookings"

// ErrBookingAlreadyApproved is returned when approval is attempted twice.
var ErrBookingAlreadyApproved = errors.New("booking repo: booking already approved")

// BookingRepository is a Postgres implementation for bookings.
type BookingRepository struct {
	db    DBTX
	table string
}

// BookingOption configures the repository.
type BookingOption func(*BookingRepository)

// WithBookingsTable overrides the default table name.
func WithBookingsTable(table string) BookingOption {
	return func(repo *BookingRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// NewBookingRepository constructs a repository.
func NewBookingRepository(db DBTX, opts ...BookingOption) *BookingRepository {
	repo := &BookingRepository{db: db, table: defaultBookingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// GetBooking loads a booking with its aircraft, instructor and flight type
// names joined in. Loose values from the data layer are normalized here so
// the billing engine only ever sees canonical shapes.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*masterdata.Booking, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("booking repo: nil db")
	}
	if id == "" {
		return nil, errors.New("booking repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT b.id, b.org_id, COALESCE(b.aircraft_id, ''), COALESCE(b.instructor_id, ''), COALESCE(b.flight_type_id, ''),
       COALESCE(a.registration, ''), COALESCE(i.name, ''), COALESCE(f.name, ''),
       COALESCE(b.instruction_kind, ''), b.status, COALESCE(b.has_solo_at_end, FALSE),
       b.hobbs_start, b.hobbs_end, b.hobbs_solo_end,
       b.tacho_start, b.tacho_end, b.tacho_solo_end,
       b.start_at, b.end_at, COALESCE(b.remarks, ''), b.created_at, b.updated_at
FROM %s b
LEFT JOIN aircraft a ON a.id = b.aircraft_id
LEFT JOIN instructors i ON i.id = b.instructor_id
LEFT JOIN flight_types f ON f.id = b.flight_type_id
WHERE b.id = $1
LIMIT 1`, r.table)

	var booking masterdata.Booking
	var hobbsStart, hobbsEnd, hobbsSoloEnd sql.NullFloat64
	var tachoStart, tachoEnd, tachoSoloEnd sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.OrgID,
		&booking.AircraftID,
		&booking.InstructorID,
		&booking.FlightTypeID,
		&booking.AircraftRegistration,
		&booking.InstructorName,
		&booking.FlightTypeName,
		&booking.InstructionKind,
		&booking.Status,
		&booking.HasSoloAtEnd,
		&hobbsStart,
		&hobbsEnd,
		&hobbsSoloEnd,
		&tachoStart,
		&tachoEnd,
		&tachoSoloEnd,
		&booking.StartAt,
		&booking.EndAt,
		&booking.Remarks,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	booking.InstructionKind = masterdata.NormalizeInstructionKind(booking.InstructionKind)
	booking.HobbsStart = nullableFloat(hobbsStart)
	booking.HobbsEnd = nullableFloat(hobbsEnd)
	booking.HobbsSoloEnd = nullableFloat(hobbsSoloEnd)
	booking.TachoStart = nullableFloat(tachoStart)
	booking.TachoEnd = nullableFloat(tachoEnd)
	booking.TachoSoloEnd = nullableFloat(tachoSoloEnd)
	booking.StartAt = booking.StartAt.UTC()
	booking.EndAt = booking.EndAt.UTC()
	booking.CreatedAt = booking.CreatedAt.UTC()
	booking.UpdatedAt = booking.UpdatedAt.UTC()
	return &booking, nil
}

// MarkApproved transitions a booking to approved. A booking that already
// carries the approved status reports ErrBookingAlreadyApproved.
func (r *BookingRepository) MarkApproved(ctx context.Context, id string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("booking repo: nil db")
	}
	if id == "" {
		return errors.New("booking repo: empty id")
	}

	query := fmt.Sprintf(`
UPDATE %s
SET status = $2, updated_at = $3
WHERE id = $1 AND status <> $2`, r.table)

	result, err := r.db.ExecContext(ctx, query, id, masterdata.BookingStatusApproved, at.UTC())
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingAlreadyApproved
	}
	return nil
}
