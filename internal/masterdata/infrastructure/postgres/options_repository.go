package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "flightline-cloud/internal/masterdata/domain"
)

const (
	defaultAircraftTable    = "aircraft"
	defaultInstructorsTable = "instructors"
	defaultFlightTypesTable = "flight_types"
)

// OptionsRepository loads the selectable entities a check-in can reference:
// aircraft, instructors and flight types.
type OptionsRepository struct {
	db DBTX
}

// NewOptionsRepository constructs a repository.
func NewOptionsRepository(db DBTX) *OptionsRepository {
	return &OptionsRepository{db: db}
}

// GetAircraft loads one aircraft by id.
func (r *OptionsRepository) GetAircraft(ctx context.Context, id string) (*masterdata.Aircraft, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("options repo: nil db")
	}
	if id == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, org_id, registration, COALESCE(model, ''), COALESCE(has_hobbs, FALSE), COALESCE(has_tacho, FALSE), created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, defaultAircraftTable)

	var aircraft masterdata.Aircraft
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&aircraft.ID,
		&aircraft.OrgID,
		&aircraft.Registration,
		&aircraft.Model,
		&aircraft.HasHobbs,
		&aircraft.HasTacho,
		&aircraft.CreatedAt,
		&aircraft.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &aircraft, nil
}

// GetInstructor loads one instructor by id.
func (r *OptionsRepository) GetInstructor(ctx context.Context, id string) (*masterdata.Instructor, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("options repo: nil db")
	}
	if id == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, org_id, name, COALESCE(rating, ''), created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, defaultInstructorsTable)

	var instructor masterdata.Instructor
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&instructor.ID,
		&instructor.OrgID,
		&instructor.Name,
		&instructor.Rating,
		&instructor.CreatedAt,
		&instructor.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &instructor, nil
}

// GetFlightType loads one flight type by id.
func (r *OptionsRepository) GetFlightType(ctx context.Context, id string) (*masterdata.FlightType, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("options repo: nil db")
	}
	if id == "" {
		return nil, nil
	}

	query := fmt.Sprintf(`
SELECT id, org_id, name, COALESCE(code, ''), created_at, updated_at
FROM %s
WHERE id = $1
LIMIT 1`, defaultFlightTypesTable)

	var flightType masterdata.FlightType
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&flightType.ID,
		&flightType.OrgID,
		&flightType.Name,
		&flightType.Code,
		&flightType.CreatedAt,
		&flightType.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &flightType, nil
}
