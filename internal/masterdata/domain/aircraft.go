package masterdata

import (
	"context"
	"errors"
	"time"
)

// Aircraft represents one airframe in masterdata.
type Aircraft struct {
	ID           string
	OrgID        string
	Registration string
	Model        string
	HasHobbs     bool
	HasTacho     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks aircraft invariants.
func (a Aircraft) Validate() error {
	if a.ID == "" {
		return errors.New("aircraft: empty id")
	}
	if a.OrgID == "" {
		return errors.New("aircraft: empty org id")
	}
	if a.Registration == "" {
		return errors.New("aircraft: empty registration")
	}
	return nil
}

// Instructor represents a flight instructor.
type Instructor struct {
	ID        string
	OrgID     string
	Name      string
	Rating    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FlightType classifies a booking for rate lookup, e.g. dual training,
// trial flight or aircraft hire.
type FlightType struct {
	ID        string
	OrgID     string
	Name      string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AircraftRepository loads aircraft.
type AircraftRepository interface {
	GetAircraft(ctx context.Context, id string) (*Aircraft, error)
}

// InstructorRepository loads instructors.
type InstructorRepository interface {
	GetInstructor(ctx context.Context, id string) (*Instructor, error)
}

// FlightTypeRepository loads flight types.
type FlightTypeRepository interface {
	GetFlightType(ctx context.Context, id string) (*FlightType, error)
}
