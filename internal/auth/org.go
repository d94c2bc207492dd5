package auth

import (
	"context"
	"database/sql"
	"errors"

	masterdatarepo "flightline-cloud/internal/masterdata/infrastructure/postgres"
)

var (
	// ErrOrgMismatch indicates the resource belongs to a different organization.
	ErrOrgMismatch = errors.New("org mismatch")
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("resource not found")
)

// BookingOrgChecker validates booking organization ownership.
type BookingOrgChecker interface {
	EnsureBookingOrg(ctx context.Context, orgID, bookingID string) error
}

// BookingChecker checks booking ownership using masterdata.
type BookingChecker struct {
	repo *masterdatarepo.BookingRepository
}

// NewBookingChecker constructs a BookingChecker.
func NewBookingChecker(db *sql.DB) *BookingChecker {
	if db == nil {
		return nil
	}
	return &BookingChecker{repo: masterdatarepo.NewBookingRepository(db)}
}

// EnsureBookingOrg verifies the booking belongs to the organization.
func (c *BookingChecker) EnsureBookingOrg(ctx context.Context, orgID, bookingID string) error {
	if c == nil || c.repo == nil {
		return nil
	}
	if orgID == "" || bookingID == "" {
		return nil
	}
	booking, err := c.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking == nil {
		return ErrNotFound
	}
	if booking.OrgID != orgID {
		return ErrOrgMismatch
	}
	return nil
}
