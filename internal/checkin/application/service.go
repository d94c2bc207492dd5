package application

import (
	"context"
	"errors"
	"time"

	checkin "flightline-cloud/internal/checkin/domain"
	invoicing "flightline-cloud/internal/invoicing/domain"
	masterdata "flightline-cloud/internal/masterdata/domain"
	"flightline-cloud/internal/observability/metrics"
)

// ErrBookingNotFound is returned when a check-in is opened for an unknown booking.
var ErrBookingNotFound = errors.New("check-in: booking not found")

// BookingReader loads bookings.
type BookingReader interface {
	GetBooking(ctx context.Context, id string) (*masterdata.Booking, error)
}

// ChargeRateReader loads the rate config for an aircraft or instructor on a
// flight type, nil when none is configured.
type ChargeRateReader interface {
	GetChargeRate(ctx context.Context, chargeableID, flightTypeID string) (*checkin.ChargeRateConfig, error)
}

// TaxRateProvider supplies the organization tax rate as a decimal fraction.
type TaxRateProvider interface {
	OrgTaxRate(ctx context.Context) (float64, error)
}

// InvoiceCreator turns an approved submission into an invoice. Failures are
// surfaced to the caller verbatim; this engine never retries.
type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, payload checkin.InvoicePayload) (*invoicing.Invoice, error)
}

// OptionsReader resolves selectable entities when the user changes a
// check-in's aircraft, instructor or flight type.
type OptionsReader interface {
	GetAircraft(ctx context.Context, id string) (*masterdata.Aircraft, error)
	GetInstructor(ctx context.Context, id string) (*masterdata.Instructor, error)
	GetFlightType(ctx context.Context, id string) (*masterdata.FlightType, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// CheckInService opens flight check-in sessions. All collaborator reads are
// idempotent lookups whose results the engine treats as immutable snapshots
// for the duration of one computation pass.
type CheckInService struct {
	bookings BookingReader
	rates    ChargeRateReader
	options  OptionsReader
	tax      TaxRateProvider
	invoices InvoiceCreator
	clock    Clock
}

// NewCheckInService constructs the service.
func NewCheckInService(
	bookings BookingReader,
	rates ChargeRateReader,
	options OptionsReader,
	tax TaxRateProvider,
	invoices InvoiceCreator,
	clock Clock,
) (*CheckInService, error) {
	if bookings == nil {
		return nil, errors.New("check-in service: nil booking reader")
	}
	if rates == nil {
		return nil, errors.New("check-in service: nil charge rate reader")
	}
	if tax == nil {
		return nil, errors.New("check-in service: nil tax rate provider")
	}
	if invoices == nil {
		return nil, errors.New("check-in service: nil invoice creator")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &CheckInService{
		bookings: bookings,
		rates:    rates,
		options:  options,
		tax:      tax,
		invoices: invoices,
		clock:    clock,
	}, nil
}

// Open starts a check-in session for one booking: the booking, its charge
// rates and the org tax rate are loaded once and become the session's input
// snapshot. The session owns all further mutable state.
func (s *CheckInService) Open(ctx context.Context, bookingID string) (*CheckIn, error) {
	if bookingID == "" {
		return nil, errors.New("check-in service: empty booking id")
	}
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	taxRate, err := s.tax.OrgTaxRate(ctx)
	if err != nil {
		return nil, err
	}

	ci := &CheckIn{
		svc:     s,
		booking: booking,
		taxRate: taxRate,
		session: checkin.NewSession(),
	}
	if err := ci.reloadRates(ctx); err != nil {
		return nil, err
	}
	return ci, nil
}

// CheckIn is one active check-in session. Recomputation happens only on the
// explicit commands below, never behind the caller's back, so billing figures
// stay stable while the user edits.
type CheckIn struct {
	svc            *CheckInService
	booking        *masterdata.Booking
	aircraftRate   *checkin.ChargeRateConfig
	instructorRate *checkin.ChargeRateConfig
	taxRate        float64
	session        *checkin.Session
}

// Booking returns the session's booking snapshot.
func (c *CheckIn) Booking() *masterdata.Booking { return c.booking }

// Draft returns the current draft, nil when none is calculated.
func (c *CheckIn) Draft() *checkin.DraftCalculation { return c.session.Draft }

// Session exposes the mutable session state.
func (c *CheckIn) Session() *checkin.Session { return c.session }

// Basis returns the aircraft billing basis for the current selection.
func (c *CheckIn) Basis() checkin.Basis { return checkin.ResolveBasis(c.aircraftRate) }

// TaxRate returns the tax rate the session was opened with.
func (c *CheckIn) TaxRate() float64 { return c.taxRate }

// Split returns the flight time split for the governing basis.
func (c *CheckIn) Split() checkin.FlightTimeSplit {
	return checkin.SplitFlightTime(c.Basis(), c.kind(), c.readings().ForBasis(c.Basis()), c.booking.HasSoloAtEnd)
}

// BillingHours returns the basis-specific hours billed on the aircraft line.
func (c *CheckIn) BillingHours() float64 {
	return checkin.BillingHours(c.Basis(), c.kind(), c.readings(), c.booking.HasSoloAtEnd)
}

// Stale reports whether the draft no longer matches the current inputs.
// Staleness never recomputes anything; only explicit commands do.
func (c *CheckIn) Stale() bool {
	return c.session.Draft.StaleAgainst(c.signatureInputs())
}

// Calculate computes a fresh draft from the current inputs. It returns nil
// when the effective line set is empty (a configuration gap, not an error).
func (c *CheckIn) Calculate() *checkin.DraftCalculation {
	start := c.svc.clock.Now()
	draft := c.session.Recompute(c.builderInput(), c.signature(), start)
	result := metrics.ResultSuccess
	if draft == nil {
		result = metrics.ResultEmpty
	}
	metrics.ObserveCheckInCalculate(result, c.svc.clock.Now().Sub(start))
	return draft
}

// EditLine patches one draft line. See Session.EditLine for the
// generated-versus-manual persistence rules.
func (c *CheckIn) EditLine(index int, patch checkin.LinePatch) {
	c.session.EditLine(index, patch)
}

// AddManualItem appends a blank manual line and returns its draft index.
func (c *CheckIn) AddManualItem() int {
	return c.session.AddManualItem(c.builderInput(), c.signature(), c.svc.clock.Now(), c.taxRate)
}

// RemoveManualItem deletes one manual line by manual-set index.
func (c *CheckIn) RemoveManualItem(index int) {
	c.session.RemoveManualItem(index, c.builderInput(), c.signature(), c.svc.clock.Now())
}

// ExcludeItem drops a generated line by description.
func (c *CheckIn) ExcludeItem(description string) {
	c.session.ExcludeGenerated(description, c.builderInput(), c.signature(), c.svc.clock.Now())
}

// SetReadings replaces the meter readings.
func (c *CheckIn) SetReadings(readings checkin.MeterReadings) {
	c.booking.HobbsStart = readings.Hobbs.Start
	c.booking.HobbsEnd = readings.Hobbs.End
	c.booking.HobbsSoloEnd = readings.Hobbs.SoloEnd
	c.booking.TachoStart = readings.Tacho.Start
	c.booking.TachoEnd = readings.Tacho.End
	c.booking.TachoSoloEnd = readings.Tacho.SoloEnd
}

// SetSoloAtEnd toggles the solo-at-end split.
func (c *CheckIn) SetSoloAtEnd(enabled bool) {
	c.booking.HasSoloAtEnd = enabled
}

// SetInstructionKind changes the instruction kind.
func (c *CheckIn) SetInstructionKind(kind string) {
	c.booking.InstructionKind = masterdata.NormalizeInstructionKind(kind)
}

// SelectAircraft changes the aircraft and reloads its charge rate.
func (c *CheckIn) SelectAircraft(ctx context.Context, aircraftID string) error {
	c.booking.AircraftID = aircraftID
	c.booking.AircraftRegistration = ""
	if c.svc.options != nil && aircraftID != "" {
		aircraft, err := c.svc.options.GetAircraft(ctx, aircraftID)
		if err != nil {
			return err
		}
		if aircraft != nil {
			c.booking.AircraftRegistration = aircraft.Registration
		}
	}
	return c.reloadRates(ctx)
}

// SelectInstructor changes the instructor and reloads their charge rate.
func (c *CheckIn) SelectInstructor(ctx context.Context, instructorID string) error {
	c.booking.InstructorID = instructorID
	c.booking.InstructorName = ""
	if c.svc.options != nil && instructorID != "" {
		instructor, err := c.svc.options.GetInstructor(ctx, instructorID)
		if err != nil {
			return err
		}
		if instructor != nil {
			c.booking.InstructorName = instructor.Name
		}
	}
	return c.reloadRates(ctx)
}

// SelectFlightType changes the flight type and reloads both charge rates.
func (c *CheckIn) SelectFlightType(ctx context.Context, flightTypeID string) error {
	c.booking.FlightTypeID = flightTypeID
	c.booking.FlightTypeName = ""
	if c.svc.options != nil && flightTypeID != "" {
		flightType, err := c.svc.options.GetFlightType(ctx, flightTypeID)
		if err != nil {
			return err
		}
		if flightType != nil {
			c.booking.FlightTypeName = flightType.Name
		}
	}
	return c.reloadRates(ctx)
}

// Approve runs the full approval gate and, on success, submits the invoice
// payload to the invoice creator. Collaborator failures come back verbatim.
// The draft is discarded once the booking is approved.
func (c *CheckIn) Approve(ctx context.Context) (*invoicing.Invoice, error) {
	start := c.svc.clock.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveCheckInApprove(result, c.svc.clock.Now().Sub(start))
	}()

	state := c.approvalState()
	if err := checkin.ValidateApproval(state); err != nil {
		result = metrics.ResultError
		return nil, err
	}

	payload := checkin.BuildSubmission(state, c.svc.clock.Now())
	invoice, err := c.svc.invoices.CreateInvoice(ctx, payload)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	metrics.IncInvoiceCreated()

	c.booking.Status = masterdata.BookingStatusApproved
	c.session.Draft = nil
	return invoice, nil
}

// Close discards the session's draft.
func (c *CheckIn) Close() {
	c.session.Draft = nil
	c.session.Editing = -1
}

func (c *CheckIn) reloadRates(ctx context.Context) error {
	c.aircraftRate = nil
	c.instructorRate = nil
	if c.booking.FlightTypeID == "" {
		return nil
	}
	if c.booking.AircraftID != "" {
		rate, err := c.svc.rates.GetChargeRate(ctx, c.booking.AircraftID, c.booking.FlightTypeID)
		if err != nil {
			return err
		}
		c.aircraftRate = rate
	}
	if c.booking.InstructorID != "" {
		rate, err := c.svc.rates.GetChargeRate(ctx, c.booking.InstructorID, c.booking.FlightTypeID)
		if err != nil {
			return err
		}
		c.instructorRate = rate
	}
	return nil
}

func (c *CheckIn) kind() checkin.InstructionKind {
	return checkin.InstructionKind(masterdata.NormalizeInstructionKind(c.booking.InstructionKind))
}

func (c *CheckIn) readings() checkin.MeterReadings {
	return checkin.MeterReadings{
		Hobbs: checkin.MeterReading{Start: c.booking.HobbsStart, End: c.booking.HobbsEnd, SoloEnd: c.booking.HobbsSoloEnd},
		Tacho: checkin.MeterReading{Start: c.booking.TachoStart, End: c.booking.TachoEnd, SoloEnd: c.booking.TachoSoloEnd},
	}
}

func (c *CheckIn) builderInput() checkin.LineBuilderInput {
	basis := c.Basis()
	return checkin.LineBuilderInput{
		BookingID:      c.booking.ID,
		AircraftID:     c.booking.AircraftID,
		AircraftName:   c.booking.AircraftRegistration,
		Basis:          basis,
		Split:          c.Split(),
		BillingHours:   c.BillingHours(),
		AircraftRate:   c.aircraftRate,
		InstructorID:   c.booking.InstructorID,
		InstructorName: c.booking.InstructorName,
		InstructorRate: c.instructorRate,
		Kind:           c.kind(),
		HasSoloAtEnd:   c.booking.HasSoloAtEnd,
		Readings:       c.readings(),
		TaxRate:        c.taxRate,
	}
}

func (c *CheckIn) signatureInputs() checkin.SignatureInputs {
	return checkin.SignatureInputs{
		BookingID:      c.booking.ID,
		AircraftID:     c.booking.AircraftID,
		InstructorID:   c.booking.InstructorID,
		FlightTypeID:   c.booking.FlightTypeID,
		HobbsStart:     c.booking.HobbsStart,
		HobbsEnd:       c.booking.HobbsEnd,
		HobbsSoloEnd:   c.booking.HobbsSoloEnd,
		TachoStart:     c.booking.TachoStart,
		TachoEnd:       c.booking.TachoEnd,
		TachoSoloEnd:   c.booking.TachoSoloEnd,
		HasSoloAtEnd:   c.booking.HasSoloAtEnd,
		Kind:           c.kind(),
		AircraftRate:   checkin.SnapshotRate(c.aircraftRate),
		InstructorRate: checkin.SnapshotRate(c.instructorRate),
		TaxRate:        c.taxRate,
	}
}

func (c *CheckIn) signature() string {
	return checkin.ComputeSignature(c.signatureInputs())
}

func (c *CheckIn) approvalState() checkin.ApprovalState {
	return checkin.ApprovalState{
		BookingID:       c.booking.ID,
		BookingApproved: c.booking.Approved(),
		AircraftID:      c.booking.AircraftID,
		InstructorID:    c.booking.InstructorID,
		FlightTypeID:    c.booking.FlightTypeID,
		Basis:           c.Basis(),
		BillingHours:    c.BillingHours(),
		Split:           c.Split(),
		HasSoloAtEnd:    c.booking.HasSoloAtEnd,
		Kind:            c.kind(),
		Readings:        c.readings(),
		InstructorRate:  c.instructorRate,
		TaxRate:         c.taxRate,
		Signature:       c.signature(),
		Draft:           c.session.Draft,
	}
}
