package checkin

import (
	"fmt"
	"math"
	"time"
)

// ApprovalState is everything the approval gate inspects before a draft may
// be finalized into an invoice submission.
type ApprovalState struct {
	BookingID       string
	BookingApproved bool
	AircraftID      string
	InstructorID    string
	FlightTypeID    string
	Basis           Basis
	BillingHours    float64
	Split           FlightTimeSplit
	HasSoloAtEnd    bool
	Kind            InstructionKind
	Readings        MeterReadings
	InstructorRate  *ChargeRateConfig
	TaxRate         float64
	Signature       string
	Draft           *DraftCalculation
}

// InvoicePayload is the submission handed to the invoice-creation
// collaborator once the gate passes. The engine performs no I/O itself.
type InvoicePayload struct {
	BookingID    string            `json:"booking_id"`
	AircraftID   string            `json:"aircraft_id"`
	InstructorID string            `json:"instructor_id,omitempty"`
	FlightTypeID string            `json:"flight_type_id"`
	Readings     MeterReadings     `json:"readings"`
	BillingBasis Basis             `json:"billing_basis"`
	BillingHours float64           `json:"billing_hours"`
	DualTime     *float64          `json:"dual_time"`
	SoloTime     *float64          `json:"solo_time"`
	TaxRate      float64           `json:"tax_rate"`
	DueDate      time.Time         `json:"due_date"`
	Reference    string            `json:"reference"`
	Items        []InvoiceLineItem `json:"items"`
}

// DueDays is how long after approval a flight invoice falls due.
const DueDays = 7

// ValidateApproval checks the full invariant set in a fixed priority order
// and fails fast on the first unmet condition. Each failure is a distinct,
// user-facing reason: validation problems report the offending input,
// configuration gaps report what is missing, and a stale or absent draft
// asks for a recalculation.
func ValidateApproval(st ApprovalState) error {
	if st.BookingID == "" {
		return ErrNoBooking
	}
	if st.BookingApproved {
		return ErrAlreadyApproved
	}
	if st.AircraftID == "" || st.FlightTypeID == "" {
		return ErrMissingSelection
	}
	if !st.Basis.Billable() {
		return ErrUnsupportedBasis
	}
	if st.BillingHours <= 0 {
		return ErrNoBillableHours
	}
	if st.Split.Err != "" {
		return fmt.Errorf("%w: %s", ErrInvalidSplit, st.Split.Err)
	}
	if BasisConflict(st.Basis, st.InstructorRate, st.HasSoloAtEnd) {
		return ErrBasisConflict
	}
	if st.Draft == nil {
		return ErrNoDraft
	}
	if st.Draft.Signature != st.Signature {
		return ErrStaleDraft
	}
	if len(st.Draft.Items) == 0 {
		return ErrEmptyDraft
	}
	for _, item := range st.Draft.Items {
		if !(item.Quantity > 0) || item.UnitPrice < 0 || !finite(item.Quantity) || !finite(item.UnitPrice) {
			return ErrInvalidLine
		}
	}
	if !(st.Draft.Totals.TotalAmount > 0) || !finite(st.Draft.Totals.TotalAmount) {
		return ErrInvalidTotal
	}
	return nil
}

// BuildSubmission assembles the invoice payload from a state that already
// passed ValidateApproval. Solo-end readings are included only when the
// solo split is enabled and only on the governing meter; dual and solo time
// are null when zero.
func BuildSubmission(st ApprovalState, now time.Time) InvoicePayload {
	readings := st.Readings
	if !st.HasSoloAtEnd {
		readings.Hobbs.SoloEnd = nil
		readings.Tacho.SoloEnd = nil
	} else {
		switch st.Basis {
		case BasisHobbs:
			readings.Tacho.SoloEnd = nil
		case BasisTacho:
			readings.Hobbs.SoloEnd = nil
		}
	}

	return InvoicePayload{
		BookingID:    st.BookingID,
		AircraftID:   st.AircraftID,
		InstructorID: st.InstructorID,
		FlightTypeID: st.FlightTypeID,
		Readings:     readings,
		BillingBasis: st.Basis,
		BillingHours: st.BillingHours,
		DualTime:     nonZero(st.Draft.DualTime),
		SoloTime:     nonZero(st.Draft.SoloTime),
		TaxRate:      st.TaxRate,
		DueDate:      now.AddDate(0, 0, DueDays),
		Reference:    fmt.Sprintf("Flight check-in for booking %s", st.BookingID),
		Items:        append([]InvoiceLineItem(nil), st.Draft.Items...),
	}
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
