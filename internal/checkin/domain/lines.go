package checkin

import (
	"fmt"
	"math"
	"strings"
)

// InvoiceLineItem is one draft invoice line in the shape it is stored and
// submitted. UnitPrice is tax-exclusive.
type InvoiceLineItem struct {
	ChargeableID string  `json:"chargeable_id"`
	Description  string  `json:"description"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TaxRate      float64 `json:"tax_rate"`
	Notes        string  `json:"notes"`
}

// CalculatedLine extends a line item with its derived money figures.
type CalculatedLine struct {
	InvoiceLineItem
	Amount        float64 `json:"amount"`
	TaxAmount     float64 `json:"tax_amount"`
	RateInclusive float64 `json:"rate_inclusive"`
	LineTotal     float64 `json:"line_total"`
}

// LineBuilderInput bundles everything one generation pass needs. All fields
// are treated as an immutable snapshot for the duration of the pass.
type LineBuilderInput struct {
	BookingID      string
	AircraftID     string
	AircraftName   string
	Basis          Basis
	Split          FlightTimeSplit
	BillingHours   float64
	AircraftRate   *ChargeRateConfig
	InstructorID   string
	InstructorName string
	InstructorRate *ChargeRateConfig
	Kind           InstructionKind
	HasSoloAtEnd   bool
	Readings       MeterReadings
	TaxRate        float64
}

// BuildInvoiceLines generates the aircraft and instructor lines for a
// check-in. It returns no lines at all when any guard fails: missing
// booking or aircraft rate, an unbillable basis, zero billing hours, or a
// rate that is not a positive finite number. Configuration gaps block line
// generation, they are never an error.
func BuildInvoiceLines(in LineBuilderInput) []InvoiceLineItem {
	if in.BookingID == "" || in.AircraftRate == nil {
		return nil
	}
	if !in.Basis.Billable() {
		return nil
	}
	if in.BillingHours <= 0 {
		return nil
	}
	if !positiveFinite(in.AircraftRate.RatePerHour) {
		return nil
	}

	items := []InvoiceLineItem{aircraftLine(in)}

	if line, ok := instructorLine(in); ok {
		items = append(items, line)
	}
	return items
}

func aircraftLine(in LineBuilderInput) InvoiceLineItem {
	name := in.AircraftName
	if name == "" {
		name = in.AircraftID
	}
	return InvoiceLineItem{
		ChargeableID: in.AircraftID,
		Description:  fmt.Sprintf("Aircraft hire - %s", name),
		Quantity:     in.BillingHours,
		UnitPrice:    in.AircraftRate.RatePerHour,
		TaxRate:      in.TaxRate,
		Notes:        aircraftLineNotes(in),
	}
}

func aircraftLineNotes(in LineBuilderInput) string {
	parts := []string{
		fmt.Sprintf("booking %s", in.BookingID),
		fmt.Sprintf("basis %s", in.Basis),
		fmt.Sprintf("total %.1f dual %.1f solo %.1f", in.Split.Total, in.Split.Dual, in.Split.Solo),
		fmt.Sprintf("hobbs %s", formatRange(in.Readings.Hobbs)),
		fmt.Sprintf("tacho %s", formatRange(in.Readings.Tacho)),
	}
	return strings.Join(parts, " | ")
}

// instructorLine builds the instructor fee line. It is omitted when no
// instructor is assigned, no instructor rate exists, the flight was solo,
// the rate is not a positive finite number, or a solo split is in effect
// on a different meter than the instructor bills on. The meter mismatch is
// a deliberate conflict-excludes rule: the engine refuses to compute a
// split quantity across mismatched bases rather than guess.
func instructorLine(in LineBuilderInput) (InvoiceLineItem, bool) {
	hours := instructorHours(in)
	if in.InstructorID == "" || in.InstructorRate == nil || hours <= 0 {
		return InvoiceLineItem{}, false
	}
	if !positiveFinite(in.InstructorRate.RatePerHour) {
		return InvoiceLineItem{}, false
	}
	name := in.InstructorName
	if name == "" {
		name = in.InstructorID
	}
	return InvoiceLineItem{
		ChargeableID: in.InstructorID,
		Description:  fmt.Sprintf("Instructor - %s", name),
		Quantity:     hours,
		UnitPrice:    in.InstructorRate.RatePerHour,
		TaxRate:      in.TaxRate,
		Notes:        fmt.Sprintf("booking %s | dual %.1f", in.BookingID, hours),
	}, true
}

func instructorHours(in LineBuilderInput) float64 {
	if in.Kind == KindSolo {
		return 0
	}
	if BasisConflict(in.Basis, in.InstructorRate, in.HasSoloAtEnd) {
		return 0
	}
	return in.Split.Dual
}

func formatRange(r MeterReading) string {
	if !present(r.Start) || !present(r.End) {
		return "-"
	}
	if present(r.SoloEnd) {
		return fmt.Sprintf("%.1f-%.1f-%.1f", *r.Start, *r.End, *r.SoloEnd)
	}
	return fmt.Sprintf("%.1f-%.1f", *r.Start, *r.End)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
