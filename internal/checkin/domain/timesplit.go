package checkin

import "math"

// InstructionKind classifies how a flight was flown.
type InstructionKind string

const (
	KindDual  InstructionKind = "dual"
	KindTrial InstructionKind = "trial"
	KindSolo  InstructionKind = "solo"
)

// Validation messages surfaced to the user when a solo split cannot be
// computed from the readings.
const (
	MsgSoloSplitIncomplete = "Solo split requires start, dual end, and solo end."
	MsgDualEndBeforeStart  = "Dual end cannot be less than start."
	MsgSoloEndBeforeDual   = "Solo end cannot be less than dual end."
)

// MeterReading is one instrument's reading set for a flight. End is the
// ordinary end reading; SoloEnd is the final reading when the student
// continued solo after the dual portion. Nil means the field was not entered.
type MeterReading struct {
	Start   *float64
	End     *float64
	SoloEnd *float64
}

// MeterReadings carries both instruments for one flight.
type MeterReadings struct {
	Hobbs MeterReading
	Tacho MeterReading
}

// ForBasis selects the reading set of the governing instrument. Bases that
// do not correspond to an instrument yield an empty reading.
func (m MeterReadings) ForBasis(b Basis) MeterReading {
	switch b {
	case BasisHobbs:
		return m.Hobbs
	case BasisTacho:
		return m.Tacho
	default:
		return MeterReading{}
	}
}

// FlightTimeSplit is the total/dual/solo hour breakdown of a flight,
// rounded to one decimal. Err carries a user-facing validation message and
// is non-empty only when a solo split failed validation; every other path
// is error-free by construction.
type FlightTimeSplit struct {
	Total float64
	Dual  float64
	Solo  float64
	Err   string
}

// SplitFlightTime computes the flight time split for one instrument under a
// resolved basis. Rules are evaluated in order: unsupported bases yield a
// zero split, a solo-kind flight bills everything as solo, a flight with a
// solo portion at the end requires all three readings in ascending order,
// and everything else bills the plain start-to-end delta as dual.
func SplitFlightTime(basis Basis, kind InstructionKind, r MeterReading, hasSoloAtEnd bool) FlightTimeSplit {
	if !basis.Billable() {
		return FlightTimeSplit{}
	}

	if kind == KindSolo {
		total := round1(readingDelta(r.Start, r.End))
		return FlightTimeSplit{Total: total, Solo: total}
	}

	if hasSoloAtEnd {
		if !present(r.Start) || !present(r.End) || !present(r.SoloEnd) {
			return FlightTimeSplit{Err: MsgSoloSplitIncomplete}
		}
		if *r.End < *r.Start {
			return FlightTimeSplit{Err: MsgDualEndBeforeStart}
		}
		if *r.SoloEnd < *r.End {
			return FlightTimeSplit{Err: MsgSoloEndBeforeDual}
		}
		dual := round1(*r.End - *r.Start)
		solo := round1(*r.SoloEnd - *r.End)
		return FlightTimeSplit{Total: round1(dual + solo), Dual: dual, Solo: solo}
	}

	total := round1(readingDelta(r.Start, r.End))
	return FlightTimeSplit{Total: total, Dual: total}
}

// BillingHours is the basis-specific hour figure used for the aircraft
// line: the splitter re-run restricted to the governing instrument's
// readings. Readings on the non-governing meter do not contribute.
func BillingHours(basis Basis, kind InstructionKind, readings MeterReadings, hasSoloAtEnd bool) float64 {
	return SplitFlightTime(basis, kind, readings.ForBasis(basis), hasSoloAtEnd).Total
}

// readingDelta returns end-start clamped to zero. Missing or non-finite
// readings count as zero hours, never as negative time.
func readingDelta(start, end *float64) float64 {
	if !present(start) || !present(end) {
		return 0
	}
	delta := *end - *start
	if delta < 0 || math.IsNaN(delta) {
		return 0
	}
	return delta
}

func present(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// round1 rounds to one decimal place, the resolution flight hours are
// metered and billed at.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// round2 rounds to two decimal places for money amounts.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
