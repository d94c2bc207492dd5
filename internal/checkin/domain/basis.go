package checkin

// Basis identifies the metering instrument that governs billing for a flight.
type Basis string

const (
	BasisHobbs     Basis = "hobbs"
	BasisTacho     Basis = "tacho"
	BasisAirswitch Basis = "airswitch"
	BasisNone      Basis = "none"
)

// Billable reports whether the basis can produce invoice lines. Airswitch
// metering is not supported and blocks billing the same way a missing
// configuration does.
func (b Basis) Billable() bool {
	return b == BasisHobbs || b == BasisTacho
}

// ChargeRateConfig is the hourly rate configuration of an aircraft or an
// instructor for one flight type. RatePerHour is tax-exclusive. The flags
// are meant to carry exactly one true value but defective rows with zero or
// several set must be tolerated.
type ChargeRateConfig struct {
	ID              string
	ChargeableID    string
	FlightTypeID    string
	RatePerHour     float64
	ChargeHobbs     bool
	ChargeTacho     bool
	ChargeAirswitch bool
}

// ResolveBasis derives the single governing basis from the config flags.
// Configs with several flags set resolve by fixed priority
// hobbs > tacho > airswitch so the answer stays deterministic. Zero flags
// or a missing config resolve to none. ResolveBasis never fails; downstream
// components treat none and airswitch as blocking conditions.
func ResolveBasis(cfg *ChargeRateConfig) Basis {
	if cfg == nil {
		return BasisNone
	}
	switch {
	case cfg.ChargeHobbs:
		return BasisHobbs
	case cfg.ChargeTacho:
		return BasisTacho
	case cfg.ChargeAirswitch:
		return BasisAirswitch
	default:
		return BasisNone
	}
}

// BasisConflict reports whether a solo split cannot be priced for the
// instructor because the instructor bills on a different meter than the
// aircraft. The line builder excludes the instructor line in that case
// rather than guessing a split quantity across meters; the approval gate
// refuses finalization until the conflict is resolved.
func BasisConflict(aircraft Basis, instructorRate *ChargeRateConfig, hasSoloAtEnd bool) bool {
	if !hasSoloAtEnd || instructorRate == nil {
		return false
	}
	return ResolveBasis(instructorRate) != aircraft
}
