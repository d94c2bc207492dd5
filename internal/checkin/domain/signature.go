package checkin

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
)

// RateSnapshot pins the fields of a charge-rate config that affect a draft.
type RateSnapshot struct {
	ID              string  `json:"id"`
	RatePerHour     float64 `json:"rate_per_hour"`
	ChargeHobbs     bool    `json:"charge_hobbs"`
	ChargeTacho     bool    `json:"charge_tacho"`
	ChargeAirswitch bool    `json:"charge_airswitch"`
}

// SnapshotRate captures a rate config, or nil when none exists.
func SnapshotRate(cfg *ChargeRateConfig) *RateSnapshot {
	if cfg == nil {
		return nil
	}
	return &RateSnapshot{
		ID:              cfg.ID,
		RatePerHour:     cfg.RatePerHour,
		ChargeHobbs:     cfg.ChargeHobbs,
		ChargeTacho:     cfg.ChargeTacho,
		ChargeAirswitch: cfg.ChargeAirswitch,
	}
}

// SignatureInputs is the complete set of fields that can change a computed
// draft. Anything outside this set is cosmetic and must not flip staleness.
type SignatureInputs struct {
	BookingID      string          `json:"booking_id"`
	AircraftID     string          `json:"aircraft_id"`
	InstructorID   string          `json:"instructor_id"`
	FlightTypeID   string          `json:"flight_type_id"`
	HobbsStart     *float64        `json:"hobbs_start"`
	HobbsEnd       *float64        `json:"hobbs_end"`
	HobbsSoloEnd   *float64        `json:"hobbs_solo_end"`
	TachoStart     *float64        `json:"tacho_start"`
	TachoEnd       *float64        `json:"tacho_end"`
	TachoSoloEnd   *float64        `json:"tacho_solo_end"`
	HasSoloAtEnd   bool            `json:"has_solo_at_end"`
	Kind           InstructionKind `json:"instruction_kind"`
	AircraftRate   *RateSnapshot   `json:"aircraft_rate"`
	InstructorRate *RateSnapshot   `json:"instructor_rate"`
	TaxRate        float64         `json:"tax_rate"`
}

// ComputeSignature fingerprints the draft inputs as SHA-256 over their
// canonical JSON form. Solo-end readings count only while the solo split is
// enabled; with the flag off they are treated as null regardless of their
// raw value, so toggling a stray solo-end field cannot mark a draft stale.
func ComputeSignature(in SignatureInputs) string {
	if !in.HasSoloAtEnd {
		in.HobbsSoloEnd = nil
		in.TachoSoloEnd = nil
	}
	in.HobbsStart = finiteOrNil(in.HobbsStart)
	in.HobbsEnd = finiteOrNil(in.HobbsEnd)
	in.HobbsSoloEnd = finiteOrNil(in.HobbsSoloEnd)
	in.TachoStart = finiteOrNil(in.TachoStart)
	in.TachoEnd = finiteOrNil(in.TachoEnd)
	in.TachoSoloEnd = finiteOrNil(in.TachoSoloEnd)

	data, err := json.Marshal(in)
	if err != nil {
		// Only non-finite numbers can fail marshalling and those are
		// stripped above.
		panic("checkin: signature inputs not serializable: " + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StaleAgainst reports whether the draft no longer matches the current
// inputs. A missing draft counts as stale.
func (d *DraftCalculation) StaleAgainst(in SignatureInputs) bool {
	return d == nil || d.Signature != ComputeSignature(in)
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}
