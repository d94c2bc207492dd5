package checkin

import (
	"math"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestSplitFlightTimePlainDual(t *testing.T) {
	r := MeterReading{Start: fp(8752.2), End: fp(8754.5)}
	split := SplitFlightTime(BasisHobbs, KindDual, r, false)
	if split.Err != "" {
		t.Fatalf("unexpected error: %s", split.Err)
	}
	if split.Total != 2.3 || split.Dual != 2.3 || split.Solo != 0 {
		t.Fatalf("expected total 2.3 dual 2.3 solo 0, got %+v", split)
	}
}

func TestSplitFlightTimeSoloKind(t *testing.T) {
	r := MeterReading{Start: fp(100.0), End: fp(101.2)}
	split := SplitFlightTime(BasisHobbs, KindSolo, r, false)
	if split.Total != 1.2 || split.Solo != 1.2 || split.Dual != 0 {
		t.Fatalf("expected all hours solo, got %+v", split)
	}
}

func TestSplitFlightTimeSoloKindIgnoresSoloAtEnd(t *testing.T) {
	// A solo-kind flight bills start to end regardless of the split flag.
	r := MeterReading{Start: fp(100.0), End: fp(101.2), SoloEnd: fp(102.0)}
	split := SplitFlightTime(BasisHobbs, KindSolo, r, true)
	if split.Err != "" {
		t.Fatalf("unexpected error: %s", split.Err)
	}
	if split.Total != 1.2 || split.Solo != 1.2 {
		t.Fatalf("expected total 1.2 solo 1.2, got %+v", split)
	}
}

func TestSplitFlightTimeSoloAtEnd(t *testing.T) {
	r := MeterReading{Start: fp(100.0), End: fp(101.5), SoloEnd: fp(102.0)}
	split := SplitFlightTime(BasisHobbs, KindDual, r, true)
	if split.Err != "" {
		t.Fatalf("unexpected error: %s", split.Err)
	}
	if split.Dual != 1.5 || split.Solo != 0.5 || split.Total != 2.0 {
		t.Fatalf("expected dual 1.5 solo 0.5 total 2.0, got %+v", split)
	}
}

func TestSplitFlightTimeSoloAtEndValidation(t *testing.T) {
	cases := []struct {
		name string
		r    MeterReading
		want string
	}{
		{"missing solo end", MeterReading{Start: fp(100.0), End: fp(101.5)}, MsgSoloSplitIncomplete},
		{"missing start", MeterReading{End: fp(101.5), SoloEnd: fp(102.0)}, MsgSoloSplitIncomplete},
		{"missing end", MeterReading{Start: fp(100.0), SoloEnd: fp(102.0)}, MsgSoloSplitIncomplete},
		{"dual end before start", MeterReading{Start: fp(101.5), End: fp(100.0), SoloEnd: fp(102.0)}, MsgDualEndBeforeStart},
		{"solo end before dual end", MeterReading{Start: fp(100.0), End: fp(101.5), SoloEnd: fp(101.0)}, MsgSoloEndBeforeDual},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split := SplitFlightTime(BasisHobbs, KindDual, tc.r, true)
			if split.Err != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, split.Err)
			}
			if split.Total != 0 || split.Dual != 0 || split.Solo != 0 {
				t.Fatalf("failed split must carry zero hours, got %+v", split)
			}
		})
	}
}

func TestSplitFlightTimeUnsupportedBasis(t *testing.T) {
	r := MeterReading{Start: fp(100.0), End: fp(105.0)}
	for _, basis := range []Basis{BasisAirswitch, BasisNone} {
		split := SplitFlightTime(basis, KindDual, r, false)
		if split != (FlightTimeSplit{}) {
			t.Fatalf("basis %s must yield a zero split, got %+v", basis, split)
		}
	}
}

func TestSplitFlightTimeClampsNegative(t *testing.T) {
	r := MeterReading{Start: fp(105.0), End: fp(100.0)}
	split := SplitFlightTime(BasisHobbs, KindDual, r, false)
	if split.Total != 0 || split.Err != "" {
		t.Fatalf("negative delta clamps to zero without error, got %+v", split)
	}
}

func TestSplitFlightTimeMissingReadings(t *testing.T) {
	split := SplitFlightTime(BasisHobbs, KindDual, MeterReading{}, false)
	if split.Total != 0 || split.Err != "" {
		t.Fatalf("missing readings count as zero hours, got %+v", split)
	}
}

func TestSplitFlightTimeNonFiniteReadings(t *testing.T) {
	r := MeterReading{Start: fp(math.NaN()), End: fp(100.0)}
	split := SplitFlightTime(BasisHobbs, KindDual, r, false)
	if split.Total != 0 {
		t.Fatalf("NaN readings count as zero hours, got %+v", split)
	}

	r = MeterReading{Start: fp(100.0), End: fp(math.Inf(1))}
	split = SplitFlightTime(BasisHobbs, KindDual, r, false)
	if split.Total != 0 {
		t.Fatalf("infinite readings count as zero hours, got %+v", split)
	}
}

func TestSplitFlightTimeRoundsToOneDecimal(t *testing.T) {
	r := MeterReading{Start: fp(100.0), End: fp(100.25)}
	split := SplitFlightTime(BasisHobbs, KindDual, r, false)
	if split.Total != 0.3 {
		t.Fatalf("expected 0.3, got %v", split.Total)
	}
}

func TestBillingHoursUsesGoverningMeterOnly(t *testing.T) {
	readings := MeterReadings{
		Hobbs: MeterReading{Start: fp(100.0), End: fp(102.0)},
		Tacho: MeterReading{Start: fp(50.0), End: fp(51.5)},
	}
	if got := BillingHours(BasisHobbs, KindDual, readings, false); got != 2.0 {
		t.Fatalf("expected 2.0 from hobbs, got %v", got)
	}
	if got := BillingHours(BasisTacho, KindDual, readings, false); got != 1.5 {
		t.Fatalf("expected 1.5 from tacho, got %v", got)
	}

	// Only hobbs entered while tacho governs: no billable hours.
	readings.Tacho = MeterReading{}
	if got := BillingHours(BasisTacho, KindDual, readings, false); got != 0 {
		t.Fatalf("expected 0 when governing meter has no readings, got %v", got)
	}
}
