package checkin

import (
	"math"
	"strings"
	"testing"
)

func dualLessonInput() LineBuilderInput {
	readings := MeterReadings{
		Hobbs: MeterReading{Start: fp(8752.2), End: fp(8754.5)},
	}
	split := SplitFlightTime(BasisHobbs, KindDual, readings.Hobbs, false)
	return LineBuilderInput{
		BookingID:      "booking-1",
		AircraftID:     "aircraft-1",
		AircraftName:   "ZK-ABC",
		Basis:          BasisHobbs,
		Split:          split,
		BillingHours:   split.Total,
		AircraftRate:   &ChargeRateConfig{ID: "rate-1", ChargeableID: "aircraft-1", RatePerHour: 150.00, ChargeHobbs: true},
		InstructorID:   "instructor-1",
		InstructorName: "A. Instructor",
		InstructorRate: &ChargeRateConfig{ID: "rate-2", ChargeableID: "instructor-1", RatePerHour: 80.00, ChargeHobbs: true},
		Kind:           KindDual,
		Readings:       readings,
		TaxRate:        0.15,
	}
}

func TestBuildInvoiceLinesDualLesson(t *testing.T) {
	items := BuildInvoiceLines(dualLessonInput())
	if len(items) != 2 {
		t.Fatalf("expected aircraft and instructor lines, got %d", len(items))
	}

	aircraft := items[0]
	if aircraft.ChargeableID != "aircraft-1" {
		t.Fatalf("expected aircraft chargeable, got %s", aircraft.ChargeableID)
	}
	if aircraft.Description != "Aircraft hire - ZK-ABC" {
		t.Fatalf("unexpected description %q", aircraft.Description)
	}
	if aircraft.Quantity != 2.3 || aircraft.UnitPrice != 150.00 || aircraft.TaxRate != 0.15 {
		t.Fatalf("unexpected aircraft line %+v", aircraft)
	}
	if !strings.Contains(aircraft.Notes, "booking booking-1") || !strings.Contains(aircraft.Notes, "basis hobbs") {
		t.Fatalf("notes missing booking context: %q", aircraft.Notes)
	}
	if !strings.Contains(aircraft.Notes, "hobbs 8752.2-8754.5") {
		t.Fatalf("notes missing meter range: %q", aircraft.Notes)
	}

	instructor := items[1]
	if instructor.ChargeableID != "instructor-1" {
		t.Fatalf("expected instructor chargeable, got %s", instructor.ChargeableID)
	}
	if instructor.Description != "Instructor - A. Instructor" {
		t.Fatalf("unexpected description %q", instructor.Description)
	}
	if instructor.Quantity != 2.3 || instructor.UnitPrice != 80.00 {
		t.Fatalf("unexpected instructor line %+v", instructor)
	}
}

func TestBuildInvoiceLinesGuards(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*LineBuilderInput)
	}{
		{"empty booking", func(in *LineBuilderInput) { in.BookingID = "" }},
		{"nil aircraft rate", func(in *LineBuilderInput) { in.AircraftRate = nil }},
		{"unbillable basis", func(in *LineBuilderInput) { in.Basis = BasisAirswitch }},
		{"none basis", func(in *LineBuilderInput) { in.Basis = BasisNone }},
		{"zero hours", func(in *LineBuilderInput) { in.BillingHours = 0 }},
		{"negative hours", func(in *LineBuilderInput) { in.BillingHours = -1 }},
		{"zero rate", func(in *LineBuilderInput) { in.AircraftRate.RatePerHour = 0 }},
		{"negative rate", func(in *LineBuilderInput) { in.AircraftRate.RatePerHour = -10 }},
		{"nan rate", func(in *LineBuilderInput) { in.AircraftRate.RatePerHour = math.NaN() }},
		{"infinite rate", func(in *LineBuilderInput) { in.AircraftRate.RatePerHour = math.Inf(1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := dualLessonInput()
			tc.mutate(&in)
			if items := BuildInvoiceLines(in); items != nil {
				t.Fatalf("expected no lines, got %d", len(items))
			}
		})
	}
}

func TestBuildInvoiceLinesSoloFlightOmitsInstructor(t *testing.T) {
	in := dualLessonInput()
	in.Kind = KindSolo
	in.Split = SplitFlightTime(BasisHobbs, KindSolo, in.Readings.Hobbs, false)
	in.BillingHours = in.Split.Total

	items := BuildInvoiceLines(in)
	if len(items) != 1 {
		t.Fatalf("expected aircraft line only, got %d", len(items))
	}
	if items[0].ChargeableID != "aircraft-1" {
		t.Fatalf("expected aircraft line, got %s", items[0].ChargeableID)
	}
}

func TestBuildInvoiceLinesNoInstructorAssigned(t *testing.T) {
	in := dualLessonInput()
	in.InstructorID = ""
	in.InstructorRate = nil

	items := BuildInvoiceLines(in)
	if len(items) != 1 {
		t.Fatalf("expected aircraft line only, got %d", len(items))
	}
}

func TestBuildInvoiceLinesBadInstructorRateOmitsLine(t *testing.T) {
	in := dualLessonInput()
	in.InstructorRate.RatePerHour = 0

	items := BuildInvoiceLines(in)
	if len(items) != 1 {
		t.Fatalf("bad instructor rate must drop only the instructor line, got %d lines", len(items))
	}
}

func TestBuildInvoiceLinesBasisConflictExcludesInstructor(t *testing.T) {
	in := dualLessonInput()
	in.InstructorRate = &ChargeRateConfig{ID: "rate-2", ChargeableID: "instructor-1", RatePerHour: 80.00, ChargeTacho: true}
	in.HasSoloAtEnd = true
	in.Readings.Hobbs.SoloEnd = fp(8755.0)
	in.Split = SplitFlightTime(BasisHobbs, KindDual, in.Readings.Hobbs, true)
	in.BillingHours = in.Split.Total

	items := BuildInvoiceLines(in)
	if len(items) != 1 {
		t.Fatalf("meter conflict must exclude the instructor line, got %d lines", len(items))
	}
	if items[0].ChargeableID != "aircraft-1" {
		t.Fatalf("expected aircraft line, got %s", items[0].ChargeableID)
	}
}

func TestBuildInvoiceLinesInstructorBillsDualOnly(t *testing.T) {
	in := dualLessonInput()
	in.HasSoloAtEnd = true
	in.Readings.Hobbs.SoloEnd = fp(8755.0)
	in.Split = SplitFlightTime(BasisHobbs, KindDual, in.Readings.Hobbs, true)
	in.BillingHours = in.Split.Total

	items := BuildInvoiceLines(in)
	if len(items) != 2 {
		t.Fatalf("expected two lines, got %d", len(items))
	}
	if items[0].Quantity != 2.8 {
		t.Fatalf("aircraft bills total hours, got %v", items[0].Quantity)
	}
	if items[1].Quantity != 2.3 {
		t.Fatalf("instructor bills dual hours only, got %v", items[1].Quantity)
	}
}

func TestBuildInvoiceLinesFallsBackToIDs(t *testing.T) {
	in := dualLessonInput()
	in.AircraftName = ""
	in.InstructorName = ""

	items := BuildInvoiceLines(in)
	if items[0].Description != "Aircraft hire - aircraft-1" {
		t.Fatalf("unexpected description %q", items[0].Description)
	}
	if items[1].Description != "Instructor - instructor-1" {
		t.Fatalf("unexpected description %q", items[1].Description)
	}
}
