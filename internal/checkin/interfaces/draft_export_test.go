package interfaces

import (
	"bytes"
	"testing"
	"time"

	checkin "flightline-cloud/internal/checkin/domain"
)

func fp(v float64) *float64 { return &v }

func testDraft(t *testing.T) *checkin.DraftCalculation {
	t.Helper()
	readings := checkin.MeterReadings{
		Hobbs: checkin.MeterReading{Start: fp(8752.2), End: fp(8754.5)},
	}
	split := checkin.SplitFlightTime(checkin.BasisHobbs, checkin.KindDual, readings.Hobbs, false)
	session := checkin.NewSession()
	draft := session.Recompute(checkin.LineBuilderInput{
		BookingID:    "booking-1",
		AircraftID:   "aircraft-1",
		AircraftName: "ZK-ABC",
		Basis:        checkin.BasisHobbs,
		Split:        split,
		BillingHours: split.Total,
		AircraftRate: &checkin.ChargeRateConfig{ID: "rate-1", RatePerHour: 150.00, ChargeHobbs: true},
		Kind:         checkin.KindDual,
		Readings:     readings,
		TaxRate:      0.15,
	}, "sig-1", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	if draft == nil {
		t.Fatalf("expected a draft")
	}
	return draft
}

func testHeader() DraftHeader {
	return DraftHeader{
		Heading:    "Flight Check-In Draft",
		BookingID:  "booking-1",
		Aircraft:   "ZK-ABC",
		Instructor: "A. Instructor",
		FlightType: "Dual training",
		Currency:   "NZD",
	}
}

func TestBuildDraftPDF(t *testing.T) {
	data, err := BuildDraftPDF(testHeader(), testDraft(t))
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("empty pdf output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("output is not a pdf")
	}
}

func TestBuildDraftPDFNilDraft(t *testing.T) {
	if _, err := BuildDraftPDF(testHeader(), nil); err == nil {
		t.Fatalf("expected error for nil draft")
	}
}

func TestBuildDraftXLSX(t *testing.T) {
	data, err := BuildDraftXLSX(testHeader(), testDraft(t))
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("empty xlsx output")
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("output is not a zip container")
	}
}

func TestBuildDraftXLSXNilDraft(t *testing.T) {
	if _, err := BuildDraftXLSX(testHeader(), nil); err == nil {
		t.Fatalf("expected error for nil draft")
	}
}
