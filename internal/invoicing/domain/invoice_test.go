package invoicing

import (
	"testing"
	"time"

	checkin "flightline-cloud/internal/checkin/domain"
)

func TestBuildInvoice(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 7)
	payload := checkin.InvoicePayload{
		BookingID:    "booking-1",
		AircraftID:   "aircraft-1",
		FlightTypeID: "ft-1",
		BillingBasis: checkin.BasisHobbs,
		BillingHours: 2.3,
		TaxRate:      0.15,
		DueDate:      due,
		Reference:    "Flight check-in for booking booking-1",
		Items: []checkin.InvoiceLineItem{
			{ChargeableID: "aircraft-1", Description: "Aircraft hire - ZK-ABC", Quantity: 2.3, UnitPrice: 150.00, TaxRate: 0.15},
			{ChargeableID: "instructor-1", Description: "Instructor - A. Instructor", Quantity: 2.3, UnitPrice: 80.00, TaxRate: 0.15},
		},
	}

	invoice, items := BuildInvoice(payload, "inv-1", "org-1", "NZD", now)
	if invoice.ID != "inv-1" || invoice.OrgID != "org-1" || invoice.BookingID != "booking-1" {
		t.Fatalf("unexpected invoice identity %+v", invoice)
	}
	if invoice.Status != InvoiceStatusIssued {
		t.Fatalf("expected issued, got %q", invoice.Status)
	}
	if invoice.Subtotal != 529.00 || invoice.TaxTotal != 79.35 || invoice.Total != 608.35 {
		t.Fatalf("unexpected totals %+v", invoice)
	}
	if !invoice.DueDate.Equal(due) || !invoice.IssuedAt.Equal(now) {
		t.Fatalf("unexpected dates %+v", invoice)
	}

	if len(items) != 2 {
		t.Fatalf("expected two items, got %d", len(items))
	}
	first := items[0]
	if first.InvoiceID != "inv-1" || first.Position != 0 {
		t.Fatalf("unexpected item keys %+v", first)
	}
	if first.Amount != 345.00 || first.TaxAmount != 51.75 || first.LineTotal != 396.75 {
		t.Fatalf("unexpected item figures %+v", first)
	}
}
