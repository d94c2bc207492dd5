package invoicing

import (
	"math"
	"time"

	checkin "flightline-cloud/internal/checkin/domain"
)

// Invoice statuses.
const (
	InvoiceStatusIssued = "issued"
	InvoiceStatusPaid   = "paid"
	InvoiceStatusVoided = "voided"
)

// Invoice is a finalized flight invoice created from an approved check-in.
type Invoice struct {
	ID           string
	OrgID        string
	BookingID    string
	Reference    string
	Status       string
	BillingBasis string
	BillingHours float64
	DualTime     *float64
	SoloTime     *float64
	TaxRate      float64
	Subtotal     float64
	TaxTotal     float64
	Total        float64
	Currency     string
	IssuedAt     time.Time
	DueDate      time.Time
	CreatedAt    time.Time
}

// InvoiceItem is one line of an invoice. Amounts are derived from the
// submitted quantity and tax-exclusive unit price at creation time and
// never recomputed afterwards.
type InvoiceItem struct {
	InvoiceID    string
	Position     int
	ChargeableID string
	Description  string
	Quantity     float64
	UnitPrice    float64
	TaxRate      float64
	Amount       float64
	TaxAmount    float64
	LineTotal    float64
	Notes        string
}

// BuildInvoice materializes an invoice and its items from an approved
// check-in submission. Money figures are rounded to two decimals at the
// aggregate level, matching the draft the caller approved.
func BuildInvoice(payload checkin.InvoicePayload, id, orgID, currency string, now time.Time) (*Invoice, []InvoiceItem) {
	items := make([]InvoiceItem, len(payload.Items))
	var subtotal, taxTotal, total float64
	for i, item := range payload.Items {
		amount := item.Quantity * item.UnitPrice
		tax := amount * item.TaxRate
		items[i] = InvoiceItem{
			InvoiceID:    id,
			Position:     i,
			ChargeableID: item.ChargeableID,
			Description:  item.Description,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TaxRate:      item.TaxRate,
			Amount:       round2(amount),
			TaxAmount:    round2(tax),
			LineTotal:    round2(amount + tax),
			Notes:        item.Notes,
		}
		subtotal += amount
		taxTotal += tax
		total += amount + tax
	}

	invoice := &Invoice{
		ID:           id,
		OrgID:        orgID,
		BookingID:    payload.BookingID,
		Reference:    payload.Reference,
		Status:       InvoiceStatusIssued,
		BillingBasis: string(payload.BillingBasis),
		BillingHours: payload.BillingHours,
		DualTime:     payload.DualTime,
		SoloTime:     payload.SoloTime,
		TaxRate:      payload.TaxRate,
		Subtotal:     round2(subtotal),
		TaxTotal:     round2(taxTotal),
		Total:        round2(total),
		Currency:     currency,
		IssuedAt:     now,
		DueDate:      payload.DueDate,
		CreatedAt:    now,
	}
	return invoice, items
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
