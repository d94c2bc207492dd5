package checkin

import (
	"fmt"
	"time"
)

// Totals aggregates a draft's money columns, rounded to two decimals.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	TaxTotal    float64 `json:"tax_total"`
	TotalAmount float64 `json:"total_amount"`
}

// DraftCalculation is one computed draft invoice. A draft is produced only
// by an explicit calculate action, replaced wholesale on every recompute,
// and discarded when the booking is approved or the session closes.
type DraftCalculation struct {
	Signature      string            `json:"signature"`
	CalculatedAt   time.Time         `json:"calculated_at"`
	BillingBasis   Basis             `json:"billing_basis"`
	BillingHours   float64           `json:"billing_hours"`
	DualTime       float64           `json:"dual_time"`
	SoloTime       float64           `json:"solo_time"`
	GeneratedCount int               `json:"generated_count"`
	Items          []InvoiceLineItem `json:"items"`
	Lines          []CalculatedLine  `json:"lines"`
	Totals         Totals            `json:"totals"`
}

// Session holds the mutable state of one check-in: user-added manual items,
// descriptions excluded from the generated set, and the current draft slot.
// A session is scoped to a single booking and never shared across bookings.
type Session struct {
	ManualItems  []InvoiceLineItem
	ExcludedKeys map[string]struct{}
	Draft        *DraftCalculation

	// Editing is the draft line index currently open for editing, -1 when
	// none. AddManualItem points it at the freshly appended line.
	Editing int
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{
		ExcludedKeys: make(map[string]struct{}),
		Editing:      -1,
	}
}

// LinePatch is a partial update to one draft line. Nil fields are left
// untouched. PriceInclusive, when set, is converted to a tax-exclusive
// unit price before storage.
type LinePatch struct {
	Description    *string
	Quantity       *float64
	UnitPrice      *float64
	PriceInclusive *float64
	TaxRate        *float64
	Notes          *string
}

// Recompute regenerates the draft from the current inputs: generated lines
// minus exclusions, then manual items appended in order. It returns nil and
// clears the draft slot when the effective item list is empty.
func (s *Session) Recompute(in LineBuilderInput, signature string, now time.Time) *DraftCalculation {
	generated := BuildInvoiceLines(in)

	items := make([]InvoiceLineItem, 0, len(generated)+len(s.ManualItems))
	for _, item := range generated {
		if _, excluded := s.ExcludedKeys[item.Description]; excluded {
			continue
		}
		items = append(items, item)
	}
	generatedCount := len(items)
	items = append(items, s.ManualItems...)

	if len(items) == 0 {
		s.Draft = nil
		return nil
	}

	draft := &DraftCalculation{
		Signature:      signature,
		CalculatedAt:   now,
		BillingBasis:   in.Basis,
		BillingHours:   in.BillingHours,
		DualTime:       in.Split.Dual,
		SoloTime:       in.Split.Solo,
		GeneratedCount: generatedCount,
		Items:          items,
	}
	draft.refresh()
	s.Draft = draft
	return draft
}

// EditLine applies a patch to one draft line. Edits to a generated line
// live only in the current draft; the next regenerate discards them. Edits
// to a manual line also update the manual item set so they survive future
// recomputes. Calling EditLine without a draft or with an index outside the
// draft is a caller bug and panics.
func (s *Session) EditLine(index int, patch LinePatch) {
	if s.Draft == nil {
		panic("checkin: edit line without a draft")
	}
	if index < 0 || index >= len(s.Draft.Items) {
		panic(fmt.Sprintf("checkin: line index %d out of range [0,%d)", index, len(s.Draft.Items)))
	}

	item := s.Draft.Items[index]
	applyPatch(&item, patch)
	s.Draft.Items[index] = item

	if manual := index - s.Draft.GeneratedCount; manual >= 0 {
		s.ManualItems[manual] = item
	}
	s.Draft.refresh()
}

// AddManualItem appends a blank manual item, recomputes, and returns the
// new line's index in the draft. The index is marked as being edited.
func (s *Session) AddManualItem(in LineBuilderInput, signature string, now time.Time, orgTaxRate float64) int {
	s.ManualItems = append(s.ManualItems, InvoiceLineItem{
		Quantity:  1,
		UnitPrice: 0,
		TaxRate:   orgTaxRate,
	})
	draft := s.Recompute(in, signature, now)
	index := len(draft.Items) - 1
	s.Editing = index
	return index
}

// RemoveManualItem deletes one entry from the manual item set and
// recomputes. The index addresses the manual set, not the draft. An index
// outside the set is a caller bug and panics.
func (s *Session) RemoveManualItem(index int, in LineBuilderInput, signature string, now time.Time) {
	if index < 0 || index >= len(s.ManualItems) {
		panic(fmt.Sprintf("checkin: manual item index %d out of range [0,%d)", index, len(s.ManualItems)))
	}
	s.ManualItems = append(s.ManualItems[:index], s.ManualItems[index+1:]...)
	s.Editing = -1
	s.Recompute(in, signature, now)
}

// ExcludeGenerated drops a generated line by description and recomputes.
func (s *Session) ExcludeGenerated(description string, in LineBuilderInput, signature string, now time.Time) {
	s.ExcludedKeys[description] = struct{}{}
	s.Recompute(in, signature, now)
}

// refresh recomputes the derived lines and totals from the current items
// without touching the generator.
func (d *DraftCalculation) refresh() {
	lines := make([]CalculatedLine, len(d.Items))
	var subtotal, taxTotal, total float64
	for i, item := range d.Items {
		amount := item.Quantity * item.UnitPrice
		tax := amount * item.TaxRate
		lines[i] = CalculatedLine{
			InvoiceLineItem: item,
			Amount:          round2(amount),
			TaxAmount:       round2(tax),
			RateInclusive:   round2(item.UnitPrice * (1 + item.TaxRate)),
			LineTotal:       round2(amount + tax),
		}
		subtotal += amount
		taxTotal += tax
		total += amount + tax
	}
	d.Lines = lines
	d.Totals = Totals{
		Subtotal:    round2(subtotal),
		TaxTotal:    round2(taxTotal),
		TotalAmount: round2(total),
	}
}

func applyPatch(item *InvoiceLineItem, patch LinePatch) {
	if patch.TaxRate != nil {
		item.TaxRate = *patch.TaxRate
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Quantity != nil {
		item.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		item.UnitPrice = *patch.UnitPrice
	}
	if patch.PriceInclusive != nil {
		item.UnitPrice = round2(*patch.PriceInclusive / (1 + item.TaxRate))
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
}
