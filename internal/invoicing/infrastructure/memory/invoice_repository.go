package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	checkin "flightline-cloud/internal/checkin/domain"
	invoicing "flightline-cloud/internal/invoicing/domain"
)

// InvoiceRepository is an in-memory invoice creator for tests and local
// runs. It enforces the same one-invoice-per-booking rule as the Postgres
// implementation.
type InvoiceRepository struct {
	mu       sync.RWMutex
	byID     map[string]*invoicing.Invoice
	booked   map[string]string
	items    map[string][]invoicing.InvoiceItem
	orgID    string
	currency string
	seq      int
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(orgID, currency string) *InvoiceRepository {
	if currency == "" {
		currency = "NZD"
	}
	return &InvoiceRepository{
		byID:     make(map[string]*invoicing.Invoice),
		booked:   make(map[string]string),
		items:    make(map[string][]invoicing.InvoiceItem),
		orgID:    orgID,
		currency: currency,
	}
}

// CreateInvoice materializes and stores an invoice.
func (r *InvoiceRepository) CreateInvoice(ctx context.Context, payload checkin.InvoicePayload) (*invoicing.Invoice, error) {
	_ = ctx
	if payload.BookingID == "" {
		return nil, invoicing.ErrEmptyBookingID
	}
	if len(payload.Items) == 0 {
		return nil, invoicing.ErrNoItems
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.booked[payload.BookingID]; exists {
		return nil, invoicing.ErrBookingAlreadyInvoiced
	}

	r.seq++
	id := fmt.Sprintf("inv-%06d", r.seq)
	invoice, items := invoicing.BuildInvoice(payload, id, r.orgID, r.currency, time.Now().UTC())
	r.byID[id] = invoice
	r.booked[payload.BookingID] = id
	r.items[id] = items
	return clone(invoice), nil
}

// Get returns a stored invoice with its items for assertion convenience.
func (r *InvoiceRepository) Get(id string) (*invoicing.Invoice, []invoicing.InvoiceItem) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	invoice := r.byID[id]
	if invoice == nil {
		return nil, nil
	}
	return clone(invoice), append([]invoicing.InvoiceItem(nil), r.items[id]...)
}

func clone(invoice *invoicing.Invoice) *invoicing.Invoice {
	copied := *invoice
	return &copied
}
