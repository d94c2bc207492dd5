package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	checkin "flightline-cloud/internal/checkin/domain"
	invoicing "flightline-cloud/internal/invoicing/domain"
	masterdata "flightline-cloud/internal/masterdata/domain"
)

const (
	defaultInvoicesTable     = "invoices"
	defaultInvoiceItemsTable = "invoice_items"
	defaultBookingsTable     = "bookings"
)

// InvoiceRepository creates invoices from approved check-in submissions.
type InvoiceRepository struct {
	db       *sql.DB
	orgID    string
	currency string
	invoices string
	items    string
	bookings string
}

// InvoiceOption configures the repository.
type InvoiceOption func(*InvoiceRepository)

// WithOrgID sets the organization scope.
func WithOrgID(orgID string) InvoiceOption {
	return func(repo *InvoiceRepository) {
		if orgID != "" {
			repo.orgID = orgID
		}
	}
}

// WithCurrency sets the invoice currency.
func WithCurrency(currency string) InvoiceOption {
	return func(repo *InvoiceRepository) {
		if currency != "" {
			repo.currency = currency
		}
	}
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB, opts ...InvoiceOption) *InvoiceRepository {
	repo := &InvoiceRepository{
		db:       db,
		currency: "NZD",
		invoices: defaultInvoicesTable,
		items:    defaultInvoiceItemsTable,
		bookings: defaultBookingsTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// CreateInvoice persists the invoice and its items and flips the booking to
// approved in one transaction. The booking status guard enforces a single
// writer per booking: losing a race here surfaces as already-invoiced and
// no invoice rows are written.
func (r *InvoiceRepository) CreateInvoice(ctx context.Context, payload checkin.InvoicePayload) (*invoicing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	if payload.BookingID == "" {
		return nil, invoicing.ErrEmptyBookingID
	}
	if len(payload.Items) == 0 {
		return nil, invoicing.ErrNoItems
	}

	now := time.Now().UTC()
	invoice, items := invoicing.BuildInvoice(payload, "inv-"+uuid.NewString(), r.orgID, r.currency, now)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	guard := fmt.Sprintf(`
UPDATE %s
SET status = $2, updated_at = $3
WHERE id = $1 AND status <> $2`, r.bookings)
	result, err := tx.ExecContext(ctx, guard, payload.BookingID, masterdata.BookingStatusApproved, now)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, invoicing.ErrBookingAlreadyInvoiced
	}

	insertInvoice := fmt.Sprintf(`
INSERT INTO %s (
	id, org_id, booking_id, reference, status, billing_basis, billing_hours,
	dual_time, solo_time, tax_rate, subtotal, tax_total, total, currency,
	issued_at, due_date, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)`, r.invoices)
	if _, err := tx.ExecContext(ctx, insertInvoice,
		invoice.ID, invoice.OrgID, invoice.BookingID, invoice.Reference, invoice.Status,
		invoice.BillingBasis, invoice.BillingHours, invoice.DualTime, invoice.SoloTime,
		invoice.TaxRate, invoice.Subtotal, invoice.TaxTotal, invoice.Total, invoice.Currency,
		invoice.IssuedAt, invoice.DueDate, invoice.CreatedAt,
	); err != nil {
		return nil, err
	}

	insertItem := fmt.Sprintf(`
INSERT INTO %s (
	invoice_id, position, chargeable_id, description, quantity, unit_price,
	tax_rate, amount, tax_amount, line_total, notes
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, r.items)
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, insertItem,
			item.InvoiceID, item.Position, item.ChargeableID, item.Description,
			item.Quantity, item.UnitPrice, item.TaxRate, item.Amount, item.TaxAmount,
			item.LineTotal, item.Notes,
		); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return invoice, nil
}
