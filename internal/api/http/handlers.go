package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flightline-cloud/internal/auth"
)

const timeLayout = time.RFC3339

// InvoicesHandler serves invoice queries. Detail requests include the
// invoice's line items; list requests return headers only.
type InvoicesHandler struct {
	db    *sql.DB
	orgID string
}

// NewInvoicesHandler constructs an InvoicesHandler.
func NewInvoicesHandler(db *sql.DB, orgID string) *InvoicesHandler {
	return &InvoicesHandler{db: db, orgID: orgID}
}

// ServeHTTP handles GET /api/v1/invoices and GET /api/v1/invoices/{id}.
func (h *InvoicesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())
	if orgID == "" {
		orgID = h.orgID
	}

	if rest := strings.TrimPrefix(r.URL.Path, "/api/v1/invoices/"); rest != "" && rest != r.URL.Path {
		h.serveDetail(w, r, orgID, rest)
		return
	}
	h.serveList(w, r, orgID)
}

func (h *InvoicesHandler) serveList(w http.ResponseWriter, r *http.Request, orgID string) {
	filter := invoiceFilter{
		OrgID:     orgID,
		BookingID: r.URL.Query().Get("booking_id"),
		Status:    r.URL.Query().Get("status"),
	}
	if value := r.URL.Query().Get("from"); value != "" {
		from, err := parseTimeQuery(r, "from")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.From = &from
	}
	if value := r.URL.Query().Get("to"); value != "" {
		to, err := parseTimeQuery(r, "to")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.To.After(*filter.From) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	rows, err := queryInvoices(r.Context(), h.db, filter)
	if err != nil {
		http.Error(w, "query invoices error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

func (h *InvoicesHandler) serveDetail(w http.ResponseWriter, r *http.Request, orgID, invoiceID string) {
	invoice, err := queryInvoice(r.Context(), h.db, orgID, invoiceID)
	if err != nil {
		http.Error(w, "query invoice error", http.StatusInternalServerError)
		return
	}
	if invoice == nil {
		http.Error(w, "invoice not found", http.StatusNotFound)
		return
	}
	items, err := queryInvoiceItems(r.Context(), h.db, invoiceID)
	if err != nil {
		http.Error(w, "query invoice items error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		invoiceRow
		Items []invoiceItemRow `json:"items"`
	}{invoiceRow: *invoice, Items: items})
}

// ExportInvoicesCSVHandler serves invoice CSV exports.
type ExportInvoicesCSVHandler struct {
	db    *sql.DB
	orgID string
}

// NewExportInvoicesCSVHandler constructs a ExportInvoicesCSVHandler.
func NewExportInvoicesCSVHandler(db *sql.DB, orgID string) *ExportInvoicesCSVHandler {
	return &ExportInvoicesCSVHandler{db: db, orgID: orgID}
}

// ServeHTTP handles GET /api/v1/exports/invoices.csv.
func (h *ExportInvoicesCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	orgID := auth.OrgIDFromContext(r.Context())
	if orgID == "" {
		orgID = h.orgID
	}

	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}

	rows, err := queryInvoices(r.Context(), h.db, invoiceFilter{OrgID: orgID, From: &from, To: &to})
	if err != nil {
		http.Error(w, "query invoices error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"id",
		"booking_id",
		"reference",
		"status",
		"billing_basis",
		"billing_hours",
		"subtotal",
		"tax_total",
		"total",
		"currency",
		"issued_at",
		"due_date",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ID,
			row.BookingID,
			row.Reference,
			row.Status,
			row.BillingBasis,
			formatFloat(row.BillingHours),
			formatFloat(row.Subtotal),
			formatFloat(row.TaxTotal),
			formatFloat(row.Total),
			row.Currency,
			formatTime(row.IssuedAt),
			formatTime(row.DueDate),
		})
	}
	writer.Flush()
}

type invoiceFilter struct {
	OrgID     string
	BookingID string
	Status    string
	From      *time.Time
	To        *time.Time
}

type invoiceRow struct {
	ID           string    `json:"id"`
	OrgID        string    `json:"org_id"`
	BookingID    string    `json:"booking_id"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	BillingBasis string    `json:"billing_basis"`
	BillingHours float64   `json:"billing_hours"`
	DualTime     *float64  `json:"dual_time"`
	SoloTime     *float64  `json:"solo_time"`
	TaxRate      float64   `json:"tax_rate"`
	Subtotal     float64   `json:"subtotal"`
	TaxTotal     float64   `json:"tax_total"`
	Total        float64   `json:"total"`
	Currency     string    `json:"currency"`
	IssuedAt     time.Time `json:"issued_at"`
	DueDate      time.Time `json:"due_date"`
	CreatedAt    time.Time `json:"created_at"`
}

type invoiceItemRow struct {
	Position     int     `json:"position"`
	ChargeableID string  `json:"chargeable_id"`
	Description  string  `json:"description"`
	Quantity     float64 `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	TaxRate      float64 `json:"tax_rate"`
	Amount       float64 `json:"amount"`
	TaxAmount    float64 `json:"tax_amount"`
	LineTotal    float64 `json:"line_total"`
	Notes        string  `json:"notes"`
}

func queryInvoices(ctx context.Context, db *sql.DB, filter invoiceFilter) ([]invoiceRow, error) {
	query := `
SELECT
	id,
	org_id,
	booking_id,
	reference,
	status,
	billing_basis,
	billing_hours,
	dual_time,
	solo_time,
	tax_rate,
	subtotal,
	tax_total,
	total,
	currency,
	issued_at,
	due_date,
	created_at
FROM invoices
WHERE org_id = $1`
	args := []any{filter.OrgID}
	if filter.BookingID != "" {
		args = append(args, filter.BookingID)
		query += " AND booking_id = $" + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, filter.From.UTC())
		query += " AND issued_at >= $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, filter.To.UTC())
		query += " AND issued_at < $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY issued_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoiceRow
	for rows.Next() {
		row, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryInvoice(ctx context.Context, db *sql.DB, orgID, invoiceID string) (*invoiceRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	id,
	org_id,
	booking_id,
	reference,
	status,
	billing_basis,
	billing_hours,
	dual_time,
	solo_time,
	tax_rate,
	subtotal,
	tax_total,
	total,
	currency,
	issued_at,
	due_date,
	created_at
FROM invoices
WHERE org_id = $1 AND id = $2`, orgID, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	row, err := scanInvoice(rows)
	if err != nil {
		return nil, err
	}
	return &row, rows.Err()
}

func scanInvoice(rows *sql.Rows) (invoiceRow, error) {
	var row invoiceRow
	var dual, solo sql.NullFloat64
	if err := rows.Scan(
		&row.ID,
		&row.OrgID,
		&row.BookingID,
		&row.Reference,
		&row.Status,
		&row.BillingBasis,
		&row.BillingHours,
		&dual,
		&solo,
		&row.TaxRate,
		&row.Subtotal,
		&row.TaxTotal,
		&row.Total,
		&row.Currency,
		&row.IssuedAt,
		&row.DueDate,
		&row.CreatedAt,
	); err != nil {
		return row, err
	}
	if dual.Valid {
		v := dual.Float64
		row.DualTime = &v
	}
	if solo.Valid {
		v := solo.Float64
		row.SoloTime = &v
	}
	row.IssuedAt = row.IssuedAt.UTC()
	row.DueDate = row.DueDate.UTC()
	row.CreatedAt = row.CreatedAt.UTC()
	return row, nil
}

func queryInvoiceItems(ctx context.Context, db *sql.DB, invoiceID string) ([]invoiceItemRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	position,
	chargeable_id,
	description,
	quantity,
	unit_price,
	tax_rate,
	amount,
	tax_amount,
	line_total,
	notes
FROM invoice_items
WHERE invoice_id = $1
ORDER BY position ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoiceItemRow
	for rows.Next() {
		var row invoiceItemRow
		if err := rows.Scan(
			&row.Position,
			&row.ChargeableID,
			&row.Description,
			&row.Quantity,
			&row.UnitPrice,
			&row.TaxRate,
			&row.Amount,
			&row.TaxAmount,
			&row.LineTotal,
			&row.Notes,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(timeLayout)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
