package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"flightline-cloud/internal/audit"
	"flightline-cloud/internal/auth"
	"flightline-cloud/internal/checkin/application"
	checkin "flightline-cloud/internal/checkin/domain"
	"flightline-cloud/internal/checkin/interfaces"
	invoicing "flightline-cloud/internal/invoicing/domain"
	"flightline-cloud/internal/observability/metrics"
)

// CheckInHandler exposes the flight check-in billing commands under
// /api/v1/checkins. It owns the live sessions, one per booking, which
// enforces the single-writer-per-booking rule at the HTTP boundary.
type CheckInHandler struct {
	service        *application.CheckInService
	bookingChecker auth.BookingOrgChecker
	auditLogger    audit.Logger
	heading        string
	currency       string

	mu       sync.Mutex
	sessions map[string]*application.CheckIn
}

// NewCheckInHandler constructs a handler.
func NewCheckInHandler(service *application.CheckInService, bookingChecker auth.BookingOrgChecker, auditLogger audit.Logger, heading, currency string) (*CheckInHandler, error) {
	if service == nil {
		return nil, errors.New("checkin handler: nil service")
	}
	return &CheckInHandler{
		service:        service,
		bookingChecker: bookingChecker,
		auditLogger:    auditLogger,
		heading:        heading,
		currency:       currency,
		sessions:       make(map[string]*application.CheckIn),
	}, nil
}

// ServeHTTP routes check-in requests under /api/v1/checkins.
func (h *CheckInHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/checkins/open" && r.Method == http.MethodPost {
		h.handleOpen(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/checkins/") {
		rest := strings.TrimPrefix(path, "/api/v1/checkins/")
		h.handleSession(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *CheckInHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}
	if err := h.ensureOrg(r, req.BookingID); err != nil {
		respondOrgError(w, err)
		return
	}

	h.mu.Lock()
	session, exists := h.sessions[req.BookingID]
	h.mu.Unlock()
	if !exists {
		opened, err := h.service.Open(r.Context(), req.BookingID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		h.mu.Lock()
		if racing, ok := h.sessions[req.BookingID]; ok {
			session = racing
		} else {
			h.sessions[req.BookingID] = opened
			session = opened
		}
		h.mu.Unlock()
	}

	h.logAudit(r, req.BookingID, "checkin.open", nil)
	respondJSON(w, stateResponse(session))
}

func (h *CheckInHandler) handleSession(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	bookingID := parts[0]
	if bookingID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err := h.ensureOrg(r, bookingID); err != nil {
		respondOrgError(w, err)
		return
	}

	h.mu.Lock()
	session := h.sessions[bookingID]
	h.mu.Unlock()
	if session == nil {
		http.Error(w, "no open check-in for booking", http.StatusNotFound)
		return
	}

	if len(parts) == 1 && r.Method == http.MethodGet {
		respondJSON(w, stateResponse(session))
		return
	}
	if len(parts) >= 2 {
		switch parts[1] {
		case "calculate":
			if r.Method == http.MethodPost {
				h.handleCalculate(w, r, session)
				return
			}
		case "inputs":
			if r.Method == http.MethodPost {
				h.handleInputs(w, r, session)
				return
			}
		case "lines":
			h.handleLines(w, r, session, parts[2:])
			return
		case "exclude":
			if r.Method == http.MethodPost {
				h.handleExclude(w, r, session)
				return
			}
		case "approve":
			if r.Method == http.MethodPost {
				h.handleApprove(w, r, session, bookingID)
				return
			}
		case "close":
			if r.Method == http.MethodPost {
				h.handleClose(w, r, session, bookingID)
				return
			}
		case "draft.pdf":
			if r.Method == http.MethodGet {
				h.handleExport(w, r, session, "pdf")
				return
			}
		case "draft.xlsx":
			if r.Method == http.MethodGet {
				h.handleExport(w, r, session, "xlsx")
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *CheckInHandler) handleCalculate(w http.ResponseWriter, r *http.Request, session *application.CheckIn) {
	draft := session.Calculate()
	h.logAudit(r, session.Booking().ID, "checkin.calculate", draft)
	respondJSON(w, stateResponse(session))
}

type inputsRequest struct {
	AircraftID      *string          `json:"aircraft_id"`
	InstructorID    *string          `json:"instructor_id"`
	FlightTypeID    *string          `json:"flight_type_id"`
	InstructionKind *string          `json:"instruction_kind"`
	HasSoloAtEnd    *bool            `json:"has_solo_at_end"`
	Readings        *readingsRequest `json:"readings"`
}

type readingsRequest struct {
	Hobbs meterRequest `json:"hobbs"`
	Tacho meterRequest `json:"tacho"`
}

type meterRequest struct {
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	SoloEnd *float64 `json:"solo_end"`
}

func (h *CheckInHandler) handleInputs(w http.ResponseWriter, r *http.Request, session *application.CheckIn) {
	var req inputsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.AircraftID != nil {
		if err := session.SelectAircraft(r.Context(), *req.AircraftID); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	if req.InstructorID != nil {
		if err := session.SelectInstructor(r.Context(), *req.InstructorID); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	if req.FlightTypeID != nil {
		if err := session.SelectFlightType(r.Context(), *req.FlightTypeID); err != nil {
			respondServiceError(w, err)
			return
		}
	}
	if req.InstructionKind != nil {
		session.SetInstructionKind(*req.InstructionKind)
	}
	if req.HasSoloAtEnd != nil {
		session.SetSoloAtEnd(*req.HasSoloAtEnd)
	}
	if req.Readings != nil {
		session.SetReadings(checkin.MeterReadings{
			Hobbs: checkin.MeterReading{Start: req.Readings.Hobbs.Start, End: req.Readings.Hobbs.End, SoloEnd: req.Readings.Hobbs.SoloEnd},
			Tacho: checkin.MeterReading{Start: req.Readings.Tacho.Start, End: req.Readings.Tacho.End, SoloEnd: req.Readings.Tacho.SoloEnd},
		})
	}
	respondJSON(w, stateResponse(session))
}

type linePatchRequest struct {
	Description    *string  `json:"description"`
	Quantity       *float64 `json:"quantity"`
	UnitPrice      *float64 `json:"unit_price"`
	PriceInclusive *float64 `json:"price_inclusive"`
	TaxRate        *float64 `json:"tax_rate"`
	Notes          *string  `json:"notes"`
}

func (h *CheckInHandler) handleLines(w http.ResponseWriter, r *http.Request, session *application.CheckIn, rest []string) {
	if len(rest) == 0 || rest[0] == "" {
		if r.Method == http.MethodPost {
			index := session.AddManualItem()
			h.logAudit(r, session.Booking().ID, "checkin.line.add", map[string]any{"index": index})
			respondJSON(w, map[string]any{"index": index, "state": stateResponse(session)})
			return
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}

	index, err := strconv.Atoi(rest[0])
	if err != nil || index < 0 {
		http.Error(w, "invalid line index", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		draft := session.Draft()
		if draft == nil {
			http.Error(w, "no draft to edit", http.StatusConflict)
			return
		}
		if index >= len(draft.Items) {
			http.Error(w, "line index out of range", http.StatusBadRequest)
			return
		}
		var req linePatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		session.EditLine(index, checkin.LinePatch{
			Description:    req.Description,
			Quantity:       req.Quantity,
			UnitPrice:      req.UnitPrice,
			PriceInclusive: req.PriceInclusive,
			TaxRate:        req.TaxRate,
			Notes:          req.Notes,
		})
		h.logAudit(r, session.Booking().ID, "checkin.line.edit", map[string]any{"index": index})
		respondJSON(w, stateResponse(session))
	case http.MethodDelete:
		if index >= len(session.Session().ManualItems) {
			http.Error(w, "manual line index out of range", http.StatusBadRequest)
			return
		}
		session.RemoveManualItem(index)
		h.logAudit(r, session.Booking().ID, "checkin.line.remove", map[string]any{"index": index})
		respondJSON(w, stateResponse(session))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *CheckInHandler) handleExclude(w http.ResponseWriter, r *http.Request, session *application.CheckIn) {
	var req struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Description == "" {
		http.Error(w, "description required", http.StatusBadRequest)
		return
	}
	session.ExcludeItem(req.Description)
	h.logAudit(r, session.Booking().ID, "checkin.line.exclude", map[string]any{"description": req.Description})
	respondJSON(w, stateResponse(session))
}

func (h *CheckInHandler) handleApprove(w http.ResponseWriter, r *http.Request, session *application.CheckIn, bookingID string) {
	invoice, err := session.Approve(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.mu.Lock()
	delete(h.sessions, bookingID)
	h.mu.Unlock()

	h.logAudit(r, bookingID, "checkin.approve", map[string]any{
		"invoice_id": invoice.ID,
		"total":      invoice.Total,
	})
	respondJSON(w, map[string]any{
		"invoice_id": invoice.ID,
		"reference":  invoice.Reference,
		"total":      invoice.Total,
		"due_date":   invoice.DueDate,
	})
}

func (h *CheckInHandler) handleClose(w http.ResponseWriter, r *http.Request, session *application.CheckIn, bookingID string) {
	session.Close()
	h.mu.Lock()
	delete(h.sessions, bookingID)
	h.mu.Unlock()
	h.logAudit(r, bookingID, "checkin.close", nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckInHandler) handleExport(w http.ResponseWriter, r *http.Request, session *application.CheckIn, format string) {
	start := time.Now()
	draft := session.Draft()
	if draft == nil {
		metrics.ObserveDraftExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, "no draft calculated", http.StatusConflict)
		return
	}

	booking := session.Booking()
	header := interfaces.DraftHeader{
		Heading:    h.heading,
		BookingID:  booking.ID,
		Aircraft:   booking.AircraftRegistration,
		Instructor: booking.InstructorName,
		FlightType: booking.FlightTypeName,
		Currency:   h.currency,
	}

	var data []byte
	var err error
	var contentType string
	switch format {
	case "pdf":
		data, err = interfaces.BuildDraftPDF(header, draft)
		contentType = "application/pdf"
	case "xlsx":
		data, err = interfaces.BuildDraftXLSX(header, draft)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
		return
	}
	if err != nil {
		metrics.ObserveDraftExport(format, metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}
	metrics.ObserveDraftExport(format, metrics.ResultSuccess, time.Since(start))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=draft-"+booking.ID+"."+format)
	_, _ = w.Write(data)
}

func (h *CheckInHandler) ensureOrg(r *http.Request, bookingID string) error {
	orgID := auth.OrgIDFromContext(r.Context())
	if orgID == "" || h.bookingChecker == nil {
		return nil
	}
	return h.bookingChecker.EnsureBookingOrg(r.Context(), orgID, bookingID)
}

func (h *CheckInHandler) logAudit(r *http.Request, bookingID, action string, metadata any) {
	if h.auditLogger == nil {
		return
	}
	var raw json.RawMessage
	if metadata != nil {
		if data, err := json.Marshal(metadata); err == nil {
			raw = data
		}
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		OrgID:        auth.OrgIDFromContext(r.Context()),
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: "checkin",
		ResourceID:   bookingID,
		BookingID:    bookingID,
		Metadata:     raw,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	})
}

type splitDTO struct {
	Total float64 `json:"total"`
	Dual  float64 `json:"dual"`
	Solo  float64 `json:"solo"`
	Error string  `json:"error,omitempty"`
}

type stateDTO struct {
	BookingID    string                    `json:"booking_id"`
	Status       string                    `json:"status"`
	Basis        checkin.Basis             `json:"basis"`
	BillingHours float64                   `json:"billing_hours"`
	Split        splitDTO                  `json:"split"`
	Stale        bool                      `json:"stale"`
	Editing      int                       `json:"editing"`
	Draft        *checkin.DraftCalculation `json:"draft"`
}

func stateResponse(session *application.CheckIn) stateDTO {
	booking := session.Booking()
	split := session.Split()
	return stateDTO{
		BookingID:    booking.ID,
		Status:       booking.Status,
		Basis:        session.Basis(),
		BillingHours: session.BillingHours(),
		Split:        splitDTO{Total: split.Total, Dual: split.Dual, Solo: split.Solo, Error: split.Err},
		Stale:        session.Stale(),
		Editing:      session.Session().Editing,
		Draft:        session.Draft(),
	}
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondOrgError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrOrgMismatch):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, auth.ErrNotFound):
		http.Error(w, "booking not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrBookingNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, invoicing.ErrBookingAlreadyInvoiced),
		errors.Is(err, checkin.ErrAlreadyApproved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, checkin.ErrNoBooking),
		errors.Is(err, checkin.ErrMissingSelection),
		errors.Is(err, checkin.ErrUnsupportedBasis),
		errors.Is(err, checkin.ErrNoBillableHours),
		errors.Is(err, checkin.ErrInvalidSplit),
		errors.Is(err, checkin.ErrBasisConflict),
		errors.Is(err, checkin.ErrNoDraft),
		errors.Is(err, checkin.ErrStaleDraft),
		errors.Is(err, checkin.ErrEmptyDraft),
		errors.Is(err, checkin.ErrInvalidLine),
		errors.Is(err, checkin.ErrInvalidTotal):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
