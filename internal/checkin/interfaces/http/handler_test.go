package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flightline-cloud/internal/checkin/application"
	checkin "flightline-cloud/internal/checkin/domain"
	"flightline-cloud/internal/invoicing/infrastructure/memory"
	masterdata "flightline-cloud/internal/masterdata/domain"
)

func fp(v float64) *float64 { return &v }

type stubBookingReader struct {
	booking *masterdata.Booking
}

func (s stubBookingReader) GetBooking(_ context.Context, _ string) (*masterdata.Booking, error) {
	return s.booking, nil
}

type stubRateReader struct {
	rates map[string]*checkin.ChargeRateConfig
}

func (s stubRateReader) GetChargeRate(_ context.Context, chargeableID, _ string) (*checkin.ChargeRateConfig, error) {
	return s.rates[chargeableID], nil
}

type stubTaxProvider struct{}

func (stubTaxProvider) OrgTaxRate(_ context.Context) (float64, error) { return 0.15, nil }

func testBooking() *masterdata.Booking {
	return &masterdata.Booking{
		ID:                   "booking-1",
		OrgID:                "org-1",
		AircraftID:           "aircraft-1",
		InstructorID:         "instructor-1",
		FlightTypeID:         "ft-1",
		AircraftRegistration: "ZK-ABC",
		InstructorName:       "A. Instructor",
		FlightTypeName:       "Dual training",
		InstructionKind:      "dual",
		Status:               masterdata.BookingStatusComplete,
		HobbsStart:           fp(8752.2),
		HobbsEnd:             fp(8754.5),
	}
}

func newTestHandler(t *testing.T) *CheckInHandler {
	t.Helper()
	rates := stubRateReader{rates: map[string]*checkin.ChargeRateConfig{
		"aircraft-1":   {ID: "rate-1", ChargeableID: "aircraft-1", RatePerHour: 150.00, ChargeHobbs: true},
		"instructor-1": {ID: "rate-2", ChargeableID: "instructor-1", RatePerHour: 80.00, ChargeHobbs: true},
	}}
	svc, err := application.NewCheckInService(
		stubBookingReader{booking: testBooking()},
		rates,
		nil,
		stubTaxProvider{},
		memory.NewInvoiceRepository("org-1", "NZD"),
		application.SystemClock{},
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewCheckInHandler(svc, nil, nil, "Flight Check-In Draft", "NZD")
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func openSession(t *testing.T, handler *CheckInHandler) {
	t.Helper()
	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/open", map[string]any{"booking_id": "booking-1"})
	if resp.Code != http.StatusOK {
		t.Fatalf("open: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func doJSON(t *testing.T, handler *CheckInHandler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func decodeState(t *testing.T, resp *httptest.ResponseRecorder) stateDTO {
	t.Helper()
	var state stateDTO
	if err := json.Unmarshal(resp.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return state
}

func TestHandlerOpenAndGet(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	state := decodeState(t, resp)
	if state.BookingID != "booking-1" || state.Basis != checkin.BasisHobbs {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.BillingHours != 2.3 {
		t.Fatalf("expected 2.3 hours, got %v", state.BillingHours)
	}
	if state.Draft != nil {
		t.Fatalf("no draft before calculate")
	}
	if !state.Stale {
		t.Fatalf("missing draft must report stale")
	}
}

func TestHandlerOpenMissingBookingID(t *testing.T) {
	handler := newTestHandler(t)
	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/open", map[string]any{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandlerGetWithoutOpenSession(t *testing.T) {
	handler := newTestHandler(t)
	resp := doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandlerCalculate(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/calculate", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	state := decodeState(t, resp)
	if state.Draft == nil {
		t.Fatalf("expected a draft")
	}
	if len(state.Draft.Items) != 2 {
		t.Fatalf("expected two lines, got %d", len(state.Draft.Items))
	}
	if state.Draft.Totals.TotalAmount != 608.35 {
		t.Fatalf("expected total 608.35, got %v", state.Draft.Totals.TotalAmount)
	}
	if state.Stale {
		t.Fatalf("fresh draft must not be stale")
	}
}

func TestHandlerInputsMarkStale(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)
	doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/calculate", nil)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/inputs", map[string]any{
		"readings": map[string]any{
			"hobbs": map[string]any{"start": 8752.2, "end": 8755.0},
			"tacho": map[string]any{},
		},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	state := decodeState(t, resp)
	if !state.Stale {
		t.Fatalf("changed readings must mark the draft stale")
	}
	if state.BillingHours != 2.8 {
		t.Fatalf("expected 2.8 hours, got %v", state.BillingHours)
	}
}

func TestHandlerLineFlow(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)
	doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/calculate", nil)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/lines", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("add line: expected 200, got %d", resp.Code)
	}
	var added struct {
		Index int      `json:"index"`
		State stateDTO `json:"state"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode add response: %v", err)
	}
	if added.Index != 2 {
		t.Fatalf("expected index 2, got %d", added.Index)
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/lines/2", map[string]any{
		"description": "Landing fee",
		"unit_price":  25.00,
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("edit line: expected 200, got %d", resp.Code)
	}
	state := decodeState(t, resp)
	if state.Draft.Items[2].Description != "Landing fee" {
		t.Fatalf("edit not applied: %+v", state.Draft.Items[2])
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/exclude", map[string]any{
		"description": "Instructor - A. Instructor",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("exclude: expected 200, got %d", resp.Code)
	}
	state = decodeState(t, resp)
	if len(state.Draft.Items) != 2 {
		t.Fatalf("expected aircraft and manual lines, got %d", len(state.Draft.Items))
	}

	resp = doJSON(t, handler, http.MethodDelete, "/api/v1/checkins/booking-1/lines/0", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("remove line: expected 200, got %d", resp.Code)
	}
	state = decodeState(t, resp)
	if len(state.Draft.Items) != 1 {
		t.Fatalf("expected aircraft line only, got %d", len(state.Draft.Items))
	}
}

func TestHandlerEditLineOutOfRange(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)
	doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/calculate", nil)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/lines/9", map[string]any{"description": "x"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/lines/abc", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric index, got %d", resp.Code)
	}
}

func TestHandlerEditLineWithoutDraft(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/lines/0", map[string]any{"description": "x"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestHandlerApprove(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)
	doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/calculate", nil)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/approve", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result struct {
		InvoiceID string    `json:"invoice_id"`
		Reference string    `json:"reference"`
		Total     float64   `json:"total"`
		DueDate   time.Time `json:"due_date"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode approve response: %v", err)
	}
	if result.InvoiceID == "" || result.Total != 608.35 {
		t.Fatalf("unexpected approve result %+v", result)
	}
	if result.Reference != "Flight check-in for booking booking-1" {
		t.Fatalf("unexpected reference %q", result.Reference)
	}

	// The session is gone once approved.
	resp = doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after approval, got %d", resp.Code)
	}
}

func TestHandlerApproveWithoutDraft(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/approve", nil)
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.Code)
	}
}

func TestHandlerClose(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/close", nil)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	resp = doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after close, got %d", resp.Code)
	}
}

func TestHandlerDraftExports(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1/draft.pdf", nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("export without draft: expected 409, got %d", resp.Code)
	}

	doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/calculate", nil)

	resp = doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1/draft.pdf", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("pdf export: expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if resp.Body.Len() == 0 {
		t.Fatalf("empty pdf body")
	}

	resp = doJSON(t, handler, http.MethodGet, "/api/v1/checkins/booking-1/draft.xlsx", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("xlsx export: expected 200, got %d", resp.Code)
	}
	if resp.Body.Len() == 0 {
		t.Fatalf("empty xlsx body")
	}
}

func TestHandlerUnknownRoute(t *testing.T) {
	handler := newTestHandler(t)
	openSession(t, handler)

	resp := doJSON(t, handler, http.MethodPost, "/api/v1/checkins/booking-1/unknown", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
