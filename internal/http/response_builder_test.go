package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"spese-analytics/internal/core"
	"spese-analytics/internal/report"
	"spese-analytics/internal/source/api"
	"spese-analytics/internal/validation"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Error("Custom header not set")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != "{\"n\":1}\n" {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponseBuilder
		wantStatus int
		wantBody   string
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest, `{"error":"Invalid input"}`},
		{"not found", NotFoundError("missing"), http.StatusNotFound, `{"error":"missing"}`},
		{"too many", TooManyRequestsError(), http.StatusTooManyRequests, `{"error":"rate limit exceeded, please try again later"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody+"\n" {
				t.Errorf("Body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	type payload struct {
		Amount float64 `json:"amount" validate:"gt=0"`
	}
	verr := validation.Struct(payload{})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"range", fmt.Errorf("%w: %q", core.ErrInvalidRangeKey, "x"), http.StatusBadRequest},
		{"trend", core.ErrInvalidTrendType, http.StatusBadRequest},
		{"month", core.ErrInvalidMonth, http.StatusBadRequest},
		{"amount", core.ErrInvalidAmount, http.StatusBadRequest},
		{"remarks", core.ErrRemarksTooLong, http.StatusBadRequest},
		{"validation", verr, http.StatusBadRequest},
		{"format", report.ErrUnknownFormat, http.StatusBadRequest},
		{"bad request", errBadRequest, http.StatusBadRequest},
		{"not found", fmt.Errorf("update: %w", core.ErrNotFound), http.StatusNotFound},
		{"malformed", core.ErrMalformedPoint, http.StatusBadGateway},
		{"payload", api.ErrInvalidPayload, http.StatusBadGateway},
		{"upstream status", &api.StatusError{Status: 500}, http.StatusBadGateway},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"client gone", fmt.Errorf("breakdown: %w", context.Canceled), statusClientClosedRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorStatus(tt.err); got != tt.want {
				t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalMessages(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)

	w := httptest.NewRecorder()
	writeError(w, r, "stats", errors.New("dial tcp 10.0.0.1: secret detail"))
	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusInternalServerError || body.Error != "internal error" {
		t.Errorf("got %d %q", w.Code, body.Error)
	}

	w = httptest.NewRecorder()
	writeError(w, r, "stats", &api.StatusError{Status: 503, Body: "down"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestWriteError_ListsValidationFields(t *testing.T) {
	err := validation.Struct(expenseForm{})
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodPost, "/api/expenses", nil), "create", err)

	var body errorBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
	if len(body.Fields) != 3 {
		t.Errorf("fields = %v, want amount, category and payment_mode", body.Fields)
	}
}
