// Package http serves the analytics dashboard page and its JSON API.
//
// This file implements the Builder Pattern for JSON responses and maps
// domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spese-analytics/internal/core"
	"spese-analytics/internal/log"
	"spese-analytics/internal/report"
	"spese-analytics/internal/source/api"
	"spese-analytics/internal/validation"
)

// errBadRequest marks malformed request parameters.
var errBadRequest = errors.New("bad request")

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type errorBody struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

// statusClientClosedRequest is reported when the client went away before the
// response was ready.
const statusClientClosedRequest = 499

// errorStatus maps err to the status code the API reports for it.
func errorStatus(err error) int {
	var verr *validation.Error
	var serr *api.StatusError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidRangeKey),
		errors.Is(err, core.ErrInvalidTrendType),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyPaymentMode),
		errors.Is(err, core.ErrInvalidExpenseType),
		errors.Is(err, core.ErrRemarksTooLong),
		errors.Is(err, report.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMalformedPoint),
		errors.Is(err, api.ErrInvalidPayload),
		errors.As(err, &serr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes it as JSON. Messages of 5xx errors other
// than upstream failures are hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	logger := log.FromContext(r.Context())

	body := errorBody{Error: err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}

	switch {
	case status >= 500:
		logger.ErrorContext(r.Context(), "request failed",
			log.NewFields().WithError(err).WithOperation(op).WithHTTPResponse(status, 0).ToSlice()...)
		if status == http.StatusInternalServerError {
			body = errorBody{Error: "internal error"}
		}
	default:
		logger.DebugContext(r.Context(), "request rejected", log.FieldOperation, op, log.FieldError, err)
	}

	NewJSONResponse().Status(status).Body(body).Write(w)
}
