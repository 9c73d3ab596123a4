package log

import (
	"time"

	"spese-analytics/internal/core"
)

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldRangeKey   = "range_key"
	FieldRangeStart = "range_start"
	FieldRangeEnd   = "range_end"
	FieldCap        = "cap"
	FieldUpstream   = "upstream"
	FieldCacheHit   = "cache_hit"
	FieldEntries    = "entries"
	FieldPoints     = "points"
	FieldMonth      = "month"
	FieldExpenseID  = "expense_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldCacheKey   = "cache_key"
	FieldReason     = "reason"
	FieldJob        = "job"
	FieldFormat     = "format"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAnalytics = "analytics"
	ComponentUpstream  = "upstream"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
	ComponentReport    = "report"
	ComponentCLI       = "cli"
)

// Operations defines standard operation names
const (
	OpResolve       = "resolve"
	OpBreakdown     = "breakdown"
	OpTimeseries    = "timeseries"
	OpStats         = "stats"
	OpCategoryTrend = "category_trend"
	OpCreate        = "create"
	OpUpdate        = "update"
	OpList          = "list"
	OpExport        = "export"
	OpReport        = "report"
	OpRefresh       = "refresh"
	OpInvalidate    = "invalidate"
	OpShutdown      = "shutdown"
	OpStartup       = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRange adds the resolved window.
func (f LogFields) WithRange(r core.ResolvedRange) LogFields {
	f[FieldRangeKey] = string(r.Key)
	f[FieldRangeStart] = r.StartISO()
	f[FieldRangeEnd] = r.EndISO()
	return f
}

func (f LogFields) WithUpstream(name string, d time.Duration) LogFields {
	f[FieldUpstream] = name
	f[FieldDuration] = d.Milliseconds()
	return f
}

func (f LogFields) WithExpense(e core.Expense) LogFields {
	if e.ID != "" {
		f[FieldExpenseID] = e.ID
	}
	f[FieldCategory] = e.Category
	f[FieldAmount] = e.Amount.String()
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
