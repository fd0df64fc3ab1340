package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorType  = "error_type"
	FieldOperation  = "operation"
	FieldMonth      = "month"
	FieldTable      = "table"
	FieldEvent      = "event"
	FieldEventID    = "event_id"
	FieldAmount     = "amount"
	FieldCategory   = "category"
	FieldWorker     = "worker"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentRecorder = "recorder"
	ComponentReports  = "reports"
	ComponentPricing  = "pricing"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentSheets   = "sheets"
	ComponentCache    = "cache"
	ComponentTrace    = "trace"
	ComponentBackend  = "backend"
	ComponentSecurity = "security"
)

// Operations defines standard operation names
const (
	OpCloseJob      = "close_job"
	OpRecordExpense = "record_expense"
	OpRecordSalary  = "record_salary"
	OpResume        = "resume"
	OpReport        = "report"
	OpQuote         = "quote"
	OpMirror        = "mirror"
	OpShutdown      = "shutdown"
	OpStartup       = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeStorage      = "storage_unavailable"
	ErrorTypeSchema       = "schema_error"
	ErrorTypePartialWrite = "partial_write"
	ErrorTypeNotFound     = "not_found_error"
	ErrorTypeInternal     = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
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

// WithError adds the error and its category.
func (f LogFields) WithError(err error, errorType string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		f[FieldErrorType] = errorType
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the cash-entry fields of a recorded movement.
func (f LogFields) WithEntry(table, category string, amount decimal.Decimal) LogFields {
	f[FieldTable] = table
	f[FieldCategory] = category
	f[FieldAmount] = amount.StringFixed(2)
	return f
}

func (f LogFields) WithEvent(kind, id string) LogFields {
	f[FieldEvent] = kind
	if id != "" {
		f[FieldEventID] = id
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(method, path string, statusCode int, durationMs int64) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
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
