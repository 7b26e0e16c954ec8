package log

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
	FieldReferer    = "referer"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldErrorKind  = "error_kind"
	FieldOperation  = "operation"
	FieldUserID     = "user_id"
	FieldDate       = "date"
	FieldActivityID = "activity_id"
	FieldName       = "activity_name"
	FieldCategory   = "category"
	FieldMinutes    = "minutes"
	FieldTotal      = "total_minutes"
	FieldBackend    = "backend"
	FieldCount      = "count"
)

// Component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentAuth      = "auth"
	ComponentTemplate  = "template"
	ComponentCLI       = "cli"
)

// Operation names
const (
	OpLoad     = "load"
	OpAdd      = "add"
	OpEdit     = "edit"
	OpRemove   = "remove"
	OpList     = "list"
	OpMirror   = "mirror"
	OpPublish  = "publish"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields builds structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message, skipping nil errors.
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

// WithScope adds the user and day an operation applies to.
func (f LogFields) WithScope(userID, date string) LogFields {
	f[FieldUserID] = userID
	f[FieldDate] = date
	return f
}

// WithActivity adds activity fields. Empty id is omitted.
func (f LogFields) WithActivity(id, name, category string, minutes int) LogFields {
	if id != "" {
		f[FieldActivityID] = id
	}
	f[FieldName] = name
	f[FieldCategory] = category
	f[FieldMinutes] = minutes
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	if referer != "" {
		f[FieldReferer] = referer
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields into slog key/value pairs.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
