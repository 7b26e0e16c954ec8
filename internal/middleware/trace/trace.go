// Package trace assigns request ids and writes the access log.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"timetracker/internal/log"
	"timetracker/internal/observability"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader is echoed back so clients can quote it in reports.
	RequestIDHeader = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.Logger
	access    *log.StructuredLogger
	total     int64
}

func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = log.NewDiscard()
	}
	logger = logger.WithComponent(log.ComponentTrace)
	return &Middleware{
		extractIP: extractIP,
		logger:    logger,
		access:    log.NewStructuredLogger(logger),
	}
}

// Middleware tags the request with an id, puts a request-scoped logger in the
// context and logs the outcome once the handler returns.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		requestID := GenerateRequestID()
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = log.WithLogger(ctx, m.logger.With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		atomic.AddInt64(&m.total, 1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		observability.ObserveHTTPRequest(r.Method, rw.statusCode, duration)
		m.access.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

// TotalRequests returns how many requests passed through the middleware.
func (m *Middleware) TotalRequests() int64 {
	return atomic.LoadInt64(&m.total)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
