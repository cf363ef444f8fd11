package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/muurk/modelfinder/internal/logging"
)

// Routes served by the lookup server
const (
	HealthPath    = "/health"
	LookupPath    = "/api/v1/lookup"
	WebSocketPath = "/ws"

	// SerialParam is the query parameter carrying the raw serial number
	SerialParam = "serial"

	// RequestIDHeader carries the per-request UUID
	RequestIDHeader = "X-Request-ID"
)

type ctxKey int

const requestIDKey ctxKey = iota

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware)

	r.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc(LookupPath, s.handleLookup).Methods(http.MethodGet)
	r.HandleFunc(WebSocketPath, s.handleWebSocket).Methods(http.MethodGet)

	return r
}

// requestIDMiddleware tags every request with a UUID, reusing a valid
// client-supplied one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestID returns the request ID stored by the middleware
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := RequestID(r.Context())
		logging.LogHTTPRequest(id, r.RemoteAddr, r.Method, r.URL.Path)

		// WebSocket upgrades need the raw writer for hijacking
		if r.URL.Path == WebSocketPath {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogHTTPResponse(id, rec.status, time.Since(start))
	})
}
