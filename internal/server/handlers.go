package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/lookup"
)

// LookupResponse is the JSON document returned for every lookup, over
// HTTP and WebSocket alike. Model is set on success, Error and ErrorType
// on failure.
type LookupResponse struct {
	ID        string  `json:"id"`
	Serial    string  `json:"serial"`
	Key       string  `json:"key"`
	Model     *string `json:"model,omitempty"`
	Error     string  `json:"error,omitempty"`
	ErrorType string  `json:"error_type,omitempty"`
}

// NewLookupResponse converts a lookup result into its wire form
func NewLookupResponse(id string, r lookup.Result) LookupResponse {
	resp := LookupResponse{
		ID:     id,
		Serial: r.Serial,
		Key:    r.Key,
	}
	if r.OK() {
		model := r.Model
		resp.Model = &model
		return resp
	}

	resp.Error = r.Err.Error()
	if et, ok := r.ErrorType(); ok {
		resp.ErrorType = et.Slug()
	} else {
		resp.ErrorType = lookup.ErrTypeTransport.Slug()
	}
	return resp
}

// Result converts the wire form back into a lookup result
func (lr LookupResponse) Result() lookup.Result {
	if lr.Model != nil && lr.Error == "" {
		return lookup.ModelResult(lr.Serial, lr.Key, *lr.Model)
	}

	et, ok := lookup.ParseErrorType(lr.ErrorType)
	if !ok {
		et = lookup.ErrTypeTransport
	}
	return lookup.FailureResult(lr.Serial, lr.Key, &lookup.LookupError{
		Type:    et,
		Message: lr.Error,
	})
}

// StatusCode maps a lookup result to an HTTP status
func StatusCode(r lookup.Result) int {
	if r.OK() {
		return http.StatusOK
	}
	if lookup.IsValidationError(r.Err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	id := RequestID(r.Context())
	raw := r.URL.Query().Get(SerialParam)

	result := s.client.Lookup(r.Context(), raw)

	writeJSON(w, StatusCode(result), NewLookupResponse(id, result))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to write JSON response", zap.Error(err))
	}
}
