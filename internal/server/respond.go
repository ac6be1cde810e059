package server

import (
	"encoding/json"
	"net/http"

	"github.com/shelfmap/shelfmap/pkg/inventory"
)

// apiError is the JSON error body. Code carries the machine-readable
// inventory error code so clients (the remote store included) can map the
// failure back onto the right error.
type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := inventory.GetCode(err)
	status := statusFor(code)
	if status >= 500 {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	msg := err.Error()
	if e, ok := err.(*inventory.Error); ok {
		msg = e.Message
	}
	s.writeJSON(w, status, apiError{Error: msg, Code: string(code)})
}

func statusFor(code inventory.Code) int {
	switch code {
	case inventory.ErrCodeInvalidInput, inventory.ErrCodeInvalidName,
		inventory.ErrCodeInvalidRegion, inventory.ErrCodeInvalidQuantity,
		inventory.ErrCodeInvalidImage:
		return http.StatusBadRequest
	case inventory.ErrCodeNotFound, inventory.ErrCodeLocationNotFound,
		inventory.ErrCodeRegionNotFound, inventory.ErrCodeItemNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return inventory.WrapError(inventory.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}
