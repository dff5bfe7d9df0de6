package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/pkg/logger"
	"github.com/lhtc/classpoint/pkg/validation"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error. Fields maps request fields to
// validation messages.
type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// writeJSON writes a successful JSON response.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC(), Version: "v1"},
		RequestID: getRequestID(r.Context()),
	})
}

// writeJSONError writes an error JSON response.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(JSONResponse{
		Error:     &APIError{Code: code, Message: message, Fields: fields},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: getRequestID(r.Context()),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// errConfirmationRequired is returned by destructive endpoints called
// without their confirm parameters.
var errConfirmationRequired = errors.New("confirmation required")

// writeError maps an application error to a status code and writes it.
// Server-side failures are logged and their details hidden.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		fields    map[string]string
		verr      *validation.Error
		shortfall *reward.InsufficientBalanceError
		tooLarge  *http.MaxBytesError
	)

	switch {
	case errors.Is(err, errConfirmationRequired):
		writeJSONError(w, r, http.StatusPreconditionRequired, "confirmation_required", err.Error(), nil)
	case errors.As(err, &tooLarge):
		writeJSONError(w, r, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("Body exceeds %d bytes", tooLarge.Limit), nil)
	case errors.Is(err, shared.ErrUnauthorized):
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
	case shared.IsNotFound(err):
		writeJSONError(w, r, http.StatusNotFound, "not_found", messageOf(err), nil)
	case shared.IsValidation(err):
		if errors.As(err, &verr) {
			fields = verr.Fields
		}
		writeJSONError(w, r, http.StatusBadRequest, "validation_error", messageOf(err), fields)
	case shared.IsConflict(err):
		if errors.As(err, &shortfall) {
			fields = map[string]string{"shortfall": strconv.Itoa(shortfall.Shortfall())}
		}
		writeJSONError(w, r, http.StatusConflict, "conflict", messageOf(err), fields)
	case errors.Is(err, shared.ErrCorruptSnapshot):
		s.logger.Error("stored snapshot is corrupt", logger.Operation(op), logger.Err(err))
		writeJSONError(w, r, http.StatusInternalServerError, "corrupt_snapshot",
			"Stored data is corrupt; POST /api/v1/snapshot/recover?confirm=yes backs it up and resets the unreadable parts", nil)
	case shared.IsRetryable(err):
		s.logger.Warn("storage unavailable", logger.Operation(op), logger.Err(err))
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, r, http.StatusServiceUnavailable, "unavailable", "Storage is temporarily unavailable", nil)
	default:
		s.logger.Error("request failed", logger.Operation(op), logger.Err(err),
			logger.String("request_id", getRequestID(r.Context())))
		writeJSONError(w, r, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", nil)
	}
}

// messageOf returns the most specific human-readable message of err.
func messageOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return err.Error()
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes a size-limited JSON body into v.
func (s *Server) decodeJSON(r *http.Request, v interface{}) error {
	body := io.Reader(r.Body)
	if s.config.MaxBodyBytes > 0 {
		body = io.LimitReader(r.Body, s.config.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return shared.WrapError("http", "decode", shared.ErrInvalidInput, "cannot read body", err)
	}
	if s.config.MaxBodyBytes > 0 && int64(len(data)) > s.config.MaxBodyBytes {
		return shared.Invalid("http", "decode", fmt.Sprintf("body exceeds %d bytes", s.config.MaxBodyBytes))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return shared.WrapError("http", "decode", shared.ErrInvalidInput, "malformed JSON body", err)
	}
	return nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Invalid("http", "query", fmt.Sprintf("%s must be an integer", key))
	}
	return n, nil
}

// confirmed reports whether every listed query parameter equals "yes".
func confirmed(r *http.Request, keys ...string) bool {
	q := r.URL.Query()
	for _, k := range keys {
		if !strings.EqualFold(q.Get(k), "yes") {
			return false
		}
	}
	return true
}

// requireConfirmation returns errConfirmationRequired unless every key is
// set to yes.
func requireConfirmation(r *http.Request, keys ...string) error {
	if confirmed(r, keys...) {
		return nil
	}
	return fmt.Errorf("%w: repeat the request with %s", errConfirmationRequired, confirmHint(keys))
}

func confirmHint(keys []string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=yes"
	}
	return strings.Join(parts, "&")
}

// featureOn reports whether a feature flag is on. Without a checker every
// feature is on.
func (s *Server) featureOn(name string) bool {
	return s.deps.Features == nil || s.deps.Features.IsEnabled(name)
}
