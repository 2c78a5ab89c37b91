package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/validation"
)

const maxBodyBytes = 1_048_576

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error     string            `json:"error"`
	Kind      string            `json:"kind,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Kind:    ledgererr.KindValidation.String(),
		Details: validation.Details(validationErr),
	})
}

// StatusFor maps a ledger error kind to an HTTP status.
func StatusFor(err error) int {
	switch ledgererr.KindOf(err) {
	case ledgererr.KindValidation:
		return http.StatusBadRequest
	case ledgererr.KindNotFound:
		return http.StatusNotFound
	case ledgererr.KindConflict:
		return http.StatusConflict
	case ledgererr.KindInsufficientFunds, ledgererr.KindAmountMismatch,
		ledgererr.KindCurrencyMismatch, ledgererr.KindLimitViolation:
		return http.StatusUnprocessableEntity
	case ledgererr.KindPersistence:
		if ledgererr.IsRetryable(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// sendLedgerError writes err with the status of its kind. Storage faults are
// logged and their cause is not echoed to the client.
func sendLedgerError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error(), Kind: ledgererr.KindOf(err).String()}

	var le *ledgererr.Error
	if errors.As(err, &le) {
		resp.Reason = string(le.Reason)
		resp.Retryable = le.Retryable
		if le.Field != "" {
			resp.Details = map[string]string{le.Field: le.Msg}
		}
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
		resp.Error = http.StatusText(status)
		resp.Details = nil
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// decodeBody reads exactly one JSON object into dst and validates it.
// It writes the error response itself and reports whether decoding succeeded.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := validation.Default().Validator().Struct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}
