package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/ufv-debt-calculator-go/internal/domain"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeJSON encodes before writing the status, so a value json cannot
// represent turns into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// handleServiceError maps domain errors to HTTP responses.
// Circuit-open and timeout causes are checked before the generic
// index-unavailable case because the calculator wraps them.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var indexUnavailable *domain.ErrIndexUnavailable
	var unauthorized *domain.ErrUnauthorized

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, indexUnavailableMessage("circuit open"))
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, indexUnavailableMessage("timeout"))
	case errors.As(err, &indexUnavailable):
		logger.Warn("ufv index unavailable", zap.String("reason", indexUnavailable.Reason), zap.Error(err))
		writeError(w, http.StatusBadGateway, indexUnavailableMessage(indexUnavailable.Reason))
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// indexUnavailableMessage names the failure category only; the wrapped cause
// (URLs, dial errors) stays in the logs.
func indexUnavailableMessage(reason string) string {
	return "UFV index unavailable: " + reason
}
