// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the parse, score and process endpoints plus the health surface,
// and keeps HTTP concerns separate from the pipeline stages it fronts.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels to protocol status codes. Stage-reported
// failures never reach here; they travel inside result payloads. Anything
// unmatched is a generic internal error without detail leakage.
func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	msg := "internal server error"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
		msg = err.Error()
	case errors.Is(err, domain.ErrExtraction):
		code = http.StatusUnprocessableEntity
		codeStr = "EXTRACTION_FAILED"
		msg = err.Error()
	case errors.Is(err, domain.ErrScoringDecode):
		code = http.StatusUnprocessableEntity
		codeStr = "SCORING_DECODE_FAILED"
		msg = err.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		code = http.StatusServiceUnavailable
		codeStr = "PROVIDER_UNAVAILABLE"
		msg = err.Error()
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: msg, Details: details}})
}
