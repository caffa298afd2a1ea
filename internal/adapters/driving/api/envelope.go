package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Error codes carried in failure envelopes.
const (
	CodeNotFound          = "OBJECT_NOT_FOUND"
	CodeNotReady          = "NOT_READY"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeSomethingWrong    = "SOMETHING_WENT_WRONG"
)

// successEnvelope wraps every successful JSON response.
type successEnvelope struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg"`
	Data    any    `json:"data"`
}

// failureEnvelope wraps every application error. It is sent with HTTP 200.
type failureEnvelope struct {
	Success  bool   `json:"success"`
	Code     string `json:"code"`
	ErrorMsg string `json:"errorMsg"`
}

// ErrorCode maps an error onto its envelope code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrNotReady):
		return CodeNotReady
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return CodeUnsupportedFormat
	case errors.Is(err, domain.ErrExtraction):
		return CodeExtractionFailed
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyInput):
		return CodeInvalidInput
	default:
		return CodeSomethingWrong
	}
}

// writeJSON writes a JSON response with the specified status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Debug("api: writing response: %v", err)
	}
}

// writeSuccess writes a success envelope around data.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, successEnvelope{Success: true, Data: data})
}

// writeFailure writes a failure envelope for err.
func writeFailure(w http.ResponseWriter, err error) {
	code := ErrorCode(err)
	msg := err.Error()
	if code == CodeSomethingWrong {
		logger.Error(err, "api: request failed")
		msg = "Something went wrong: " + msg
	}
	writeJSON(w, http.StatusOK, failureEnvelope{Code: code, ErrorMsg: msg})
}
