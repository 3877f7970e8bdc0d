package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/models"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
	CodeSchema         ErrorCode = "SCHEMA_ERROR"
	CodeDataFormat     ErrorCode = "DATA_FORMAT_ERROR"
)

// A broken input table is a server fault; a single unreadable value is
// reported as unprocessable data.
var statusCodes = map[ErrorCode]int{
	CodeBadRequest:     http.StatusBadRequest,
	CodeRateLimit:      http.StatusTooManyRequests,
	CodeServiceUnavail: http.StatusServiceUnavailable,
	CodeDataFormat:     http.StatusUnprocessableEntity,
	CodeSchema:         http.StatusInternalServerError,
	CodeInternal:       http.StatusInternalServerError,
}

// AppError is the JSON error body returned by the API.
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap builds an AppError for code. cause may be nil.
func Wrap(cause error, code ErrorCode, message string) *AppError {
	status, ok := statusCodes[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	appErr := &AppError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
		Timestamp:  time.Now().UTC(),
	}
	var formatErr *models.DataFormatError
	if stderrors.As(cause, &formatErr) {
		appErr.Details = fmt.Sprintf("row %d, column %s", formatErr.Row, formatErr.Column)
	}
	return appErr
}

func Internal(message string) *AppError { return Wrap(nil, CodeInternal, message) }

func BadRequest(message string) *AppError { return Wrap(nil, CodeBadRequest, message) }

func BadRequestWrap(err error, message string) *AppError { return Wrap(err, CodeBadRequest, message) }

func RateLimit(message string) *AppError { return Wrap(nil, CodeRateLimit, message) }

func ServiceUnavailableWrap(err error, message string) *AppError {
	return Wrap(err, CodeServiceUnavail, message)
}

func Schema(err error) *AppError {
	return Wrap(err, CodeSchema, "Loaded dataset does not match the expected columns")
}

func DataFormat(err error) *AppError {
	return Wrap(err, CodeDataFormat, "Loaded dataset contains values that cannot be interpreted")
}

// FromError maps err onto the API taxonomy. Unknown errors are internal.
func FromError(err error) *AppError {
	var (
		appErr    *AppError
		schemaErr *models.SchemaError
		formatErr *models.DataFormatError
		flagErr   *models.RepeatFlagError
	)
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.As(err, &schemaErr):
		return Schema(err)
	case stderrors.As(err, &formatErr), stderrors.As(err, &flagErr):
		return DataFormat(err)
	default:
		return Wrap(err, CodeInternal, "An unexpected error occurred")
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

// WriteError writes the error envelope and logs the failure; client errors
// log at warn.
func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	appErr := FromError(err)
	appErr.RequestID = requestID

	if encodeErr := writeJSON(w, appErr.StatusCode, ErrorResponse{Error: appErr}); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		return
	}

	level := slog.LevelError
	if appErr.StatusCode < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

func WriteSuccess(w http.ResponseWriter, data any) {
	if err := writeJSON(w, http.StatusOK, SuccessResponse{Data: data, Success: true}); err != nil {
		slog.Error("failed to encode success response", "error", err)
	}
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
