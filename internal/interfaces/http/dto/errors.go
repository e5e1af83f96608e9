package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Business rule rejections map to 422 so clients can distinguish them from
// malformed requests; retryable contention maps to 503.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Input errors -> 400 Bad Request
	"INVALID_INPUT":    http.StatusBadRequest,
	"INVALID_MOVEMENT": http.StatusBadRequest,
	"BATCH_REQUIRED":   http.StatusBadRequest,

	// Resource errors
	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"DUPLICATE_BATCH":      http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// Business rule rejections -> 422 Unprocessable Entity
	"INVALID_STATE":      http.StatusUnprocessableEntity,
	"INSUFFICIENT_STOCK": http.StatusUnprocessableEntity,
	"EXPIRED_BATCH":      http.StatusUnprocessableEntity,
	"EXPIRED_BATCH_ONLY": http.StatusUnprocessableEntity,
	"OVER_REFUND":        http.StatusUnprocessableEntity,
	"LOCATION_INACTIVE":  http.StatusUnprocessableEntity,

	// Contention -> 503, safe to retry
	"LOCK_TIMEOUT": http.StatusServiceUnavailable,

	// Ledger/projection divergence is never the client's fault
	"CONSISTENCY_CHECK_FAILED": http.StatusInternalServerError,
}

// retryableCodes marks error codes callers may retry without side effects
var retryableCodes = map[string]bool{
	"LOCK_TIMEOUT":         true,
	"CONCURRENCY_CONFLICT": true,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsRetryable reports whether a client may safely retry after this error code
func IsRetryable(code string) bool {
	return retryableCodes[code]
}
