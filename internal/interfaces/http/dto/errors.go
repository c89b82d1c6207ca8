package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeSignatureRejected is used when webhook signature verification fails
	ErrCodeSignatureRejected = "ERR_SIGNATURE_REJECTED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Upstream error codes
const (
	// ErrCodeGateway is used when the payment gateway rejects or fails a call
	ErrCodeGateway = "ERR_GATEWAY"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,

	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeSignatureRejected: http.StatusUnauthorized,
	ErrCodeForbidden:         http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeGateway: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"PACKAGE_NOT_FOUND":    ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"SUBSCRIPTION_EXISTS":  ErrCodeConflict,
	"INVOICE_ALREADY_PAID": ErrCodeConflict,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"STALE_EVENT":          ErrCodeConflict,

	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_TENANT":            ErrCodeInvalidInput,
	"INVALID_PACKAGE":           ErrCodeInvalidInput,
	"INVALID_SUBSCRIPTION":      ErrCodeInvalidInput,
	"INVALID_BILLING_CYCLE":     ErrCodeInvalidInput,
	"INVALID_LINE_ITEM":         ErrCodeInvalidInput,
	"INVALID_TAX_RATE":          ErrCodeInvalidInput,
	"INVALID_DUE_DATE":          ErrCodeInvalidInput,
	"INVALID_AMOUNT":            ErrCodeInvalidInput,
	"INVALID_TRANSACTION":       ErrCodeInvalidInput,
	"INVALID_PAYMENT_REFERENCE": ErrCodeInvalidInput,
	"INVALID_PROJECT":           ErrCodeInvalidInput,
	"INVALID_USAGE":             ErrCodeInvalidInput,
	"INVALID_BUDGET":            ErrCodeInvalidInput,

	"INVALID_STATE":  ErrCodeInvalidState,
	"CAPTURE_FAILED": ErrCodeBusinessRule,

	"UNAUTHORIZED":       ErrCodeUnauthorized,
	"SIGNATURE_REJECTED": ErrCodeSignatureRejected,
	"FORBIDDEN":          ErrCodeForbidden,

	"GATEWAY_UNAVAILABLE": ErrCodeGateway,
	"GATEWAY_AUTH_FAILED": ErrCodeGateway,
	"GATEWAY_REJECTED":    ErrCodeGateway,

	"NUMBER_ALLOCATION_FAILED": ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Unknown codes are returned as-is and map to 500.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
