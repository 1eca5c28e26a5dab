package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Transaction Errors (TXN_*)
	ErrorCodeTxnNotFound      ErrorCode = "TXN_NOT_FOUND"
	ErrorCodeTxnCannotRefund  ErrorCode = "TXN_CANNOT_REFUND"
	ErrorCodeTxnInvalidStatus ErrorCode = "TXN_INVALID_STATUS"

	// Router Errors (ROUTER_*)
	ErrorCodeNoGatewayAvailable ErrorCode = "ROUTER_NO_GATEWAY_AVAILABLE"
	ErrorCodeGatewayNotFound    ErrorCode = "ROUTER_GATEWAY_NOT_FOUND"

	// Payment Gateway Errors (GATEWAY_*)
	ErrorCodeGatewayError    ErrorCode = "GATEWAY_ERROR"
	ErrorCodeGatewayDeclined ErrorCode = "GATEWAY_DECLINED"

	// Rate Service Errors (RATE_*)
	ErrorCodeUnsupportedConversion ErrorCode = "RATE_UNSUPPORTED_CONVERSION"

	// Validation Errors (VALIDATION_*)
	ErrorCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
	Details map[string]interface{}
	Code    ErrorCode
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// WithDetail adds a detail field to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Err:     err,
	}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if not a DomainError
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// Sentinel errors surfaced by the processor and its collaborators. Callers
// branch with errors.Is; the retry layer and the simulator host branch on
// these rather than on message text.
var (
	// ErrNoGatewayAvailable - the router found no available gateway supporting the currency
	ErrNoGatewayAvailable = errors.New("no gateway available for request")
	// ErrGatewayNotFound - lookup by name missed (refund against an unregistered gateway)
	ErrGatewayNotFound = errors.New("gateway not found")
	// ErrCannotRefund - transaction absent or not in a refundable status
	ErrCannotRefund = errors.New("transaction cannot be refunded")
	// ErrUnsupportedConversion - the rate service has no rate for the currency pair
	ErrUnsupportedConversion = errors.New("unsupported currency conversion")
	// ErrValidationFailed - the validator collaborator rejected the request
	ErrValidationFailed = errors.New("validation failed")
	// ErrGatewayDeclined - a legacy gateway returned false without an error
	ErrGatewayDeclined = errors.New("payment declined by gateway")
)
