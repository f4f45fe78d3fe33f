package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a machine-readable error code
type ErrorCode string

const (
	// Validation errors (VALIDATION_*)
	ErrorCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrorCodeValidationInvalidCard ErrorCode = "VALIDATION_INVALID_CARD"

	// Transaction errors (TXN_*)
	ErrorCodeTxnNotFound ErrorCode = "TXN_NOT_FOUND"

	// Customer errors (CUSTOMER_*)
	ErrorCodeCustomerNotFound ErrorCode = "CUSTOMER_NOT_FOUND"

	// Payment gateway errors (GATEWAY_*)
	ErrorCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
	ErrorCodeGatewayProtocol    ErrorCode = "GATEWAY_PROTOCOL_ERROR"
	ErrorCodeGatewayDeclined    ErrorCode = "GATEWAY_DECLINED"

	// Internal errors (INTERNAL_*)
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabaseError ErrorCode = "INTERNAL_DATABASE_ERROR"
)

// DomainError represents a structured domain error with error code and context
type DomainError struct {
	Err     error
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

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain error code
func WrapError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// IsDomainError checks if an error is a DomainError with the given code
func IsDomainError(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error, returns empty string if
// the error carries none
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Code
	}
	return ""
}

// GatewayError is a failure acknowledgement from the payment gateway. It
// carries the coded human-readable messages parsed from the response so the
// checkout flow can show the customer what the processor said.
type GatewayError struct {
	Code     ErrorCode
	Messages []string
}

func (e *GatewayError) Error() string {
	if len(e.Messages) == 0 {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, strings.Join(e.Messages, "; "))
}

// NewGatewayError creates a gateway failure carrying the processor's messages
func NewGatewayError(code ErrorCode, messages []string) *GatewayError {
	return &GatewayError{Code: code, Messages: messages}
}

// IsGatewayDeclined reports whether the gateway rejected the request as a
// business failure rather than a transport or protocol problem
func IsGatewayDeclined(err error) bool {
	var gatewayErr *GatewayError
	return errors.As(err, &gatewayErr) && gatewayErr.Code == ErrorCodeGatewayDeclined
}
