// Package errors provides utilities for categorizing and handling errors in the xbridge node.
package errors

import (
	"context"
	"errors"
	"strings"
)

// IsRetryableError determines if an error is transient and the operation should be retried.
// This includes network timeouts, temporary unavailability and wallet RPC failures.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check if context was cancelled - not retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_ERROR,
			ERR_NETWORK_CONNECTION_REFUSED,
			ERR_SERVICE_UNAVAILABLE,
			ERR_CONNECTOR:
			return true
		case ERR_NETWORK_INVALID_RESPONSE,
			ERR_NETWORK_PEER_MALICIOUS:
			return false
		}
	}

	return false
}

// IsNetworkError determines if an error is network-related.
//
// Parameters:
//   - err: Error to check
//
// Returns:
//   - bool: true if error is network-related
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var tErr *Error
	if As(err, &tErr) {
		switch tErr.Code() {
		case ERR_NETWORK_ERROR,
			ERR_NETWORK_TIMEOUT,
			ERR_NETWORK_CONNECTION_REFUSED,
			ERR_NETWORK_INVALID_RESPONSE,
			ERR_NETWORK_PEER_MALICIOUS:
			return true
		}
	}

	errStr := strings.ToLower(err.Error())
	networkStrings := []string{
		"connection refused",
		"connection reset",
		"dial tcp",
		"no such host",
		"broken pipe",
		"i/o timeout",
	}

	for _, s := range networkStrings {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if err == context.Canceled || err == context.DeadlineExceeded {
		return true
	}

	var tErr *Error
	if As(err, &tErr) {
		if tErr.Code() == ERR_CONTEXT_CANCELED || tErr.Code() == ERR_CONTEXT {
			return true
		}
	}

	return Is(err, context.Canceled) || Is(err, context.DeadlineExceeded)
}

// IsSilentDrop reports whether a receive-path error should be discarded without logging
// above debug level.
func IsSilentDrop(err error) bool {
	var tErr *Error
	if As(err, &tErr) {
		return tErr.Code() == ERR_VERSION_MISMATCH
	}

	return false
}

// GetErrorCategory returns a string representing the category of the error.
// This is useful for logging and metrics labels.
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	if IsContextError(err) {
		return "context"
	}

	if IsNetworkError(err) {
		return "network"
	}

	var tErr *Error
	if As(err, &tErr) {
		code := tErr.Code()
		switch {
		case code >= 10 && code <= 19:
			return "packet"
		case code >= 20 && code <= 29:
			return "swap"
		case code >= 30 && code <= 39:
			return "reservation"
		case code >= 40 && code <= 49:
			return "wallet"
		case code >= 50 && code <= 59:
			return "service"
		}
	}

	return "unknown"
}
