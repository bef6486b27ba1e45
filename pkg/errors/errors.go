// Package errors provides structured error handling for Tide.
// It defines the closed set of error kinds the wallet core is allowed to
// surface, plus helpers for adding context, details, and suggestions.
// Callers classify failures with errors.Is against the sentinels below,
// never by matching message substrings.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes for the CLI surface.
const (
	ExitSuccess    = 0 // Successful execution
	ExitGeneral    = 1 // General/unknown error
	ExitInput      = 2 // Invalid input
	ExitAuth       = 3 // Authentication failed
	ExitNotFound   = 4 // Resource not found
	ExitPermission = 5 // Permission denied or insufficient funds
)

// WalletError is the structured error type for Tide.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *WalletError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for WalletError. Two wallet errors are the same
// kind when their codes match.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors. This is the complete taxonomy: every error that crosses
// the core boundary wraps one of these.
var (
	ErrValidation = &WalletError{
		Code:     "VALIDATION_FAILED",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrAuthentication = &WalletError{
		Code:     "AUTHENTICATION_FAILED",
		Message:  "authentication failed - wrong PIN or corrupted data",
		ExitCode: ExitAuth,
	}

	ErrDerivationMismatch = &WalletError{
		Code:     "DERIVATION_MISMATCH",
		Message:  "no derivation path reproduces the expected address",
		ExitCode: ExitGeneral,
	}

	ErrRPC = &WalletError{
		Code:     "RPC_REJECTED",
		Message:  "node rejected the request",
		ExitCode: ExitGeneral,
	}

	ErrTransport = &WalletError{
		Code:     "TRANSPORT_FAILED",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	ErrInsufficientFunds = &WalletError{
		Code:     "INSUFFICIENT_FUNDS",
		Message:  "insufficient funds for transaction",
		ExitCode: ExitPermission,
	}

	ErrNotInitialized = &WalletError{
		Code:     "SESSION_NOT_READY",
		Message:  "wallet session not initialized",
		ExitCode: ExitGeneral,
	}

	// Narrower variants. Each carries the code of its parent kind so that
	// errors.Is(err, parent) still matches.

	ErrInvalidAddress = &WalletError{
		Code:     "VALIDATION_FAILED",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &WalletError{
		Code:     "VALIDATION_FAILED",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrInvalidMnemonic = &WalletError{
		Code:     "VALIDATION_FAILED",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrSeedNotFound = &WalletError{
		Code:     "SEED_NOT_FOUND",
		Message:  "no seed record exists",
		ExitCode: ExitNotFound,
	}

	ErrContactNotFound = &WalletError{
		Code:     "CONTACT_NOT_FOUND",
		Message:  "contact not found",
		ExitCode: ExitNotFound,
	}

	ErrSessionNotFound = &WalletError{
		Code:     "SESSION_NOT_FOUND",
		Message:  "no session exists for this handle",
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &WalletError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration is invalid",
		ExitCode: ExitInput,
	}

	ErrPendingConsumed = &WalletError{
		Code:     "PENDING_CONSUMED",
		Message:  "pending transaction already approved or rejected",
		ExitCode: ExitInput,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context, preserving its kind.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
