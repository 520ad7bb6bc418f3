// Package errors provides standardized error codes for the xlg host and its
// control surfaces.
//
// Error codes follow the format {domain}.{error} where:
//   - domain: The subsystem that generated the error (ipc, backend, library, config, storage, deck)
//   - error: The specific error type within that domain
//
// Codes are stable so the CLI and plugin can branch on them; human-readable
// messages are carried alongside.
package errors

import (
	"errors"
	"fmt"
)

// Error codes by domain.
const (
	// IPC domain - command socket lifecycle
	CodeIPCSocketInUse     = "ipc.socket_in_use"     // Another live server answers on the path
	CodeIPCSocketPath      = "ipc.socket_path"       // Socket path empty, too long, or not a socket
	CodeIPCListenFailed    = "ipc.listen_failed"     // Bind or listen failed
	CodeIPCAlreadyStarted  = "ipc.already_started"   // Start called twice
	CodeIPCNotRunning      = "ipc.not_running"       // No server reachable on the path
	CodeIPCConnectionLost  = "ipc.connection_lost"   // Established connection dropped
	CodeIPCRequestTimedOut = "ipc.request_timed_out" // No response within the request timeout

	// Backend domain - playback backends
	CodeBackendAuthDenied  = "backend.auth_denied" // Authorization step refused
	CodeBackendUnavailable = "backend.unavailable" // Backend could not be reached
	CodeBackendCommand     = "backend.command"     // A playback operation failed
	CodeBackendScript      = "backend.script"      // Scripting host returned an error

	// Library domain - favorite submission
	CodeLibraryTokenMissing = "library.token_missing" // No library-write token configured
	CodeLibraryRateLimited  = "library.rate_limited"  // Submission dropped by the rate limiter
	CodeLibraryWriteFailed  = "library.write_failed"  // Network call failed or was rejected

	// Config domain
	CodeConfigNotFound = "config.not_found" // Explicit config file missing
	CodeConfigInvalid  = "config.invalid"   // Config file could not be parsed

	// Storage domain
	CodeStorageOpenFailed  = "storage.open_failed"  // Database open failed
	CodeStorageQueryFailed = "storage.query_failed" // Database query failed
	CodeStorageSaveFailed  = "storage.save_failed"  // Failed to save data

	// Deck domain - UI event channel
	CodeDeckDialFailed   = "deck.dial_failed"   // Could not reach the UI host
	CodeDeckInvalidEvent = "deck.invalid_event" // Malformed inbound event

	// General domain - catch-all errors
	CodeUnknown  = "error.unknown"  // Unknown error
	CodeInternal = "error.internal" // Internal error
)

// CodedError wraps an error with a stable error code.
type CodedError struct {
	Code    string // Stable error code (e.g., "ipc.socket_in_use")
	Message string // Human-readable error message
	Cause   error  // Underlying error (may be nil)
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// New creates a new CodedError with the given code and message.
func New(code, message string) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new CodedError wrapping an existing error.
func Wrap(code, message string, cause error) *CodedError {
	return &CodedError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetCode extracts the error code from an error.
// Falls back to CodeUnknown for errors that carry no code.
func GetCode(err error) string {
	if err == nil {
		return ""
	}

	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}

	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	return GetCode(err) == code
}

// Common error constructors.

// SocketInUse creates an "ipc.socket_in_use" error.
func SocketInUse(path string) *CodedError {
	return New(CodeIPCSocketInUse, fmt.Sprintf("command socket already in use: %s", path))
}

// SocketPath creates an "ipc.socket_path" error.
func SocketPath(reason string) *CodedError {
	return New(CodeIPCSocketPath, reason)
}

// ListenFailed creates an "ipc.listen_failed" error.
func ListenFailed(path string, cause error) *CodedError {
	return Wrap(CodeIPCListenFailed, fmt.Sprintf("failed to listen on command socket %s", path), cause)
}

// NotRunning creates an "ipc.not_running" error.
// The host is not running or not reachable on the socket.
func NotRunning(path string, cause error) *CodedError {
	return Wrap(CodeIPCNotRunning, fmt.Sprintf("player not running (socket %s)", path), cause)
}

// RequestTimedOut creates an "ipc.request_timed_out" error.
func RequestTimedOut(command string, cause error) *CodedError {
	return Wrap(CodeIPCRequestTimedOut, fmt.Sprintf("no response to %q", command), cause)
}

// ConnectionLost creates an "ipc.connection_lost" error.
func ConnectionLost(cause error) *CodedError {
	return Wrap(CodeIPCConnectionLost, "command socket connection lost", cause)
}

// AuthorizationDenied creates a "backend.auth_denied" error.
// Startup aborts when the primary backend refuses authorization.
func AuthorizationDenied(backend string, cause error) *CodedError {
	return Wrap(CodeBackendAuthDenied, fmt.Sprintf("%s authorization denied", backend), cause)
}

// BackendUnavailable creates a "backend.unavailable" error.
func BackendUnavailable(backend string, cause error) *CodedError {
	return Wrap(CodeBackendUnavailable, fmt.Sprintf("%s unavailable", backend), cause)
}

// BackendCommand creates a "backend.command" error.
func BackendCommand(backend, op string, cause error) *CodedError {
	return Wrap(CodeBackendCommand, fmt.Sprintf("%s %s failed", backend, op), cause)
}

// ScriptFailed creates a "backend.script" error.
// output is the scripting host's diagnostic text, if any.
func ScriptFailed(output string, cause error) *CodedError {
	msg := "script failed"
	if output != "" {
		msg = fmt.Sprintf("script failed: %s", output)
	}
	return Wrap(CodeBackendScript, msg, cause)
}

// LibraryTokenMissing creates a "library.token_missing" error.
func LibraryTokenMissing(key string) *CodedError {
	return New(CodeLibraryTokenMissing, fmt.Sprintf("library token %s is not configured", key))
}

// LibraryRateLimited creates a "library.rate_limited" error.
func LibraryRateLimited() *CodedError {
	return New(CodeLibraryRateLimited, "library write dropped by rate limiter")
}

// LibraryWriteFailed creates a "library.write_failed" error.
func LibraryWriteFailed(id string, cause error) *CodedError {
	return Wrap(CodeLibraryWriteFailed, fmt.Sprintf("failed to add %s to library", id), cause)
}

// ConfigNotFound creates a "config.not_found" error.
func ConfigNotFound(path string) *CodedError {
	return New(CodeConfigNotFound, fmt.Sprintf("config file not found: %s", path))
}

// ConfigInvalid creates a "config.invalid" error.
func ConfigInvalid(path string, cause error) *CodedError {
	return Wrap(CodeConfigInvalid, fmt.Sprintf("failed to parse config file %s", path), cause)
}

// StorageOpenFailed creates a "storage.open_failed" error.
func StorageOpenFailed(path string, cause error) *CodedError {
	return Wrap(CodeStorageOpenFailed, fmt.Sprintf("failed to open database %s", path), cause)
}

// StorageQueryFailed creates a "storage.query_failed" error.
func StorageQueryFailed(what string, cause error) *CodedError {
	return Wrap(CodeStorageQueryFailed, fmt.Sprintf("failed to query %s", what), cause)
}

// StorageSaveFailed creates a "storage.save_failed" error.
func StorageSaveFailed(what string, cause error) *CodedError {
	return Wrap(CodeStorageSaveFailed, fmt.Sprintf("failed to save %s", what), cause)
}

// DeckDialFailed creates a "deck.dial_failed" error.
func DeckDialFailed(url string, cause error) *CodedError {
	return Wrap(CodeDeckDialFailed, fmt.Sprintf("cannot reach control surface at %s", url), cause)
}

// DeckInvalidEvent creates a "deck.invalid_event" error.
func DeckInvalidEvent(cause error) *CodedError {
	return Wrap(CodeDeckInvalidEvent, "invalid control surface event", cause)
}

// Internal creates an "error.internal" error.
func Internal(message string, cause error) *CodedError {
	return Wrap(CodeInternal, message, cause)
}
