// Package nexus is the public QUIC transport facade: Application,
// Server, Client, Connection, and Stream, wired over the quicstack.Stack
// boundary.
package nexus

import "fmt"

// ErrorCode enumerates QuicErrorCode verbatim.
type ErrorCode int

const (
	ErrSuccess ErrorCode = iota

	// Initialization
	ErrAPIInitializationFailed
	ErrRegistrationInitializationFailed
	ErrConfigurationInitializationFailed
	ErrConfigurationLoadCredentialFailed
	ErrMissingCertificate
	ErrMissingPrivateKey

	// State violation
	ErrUninitialized
	ErrAlreadyInitialized
	ErrAlreadyListening
	ErrClientNotConnected
	ErrClientAlreadyConnected

	// Operation
	ErrListenerInitializationFailed
	ErrListenerStartFailed
	ErrConnectionInitializationFailed
	ErrConnectionStartFailed
	ErrStreamOpenFailed
	ErrStreamStartFailed
	ErrSendFailed

	// Map
	ErrValueAlreadyExists
	ErrValueDoesNotExist
	ErrValueEmplaceFailed

	// Other
	ErrMemoryAllocationFailed
	ErrNotYetImplemented
	ErrNoSuchImplementation
)

var errorCodeText = map[ErrorCode]string{
	ErrSuccess:                           "success",
	ErrAPIInitializationFailed:           "api_initialization_failed",
	ErrRegistrationInitializationFailed:  "registration_initialization_failed",
	ErrConfigurationInitializationFailed: "configuration_initialization_failed",
	ErrConfigurationLoadCredentialFailed: "configuration_load_credential_failed",
	ErrMissingCertificate:                "missing_certificate",
	ErrMissingPrivateKey:                 "missing_private_key",
	ErrUninitialized:                     "uninitialized",
	ErrAlreadyInitialized:                "already_initialized",
	ErrAlreadyListening:                  "already_listening",
	ErrClientNotConnected:                "client_not_connected",
	ErrClientAlreadyConnected:            "client_already_connected",
	ErrListenerInitializationFailed:      "listener_initialization_failed",
	ErrListenerStartFailed:               "listener_start_failed",
	ErrConnectionInitializationFailed:    "connection_initialization_failed",
	ErrConnectionStartFailed:             "connection_start_failed",
	ErrStreamOpenFailed:                  "stream_open_failed",
	ErrStreamStartFailed:                 "stream_start_failed",
	ErrSendFailed:                        "send_failed",
	ErrValueAlreadyExists:                "value_already_exists",
	ErrValueDoesNotExist:                 "value_does_not_exists",
	ErrValueEmplaceFailed:                "value_emplace_failed",
	ErrMemoryAllocationFailed:            "memory_allocation_failed",
	ErrNotYetImplemented:                 "not_yet_implemented",
	ErrNoSuchImplementation:              "no_such_implementation",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeText[c]; ok {
		return s
	}
	return "unknown_error_code"
}

// Error is the result type every fallible API function returns. It carries an optional wrapped cause
// for errors that originate below the facade (e.g. a quicstack.Stack
// failure).
type Error struct {
	Code  ErrorCode
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("nexus: %s: %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("nexus: %s", e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// newErr constructs an *Error, optionally wrapping cause.
func newErr(code ErrorCode, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}
