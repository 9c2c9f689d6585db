package domain

import (
	"errors"
	"fmt"
)

// Category sentinels.
var (
	ErrTimeout      = fmt.Errorf("operation timed out")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrConfigLoad   = fmt.Errorf("failed to load configuration")
	ErrDecryption   = fmt.Errorf("decryption failed")
)

// Sentinel errors for the wallet tool boundary. They are recorded on
// WalletResult.Cause and never returned from an invocation.
var (
	ErrToolLaunch        = fmt.Errorf("wallet tool could not be started")
	ErrToolStderr        = fmt.Errorf("wallet tool wrote to stderr")
	ErrMalformedResponse = fmt.Errorf("wallet tool response is not a valid envelope")
	ErrEnvelopeFailure   = fmt.Errorf("wallet tool reported failure")
	ErrUnknownOperation  = fmt.Errorf("unknown wallet operation")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Invoker.Invoke")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ErrorCode is a machine-parseable error category for logs and CLI output.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDecryption        ErrorCode = "DECRYPTION"
	CodeToolLaunch        ErrorCode = "TOOL_LAUNCH"
	CodeToolStderr        ErrorCode = "TOOL_STDERR"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	CodeEnvelopeFailure   ErrorCode = "ENVELOPE_FAILURE"
	CodeUnknownOperation  ErrorCode = "UNKNOWN_OPERATION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrTimeout:           CodeTimeout,
	ErrInvalidInput:      CodeInvalidInput,
	ErrConfigLoad:        CodeConfigLoad,
	ErrDecryption:        CodeDecryption,
	ErrToolLaunch:        CodeToolLaunch,
	ErrToolStderr:        CodeToolStderr,
	ErrMalformedResponse: CodeMalformedResponse,
	ErrEnvelopeFailure:   CodeEnvelopeFailure,
	ErrUnknownOperation:  CodeUnknownOperation,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	// Fast path: direct sentinel lookup.
	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}
