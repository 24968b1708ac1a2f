package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for skillbase.
// It provides rich context for error handling, logging, and the
// robot-mode envelope.
type Error struct {
	// Code is the unique error code (e.g., "ERR_101_SKILL_NOT_FOUND").
	Code string

	// Kind is the error classification from the taxonomy.
	Kind Kind

	// Message is the human-readable error message. It must never
	// contain ANSI escape codes.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Recoverable indicates whether the caller can correct and retry.
	Recoverable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with Error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Kind and recoverability are derived from the code.
func New(code string, message string, cause error) *Error {
	kind := kindFromCode(code)
	return &Error{
		Code:        code,
		Kind:        kind,
		Message:     message,
		Cause:       cause,
		Recoverable: isRecoverableKind(kind),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code string, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFound creates a skill-not-found error with a nearest-id suggestion
// when known contains a close match.
func NotFound(id string, known []string) *Error {
	e := Newf(ErrCodeSkillNotFound, "skill not found: %s", id).WithDetail("id", id)
	if nearest, ok := Nearest(id, known); ok {
		e.Suggestion = fmt.Sprintf("did you mean %q?", nearest)
	}
	return e
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeQueryInvalid, message, cause)
}

// BudgetInfeasible reports a pack whose required blocks alone exceed the
// budget. Both figures travel in the details so callers can report them.
func BudgetInfeasible(required, budget int) *Error {
	return Newf(ErrCodeBudgetInfeasible,
		"required sections need %d tokens but budget is %d", required, budget).
		WithDetail("required_tokens", fmt.Sprintf("%d", required)).
		WithDetail("token_budget", fmt.Sprintf("%d", budget)).
		WithSuggestion("raise disclosure.token_budget or drop required sections")
}

// Timeout creates a deadline-expiry error for the named operation.
func Timeout(op string, cause error) *Error {
	return New(ErrCodeTimeout, fmt.Sprintf("%s timed out", op), cause)
}

// Corruption reports a hash mismatch or partial write for a record.
// The affected record must be rebuilt.
func Corruption(message string, cause error) *Error {
	return New(ErrCodeCorruption, message, cause).
		WithSuggestion("run 'skillbase index' to rebuild the affected records")
}

// External propagates a collaborator failure verbatim with a wrapped cause.
func External(message string, cause error) *Error {
	return New(ErrCodeSubprocess, message, cause)
}

// IsRecoverable checks if an error is recoverable.
// Non-Error values are treated as unrecoverable internal failures.
func IsRecoverable(err error) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Recoverable
	}
	return false
}

// KindOf extracts the kind from an error chain.
// Returns KindInternal for non-Error values.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the error code from an error chain.
// Returns ErrCodeInternal for non-Error values.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// AsError converts any error into an *Error, wrapping unknown values
// as internal errors so the envelope always has a code.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}
	return Wrap(ErrCodeInternal, err)
}
