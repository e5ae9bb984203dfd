package errors

import (
	"errors"
	"fmt"
)

// Error messages.
var (
	ErrEmptyCode              = errors.New("code is empty")
	ErrNoTestCases            = errors.New("no test cases supplied")
	ErrInvalidLanguageType    = errors.New("invalid language type")
	ErrSubmissionNotFound     = errors.New("submission not found")
	ErrSubmissionExists       = errors.New("submission already exists")
	ErrSubmissionNotTerminal  = errors.New("submission is not in a terminal state")
	ErrMissingCredentials     = errors.New("missing credentials")
	ErrMalformedReview        = errors.New("malformed review response")
	ErrMalformedDetection     = errors.New("malformed detection response")
	ErrUnknownProvider        = errors.New("unknown provider")
	ErrFailedToGetFreeWorker  = errors.New("failed to get free worker")
	ErrUnknownMessageType     = errors.New("unknown message type")
	ErrContainerTimeout       = errors.New("container runtime timed out")
	ErrOutcomeCountMismatch   = errors.New("outcome count does not match test case count")
	ErrRabbitMQConnectRetries = errors.New("failed to connect to rabbitmq after retries")
	ErrResponderClosed        = errors.New("responder is closed")
	ErrNoResponseQueue        = errors.New("no response queue to publish to")
)

// ValidationError is returned when a submission is rejected at intake.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type ExecutionErrorKind string

const (
	ExecutionErrorInvalidInput        ExecutionErrorKind = "invalid_input"
	ExecutionErrorUnsupportedLanguage ExecutionErrorKind = "unsupported_language"
	ExecutionErrorTransport           ExecutionErrorKind = "transport"
	ExecutionErrorTimeout             ExecutionErrorKind = "timeout"
	ExecutionErrorSandbox             ExecutionErrorKind = "sandbox"
)

// ExecutionError is returned by an executor when a single run could not be
// completed by the sandbox.
type ExecutionError struct {
	Kind    ExecutionErrorKind
	Message string
	Err     error
}

func NewExecutionError(kind ExecutionErrorKind, err error, format string, args ...any) *ExecutionError {
	return &ExecutionError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// ReviewError is returned when the qualitative review could not be produced.
type ReviewError struct {
	Reason string
	Err    error
}

func (e *ReviewError) Error() string {
	if e.Err == nil {
		return "review failed: " + e.Reason
	}
	return fmt.Sprintf("review failed: %s: %s", e.Reason, e.Err)
}

func (e *ReviewError) Unwrap() error { return e.Err }

// DetectionError is returned when the authorship signal could not be produced.
type DetectionError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *DetectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s detection failed: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s detection failed: %s: %s", e.Provider, e.Reason, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// AggregationInvariantViolation signals a coordinator bug. It must never be
// swallowed.
type AggregationInvariantViolation struct {
	Expected int
	Got      int
}

func (e *AggregationInvariantViolation) Error() string {
	return fmt.Sprintf("%s: expected %d, got %d", ErrOutcomeCountMismatch, e.Expected, e.Got)
}

func (e *AggregationInvariantViolation) Unwrap() error { return ErrOutcomeCountMismatch }
