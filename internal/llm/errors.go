package llm

import "fmt"

// ErrorCode identifies the failure class of a gateway call.
type ErrorCode string

const (
	ErrUnavailable ErrorCode = "MODEL_UNAVAILABLE"
	ErrRateLimited ErrorCode = "MODEL_RATE_LIMITED"
	ErrRejected    ErrorCode = "MODEL_REJECTED"
	ErrEmptyReply  ErrorCode = "MODEL_EMPTY_REPLY"
)

// GatewayError is a structured error for completion failures. Callers treat
// every GatewayError as recoverable: the classifier falls back to chitchat,
// the normalizer to Other, the interpreter to keyword scanning.
type GatewayError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the retry loop may attempt the call again.
func (e *GatewayError) IsRetryable() bool { return e.Retryable }

// ParseError signals that a model reply carried no parseable JSON payload.
// It is recoverable, never fatal to the turn.
type ParseError struct {
	Text  string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no valid JSON in model reply: %v", e.Cause)
	}
	return "no valid JSON in model reply"
}

func (e *ParseError) Unwrap() error { return e.Cause }
