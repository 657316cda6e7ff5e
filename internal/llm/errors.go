package llm

import "errors"

var (
	// ErrUnavailable indicates the provider could not be reached.
	ErrUnavailable = errors.New("llm provider unavailable")

	// ErrTimeout indicates the request exceeded the configured timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrInvalidOutput indicates the provider answered without usable text.
	ErrInvalidOutput = errors.New("invalid llm output")

	// ErrRejected indicates the provider refused the request outright, such
	// as a bad API key or malformed body. It is not retried.
	ErrRejected = errors.New("llm request rejected")

	// ErrRetryExhausted indicates all retry attempts have been exhausted.
	ErrRetryExhausted = errors.New("llm retry attempts exhausted")

	// ErrUnknownProvider indicates a provider name with no implementation.
	ErrUnknownProvider = errors.New("unknown llm provider")
)
