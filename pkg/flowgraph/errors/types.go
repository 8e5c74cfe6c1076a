package errors

import "fmt"

// TransportError is a failed call to a remote dependency.
// StatusCode is zero when no response was received.
type TransportError struct {
	Dependency string
	Op         string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Dependency, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Dependency, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// EmptyResponseError indicates a dependency answered with nothing usable.
type EmptyResponseError struct {
	Dependency string
	Op         string
}

// Error implements the error interface.
func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s %s: empty response", e.Dependency, e.Op)
}

// FormatError indicates output that could not be decoded into the
// expected shape (malformed JSON, missing fields, zero entries).
type FormatError struct {
	Input   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("format error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("format error: %s", e.Message)
}

// Unwrap returns the underlying decode error, if any.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// DomainError is a business-level failure such as no perfume matching
// the request. Its message is safe to surface to users.
type DomainError struct {
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return e.Message
}
