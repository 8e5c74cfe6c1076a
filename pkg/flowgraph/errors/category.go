// Package errors classifies failures of the services a graph node calls
// (language model, catalog store, image service) so the node can decide
// whether to retry, fall back to a secondary source, or give up.
//
// The package implements a layered approach:
//   - Categorization: map a failure to transient, escalatable or permanent
//   - Retry: handle transient failures with exponential backoff
//   - Fallback: escalatable failures tell the caller to try the next tier
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: rate limits, timeouts, temporary network issues.
	CategoryTransient Category = iota

	// CategoryPermanent indicates neither retry nor fallback will help.
	// Examples: nothing in the catalog matches, authentication failures.
	CategoryPermanent

	// CategoryEscalatable indicates the output was unusable and the next
	// source in the fallback chain should be tried.
	// Examples: empty replies, malformed JSON.
	CategoryEscalatable
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryEscalatable:
		return "escalatable"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Retries is the number of attempts that have been made.
	Retries int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Retries)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Retries)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Escalatable creates an escalatable error.
func Escalatable(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryEscalatable, context)
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent // shouldn't happen, fail safe
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return CategoryPermanent
	}

	var emptyErr *EmptyResponseError
	if errors.As(err, &emptyErr) {
		return CategoryEscalatable
	}

	var formatErr *FormatError
	if errors.As(err, &formatErr) {
		return CategoryEscalatable
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		switch {
		case transportErr.StatusCode == 0:
			return CategoryTransient // connection level failure
		case transportErr.StatusCode == 429, transportErr.StatusCode >= 500:
			return CategoryTransient
		case transportErr.StatusCode == 400:
			return CategoryEscalatable // bad request might be a prompt issue
		default:
			return CategoryPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTransient
	}

	// Unknown errors are permanent (fail safe)
	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// IsEscalatable reports whether the next fallback source should be tried.
func IsEscalatable(err error) bool {
	return Categorize(err) == CategoryEscalatable
}
