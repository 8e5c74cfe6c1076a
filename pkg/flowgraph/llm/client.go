// Package llm defines the language model client used by graph nodes and
// its implementations: an Ark chat model adapter built on eino, and a
// scripted MockClient for tests.
package llm

import (
	"context"
	"errors"
	"strings"

	flowerrors "github.com/banghyang/scentflow/pkg/flowgraph/errors"
)

// Client is a language model that completes prompts.
// Implementations must be safe for concurrent use.
type Client interface {
	// Complete sends a request and waits for the full reply.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Generate sends a single user prompt and returns the trimmed reply text.
// A reply with no text is reported as an EmptyResponseError so callers can
// fall back; call failures are returned as TransportError.
func Generate(ctx context.Context, client Client, prompt string) (string, error) {
	return GenerateWithSystem(ctx, client, "", prompt)
}

// GenerateWithSystem is Generate with a system prompt.
func GenerateWithSystem(ctx context.Context, client Client, system, prompt string) (string, error) {
	resp, err := client.Complete(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", asTransportError("complete", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", &flowerrors.EmptyResponseError{Dependency: "llm", Op: "complete"}
	}
	return strings.TrimSpace(resp.Content), nil
}

// asTransportError keeps already classified errors and wraps the rest.
func asTransportError(op string, err error) error {
	var transportErr *flowerrors.TransportError
	var emptyErr *flowerrors.EmptyResponseError
	switch {
	case errors.As(err, &transportErr), errors.As(err, &emptyErr):
		return err
	}
	return &flowerrors.TransportError{Dependency: "llm", Op: op, Err: err}
}
