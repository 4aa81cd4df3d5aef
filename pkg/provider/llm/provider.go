// Package llm defines the Provider interface for chat-completion backends.
//
// bit10voice uses a language model only for questions the keyword
// interpreter cannot place, so the contract is a single blocking Complete.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req and returns the full assistant reply.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
