package llm

import "context"

// Provider is a text-generation backend. Both the chunking oracle and the
// answer composer go through this interface, so any provider works for both.
type Provider interface {
	// Complete runs one completion round-trip.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name identifies the provider in logs and error messages.
	Name() string
}
