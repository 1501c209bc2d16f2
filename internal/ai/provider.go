package ai

import "context"

// CompletionRequest is a single-turn text generation request.
type CompletionRequest struct {
	Model       string
	System      string // optional system instruction
	Prompt      string
	Temperature float64
	MaxTokens   int  // zero leaves the provider default
	JSON        bool // ask the provider to emit a single JSON object
}

// Completer sends a prompt to an LLM and returns the raw text response.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc lets a plain function act as a Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}
