// Package llm abstracts the hosted text-generation backend behind a single
// request/response contract with a bounded timeout. Generator failure is an
// ordinary outcome here, not an exceptional one.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role/text pair in the prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting from the backend.
type Usage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// Request is a single completion request. Temperature below zero means
// "backend default".
type Request struct {
	Model       string
	System      []string
	Messages    []Message
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// Response carries the backend's text plus usage metrics.
type Response struct {
	Text       string
	Usage      Usage
	StopReason string
}

// Client is the generator backend. Implementations must respect ctx deadlines;
// the turn engine always calls with an explicit timeout.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
