package ai

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Completion struct {
	Content     string
	Model       string
	TotalTokens int
}

// Completer runs a single chat completion.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Streamer runs a chat completion and hands each content delta to onChunk.
// Returning an error from onChunk aborts the stream.
type Streamer interface {
	Stream(ctx context.Context, req CompletionRequest, onChunk func(string) error) error
}
