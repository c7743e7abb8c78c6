package adapters

import (
	"context"

	"github.com/snitchlab/snitchbot/internal/adapters/llm"
)

// LLM is the chat-completion surface the adjudicator talks to. The
// judge's decision boundary lives entirely on the other side of it.
type LLM interface {
	ChatCompletion(ctx context.Context, messages []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error)
}
