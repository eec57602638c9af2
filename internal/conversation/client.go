// Package conversation runs the scheduling assistant: an LLM tool-calling
// loop over the booking service, with ordered provider failover and a
// Redis-backed transcript cache.
package conversation

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the completion surface the agent depends on. Both concrete
// providers and the failover wrapper implement it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient builds a chat client for any provider speaking the OpenAI
// chat-completion protocol. An empty baseURL targets api.openai.com; the
// secondary provider only differs in baseURL, key, and model.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
