package conversation

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tecmax-dev/sisvida-sub005/pkg/logging"
)

// Provider is one entry in the failover chain. FallThrough decides whether an
// error from this provider should hand the identical request to the next one;
// errors it rejects are returned to the caller immediately.
type Provider struct {
	Name        string
	Client      ChatClient
	FallThrough func(error) bool
}

// FailoverClient tries providers in order. The request payload is passed to
// each provider unchanged except for the model override, so a transcript
// built against one provider replays against the next.
type FailoverClient struct {
	providers []Provider
	models    []string
	logger    *logging.Logger
	metrics   *Metrics
}

// NewFailoverClient builds the ordered chain. models[i] overrides the request
// model for providers[i]; an empty entry keeps the request's own model.
func NewFailoverClient(providers []Provider, models []string, logger *logging.Logger, metrics *Metrics) *FailoverClient {
	if len(providers) == 0 {
		panic("conversation: at least one provider required")
	}
	if len(models) != len(providers) {
		panic("conversation: one model entry per provider required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &FailoverClient{
		providers: providers,
		models:    models,
		logger:    logger,
		metrics:   metrics,
	}
}

// CreateChatCompletion implements ChatClient.
func (c *FailoverClient) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error
	for i, p := range c.providers {
		req := request
		if c.models[i] != "" {
			req.Model = c.models[i]
		}

		resp, err := p.Client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		last := i == len(c.providers)-1
		if last || p.FallThrough == nil || !p.FallThrough(err) {
			return openai.ChatCompletionResponse{}, err
		}

		c.logger.Warn("llm provider failed, trying next",
			"provider", p.Name,
			"next", c.providers[i+1].Name,
			"error", err.Error(),
		)
		c.metrics.ObserveFailover(p.Name)
	}
	return openai.ChatCompletionResponse{}, lastErr
}

// QuotaExhausted reports whether the provider refused the request because its
// account has no credit left. Plain rate limiting is transient and does not
// count; 429 only qualifies when the provider tags it insufficient_quota.
func QuotaExhausted(err error) bool {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.HTTPStatusCode == 402 {
		return true
	}
	if apiErr.HTTPStatusCode != 429 {
		return false
	}
	if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
		return true
	}
	return strings.Contains(apiErr.Message, "insufficient_quota") ||
		strings.Contains(apiErr.Message, "exceeded your current quota")
}

// IsRateLimited reports a transient 429 that is not a quota exhaustion.
func IsRateLimited(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 && !QuotaExhausted(err)
}

// IsTimeout reports deadline or cancellation failures on the provider call.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
