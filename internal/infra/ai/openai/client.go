package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/mediaexplain/internal/domain/ai"
)

const defaultModel = "gpt-4o-mini"

type Client struct {
	*openai.Client
	Model string
}

// NewClient builds a client for the OpenAI API or any compatible endpoint
// when baseURL is set.
func NewClient(apiKey, model, baseURL string) *Client {
	return NewClientWithTimeout(apiKey, model, baseURL, 0)
}

// NewClientWithTimeout is NewClient with a per-request HTTP timeout. Zero
// means no timeout beyond the caller's context.
func NewClientWithTimeout(apiKey, model, baseURL string, timeout time.Duration) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

func (c *Client) Complete(ctx context.Context, in domai.CompletionRequest) (domai.Completion, error) {
	req := c.buildRequest(in)
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return domai.Completion{}, fmt.Errorf("failed to create chat completion: %w", classify(err))
	}
	if len(resp.Choices) == 0 {
		return domai.Completion{}, errors.New("chat completion returned no choices")
	}
	return domai.Completion{
		Content:     resp.Choices[0].Message.Content,
		Model:       resp.Model,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}

func (c *Client) Stream(ctx context.Context, in domai.CompletionRequest, onChunk func(string) error) error {
	req := c.buildRequest(in)
	req.Stream = true
	stream, err := c.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to open completion stream: %w", classify(err))
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("completion stream: %w", classify(err))
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			if err := onChunk(chunk); err != nil {
				return err
			}
		}
	}
}

func (c *Client) buildRequest(in domai.CompletionRequest) openai.ChatCompletionRequest {
	model := in.Model
	if model == "" {
		model = c.Model
	}
	msgs := make([]openai.ChatCompletionMessage, 0, len(in.Messages))
	for _, m := range in.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens,
	// they also reject a custom temperature
	if isReasoningModel(model) {
		req.MaxCompletionTokens = in.MaxTokens
	} else {
		req.MaxTokens = in.MaxTokens
		req.Temperature = in.Temperature
		// the field is omitempty; zero would fall back to the API default of 1
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

// classify tags provider errors with the domain sentinels while keeping the
// original error in the chain.
func classify(err error) error {
	var status int
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domai.ErrQuotaExceeded, err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", domai.ErrUnauthorized, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domai.ErrTimeout, err)
	}
	return err
}
