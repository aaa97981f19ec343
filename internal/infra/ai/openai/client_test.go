package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	domai "github.com/bryanwahyu/mediaexplain/internal/domain/ai"
)

func TestBuildRequest(t *testing.T) {
	c := NewClient("key", "", "")
	req := c.buildRequest(domai.CompletionRequest{
		Messages:    []domai.Message{{Role: domai.RoleSystem, Content: "sys"}, {Role: domai.RoleUser, Content: "hi"}},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if req.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", req.Model)
	}
	if req.MaxTokens != 2000 || req.MaxCompletionTokens != 0 {
		t.Errorf("tokens = %d/%d", req.MaxTokens, req.MaxCompletionTokens)
	}
	if req.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Temperature)
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", req.Messages)
	}

	req = c.buildRequest(domai.CompletionRequest{MaxTokens: 100})
	if req.Temperature == 0 || req.Temperature > 1e-6 {
		t.Errorf("zero temperature sent as %v", req.Temperature)
	}

	req = c.buildRequest(domai.CompletionRequest{Model: "o3-mini", MaxTokens: 100})
	if req.MaxCompletionTokens != 100 || req.MaxTokens != 0 {
		t.Errorf("reasoning tokens = %d/%d", req.MaxTokens, req.MaxCompletionTokens)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want error
	}{
		{&openai.APIError{HTTPStatusCode: 429, Message: "quota"}, domai.ErrQuotaExceeded},
		{&openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, domai.ErrUnauthorized},
		{&openai.RequestError{HTTPStatusCode: 403, Err: errors.New("forbidden")}, domai.ErrUnauthorized},
		{fmt.Errorf("post: %w", context.DeadlineExceeded), domai.ErrTimeout},
	}
	for _, tc := range cases {
		got := classify(tc.err)
		if !errors.Is(got, tc.want) {
			t.Errorf("classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
		if !errors.Is(got, tc.err) {
			t.Errorf("classify(%v) dropped the original error", tc.err)
		}
	}
}

func TestCompleteAgainstFakeServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "x",
			"object": "chat.completion",
			"model":  "gpt-4o-mini-2024",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "**EXPLANATION:** ok"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	c := NewClient("key", "", srv.URL+"/v1")
	got, err := c.Complete(context.Background(), domai.CompletionRequest{
		Messages: []domai.Message{{Role: domai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Content != "**EXPLANATION:** ok" || got.Model != "gpt-4o-mini-2024" || got.TotalTokens != 15 {
		t.Errorf("completion = %+v", got)
	}
}

func TestCompleteQuotaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewClient("key", "", srv.URL+"/v1")
	_, err := c.Complete(context.Background(), domai.CompletionRequest{})
	if !errors.Is(err, domai.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want quota exceeded", err)
	}
}
