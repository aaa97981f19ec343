package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domai "github.com/bryanwahyu/mediaexplain/internal/domain/ai"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/infra/ai/prompt"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

const (
	fallbackSummary = "Unable to generate AI summary"
	chatMaxTokens   = 1000
)

type Options struct {
	Model string
	// Temperature is sent as given; zero asks for deterministic sampling.
	Temperature    float32
	MaxTokens      int
	MaxChars       int
	ChatContextMax int
}

func (o *Options) defaults() {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2000
	}
	if o.MaxChars <= 0 {
		o.MaxChars = 15000
	}
	if o.ChatContextMax <= 0 {
		o.ChatContextMax = 10000
	}
}

// Synthesizer turns extracted text into an Analysis. Client may be nil when
// no model is configured; Synthesize then returns the fallback analysis.
type Synthesizer struct {
	client domai.Completer
	stream domai.Streamer
	opts   Options
	log    *logger.Logger
}

func NewService(client domai.Completer, opts Options, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	opts.defaults()
	s := &Synthesizer{client: client, opts: opts, log: log.With("service", "AnalysisSynthesizer")}
	if st, ok := client.(domai.Streamer); ok {
		s.stream = st
	}
	return s
}

// Available reports whether a model client is wired.
func (s *Synthesizer) Available() bool { return s.client != nil }

// Synthesize never fails: a model error yields a fallback analysis with
// Error set.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, ft media.FileType, meta media.Metadata) domai.Analysis {
	req := s.explainRequest(text, ft, meta, prompt.GetSystemPrompt())
	if s.client == nil {
		return fallback(modelError(media.KindModelUnavailable, domai.ErrNotConfigured))
	}

	resp, err := s.client.Complete(ctx, req)
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = domai.ErrEmptyReply
	}
	if err != nil {
		err = modelError(media.KindModelCallFailed, err)
		s.log.Warn("ai explanation failed, using fallback", "fileType", ft, "error", err)
		return fallback(err)
	}

	parsed := prompt.ParseReply(resp.Content)
	s.log.Info("ai explanation generated", "fileType", ft, "model", resp.Model, "tokensUsed", resp.TotalTokens)
	return domai.Analysis{
		Explanation: parsed.Explanation,
		Summary:     parsed.Summary,
		KeyPoints:   parsed.KeyPoints,
		Model:       resp.Model,
		TokensUsed:  resp.TotalTokens,
	}
}

// Stream sends the raw explanation to onChunk as the model produces it.
func (s *Synthesizer) Stream(ctx context.Context, text string, ft media.FileType, meta media.Metadata, onChunk func(string) error) error {
	if s.stream == nil {
		return modelError(media.KindModelUnavailable, domai.ErrNotConfigured)
	}
	req := s.explainRequest(text, ft, meta, prompt.GetStreamSystemPrompt())
	if err := s.stream.Stream(ctx, req, onChunk); err != nil {
		return modelError(media.KindModelCallFailed, err)
	}
	return nil
}

// Chat answers a follow-up question using previously extracted text as context.
func (s *Synthesizer) Chat(ctx context.Context, message, contextText string) (string, error) {
	if s.client == nil {
		return "", modelError(media.KindModelUnavailable, domai.ErrNotConfigured)
	}
	if strings.TrimSpace(message) == "" {
		return "", media.E(media.KindInvalidInput, "chat", errors.New("message is required"))
	}
	resp, err := s.client.Complete(ctx, domai.CompletionRequest{
		Model: s.opts.Model,
		Messages: []domai.Message{
			{Role: domai.RoleSystem, Content: prompt.GetChatSystemPrompt(contextText, s.opts.ChatContextMax)},
			{Role: domai.RoleUser, Content: message},
		},
		Temperature: s.opts.Temperature,
		MaxTokens:   chatMaxTokens,
	})
	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = domai.ErrEmptyReply
	}
	if err != nil {
		return "", modelError(media.KindModelCallFailed, err)
	}
	return resp.Content, nil
}

func (s *Synthesizer) explainRequest(text string, ft media.FileType, meta media.Metadata, system string) domai.CompletionRequest {
	hints := prompt.Hints{
		OriginalName: meta.String(media.MetaOriginalName),
		FrameCount:   meta.Int(media.MetaFrameCount),
		PageCount:    meta.Int(media.MetaPageCount),
	}
	return domai.CompletionRequest{
		Model: s.opts.Model,
		Messages: []domai.Message{
			{Role: domai.RoleSystem, Content: system},
			{Role: domai.RoleUser, Content: prompt.BuildUserPrompt(text, string(ft), hints, s.opts.MaxChars)},
		},
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	}
}

func modelError(kind media.Kind, err error) error {
	return &media.Error{Kind: kind, Op: "ai explanation", Err: err}
}

func fallback(err error) domai.Analysis {
	msg := errorMessage(err)
	return domai.Analysis{
		Explanation: fmt.Sprintf("AI explanation unavailable (Error: %s)", msg),
		Summary:     fallbackSummary,
		KeyPoints:   []string{},
		Error:       msg,
	}
}

// errorMessage is the innermost useful message for the fallback text.
func errorMessage(err error) string {
	var me *media.Error
	if errors.As(err, &me) && me.Err != nil {
		err = me.Err
	}
	switch {
	case errors.Is(err, domai.ErrNotConfigured):
		return "OpenAI API key not configured"
	case errors.Is(err, domai.ErrQuotaExceeded):
		return "quota exceeded: " + err.Error()
	}
	return err.Error()
}
