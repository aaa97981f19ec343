package extraction

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/mediaexplain/internal/application"
	"github.com/bryanwahyu/mediaexplain/internal/application/artifacts"
	domai "github.com/bryanwahyu/mediaexplain/internal/domain/ai"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

// Synthesizer produces the analysis for extracted text. It never fails.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, ft media.FileType, meta media.Metadata) domai.Analysis
}

// Hooks observe pipeline outcomes; any of them may be nil.
type Hooks struct {
	OnScopeClosed func(artifacts.Stats)
	OnExtracted   func(ft media.FileType, err error)
	OnAIFallback  func()
}

type Service struct {
	Resolver    *Resolver
	Dispatcher  *Dispatcher
	Synthesizer Synthesizer
	Clock       application.Clock
	// WorkDir is the parent directory for per-request work dirs.
	WorkDir string
	Hooks   Hooks
	Log     *logger.Logger
}

// Extract runs the whole pipeline for one input. Every artifact the run
// creates, including an uploaded input file, is released before it returns.
func (s *Service) Extract(ctx context.Context, in Input) (*Response, error) {
	// a client disconnect must not abort extraction midway or skip cleanup
	ctx = context.WithoutCancel(ctx)
	log := s.logger()

	scope := artifacts.NewScope(log)
	if s.Hooks.OnScopeClosed != nil {
		scope.OnClose(s.Hooks.OnScopeClosed)
	}
	defer scope.Close(ctx)

	req := &Request{ID: uuid.NewString(), Input: in, Scope: scope}
	log = log.With("request_id", req.ID, "input", in.Kind.String())

	workDir, err := os.MkdirTemp(s.WorkDir, "extract-*")
	if err != nil {
		if in.Kind == InputUpload && in.Path != "" {
			scope.TrackFile(in.Path)
		}
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	scope.TrackDir(workDir)
	req.WorkDir = workDir

	path, err := s.Resolver.Resolve(ctx, in, req)
	if err != nil {
		log.Warn("input resolution failed", "kind", media.KindOf(err).String(), "error", err)
		return nil, err
	}

	if req.StagedKey != "" {
		log = log.With("stagedKey", req.StagedKey)
	}
	req.FileType = media.Classify(path)
	log = log.With("fileType", req.FileType, "originalName", req.OriginalName)
	log.Info("extracting")

	start := s.now()
	ext, err := s.Dispatcher.Extract(ctx, req, path, req.FileType)
	if s.Hooks.OnExtracted != nil {
		s.Hooks.OnExtracted(req.FileType, err)
	}
	if err != nil {
		log.Warn("extraction failed", "kind", media.KindOf(err).String(), "error", err)
		return nil, err
	}
	log.Info("text extracted", "chars", len([]rune(ext.Text)), "took", s.now().Sub(start).String())

	meta := media.Metadata{
		media.MetaOriginalName: req.OriginalName,
		media.MetaFileType:     string(req.FileType),
	}
	meta.Merge(ext.Metadata)

	analysis := s.Synthesizer.Synthesize(ctx, ext.Text, req.FileType, meta)
	if analysis.Degraded() && s.Hooks.OnAIFallback != nil {
		s.Hooks.OnAIFallback()
	}

	scope.Close(ctx)

	meta[media.MetaProcessedAt] = s.now().UTC().Format(time.RFC3339)
	if analysis.Degraded() {
		meta["aiError"] = analysis.Error
	} else {
		meta["aiModel"] = analysis.Model
		meta["tokensUsed"] = analysis.TokensUsed
	}

	return &Response{
		Success:       true,
		ExtractedText: ext.Text,
		AIExplanation: analysis.Explanation,
		Summary:       analysis.Summary,
		KeyPoints:     analysis.KeyPoints,
		Metadata:      meta,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
