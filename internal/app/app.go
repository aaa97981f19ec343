// Package app wires the configured adapters into the extraction pipeline.
// Both the HTTP server and the CLI build on it.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/bryanwahyu/mediaexplain/internal/application"
	appai "github.com/bryanwahyu/mediaexplain/internal/application/ai"
	"github.com/bryanwahyu/mediaexplain/internal/application/extraction"
	"github.com/bryanwahyu/mediaexplain/internal/config"
	domai "github.com/bryanwahyu/mediaexplain/internal/domain/ai"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/infra/ai/openai"
	"github.com/bryanwahyu/mediaexplain/internal/infra/document"
	"github.com/bryanwahyu/mediaexplain/internal/infra/executor/ffmpeg"
	"github.com/bryanwahyu/mediaexplain/internal/infra/httpserver"
	"github.com/bryanwahyu/mediaexplain/internal/infra/ocr/tesseract"
	"github.com/bryanwahyu/mediaexplain/internal/infra/storage"
	"github.com/bryanwahyu/mediaexplain/internal/middleware"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

type App struct {
	Extraction  *extraction.Service
	Synthesizer *appai.Synthesizer
	Store       storage.Store
	Metrics     *middleware.Metrics
	Inventory   httpserver.Inventory
	Health      map[string]middleware.HealthChecker
}

// Build opens the object store and assembles the pipeline. The returned
// closer releases the store client.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, func(), error) {
	for _, dir := range []string{cfg.Server.UploadDir, cfg.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("storage init: %w", err)
	}
	closer := func() {}
	if c, ok := store.(interface{ Close() error }); ok {
		closer = func() { _ = c.Close() }
	}

	ocr := tesseract.NewEngine(cfg.OCR.Language)
	runner := ffmpeg.NewRunner(cfg.Video.FFmpegPath, cfg.Video.FFprobePath)
	if !runner.Available() {
		log.Warn("ffmpeg/ffprobe not found on PATH; audio and video extraction will fail", "ffmpeg", cfg.Video.FFmpegPath)
	}

	var completer domai.Completer
	aiName := ""
	if cfg.AIConfigured() {
		c := openai.NewClientWithTimeout(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		completer = c
		aiName = "openai (" + c.Model + ")"
	} else {
		log.Warn("OpenAI API key not configured; analyses will use the fallback text")
	}
	synth := appai.NewService(completer, appai.Options{
		Model:          cfg.OpenAI.Model,
		Temperature:    cfg.OpenAI.Temperature,
		MaxTokens:      cfg.OpenAI.MaxTokens,
		MaxChars:       cfg.Analysis.MaxChars,
		ChatContextMax: cfg.Analysis.ChatContextMax,
	}, log)

	video := extraction.NewVideoPipeline(runner, ocr, extraction.VideoOptions{
		FramesPerSecond: cfg.Video.FramesPerSecond,
		BatchSize:       cfg.Video.BatchSize,
	}, log)
	dispatcher, err := extraction.NewDispatcher(extraction.Deps{
		OCR:        ocr,
		PDF:        document.NewPDFReader(),
		Documents:  document.NewDocxReader(),
		Transcoder: runner,
		Video:      video,
	})
	if err != nil {
		closer()
		return nil, nil, err
	}

	// avoid a typed-nil ObjectStore when no driver is set
	var objects media.ObjectStore
	if store != nil {
		objects = store
	}
	resolver := extraction.NewResolver(objects, extraction.ResolverOptions{
		Stage:    cfg.Storage.StageURLInputs,
		MaxBytes: cfg.Download.MaxBytes,
		Timeout:  cfg.Download.Timeout,
	}, log)

	metrics := middleware.NewMetrics()
	svc := &extraction.Service{
		Resolver:    resolver,
		Dispatcher:  dispatcher,
		Synthesizer: synth,
		Clock:       application.SystemClock{},
		WorkDir:     cfg.WorkDir,
		Hooks: extraction.Hooks{
			OnScopeClosed: metrics.ObserveScope,
			OnExtracted:   metrics.ObserveExtraction,
			OnAIFallback:  metrics.IncrementAIFallbacks,
		},
		Log: log,
	}

	inv := httpserver.Inventory{
		OCR: fmt.Sprintf("%s %s", ocr.Name(), ocr.Version()),
		PDF: "ledongthuc/pdf",
		Doc: "docx (word/document.xml)",
		AI:  aiName,
	}
	if runner.Available() {
		inv.Video, inv.Audio = "ffmpeg", "ffmpeg"
	}
	health := map[string]middleware.HealthChecker{}
	if store != nil {
		inv.Storage = store.Name()
		health["storage"] = store
	}

	return &App{
		Extraction:  svc,
		Synthesizer: synth,
		Store:       store,
		Metrics:     metrics,
		Inventory:   inv,
		Health:      health,
	}, closer, nil
}
