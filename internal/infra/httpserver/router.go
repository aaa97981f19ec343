package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bryanwahyu/mediaexplain/internal/application/extraction"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/middleware"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

const (
	version   = "2.0.0"
	usageHint = `Send file as multipart/form-data with key "file" or JSON with {"url": "your-file-url"}`
)

// Extractor runs the extraction pipeline for one input.
type Extractor interface {
	Extract(ctx context.Context, in extraction.Input) (*extraction.Response, error)
}

// Assistant answers follow-up questions and streams explanations.
type Assistant interface {
	Available() bool
	Chat(ctx context.Context, message, contextText string) (string, error)
	Stream(ctx context.Context, text string, ft media.FileType, meta media.Metadata, onChunk func(string) error) error
}

// Inventory names the backend serving each capability. An empty value means
// the capability is not configured.
type Inventory struct {
	OCR     string `json:"ocr"`
	Video   string `json:"video"`
	Audio   string `json:"audio"`
	PDF     string `json:"pdf"`
	Doc     string `json:"doc"`
	Storage string `json:"storage"`
	AI      string `json:"ai"`
}

type Options struct {
	UploadDir      string
	MaxUploadBytes int64
	Inventory      Inventory
	Health         map[string]middleware.HealthChecker
	Metrics        *middleware.Metrics
	// ValidateURL rejects URL inputs before any work starts. Defaults to
	// middleware.ValidateURL.
	ValidateURL func(string) error
	Log         *logger.Logger
}

type Router struct {
	extractor Extractor
	assistant Assistant
	opts      Options
	log       *logger.Logger
}

func NewRouter(extractor Extractor, assistant Assistant, opts Options) http.Handler {
	if opts.ValidateURL == nil {
		opts.ValidateURL = middleware.ValidateURL
	}
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	r := &Router{extractor: extractor, assistant: assistant, opts: opts, log: log.With("component", "router")}

	mux := chi.NewRouter()
	mux.Get("/", r.handleIndex)
	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	if opts.Metrics != nil {
		mux.Get("/metrics", opts.Metrics.Handler)
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/extract", r.wrap(r.handleExtract))
		rt.Get("/extract/health", r.handleExtractHealth)
		rt.Post("/chat", r.wrap(r.handleChat))
		rt.Post("/explain/stream", r.wrap(r.handleExplainStream))
	})

	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found")
	})
	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= 500 {
				r.log.Error("request failed", "path", req.URL.Path, "status", status, "error", err)
			}
			body := map[string]any{"success": false, "error": err.Error()}
			var ue usageError
			if errors.As(err, &ue) {
				body["usage"] = usageHint
			}
			_ = writeJSON(w, status, body)
		}
	}
}

// usageError is a 400 that also carries the usage hint.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func statusFor(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return http.StatusBadRequest
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return http.StatusRequestEntityTooLarge
	}
	switch media.KindOf(err) {
	case media.KindInvalidInput:
		return http.StatusBadRequest
	case media.KindUnsupportedType:
		return http.StatusUnsupportedMediaType
	case media.KindDownloadFailed:
		switch {
		case errors.Is(err, media.ErrDownloadTooLarge):
			return http.StatusRequestEntityTooLarge
		case errors.Is(err, media.ErrDownloadTimeout):
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case media.KindStorageNotConfigured, media.KindModelUnavailable:
		return http.StatusServiceUnavailable
	case media.KindStorageOperationFailed, media.KindModelCallFailed:
		return http.StatusBadGateway
	case media.KindExtractionFailed:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

var errNoInput = usageError{msg: "No file or URL provided"}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	formats := map[string][]string{}
	for _, t := range media.AllTypes() {
		formats[string(t)] = media.Extensions(t)
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Content to Text API with AI Explanation",
		"version":     version,
		"description": "Extract text from any file type and get intelligent AI-powered explanations",
		"endpoints": map[string]string{
			"/api/extract":        "POST - Extract text from files or URLs and get AI explanation",
			"/api/extract/health": "GET - Extraction backends",
			"/api/chat":           "POST - Ask a question about previously extracted text",
			"/api/explain/stream": "POST - Stream an explanation as server-sent events",
			"/health":             "GET - Health check",
			"/metrics":            "GET - Service metrics",
		},
		"supportedFormats": formats,
		"usage": map[string]string{
			"file": `Send file as multipart/form-data with key "file"`,
			"url":  `Send JSON with {"url": "your-file-url"}`,
		},
	})
}

// POST /api/extract
// multipart/form-data with "file", or JSON {"url": "..."}
func (r *Router) handleExtract(w http.ResponseWriter, req *http.Request) error {
	in, err := r.readInput(w, req)
	if err != nil {
		return err
	}
	resp, err := r.extractor.Extract(req.Context(), in)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, resp)
}

func (r *Router) readInput(w http.ResponseWriter, req *http.Request) (extraction.Input, error) {
	mt, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	switch mt {
	case "multipart/form-data":
		if r.opts.MaxUploadBytes > 0 {
			req.Body = http.MaxBytesReader(w, req.Body, r.opts.MaxUploadBytes)
		}
		return r.saveUpload(req)
	case "application/json":
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return extraction.Input{}, media.E(media.KindInvalidInput, "decode request", err)
		}
		return r.urlInput(body.URL)
	case "application/x-www-form-urlencoded":
		return r.urlInput(req.PostFormValue("url"))
	}
	return extraction.Input{}, errNoInput
}

func (r *Router) urlInput(raw string) (extraction.Input, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return extraction.Input{}, errNoInput
	}
	if err := r.opts.ValidateURL(raw); err != nil {
		return extraction.Input{}, media.E(media.KindInvalidInput, "validate url", err)
	}
	return extraction.URLInput(raw), nil
}

// saveUpload streams the "file" part to <ms>-<uuid><ext> in the upload dir.
// From here on the pipeline owns the file and removes it.
func (r *Router) saveUpload(req *http.Request) (extraction.Input, error) {
	mr, err := req.MultipartReader()
	if err != nil {
		return extraction.Input{}, media.E(media.KindInvalidInput, "read multipart", err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return extraction.Input{}, errNoInput
		}
		if err != nil {
			return extraction.Input{}, media.E(media.KindInvalidInput, "read multipart", err)
		}
		if part.FormName() == "url" && part.FileName() == "" {
			v, _ := io.ReadAll(io.LimitReader(part, 8<<10))
			part.Close()
			if s := strings.TrimSpace(string(v)); s != "" {
				return r.urlInput(s)
			}
			continue
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		original := middleware.SanitizeFilename(part.FileName())
		name := fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(original)))
		path := filepath.Join(r.opts.UploadDir, name)
		err = copyToFile(path, part)
		part.Close()
		if err != nil {
			os.Remove(path)
			return extraction.Input{}, err
		}
		return extraction.UploadInput(path, original), nil
	}
}

func copyToFile(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return fmt.Errorf("save upload: %w", err)
	}
	return f.Close()
}

// GET /api/extract/health
func (r *Router) handleExtractHealth(w http.ResponseWriter, req *http.Request) {
	inv := r.opts.Inventory
	services := map[string]string{}
	for k, v := range map[string]string{
		"ocr": inv.OCR, "video": inv.Video, "audio": inv.Audio, "pdf": inv.PDF,
		"doc": inv.Doc, "storage": inv.Storage, "ai": inv.AI,
	} {
		if v == "" {
			v = "not configured"
		}
		services[k] = v
	}
	_ = writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"services": services,
		"note":     "Speech-to-text requires external API integration",
	})
}

// POST /api/chat
// Body: {"message": "...", "context": "<previously extracted text>"}
func (r *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Message string `json:"message"`
		Context string `json:"context"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return media.E(media.KindInvalidInput, "decode request", err)
	}
	answer, err := r.assistant.Chat(req.Context(), body.Message, body.Context)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "response": answer})
}

// POST /api/explain/stream
// Body: {"text": "...", "fileType": "pdf", "metadata": {...}}
func (r *Router) handleExplainStream(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text     string         `json:"text"`
		FileType string         `json:"fileType"`
		Metadata media.Metadata `json:"metadata"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return media.E(media.KindInvalidInput, "decode request", err)
	}
	if strings.TrimSpace(body.Text) == "" {
		return media.E(media.KindInvalidInput, "explain", errors.New("text is required"))
	}
	if !r.assistant.Available() {
		return media.E(media.KindModelUnavailable, "explain", errors.New("OpenAI API key not configured"))
	}
	ft := media.FileType(body.FileType)
	if ft == "" {
		ft = media.TypeText
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(data string) error {
		// multi-line payloads need one data field per line
		for _, line := range strings.Split(data, "\n") {
			if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	err := r.assistant.Stream(req.Context(), body.Text, ft, body.Metadata, send)
	if err != nil && req.Context().Err() == nil {
		r.log.Warn("explanation stream failed", "error", err)
		_ = send("Error: " + err.Error())
	}
	// headers are gone; nothing more for wrap to report
	return nil
}
