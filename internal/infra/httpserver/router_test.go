package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/bryanwahyu/mediaexplain/internal/application/extraction"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/middleware"
)

type fakeExtractor struct {
	got  extraction.Input
	body []byte
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, in extraction.Input) (*extraction.Response, error) {
	f.got = in
	if in.Kind == extraction.InputUpload {
		f.body, _ = os.ReadFile(in.Path)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &extraction.Response{
		Success:       true,
		ExtractedText: "hello",
		KeyPoints:     []string{},
		Metadata:      media.Metadata{media.MetaFileType: "text"},
	}, nil
}

type fakeAssistant struct {
	available bool
	chunks    []string
	streamErr error
	chatErr   error
}

func (f *fakeAssistant) Available() bool { return f.available }

func (f *fakeAssistant) Chat(ctx context.Context, message, contextText string) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "answer to " + message + " about " + contextText, nil
}

func (f *fakeAssistant) Stream(ctx context.Context, text string, ft media.FileType, meta media.Metadata, onChunk func(string) error) error {
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return f.streamErr
}

func newTestRouter(t *testing.T, ex *fakeExtractor, as *fakeAssistant) http.Handler {
	t.Helper()
	return NewRouter(ex, as, Options{
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
		Inventory:      Inventory{OCR: "tesseract", PDF: "ledongthuc/pdf"},
		Metrics:        middleware.NewMetrics(),
	})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return m
}

func TestExtractUpload(t *testing.T) {
	ex := &fakeExtractor{}
	h := newTestRouter(t, ex, &fakeAssistant{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "Notes.TXT")
	fw.Write([]byte("some text"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	if ex.got.Kind != extraction.InputUpload || ex.got.OriginalName != "Notes.TXT" {
		t.Errorf("input = %+v", ex.got)
	}
	if !strings.HasSuffix(ex.got.Path, ".txt") {
		t.Errorf("saved path %q should keep the lowercase extension", ex.got.Path)
	}
	if string(ex.body) != "some text" {
		t.Errorf("saved body = %q", ex.body)
	}
	if body := decode(t, rec); body["extractedText"] != "hello" || body["success"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestExtractURL(t *testing.T) {
	ex := &fakeExtractor{}
	h := newTestRouter(t, ex, &fakeAssistant{})

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"url":"https://example.com/a.pdf"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ex.got.Kind != extraction.InputURL || ex.got.URL != "https://example.com/a.pdf" {
		t.Errorf("input = %+v", ex.got)
	}
}

func TestExtractNoInput(t *testing.T) {
	h := newTestRouter(t, &fakeExtractor{}, &fakeAssistant{})

	for name, req := range map[string]*http.Request{
		"empty json": func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}(),
		"no body": httptest.NewRequest(http.MethodPost, "/api/extract", nil),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decode(t, rec)
			if body["usage"] != usageHint || body["success"] != false {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestExtractRejectsInternalURL(t *testing.T) {
	ex := &fakeExtractor{}
	h := newTestRouter(t, ex, &fakeAssistant{})

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"url":"http://127.0.0.1/secret"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if ex.got.Kind != 0 {
		t.Error("extractor must not run for a rejected URL")
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{media.E(media.KindInvalidInput, "x", errors.New("bad")), 400},
		{media.E(media.KindUnsupportedType, "x", errors.New("bad")), 415},
		{media.E(media.KindDownloadFailed, "x", errors.New("refused")), 502},
		{media.E(media.KindDownloadFailed, "x", media.ErrDownloadTooLarge), 413},
		{media.E(media.KindDownloadFailed, "x", fmt.Errorf("get: %w", media.ErrDownloadTimeout)), 504},
		{media.E(media.KindStorageNotConfigured, "x", errors.New("none")), 503},
		{media.E(media.KindStorageOperationFailed, "x", errors.New("put")), 502},
		{media.E(media.KindExtractionFailed, "x", errors.New("corrupt")), 422},
		{media.E(media.KindModelUnavailable, "x", errors.New("no key")), 503},
		{errors.New("boom"), 500},
		{&http.MaxBytesError{Limit: 1}, 413},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestExtractErrorBody(t *testing.T) {
	ex := &fakeExtractor{err: media.E(media.KindUnsupportedType, "classify", errors.New("Unsupported file type: .xyz"))}
	h := newTestRouter(t, ex, &fakeAssistant{})

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"url":"https://example.com/a.xyz"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != false || !strings.Contains(body["error"].(string), ".xyz") {
		t.Errorf("body = %v", body)
	}
}

func TestChat(t *testing.T) {
	h := newTestRouter(t, &fakeExtractor{}, &fakeAssistant{available: true})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"why?","context":"doc"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["response"] != "answer to why? about doc" {
		t.Errorf("body = %v", body)
	}
}

func TestChatModelUnavailable(t *testing.T) {
	as := &fakeAssistant{chatErr: media.E(media.KindModelUnavailable, "chat", errors.New("no key"))}
	h := newTestRouter(t, &fakeExtractor{}, as)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func readEvents(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var events []string
	sc := bufio.NewScanner(rec.Body)
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			events = append(events, data)
		}
	}
	return events
}

func TestExplainStream(t *testing.T) {
	as := &fakeAssistant{available: true, chunks: []string{"Hello", " world"}, streamErr: errors.New("cut off")}
	h := newTestRouter(t, &fakeExtractor{}, as)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/explain/stream",
		strings.NewReader(`{"text":"content","fileType":"pdf"}`)))

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}
	events := readEvents(t, rec)
	want := []string{"Hello", " world", "Error: cut off"}
	if len(events) != len(want) {
		t.Fatalf("events = %q", events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestExplainStreamUnavailable(t *testing.T) {
	h := newTestRouter(t, &fakeExtractor{}, &fakeAssistant{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/explain/stream", strings.NewReader(`{"text":"x"}`)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestExtractHealthInventory(t *testing.T) {
	h := newTestRouter(t, &fakeExtractor{}, &fakeAssistant{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/extract/health", nil))
	body := decode(t, rec)
	services := body["services"].(map[string]any)
	if services["ocr"] != "tesseract" || services["storage"] != "not configured" {
		t.Errorf("services = %v", services)
	}
	if body["note"] == nil {
		t.Error("missing speech-to-text note")
	}
}

func TestIndexAndNotFound(t *testing.T) {
	h := newTestRouter(t, &fakeExtractor{}, &fakeAssistant{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	body := decode(t, rec)
	formats := body["supportedFormats"].(map[string]any)
	if len(formats["image"].([]any)) != 7 {
		t.Errorf("image formats = %v", formats["image"])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
}
