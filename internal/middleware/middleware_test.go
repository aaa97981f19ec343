package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bryanwahyu/mediaexplain/internal/application/artifacts"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

func TestValidateURL(t *testing.T) {
	ok := []string{"https://example.com/a.pdf", "http://8.8.8.8/x.png"}
	bad := []string{"", "ftp://example.com/a", "http://localhost/a", "http://127.0.0.1/a", "http://[::1]/a", "http://10.1.2.3/a", "http://192.168.0.4/a", "http://172.20.0.1/a", "http://169.254.169.254/latest", "https:///nohost"}
	for _, u := range ok {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v", u, err)
		}
	}
	for _, u := range bad {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) accepted", u)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\me\photo.JPG`: "photo.JPG",
		"na\x00me;rm -rf.txt":   "name_rm -rf.txt",
		"..":                    "upload",
		"":                      "upload",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 1)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if do("/api/extract", "1.1.1.1:1000") != 200 || do("/api/extract", "1.1.1.1:1001") != 200 {
		t.Fatal("burst should be allowed")
	}
	if code := do("/api/extract", "1.1.1.1:1002"); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", code)
	}
	if do("/api/extract", "2.2.2.2:1000") != 200 {
		t.Error("other clients must have their own bucket")
	}
	if do("/health", "1.1.1.1:1003") != 200 {
		t.Error("health must be exempt")
	}

	rl.Sweep(time.Now().Add(time.Hour))
	if len(rl.clients) != 0 {
		t.Errorf("sweep left %d clients", len(rl.clients))
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveExtraction(media.TypePDF, nil)
	m.ObserveExtraction(media.TypePDF, errors.New("x"))
	m.ObserveScope(artifacts.Stats{Registered: 4, Released: 4})
	m.IncrementAIFallbacks()

	h := m.Middleware(http.HandlerFunc(m.Handler))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	var body struct {
		ExtractionsTotal  uint64            `json:"extractions_total"`
		ExtractionsFailed uint64            `json:"extractions_failed"`
		ByType            map[string]uint64 `json:"extractions_by_type"`
		AIFallbacks       uint64            `json:"ai_fallbacks"`
		Artifacts         map[string]uint64 `json:"artifacts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.ExtractionsTotal != 2 || body.ExtractionsFailed != 1 || body.ByType["pdf"] != 2 {
		t.Errorf("extractions = %+v", body)
	}
	if body.AIFallbacks != 1 || body.Artifacts["registered"] != 4 || body.Artifacts["released"] != 4 {
		t.Errorf("counters = %+v", body)
	}
}

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(map[string]HealthChecker{
		"storage": CheckFunc(func(context.Context) error { return errors.New("bucket missing") }),
		"ocr":     CheckFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var hs Report
	if err := json.NewDecoder(rec.Body).Decode(&hs); err != nil {
		t.Fatal(err)
	}
	if hs.Status != "unhealthy" {
		t.Errorf("status = %q", hs.Status)
	}
	if hs.Checks["storage"].Message != "bucket missing" || hs.Checks["ocr"].Status != "ok" {
		t.Errorf("checks = %+v", hs.Checks)
	}
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
}
