package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	domai "github.com/bryanwahyu/mediaexplain/internal/domain/ai"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
)

type fakeOCR struct {
	text    func(path string) (string, error)
	delay   func(path string) time.Duration
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeOCR) Recognize(ctx context.Context, path string) (string, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay != nil {
		time.Sleep(f.delay(path))
	}
	if f.text == nil {
		return "text of " + filepath.Base(path), nil
	}
	return f.text(path)
}

// frameNumber parses the 1-based index from frame-0007.jpg.
func frameNumber(path string) int {
	var n int
	fmt.Sscanf(filepath.Base(path), "frame-%04d.jpg", &n)
	return n
}

type fakeTranscoder struct {
	frames    int
	frameErr  error
	audioErr  error
	probe     media.ProbeInfo
	probeErr  error
	audioPath string
	frameDir  string
}

func (f *fakeTranscoder) ExtractAudio(_ context.Context, _, out string) (string, error) {
	f.audioPath = out
	if f.audioErr != nil {
		return "", f.audioErr
	}
	return out, os.WriteFile(out, []byte("mp3"), 0o644)
}

func (f *fakeTranscoder) SampleFrames(_ context.Context, _, dir string, _ float64) ([]string, error) {
	f.frameDir = dir
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	paths := make([]string, 0, f.frames)
	for i := 1; i <= f.frames; i++ {
		p := filepath.Join(dir, fmt.Sprintf("frame-%04d.jpg", i))
		if err := os.WriteFile(p, []byte("jpg"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeTranscoder) Probe(context.Context, string) (media.ProbeInfo, error) {
	return f.probe, f.probeErr
}

type fakePDF struct {
	text  string
	pages int
	err   error
}

func (f fakePDF) ReadPDF(context.Context, string) (string, int, error) {
	return f.text, f.pages, f.err
}

type fakeDocs struct {
	text string
	err  error
}

func (f fakeDocs) ReadDocument(context.Context, string) (string, error) { return f.text, f.err }

// plainClient reaches the loopback httptest servers the resolver tests use.
var plainClient = &http.Client{}

type fakeStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	deleted     []string
	uploadErr   error
	downloadErr error
	deleteErr   error
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Upload(_ context.Context, localPath, key string) (media.StagedObject, error) {
	if s.uploadErr != nil {
		return media.StagedObject{}, s.uploadErr
	}
	b, err := os.ReadFile(localPath)
	if err != nil {
		return media.StagedObject{}, err
	}
	s.mu.Lock()
	s.objects[key] = b
	s.mu.Unlock()
	return media.StagedObject{Key: key, URL: "mem://" + key}, nil
}

func (s *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.objects, key)
	return nil
}

type fakeSynth struct {
	analysis domai.Analysis
	gotText  string
	gotType  media.FileType
	gotMeta  media.Metadata
	calls    int
}

func (f *fakeSynth) Synthesize(_ context.Context, text string, ft media.FileType, meta media.Metadata) domai.Analysis {
	f.calls++
	f.gotText, f.gotType, f.gotMeta = text, ft, meta
	if f.analysis.Explanation == "" && f.analysis.Error == "" {
		return domai.Analysis{Explanation: "explained", Summary: "sum", KeyPoints: []string{"a"}, Model: "gpt-4o-mini", TokensUsed: 7}
	}
	return f.analysis
}

func writeTemp(dir, name, body string) string {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		panic(err)
	}
	return p
}

func dirEntries(dir string) []string {
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func hasLine(text, line string) bool {
	for _, l := range strings.Split(text, "\n") {
		if l == line {
			return true
		}
	}
	return false
}
