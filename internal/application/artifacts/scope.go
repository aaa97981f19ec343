// Package artifacts tracks the transient files, directories and staged objects
// a single pipeline run creates, and releases them exactly once.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

type Kind int

const (
	KindFile Kind = iota + 1
	KindDir
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Stats counts artifacts for one scope tree. Released counts release
// attempts, Failed the subset of attempts that returned an error.
type Stats struct {
	Registered int `json:"registered"`
	Released   int `json:"released"`
	Failed     int `json:"failed"`
}

// Deleter removes a staged object by key.
type Deleter func(ctx context.Context, key string) error

// Handle is one tracked artifact.
type Handle struct {
	scope *Scope
	kind  Kind
	ref   string
	del   Deleter

	once sync.Once
	err  error
}

// Release removes the artifact. Only the first call does any work; later
// calls return the first call's result. Object deletion failures are logged
// and never returned.
func (h *Handle) Release(ctx context.Context) error {
	h.once.Do(func() {
		h.err = h.release(ctx)
		h.scope.recordRelease(h, h.err)
	})
	if h.kind == KindObject {
		return nil
	}
	return h.err
}

func (h *Handle) release(ctx context.Context) error {
	switch h.kind {
	case KindFile:
		if err := os.Remove(h.ref); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove file %s: %w", h.ref, err)
		}
		return nil
	case KindDir:
		if err := os.RemoveAll(h.ref); err != nil {
			return fmt.Errorf("remove dir %s: %w", h.ref, err)
		}
		return nil
	case KindObject:
		if h.del == nil {
			return nil
		}
		if err := h.del(ctx, h.ref); err != nil {
			return fmt.Errorf("delete object %s: %w", h.ref, err)
		}
		return nil
	}
	return fmt.Errorf("unknown artifact kind %d", h.kind)
}

// Scope owns an ordered set of artifacts. Close releases every handle not
// yet released in reverse registration order.
type Scope struct {
	log *logger.Logger

	mu      sync.Mutex
	entries []closer
	closed  bool
	stats   *counters
	onClose func(Stats)
	root    bool
}

type closer interface {
	closeEntry(ctx context.Context)
}

type counters struct {
	mu sync.Mutex
	Stats
}

func NewScope(log *logger.Logger) *Scope {
	if log == nil {
		log = logger.Nop()
	}
	return &Scope{log: log, stats: &counters{}, root: true}
}

// OnClose registers fn to receive the final stats when the root scope closes.
func (s *Scope) OnClose(fn func(Stats)) {
	s.mu.Lock()
	s.onClose = fn
	s.mu.Unlock()
}

// Child returns a nested scope sharing this scope's counters. The child is
// closed by its owner; if it is still open when the parent closes, the
// parent closes it in its registration position.
func (s *Scope) Child() *Scope {
	c := &Scope{log: s.log, stats: s.stats}
	s.add(c)
	return c
}

func (s *Scope) TrackFile(path string) *Handle { return s.track(KindFile, path, nil) }
func (s *Scope) TrackDir(path string) *Handle  { return s.track(KindDir, path, nil) }

func (s *Scope) TrackObject(key string, del Deleter) *Handle {
	return s.track(KindObject, key, del)
}

func (s *Scope) track(kind Kind, ref string, del Deleter) *Handle {
	h := &Handle{scope: s, kind: kind, ref: ref, del: del}
	s.stats.mu.Lock()
	s.stats.Registered++
	s.stats.mu.Unlock()
	s.add(h)
	return h
}

func (s *Scope) add(c closer) {
	s.mu.Lock()
	if !s.closed {
		s.entries = append(s.entries, c)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	// registered after Close: nothing else will release it
	c.closeEntry(context.Background())
}

func (s *Scope) recordRelease(h *Handle, err error) {
	s.stats.mu.Lock()
	s.stats.Released++
	if err != nil {
		s.stats.Failed++
	}
	s.stats.mu.Unlock()
	if err != nil {
		s.log.Warn("artifact release failed", "kind", h.kind.String(), "ref", h.ref, "error", err)
	}
}

func (h *Handle) closeEntry(ctx context.Context) { _ = h.Release(ctx) }
func (s *Scope) closeEntry(ctx context.Context)  { s.Close(ctx) }

// Close releases all outstanding artifacts. It is idempotent.
func (s *Scope) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	entries := s.entries
	s.entries = nil
	onClose := s.onClose
	s.mu.Unlock()

	for i := len(entries) - 1; i >= 0; i-- {
		entries[i].closeEntry(ctx)
	}

	if s.root {
		st := s.Stats()
		s.log.Debug("artifact scope closed", "registered", st.Registered, "released", st.Released, "failed", st.Failed)
		if onClose != nil {
			onClose(st)
		}
	}
}

func (s *Scope) Stats() Stats {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	return s.stats.Stats
}
