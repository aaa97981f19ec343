package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/mediaexplain/internal/application/artifacts"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress int64
	RequestsSuccess    uint64
	RequestsFailed     uint64

	ExtractionsTotal  uint64
	ExtractionsFailed uint64
	AIFallbacks       uint64

	ArtifactsRegistered uint64
	ArtifactsReleased   uint64
	ArtifactsFailed     uint64

	byType sync.Map // media.FileType -> *uint64

	StartTime time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// ObserveExtraction counts one extraction attempt for ft.
func (m *Metrics) ObserveExtraction(ft media.FileType, err error) {
	atomic.AddUint64(&m.ExtractionsTotal, 1)
	if err != nil {
		atomic.AddUint64(&m.ExtractionsFailed, 1)
	}
	v, _ := m.byType.LoadOrStore(ft, new(uint64))
	atomic.AddUint64(v.(*uint64), 1)
}

// ObserveScope adds a closed artifact scope's counts.
func (m *Metrics) ObserveScope(st artifacts.Stats) {
	atomic.AddUint64(&m.ArtifactsRegistered, uint64(st.Registered))
	atomic.AddUint64(&m.ArtifactsReleased, uint64(st.Released))
	atomic.AddUint64(&m.ArtifactsFailed, uint64(st.Failed))
}

// IncrementAIFallbacks counts analyses that fell back to placeholder text.
func (m *Metrics) IncrementAIFallbacks() {
	atomic.AddUint64(&m.AIFallbacks, 1)
}

// Snapshot returns current metrics
func (m *Metrics) Snapshot() map[string]interface{} {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	byType := map[string]uint64{}
	m.byType.Range(func(k, v any) bool {
		byType[string(k.(media.FileType))] = atomic.LoadUint64(v.(*uint64))
		return true
	})

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&m.RequestsTotal),
		"requests_in_progress": atomic.LoadInt64(&m.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&m.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&m.RequestsFailed),
		"extractions_total":    atomic.LoadUint64(&m.ExtractionsTotal),
		"extractions_failed":   atomic.LoadUint64(&m.ExtractionsFailed),
		"extractions_by_type":  byType,
		"ai_fallbacks":         atomic.LoadUint64(&m.AIFallbacks),
		"artifacts": map[string]uint64{
			"registered": atomic.LoadUint64(&m.ArtifactsRegistered),
			"released":   atomic.LoadUint64(&m.ArtifactsReleased),
			"failed":     atomic.LoadUint64(&m.ArtifactsFailed),
		},
		"uptime_seconds": time.Since(m.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       mem.Alloc,
			"total_alloc_bytes": mem.TotalAlloc,
			"sys_bytes":         mem.Sys,
			"num_gc":            mem.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// Middleware tracks request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint64(&m.RequestsTotal, 1)
		atomic.AddInt64(&m.RequestsInProgress, 1)
		defer atomic.AddInt64(&m.RequestsInProgress, -1)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			atomic.AddUint64(&m.RequestsSuccess, 1)
		} else {
			atomic.AddUint64(&m.RequestsFailed, 1)
		}
	})
}

// Handler returns metrics as JSON
func (m *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.Snapshot())
}
