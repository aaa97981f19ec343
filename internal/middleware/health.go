package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const checkTimeout = 5 * time.Second

// HealthChecker is anything that can report its own health; object stores
// satisfy it directly.
type HealthChecker interface {
	Check(ctx context.Context) error
}

type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

type Report struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latencyMs"`
	Message   string `json:"message,omitempty"`
}

// HealthHandler runs every checker concurrently under a shared deadline and
// answers 503 if any of them fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = make(map[string]CheckResult, len(checkers))
			g       errgroup.Group
		)
		for name, c := range checkers {
			g.Go(func() error {
				start := time.Now()
				err := c.Check(ctx)
				res := CheckResult{Status: "ok", LatencyMS: time.Since(start).Milliseconds()}
				if err != nil {
					res.Status, res.Message = "unhealthy", err.Error()
				}
				mu.Lock()
				results[name] = res
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		rep := Report{Status: "ok", Timestamp: time.Now().UTC(), Checks: results}
		code := http.StatusOK
		for _, res := range results {
			if res.Status != "ok" {
				rep.Status, code = "unhealthy", http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, code, rep)
	}
}

// ReadinessHandler reports that the process accepts traffic.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Report{Status: "ready", Timestamp: time.Now().UTC()})
}

// LivenessHandler is the cheapest possible probe.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
