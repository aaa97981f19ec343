package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bryanwahyu/mediaexplain/internal/app"
	"github.com/bryanwahyu/mediaexplain/internal/config"
	"github.com/bryanwahyu/mediaexplain/internal/infra/httpserver"
	"github.com/bryanwahyu/mediaexplain/internal/middleware"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	lg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer lg.Sync()

	ctx := context.Background()

	a, closeStore, err := app.Build(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("app init error", "error", err)
	}
	defer closeStore()

	// init router
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(lg))
	mux.Use(a.Metrics.Middleware)

	stopSweep := make(chan struct{})
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
		go rl.Run(time.Minute, stopSweep)
		mux.Use(rl.Middleware)
	}

	mux.Mount("/", httpserver.NewRouter(a.Extraction, a.Synthesizer, httpserver.Options{
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Inventory:      a.Inventory,
		Health:         a.Health,
		Metrics:        a.Metrics,
		Log:            lg,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		lg.Info("server listening", "addr", addr, "storage", a.Inventory.Storage, "ai", a.Synthesizer.Available())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", "error", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	lg.Info("shutting down server...")
	close(stopSweep)

	// in-flight extractions finish and clean up before exit
	ctx2, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		lg.Error("shutdown error", "error", err)
	}
}
