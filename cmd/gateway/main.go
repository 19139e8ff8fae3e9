package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dechogo/hearing-gateway/internal/annotate"
	"github.com/dechogo/hearing-gateway/internal/asr"
	"github.com/dechogo/hearing-gateway/internal/audioproc"
	"github.com/dechogo/hearing-gateway/internal/config"
	"github.com/dechogo/hearing-gateway/internal/confighandler"
	"github.com/dechogo/hearing-gateway/internal/llm"
	"github.com/dechogo/hearing-gateway/internal/store"
	"github.com/dechogo/hearing-gateway/internal/task"
	"github.com/dechogo/hearing-gateway/internal/tts"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg := config.Load(false)
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		slog.Error("store open failed", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	recognizer := asr.NewClient(cfg.ASR.URL, 10)
	annotator := annotate.NewClient(cfg.NLPURL)
	synth := tts.NewClient(cfg.TTS)
	normalizer := audioproc.New()

	var splitter annotate.SemanticSplitter
	if cfg.App.UseLLM && cfg.LLM.APIKey != "" {
		splitter = annotate.NewLLMSplitter(llm.NewClient(cfg.LLM))
	}

	svc := task.NewService(st, recognizer, annotator, splitter, synth, normalizer, cfg, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc.StartWorkers(ctx, cfg.TaskWorkerPoolSize)
	slog.Info("worker pool started", "workers", cfg.TaskWorkerPoolSize)

	mux := http.NewServeMux()
	registerRoutes(mux, svc, confighandler.NewHandler(st))
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := ":" + cfg.Port
	srv := &http.Server{Addr: addr, Handler: mux}

	go awaitShutdown(ctx, srv)

	slog.Info("gateway starting", "addr", addr)
	if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("gateway stopped")
}

// awaitShutdown blocks until ctx is cancelled (SIGINT/SIGTERM), then drains
// in-flight requests before the process exits.
func awaitShutdown(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
}
