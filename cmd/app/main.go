package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/ai"
	cfgpkg "github.com/local/lessonplanner/internal/config"
	"github.com/local/lessonplanner/internal/limiter"
	logpkg "github.com/local/lessonplanner/internal/logger"
	"github.com/local/lessonplanner/internal/metrics"
	"github.com/local/lessonplanner/internal/planner"
	"github.com/local/lessonplanner/internal/session"
	"github.com/local/lessonplanner/internal/statuscheck"
	"github.com/local/lessonplanner/internal/web"
)

func main() {
	cfg := cfgpkg.Load()

	if err := logpkg.Init(logpkg.OptionsFromConfig(cfg)); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
	}
	defer logpkg.Close()
	metrics.Init()

	client, err := ai.New(cfg.Providers, &http.Client{Timeout: cfg.Generation.RequestTimeout + 5*time.Second})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid engine")
	}
	if !client.Configured() {
		log.Warn().Str("provider", client.Name()).Msg("no API key configured; generation will offer the demonstration plan")
	}
	gate := limiter.NewFromConfig(cfg.Generation, cfg.Session.RedisURL)
	defer gate.CloseClient()
	gen := planner.New(cfg.Generation, client).WithGate(gate)

	store := session.NewStore(cfg.Session)
	var pinger statuscheck.Pinger
	if rs, ok := store.(*session.RedisStore); ok {
		pinger = rs
		defer rs.Close()
	}
	if ms, ok := store.(*session.MemoryStore); ok {
		go sweep(ms, time.Minute)
	}

	health := statuscheck.New(statuscheck.Options{
		Sessions:   pinger,
		Provider:   client.Name(),
		Model:      client.Model(),
		Configured: client.Configured(),
		PDFBackend: cfg.Acquisition.Backend,
	})

	mux := http.NewServeMux()
	web.New(web.Deps{
		Config:    cfg,
		Store:     store,
		Extractor: acquire.NewFromConfig(cfg.Acquisition),
		Generator: gen,
		Health:    health,
	}).RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Web.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Web.Port).
			Str("provider", client.Name()).
			Str("model", client.Model()).
			Str("pdf_backend", cfg.Acquisition.Backend).
			Bool("auth", cfg.Web.Username != "").
			Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Generation.RequestTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
	log.Info().Msg("shutdown complete")
}

func sweep(ms *session.MemoryStore, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for range t.C {
		if n := ms.Sweep(); n > 0 {
			log.Debug().Int("expired", n).Msg("swept sessions")
		}
	}
}
