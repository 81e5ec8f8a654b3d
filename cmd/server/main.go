package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/voicebridge/internal/adapters/http"
	"github.com/dkeye/voicebridge/internal/app"
	"github.com/dkeye/voicebridge/internal/app/orch"
	"github.com/dkeye/voicebridge/internal/artifacts"
	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/config"
	"github.com/dkeye/voicebridge/internal/dialogue"
	"github.com/dkeye/voicebridge/internal/metrics"
	"github.com/dkeye/voicebridge/internal/stt"
	"github.com/dkeye/voicebridge/internal/tts"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	store, err := artifacts.NewStore(cfg.Artifacts.Dir, cfg.Artifacts.BaseURL, cfg.Artifacts.TTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open artifact store")
	}
	store.StartReaper(ctx)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Capability singletons: constructed once, passed by reference,
	// guarded against non-reentrant backends.
	transcriber := stt.NewGuard(stt.NewHTTPTranscriber(cfg.STT.Endpoint, cfg.STT.Timeout))
	synthesizer := tts.NewGuard(tts.NewHTTPSynthesizer(cfg.TTS.Endpoint, cfg.TTS.Timeout))

	o := &orch.Orchestrator{
		Registry:       app.NewRegistry(cfg.Pipeline.SessionPersistence),
		Codec:          audio.NewCodec(cfg.Pipeline.FetchTimeout, cfg.Pipeline.SampleRate, ""),
		STT:            transcriber,
		TTS:            synthesizer,
		Store:          store,
		Dialogue:       dialogue.NewHTTPDispatcher(cfg.Dialogue.Endpoint, cfg.Dialogue.Timeout),
		Policy:         app.SimplePolicy{},
		Metrics:        m,
		Channel:        cfg.Dialogue.Channel,
		Workers:        cfg.Pipeline.Workers,
		EmitTranscript: cfg.Pipeline.EmitTranscript,
	}

	r := router.SetupRouter(ctx, cfg, o, store, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("voicebridge server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
