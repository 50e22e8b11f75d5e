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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Presence/internal/adapters/http"
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/auth"
	"github.com/dkeye/Presence/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	authCfg, err := auth.LoadConfigFromEnv(time.Now)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load auth config")
	}
	verifier, err := auth.NewVerifier(authCfg, auth.AllowAll{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build verifier")
	}

	scope, err := orch.ParseRelayScope(cfg.RelayScope)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid relay scope")
	}

	reg := app.NewRegistry()
	rooms := app.NewRoomTracker()
	dispatcher := app.NewDispatcher(reg, rooms, app.PolicyByName(cfg.Backpressure))
	o := orch.New(reg, rooms, dispatcher, verifier)
	o.RelayScope = scope
	notifier := app.NewNotifier(dispatcher)

	r := router.SetupRouter(ctx, cfg, o, notifier)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: cfg.HandshakeTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("relay_scope", string(scope)).Msg("Presence server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
