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

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/twenty-questions-backend/internal/archive"
	"github.com/DoyleJ11/twenty-questions-backend/internal/config"
	"github.com/DoyleJ11/twenty-questions-backend/internal/httpapi"
	"github.com/DoyleJ11/twenty-questions-backend/internal/hub"
	"github.com/DoyleJ11/twenty-questions-backend/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder, err := archive.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, recorder.Close()) }()
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, finished rounds are not archived")
	}

	// Rooms outlive the signal context so they can be closed in order.
	h := hub.NewHub(context.WithoutCancel(ctx), hub.Options{
		Rules:    cfg.Rules,
		Logger:   log,
		Recorder: recorder,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			Recorder:       recorder,
			Logger:         log,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Any("rules", cfg.Rules))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(
			h.Shutdown(sctx, "server shutting down"),
			srv.Shutdown(sctx),
		)
	})
	return g.Wait()
}
