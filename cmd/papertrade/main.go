package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/eycin/papertrade/internal/cli"
	"github.com/eycin/papertrade/internal/config"
	"github.com/eycin/papertrade/internal/engine"
	"github.com/eycin/papertrade/internal/handler"
	"github.com/eycin/papertrade/internal/persist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("log level: %v", err)
	}
	log.SetLevel(level)

	// Persistence store. Holds the data-dir lock for the process
	// lifetime.
	store, err := persist.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("persistence: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("release data dir lock: %v", err)
		}
	}()

	eng := engine.New(engine.Config{
		Saver:           store,
		TickInterval:    cfg.TickInterval,
		Amplitude:       cfg.TickAmplitude,
		StartingBalance: cfg.Balance(),
	})

	// Load previous state; an absent mirror means a fresh start.
	accounts, err := store.LoadAccounts()
	if err != nil {
		log.Fatalf("load accounts: %v", err)
	}
	prices, err := store.LoadPrices()
	if err != nil {
		log.Fatalf("load prices: %v", err)
	}
	if err := eng.LoadState(accounts, prices); err != nil {
		log.Fatalf("restore state: %v", err)
	}
	if err := eng.Seed(cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatalf("seed state: %v", err)
	}

	// Oscillator runs until the root context is cancelled, which
	// happens before the final save so no tick races shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.StartOscillator(ctx)

	// Optional read-only market-data API.
	var srv *http.Server
	if cfg.HTTPAddr != "" {
		srv = &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      handler.NewRouter(eng),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}
		go func() {
			log.WithField("addr", cfg.HTTPAddr).Info("market-data API listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server: %v", err)
			}
		}()
	}

	// The console session runs in the foreground; SIGINT/SIGTERM also
	// ends it.
	menuDone := make(chan struct{})
	go func() {
		defer close(menuDone)
		cli.New(eng, os.Stdin, os.Stdout).Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutdown signal received")
	case <-menuDone:
	}

	// Stop the oscillator first, then flush the final state.
	cancel()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http shutdown: %v", err)
		}
	}
	if err := eng.Save(); err != nil {
		log.Errorf("final save: %v", err)
	}

	log.Info("simulator stopped")
}
