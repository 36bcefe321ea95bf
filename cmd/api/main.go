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

	"golang.org/x/sync/errgroup"

	"questionnaire/api/internal/app"
	"questionnaire/api/internal/config"
	"questionnaire/api/internal/history"
	"questionnaire/api/internal/store"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	opts := store.Options{SyncWrites: cfg.SyncWrites}
	configStore, err := store.OpenConfigStore(cfg.ConfigPath(), opts)
	if err != nil {
		return err
	}
	defer configStore.Close()

	profileLog, err := store.OpenProfileLog(cfg.ProfilePath(), opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := profileLog.Close(); err != nil {
			log.Printf("close profile log: %v", err)
		}
	}()
	log.Printf("Using config document %s and profile log %s", cfg.ConfigPath(), cfg.ProfilePath())

	service := app.New(cfg, configStore, profileLog)
	if cfg.HistoryDir != "" {
		historyService, err := history.Open(cfg.HistoryDir)
		if err != nil {
			return fmt.Errorf("open config history: %w", err)
		}
		service.EnableHistory(historyService)
	}
	if service.HistoryEnabled() {
		log.Printf("Recording config history in %s", cfg.HistoryDir)
	} else {
		log.Printf("Config history disabled")
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Questionnaire API listening on %s (mount %q)", cfg.Addr, cfg.BasePath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})
	return g.Wait()
}
