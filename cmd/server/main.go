package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"gopkg.in/natefinch/lumberjack.v2"

	"gitea.jw6.us/james/notioncal/internal/auth"
	"gitea.jw6.us/james/notioncal/internal/config"
	"gitea.jw6.us/james/notioncal/internal/http"
	"gitea.jw6.us/james/notioncal/internal/notion"
)

func main() {
	log.Println("Starting notioncal server...")
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if cfg.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		defer rotator.Close()
		log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := notion.NewClient(context.Background(), cfg.Notion.Token,
		notion.WithBaseURL(cfg.Notion.BaseURL),
		notion.WithVersion(cfg.Notion.Version),
	)
	if err != nil {
		log.Fatalf("failed to create notion client: %v", err)
	}
	source := notion.NewSource(client, cfg.FeedOptions().WithDefaults())

	guard, err := auth.NewFeedGuard(cfg.Feed.TokenHash)
	if err != nil {
		log.Fatalf("failed to initialize feed token: %v", err)
	}
	if !guard.Enabled() {
		log.Printf("WARNING: APP_FEED_TOKEN_HASH not set, the feed is readable by anyone who knows the URL")
	}

	r, closeRouter := httpserver.NewRouter(cfg, source, guard)
	defer closeRouter()

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
