package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dzonimn/Kaml/internal/locks"
	"github.com/dzonimn/Kaml/internal/notify"
	"github.com/dzonimn/Kaml/internal/player"
	"github.com/dzonimn/Kaml/internal/ranking"
	kamlsignal "github.com/dzonimn/Kaml/internal/signal"
	"github.com/dzonimn/Kaml/internal/store"
	"github.com/dzonimn/Kaml/internal/web"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	log := logrus.New()
	if level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	port := getEnv("PORT", "8080")
	dbPath := getEnv("DATABASE_PATH", "./data/kaml.db")

	leaderboardSize := 20
	if v := getEnv("LEADERBOARD_SIZE", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			leaderboardSize = n
		} else {
			log.Warnf("invalid LEADERBOARD_SIZE %q, using %d", v, leaderboardSize)
		}
	}

	if err := os.MkdirAll("./data", 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	km := locks.NewKeyedMutex()
	hub := kamlsignal.NewHub(log)
	registry := player.NewRegistry(db, km, nil, log)
	engine := ranking.New(registry, db, hub, km, log)

	notifier := notify.NewNotifier(engine, notify.NewLogSink(log), leaderboardSize)
	notifier.Connect(hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay the durable log before accepting traffic. The health endpoint
	// reports 503 until this finishes.
	go func() {
		if err := engine.Load(ctx); err != nil {
			log.Fatalf("Failed to replay durable log: %v", err)
		}
	}()

	server := &http.Server{
		Addr:    ":" + port,
		Handler: web.NewServer(engine, log, web.Config{MaxSliceLines: 30}),
	}

	go func() {
		log.Infof("Listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP shutdown: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
