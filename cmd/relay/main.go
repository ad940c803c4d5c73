package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bidvault/internal/relayserver"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(os.Getenv("BIDVAULT_LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}

	addr := os.Getenv("BIDVAULT_RELAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	dataDir := os.Getenv("BIDVAULT_RELAY_DATA")
	apiKey := os.Getenv("BIDVAULT_API_KEY")

	store, err := relayserver.OpenBadger(dataDir, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open relay store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("failed to close relay store")
		}
	}()
	if dataDir == "" {
		log.Warn("BIDVAULT_RELAY_DATA not set; data is kept in memory only")
	}
	if apiKey == "" {
		log.Warn("BIDVAULT_API_KEY not set; API key check disabled")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              addr,
		Handler:           relayserver.NewRouter(store, apiKey, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("relay listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("relay server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down relay")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("relay shutdown")
	}
}
