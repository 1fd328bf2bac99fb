package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/guest-account/internal/config"
	"github.com/hongminglow/guest-account/internal/guest"
	"github.com/hongminglow/guest-account/internal/logging"
	"github.com/hongminglow/guest-account/internal/mapper"
	"github.com/hongminglow/guest-account/internal/server"
	postgres "github.com/hongminglow/guest-account/internal/storage/postgres"
)

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	// Mapping rules are checked before anything is opened or served.
	accounts, err := mapper.New()
	if err != nil {
		logrus.Fatalf("account mapping: %v", err)
	}

	ctx := context.Background()
	provider, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("init database: %v", err)
	}
	defer provider.Close()

	svc := guest.NewService(provider, postgres.NewAccountStore(), accounts, cfg.DBTimeout, logger)
	srv := server.New(cfg, svc, provider, logger)

	go func() {
		logger.Info(ctx, "guest account service listening", "addr", cfg.HTTPAddress())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error(ctx, "graceful shutdown error", "error", err.Error())
	}
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found; relying on existing environment")
	}
}
