package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/greenlink-eco/credit-engine/internal/adapter"
	"github.com/greenlink-eco/credit-engine/internal/api/middleware"
	"github.com/greenlink-eco/credit-engine/internal/api/server"
	"github.com/greenlink-eco/credit-engine/internal/config"
	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/engine"
	"github.com/greenlink-eco/credit-engine/internal/logger"
	"github.com/greenlink-eco/credit-engine/internal/messaging"
	"github.com/greenlink-eco/credit-engine/internal/providers/jetstream"
	"github.com/greenlink-eco/credit-engine/internal/settlement"
	"github.com/greenlink-eco/credit-engine/internal/store"
	"github.com/greenlink-eco/credit-engine/internal/webhook"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "credit-engine-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.Info("starting credit engine API")

	// Connect to database
	dataStore, err := store.NewPostgresStore(cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("host", cfg.Database.Host))

	// Connect to NATS JetStream
	natsPublisher, err := jetstream.NewPublisher(jetstream.Config{
		URL:            cfg.NATS.URL,
		SubjectPrefix:  cfg.NATS.SubjectPrefix,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		PublishRetries: cfg.NATS.PublishRetries,
	}, adapter.NewNatsJetStream(), adapter.NewJSON(), logger.Default())
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err))
	}
	logger.Info("connected to NATS", zap.String("url", cfg.NATS.URL))

	publishers := []messaging.Publisher{natsPublisher}

	// Webhook fan-out, if endpoints are configured
	if len(cfg.Webhook.Endpoints) > 0 {
		subs := make([]webhook.Subscription, 0, len(cfg.Webhook.Endpoints))
		for _, ep := range cfg.Webhook.Endpoints {
			subs = append(subs, webhook.Subscription{
				URL:        ep.URL,
				Secret:     ep.Secret,
				EventTypes: ep.EventTypes,
			})
		}
		notifier := webhook.NewNotifier(subs, webhook.NotifierConfig{
			MaxConcurrency: cfg.Webhook.MaxConcurrency,
			RequestTimeout: cfg.Webhook.RequestTimeout,
			MaxRetries:     cfg.Webhook.MaxRetries,
		}, logger.Default())
		publishers = append(publishers, notifier)
		logger.Info("webhook notifier enabled", zap.Int("endpoints", len(subs)))
	}

	publisher := messaging.NewFanout(publishers...)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error(err)
		}
	}()

	settler := settlement.NewMemorySettler()

	admins := make([]domain.AccountID, 0, len(cfg.Engine.Admins))
	for _, a := range cfg.Engine.Admins {
		admins = append(admins, domain.AccountID(a))
	}

	eng := engine.New(engine.Config{
		Store:           dataStore,
		Publisher:       publisher,
		Settler:         settler,
		Logger:          logger.Default(),
		PlatformAccount: domain.AccountID(cfg.Engine.PlatformAccount),
		Admins:          admins,
	})
	if err := eng.Rehydrate(ctx); err != nil {
		logger.Fatal("failed to rehydrate engine", zap.Error(err))
	}

	serverConfig := server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		Auth: middleware.AuthConfig{
			JWTPublicKey: cfg.Auth.JWTPublicKey,
			APIKeys:      cfg.Auth.APIKeys,
		},
	}

	srv := server.New(serverConfig, eng, settler)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.Error(err, zap.String("component", "server"))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("API server stopped")
}
