package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cloakedsheets/internal/api"
	"cloakedsheets/internal/api/chat"
	"cloakedsheets/internal/api/data"
	"cloakedsheets/internal/api/prefs"
	"cloakedsheets/internal/config"
	"cloakedsheets/internal/connector"
	"cloakedsheets/internal/conversation"
	"cloakedsheets/internal/domain"
	"cloakedsheets/internal/notify"
	"cloakedsheets/internal/repository"
	"cloakedsheets/internal/settings"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	conversationRepo := repository.NewConversationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	reportRepo := repository.NewReportRepository(db)

	settingsStore := settings.NewStore(settingsRepo, logger)

	// Select the connector client. Demo mode keeps the scripted client as a
	// fallback so the gateway stays usable while the connector is down.
	httpClient := connector.NewHTTPClient(cfg.Connector.BaseURL, cfg.Connector.Timeout, logger)
	var client connector.Client = httpClient
	if cfg.Connector.DemoMode || settingsStore.Flag(domain.KeyDemoMode) {
		logger.Info("demo mode enabled, degrading to scripted responses when the connector fails")
		client = connector.NewFallback(httpClient, connector.NewMockClient(), logger)
	}

	// Connector selection happens once at startup; tell the operator when
	// the persisted toggle diverges from the running selection.
	demoChanged, stopDemoWatch := settingsStore.Subscribe(domain.KeyDemoMode)
	defer stopDemoWatch()
	go func() {
		for range demoChanged {
			logger.Info("demo mode setting changed, restart to apply connector selection")
		}
	}()

	// Notification channels
	bus := notify.NewBus()
	telegram := notify.NewTelegramClient(logger)
	dispatcher := notify.NewDispatcher(bus, telegram, settingsStore, logger)

	// One persistent conversation per gateway instance
	conversationID, err := conversationRepo.Create("")
	if err != nil {
		logger.Fatal("Failed to create conversation", zap.Error(err))
	}

	processor := conversation.NewProcessor(client, settingsStore, dispatcher,
		conversationRepo, logger, conversationID, "")
	processor.OnReportRefresh(func() {
		bus.Publish(notify.Event{
			Kind:    notify.EventJobComplete,
			Title:   "Reports updated",
			Message: "A new report is available",
		})
	})

	dataHandler := data.NewHandler(client, processor, reportRepo, conversationRepo, logger)

	// Health polling with connection-status events; a disconnect also drops
	// cached catalogs so nothing stale is served after reconnecting.
	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	poller := connector.NewHealthPoller(client, cfg.Connector.HealthInterval, logger,
		func(connected bool, status domain.HealthStatus) {
			message := "Connector disconnected"
			if connected {
				message = fmt.Sprintf("Connector connected (version %s)", status.Version)
			} else {
				dataHandler.InvalidateCatalogs()
			}
			bus.Publish(notify.Event{Kind: notify.EventHealth, Title: "Connection", Message: message})
		})
	go poller.Run(pollCtx)

	// Setup router
	router := api.SetupRouter(
		chat.NewHandler(processor, conversationRepo, logger),
		dataHandler,
		prefs.NewHandler(settingsStore),
		bus,
		api.RouterConfig{
			APIKey:       cfg.Admin.APIKey,
			AllowOrigins: []string{"*"},
		},
	)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting CloakedSheets server",
			zap.String("address", cfg.Address()),
			zap.String("connector", cfg.Connector.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stopPolling()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
