package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"issuance-backend/internal/app"
	"issuance-backend/internal/config"
	"issuance-backend/internal/db"
	"issuance-backend/internal/handlers"
	"issuance-backend/internal/middleware"
	"issuance-backend/internal/router"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.local.yaml, then config.yaml)")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := config.LoadConfig(*configPath); err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	db.InitDB()

	container, err := app.InitializeContainer()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize service container")
	}
	defer container.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := container.Rehydrate(ctx); err != nil {
		cancel()
		logrus.WithError(err).Fatal("Failed to rehydrate engine state")
	}
	cancel()

	logger := logrus.StandardLogger()
	adminAuth := middleware.NewAdminAuthMiddleware(container.AdminAuthService, logger)

	r := router.SetupRouter(&router.Handlers{
		Vault:      handlers.NewVaultHandler(container.IssuanceService),
		Gateway:    handlers.NewGatewayHandler(container.IssuanceService),
		Credit:     handlers.NewCreditHandler(container.IssuanceService),
		Quote:      handlers.NewQuoteHandler(container.QuoteService),
		Operations: handlers.NewOperationsHandler(container.IssuanceService),
		Admin:      handlers.NewAdminHandler(container.AdminAuthService, container.IssuanceService, logger),
		WebSocket:  handlers.NewWebSocketHandler(container.WebSocketPushService),
		AdminAuth:  adminAuth,
	})

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logrus.WithField("addr", addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}
