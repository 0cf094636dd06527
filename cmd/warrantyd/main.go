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

	"github.com/SherClockHolmes/webpush-go"

	"warranty-backend/config"
	"warranty-backend/internal/api"
	"warranty-backend/internal/db"
	"warranty-backend/internal/notification"
	"warranty-backend/internal/orders"
	"warranty-backend/internal/store"
	"warranty-backend/internal/sweep"
	"warranty-backend/internal/warranty"
)

func main() {
	logger := log.New(os.Stdout, "warrantyd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Admin.JWTSecret == "" {
		logger.Fatalf("admin.jwt_secret must be configured")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	notifier := notification.NewWorkerPool(
		cfg.WorkerPool.Size, gormDB, cfg.Mail, cfg.Warranty.EmailNotifications, &webpushOptions,
	)
	notifier.Start(ctx)

	orderLookup := orders.NewClient(&cfg.Orders)
	svc := warranty.NewService(appStore, orderLookup, notifier, cfg.Warranty, cfg.Mail.CheckURL)

	if cfg.Sweep.Enabled {
		sweeper := sweep.NewService(cfg.Sweep, appStore, notifier)
		go sweeper.Run(ctx)
	} else {
		logger.Println("expiry sweep is disabled")
	}

	router := api.NewRouter(svc, appStore, cfg, &webpushOptions)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
