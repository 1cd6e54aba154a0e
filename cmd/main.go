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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alemudanse/dispatch/internal/adapter/cache"
	geocodeAdapter "github.com/alemudanse/dispatch/internal/adapter/geocode"
	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/adapter/postgres"
	"github.com/alemudanse/dispatch/internal/adapter/rabbitmq"
	"github.com/alemudanse/dispatch/internal/app/assignment"
	"github.com/alemudanse/dispatch/internal/app/delivery"
	"github.com/alemudanse/dispatch/internal/app/geocode"
	"github.com/alemudanse/dispatch/internal/app/mapfeed"
	"github.com/alemudanse/dispatch/internal/app/ratelimit"
	"github.com/alemudanse/dispatch/internal/app/report"
	"github.com/alemudanse/dispatch/internal/app/token"
	"github.com/alemudanse/dispatch/internal/config"
	"github.com/alemudanse/dispatch/internal/metrics"

	amqpAdapter "github.com/alemudanse/dispatch/internal/adapter/amqp"
	httpAdapter "github.com/alemudanse/dispatch/internal/adapter/http"
)

func main() {
	mode := flag.String("mode", "", "Service mode: api, geocode-backfill, notification-subscriber")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	if *mode == "" {
		log.Fatal("--mode flag is required")
	}

	// Optional local overrides; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	ctx := context.Background()
	lgr := logger.New(*mode)

	switch *mode {
	case "api":
		runAPI(ctx, cfg, lgr)

	case "geocode-backfill":
		runGeocodeBackfill(ctx, cfg, lgr)

	case "notification-subscriber":
		runNotificationSubscriber(ctx, cfg, lgr)

	default:
		log.Fatalf("Invalid mode: %s", *mode)
	}
}

func connectDB(ctx context.Context, cfg *config.Config, lgr logger.Logger) postgres.DB {
	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})
	return db
}

func runAPI(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	db := connectDB(ctx, cfg, lgr)
	defer db.Close()

	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
		"host": cfg.RabbitMQ.Host,
	})

	metrics.Register()

	orderStore := postgres.NewOrderStore(db)
	driverStore := postgres.NewDriverStore(db)
	feedCache := cache.NewMemory()
	publisher := rabbitmq.NewPublisher(mqConn)

	geocoder, err := geocodeAdapter.New(cfg.Geocoding.Provider, cfg.Geocoding.APIKey)
	if err != nil {
		log.Fatalf("Failed to build geocoder: %v", err)
	}

	tokens := token.NewService(orderStore, lgr)
	limiter := ratelimit.New()

	assignmentService := assignment.NewService(orderStore, driverStore, feedCache, lgr)
	deliveryService := delivery.NewService(orderStore, tokens, limiter, publisher, lgr, delivery.Options{
		PODTokenTTL:              cfg.PODTokenTTL(),
		TrackTokenTTL:            cfg.TrackTokenTTL(),
		PODRateMax:               cfg.RateLimit.PODMax,
		PODRateWindow:            cfg.RateLimitWindow(),
		TokenOnlyTracking:        cfg.Tracking.TokenOnly,
		CompleteOrderOnDelivered: cfg.Delivery.CompleteOrderOnDelivered,
		PublicBaseURL:            cfg.Tracking.PublicBaseURL,
	})
	feedService := mapfeed.NewService(orderStore, feedCache, lgr, cfg.FeedCacheTTL())
	reportService := report.NewService(orderStore, lgr)

	authManager := httpAdapter.NewAuthManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	driverHandler := httpAdapter.NewDriverHandler(deliveryService, assignmentService, lgr)
	publicHandler := httpAdapter.NewPublicHandler(deliveryService, lgr)
	adminHandler := httpAdapter.NewAdminHandler(assignmentService, feedService, geocoder, cfg.Geocoding.StoreAddress, lgr)
	reportHandler := httpAdapter.NewReportHandler(reportService, lgr)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/token", authManager.TokenHandler)

	mux.HandleFunc("PATCH /pod/confirm", publicHandler.ConfirmPOD)
	mux.HandleFunc("GET /track", publicHandler.Track)
	mux.HandleFunc("PATCH /track/share", publicHandler.ShareLocation)

	authed := func(h http.HandlerFunc) http.Handler {
		return authManager.Middleware(h)
	}
	mux.Handle("GET /driver/orders", authed(driverHandler.Orders))
	mux.Handle("PATCH /driver/orders/{order_id}/status", authed(driverHandler.SetStatus))
	mux.Handle("PATCH /driver/orders/{order_id}/pod/initiate", authed(driverHandler.InitiatePOD))
	mux.Handle("PATCH /driver/orders/{order_id}/request-location", authed(driverHandler.RequestLocation))
	mux.Handle("PATCH /driver/orders/{order_id}/location", authed(driverHandler.UpdateLocation))

	mux.Handle("GET /admin/orders-for-map", authed(adminHandler.OrdersForMap))
	mux.Handle("PATCH /admin/assign", authed(adminHandler.Assign))
	mux.Handle("PATCH /admin/unassign", authed(adminHandler.Unassign))
	mux.Handle("GET /admin/store-location", authed(adminHandler.StoreLocation))

	mux.Handle("GET /reports/driver", authed(reportHandler.DriverReport))

	mux.Handle("GET /metrics", promhttp.Handler())

	handler := httpAdapter.LoggingMiddleware(lgr)(mux)
	handler = httpAdapter.RecoveryMiddleware(lgr)(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lgr.Info("service_started", fmt.Sprintf("Dispatch API started on port %d", cfg.HTTP.Port), "startup", map[string]interface{}{
		"port": cfg.HTTP.Port,
	})

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		lgr.Info("shutdown_initiated", "Shutting down Dispatch API", "shutdown", nil)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			lgr.Error("shutdown_error", "Error during shutdown", "shutdown", nil, err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		lgr.Error("server_error", "Server error", "runtime", nil, err)
	}
}

func runGeocodeBackfill(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	db := connectDB(ctx, cfg, lgr)
	defer db.Close()

	geocoder, err := geocodeAdapter.New(cfg.Geocoding.Provider, cfg.Geocoding.APIKey)
	if err != nil {
		log.Fatalf("Failed to build geocoder: %v", err)
	}

	orderStore := postgres.NewOrderStore(db)
	backfill := geocode.NewBackfill(orderStore, geocoder, lgr, cfg.Geocoding.BatchSize)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	lgr.Info("service_started", "Geocode backfill started", "startup", map[string]interface{}{
		"provider":      cfg.Geocoding.Provider,
		"sweep_seconds": cfg.Geocoding.SweepSeconds,
	})

	go backfill.Run(runCtx, time.Duration(cfg.Geocoding.SweepSeconds)*time.Second)

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down geocode backfill", "shutdown", nil)
}

func runNotificationSubscriber(ctx context.Context, cfg *config.Config, lgr logger.Logger) {
	mqConn, err := rabbitmq.Connect(cfg.RabbitMQ)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer mqConn.Close()

	consumer := rabbitmq.NewConsumer(mqConn)
	notificationHandler := amqpAdapter.NewNotificationHandler(lgr)

	lgr.Info("service_started", "Notification Subscriber started", "startup", nil)

	go func() {
		if err := consumer.ConsumeNotifications(ctx, notificationHandler.HandleNotification); err != nil {
			lgr.Error("consumer_error", "Error consuming notifications", "runtime", nil, err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	<-sigint

	lgr.Info("shutdown_initiated", "Shutting down Notification Subscriber", "shutdown", nil)
}
