package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/stocklane/order-inventory/internal/messaging"
	"github.com/stocklane/order-inventory/internal/notify"
	"github.com/stocklane/order-inventory/internal/orders"
	"github.com/stocklane/order-inventory/internal/products"
	"github.com/stocklane/order-inventory/internal/telemetry"
	"github.com/stocklane/order-inventory/internal/worker"
)

const (
	serviceName    = "order-inventory"
	serviceVersion = "0.1.0"

	orderPlacedTopic    = "orders.placed"
	orderFulfilledTopic = "orders.fulfilled"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	var productRepo products.Repository
	var orderRepo orders.Repository

	switch backend := os.Getenv("STORE_BACKEND"); backend {
	case "", "memory":
		productRepo = products.NewMemoryRepository()
		orderRepo = orders.NewMemoryRepository()
		logger.Info("using in-memory stores")
	case "postgres":
		postgresURL := os.Getenv("POSTGRES_URL")
		if postgresURL == "" {
			logger.Error("POSTGRES_URL is required for the postgres backend")
			os.Exit(1)
		}
		db, err := telemetry.OpenDB("postgres", postgresURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		if err := db.Ping(); err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		productRepo = products.NewPostgresRepository(db)
		orderRepo = orders.NewPostgresRepository(db)
		logger.Info("using postgres stores")
	default:
		logger.Error("unknown STORE_BACKEND", "backend", backend)
		os.Exit(1)
	}

	var placedProducer *messaging.Producer
	var publisher orders.EventPublisher
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	var brokers []string
	if kafkaBrokers != "" {
		brokers = strings.Split(kafkaBrokers, ",")
		placedProducer = messaging.NewProducer(brokers, orderPlacedTopic)
		defer func() { _ = placedProducer.Close() }()
		publisher = placedProducer
	}

	var notifier notify.Notifier
	switch sink := os.Getenv("NOTIFIER"); sink {
	case "", "log":
		notifier = notify.NewLogNotifier(logger)
	case "kafka":
		if brokers == nil {
			logger.Error("KAFKA_BROKERS is required for the kafka notifier")
			os.Exit(1)
		}
		fulfilledProducer := messaging.NewProducer(brokers, orderFulfilledTopic)
		defer func() { _ = fulfilledProducer.Close() }()
		notifier = notify.NewEventNotifier(fulfilledProducer)
	default:
		logger.Error("unknown NOTIFIER", "notifier", sink)
		os.Exit(1)
	}

	service, err := orders.NewService(productRepo, orderRepo, notifier, publisher, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	orderHandler := orders.NewHandler(service, logger)
	productHandler := products.NewHandler(productRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", telemetry.WithHTTPRoute(orderHandler.HandlePlace))
	mux.HandleFunc("GET /api/orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("DELETE /api/orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleCancel))
	mux.HandleFunc("GET /api/products", telemetry.WithHTTPRoute(productHandler.HandleList))
	mux.HandleFunc("POST /api/products", telemetry.WithHTTPRoute(productHandler.HandleCreate))
	mux.HandleFunc("GET /api/products/{id}", telemetry.WithHTTPRoute(productHandler.HandleGet))
	mux.HandleFunc("PUT /api/products/{id}", telemetry.WithHTTPRoute(productHandler.HandleUpdate))
	mux.HandleFunc("DELETE /api/products/{id}", telemetry.WithHTTPRoute(productHandler.HandleDelete))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	consumerCtx, cancelConsumer := context.WithCancel(ctx)
	defer cancelConsumer()

	if brokers != nil {
		consumer := messaging.NewConsumer(brokers, orderPlacedTopic, "fulfillment-worker")
		defer func() { _ = consumer.Close() }()

		fulfillment := worker.NewFulfillmentHandler(service, logger)
		go func() {
			logger.Info("starting in-process fulfillment consumer", "brokers", brokers)
			if err := consumer.Consume(consumerCtx, fulfillment.Handle); err != nil {
				if consumerCtx.Err() == context.Canceled {
					return
				}
				logger.Error("fulfillment consumer error", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("starting order-inventory service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	cancelConsumer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
