// The worker binary fulfills placed orders out of process. It only makes
// sense against the postgres backend, where state is shared with the
// server.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/stocklane/order-inventory/internal/messaging"
	"github.com/stocklane/order-inventory/internal/notify"
	"github.com/stocklane/order-inventory/internal/orders"
	"github.com/stocklane/order-inventory/internal/products"
	"github.com/stocklane/order-inventory/internal/telemetry"
	"github.com/stocklane/order-inventory/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
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

	productRepo := products.NewPostgresRepository(db)
	orderRepo := orders.NewPostgresRepository(db)

	service, err := orders.NewService(productRepo, orderRepo, notify.NewLogNotifier(logger), nil, logger)
	if err != nil {
		logger.Error("failed to create order service", "error", err)
		os.Exit(1)
	}

	brokers := strings.Split(kafkaBrokers, ",")
	consumer := messaging.NewConsumer(brokers, "orders.placed", "fulfillment-worker")
	defer func() { _ = consumer.Close() }()

	fulfillment := worker.NewFulfillmentHandler(service, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting fulfillment worker", "brokers", brokers)

	if err := consumer.Consume(ctx, fulfillment.Handle); err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
