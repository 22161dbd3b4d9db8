package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sale-products/internal/config"
	"sale-products/internal/notifications"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	cfg, err := config.LoadNotifications()
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := dial(ctx, cfg.RabbitMQURL, cfg.DialRetries, logger)
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		return 1
	}
	defer conn.Close()

	processed := notifications.NewProcessedCounter()
	prometheus.MustRegister(processed)

	consumer, err := notifications.NewConsumer(conn, cfg.EventsQueue, cfg.Prefetch, processed, logger)
	if err != nil {
		logger.Error("init consumer", "error", err)
		return 1
	}
	defer consumer.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("notifications service started",
			"queue", cfg.EventsQueue,
			"prefetch", cfg.Prefetch,
			"metrics_addr", cfg.MetricsAddr,
		)
		errCh <- consumer.Listen(ctx)
	}()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("consumer stop failed", "error", err)
				code = 1
			}
		case <-time.After(cfg.ShutdownTimeout):
			logger.Warn("consumer shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			logger.Error("consumer failed", "error", err)
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	logger.Info("notifications service stopped")
	return code
}

// dial retries with a doubling delay until attempts run out or ctx ends.
func dial(ctx context.Context, url string, attempts int, logger *slog.Logger) (*amqp.Connection, error) {
	delay := time.Second
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}
		logger.Warn("rabbitmq not ready", "attempt", i, "retry_in", delay.String(), "error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
