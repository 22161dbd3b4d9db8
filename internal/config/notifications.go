package config

import (
	"fmt"
	"strconv"
	"time"
)

const (
	defaultEventsQueue = "products.events"
	defaultPrefetch    = 10
	defaultMetricsAddr = ":9091"
	defaultDialRetries = 5
)

type Notifications struct {
	RabbitMQURL     string
	EventsQueue     string
	Prefetch        int
	MetricsAddr     string
	DialRetries     int
	ShutdownTimeout time.Duration
}

func LoadNotifications() (Notifications, error) {
	cfg := Notifications{
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		EventsQueue:     getEnv("EVENTS_QUEUE", defaultEventsQueue),
		Prefetch:        defaultPrefetch,
		MetricsAddr:     getEnv("METRICS_ADDR", defaultMetricsAddr),
		DialRetries:     defaultDialRetries,
		ShutdownTimeout: defaultShutdownTimeout,
	}

	if cfg.RabbitMQURL == "" {
		return Notifications{}, fmt.Errorf("RABBITMQ_URL is required")
	}
	if raw := getEnv("CONSUMER_PREFETCH", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return Notifications{}, fmt.Errorf("CONSUMER_PREFETCH must be a positive integer")
		}
		cfg.Prefetch = n
	}

	return cfg, nil
}
