package config

import (
	"os"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadProducts(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing DATABASE_URL",
			env:     map[string]string{"RABBITMQ_URL": "amqp://localhost", "SESSION_SECRET": testSecret},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "missing RABBITMQ_URL",
			env:     map[string]string{"DATABASE_URL": "postgres://localhost", "SESSION_SECRET": testSecret},
			wantErr: "RABBITMQ_URL is required",
		},
		{
			name: "short SESSION_SECRET",
			env: map[string]string{
				"DATABASE_URL":   "postgres://localhost/db",
				"RABBITMQ_URL":   "amqp://localhost",
				"SESSION_SECRET": "short",
			},
			wantErr: "SESSION_SECRET must be at least 32 bytes",
		},
		{
			name: "invalid SECURE_COOKIES",
			env: map[string]string{
				"DATABASE_URL":   "postgres://localhost/db",
				"RABBITMQ_URL":   "amqp://localhost",
				"SESSION_SECRET": testSecret,
				"SECURE_COOKIES": "maybe",
			},
			wantErr: `SECURE_COOKIES: strconv.ParseBool: parsing "maybe": invalid syntax`,
		},
		{
			name: "invalid MAX_UPLOAD_BYTES",
			env: map[string]string{
				"DATABASE_URL":     "postgres://localhost/db",
				"RABBITMQ_URL":     "amqp://localhost",
				"SESSION_SECRET":   testSecret,
				"MAX_UPLOAD_BYTES": "-1",
			},
			wantErr: "MAX_UPLOAD_BYTES must be a positive integer",
		},
		{
			name: "valid config with defaults",
			env: map[string]string{
				"DATABASE_URL":   "postgres://localhost/db",
				"RABBITMQ_URL":   "amqp://localhost",
				"SESSION_SECRET": testSecret,
			},
		},
		{
			name: "custom HTTP_ADDR and IMAGES_DIR override defaults",
			env: map[string]string{
				"DATABASE_URL":     "postgres://localhost/db",
				"RABBITMQ_URL":     "amqp://localhost",
				"SESSION_SECRET":   testSecret,
				"HTTP_ADDR":        ":9090",
				"IMAGES_DIR":       "/var/lib/sale-products/images",
				"SECURE_COOKIES":   "true",
				"MAX_UPLOAD_BYTES": "1048576",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadProducts()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if err.Error() != tt.wantErr {
					t.Fatalf("want error %q, got %q", tt.wantErr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.DatabaseURL != tt.env["DATABASE_URL"] {
				t.Fatalf("want DatabaseURL %q, got %q", tt.env["DATABASE_URL"], cfg.DatabaseURL)
			}
			if addr, ok := tt.env["HTTP_ADDR"]; ok && cfg.HTTPAddr != addr {
				t.Fatalf("want HTTPAddr %q, got %q", addr, cfg.HTTPAddr)
			}
			if _, ok := tt.env["HTTP_ADDR"]; !ok && cfg.HTTPAddr != defaultHTTPAddr {
				t.Fatalf("want default HTTPAddr %q, got %q", defaultHTTPAddr, cfg.HTTPAddr)
			}
			if dir, ok := tt.env["IMAGES_DIR"]; ok && cfg.ImagesDir != dir {
				t.Fatalf("want ImagesDir %q, got %q", dir, cfg.ImagesDir)
			}
			if _, ok := tt.env["IMAGES_DIR"]; !ok && cfg.ImagesDir != defaultImagesDir {
				t.Fatalf("want default ImagesDir %q, got %q", defaultImagesDir, cfg.ImagesDir)
			}
			wantUpload := int64(defaultMaxUploadBytes)
			if _, ok := tt.env["MAX_UPLOAD_BYTES"]; ok {
				wantUpload = 1 << 20
			}
			if cfg.MaxUploadBytes != wantUpload {
				t.Fatalf("want MaxUploadBytes %d, got %d", wantUpload, cfg.MaxUploadBytes)
			}
			if cfg.SecureCookies != (tt.env["SECURE_COOKIES"] == "true") {
				t.Fatalf("unexpected SecureCookies %v", cfg.SecureCookies)
			}
			if cfg.EventsQueue != defaultEventsQueue {
				t.Fatalf("want EventsQueue %q, got %q", defaultEventsQueue, cfg.EventsQueue)
			}
			if cfg.DBMaxOpenConns != defaultDBMaxOpenConns {
				t.Fatalf("want DBMaxOpenConns %d, got %d", defaultDBMaxOpenConns, cfg.DBMaxOpenConns)
			}
			if cfg.SessionMaxAge != defaultSessionMaxAge {
				t.Fatalf("want SessionMaxAge %v, got %v", defaultSessionMaxAge, cfg.SessionMaxAge)
			}
		})
	}
}

func TestLoadNotifications(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantErr   string
		wantQueue string
	}{
		{
			name:    "missing RABBITMQ_URL",
			env:     map[string]string{},
			wantErr: "RABBITMQ_URL is required",
		},
		{
			name:      "valid config",
			env:       map[string]string{"RABBITMQ_URL": "amqp://localhost"},
			wantQueue: defaultEventsQueue,
		},
		{
			name:    "invalid prefetch",
			env:     map[string]string{"RABBITMQ_URL": "amqp://localhost", "CONSUMER_PREFETCH": "0"},
			wantErr: "CONSUMER_PREFETCH must be a positive integer",
		},
		{
			name:      "custom queue",
			env:       map[string]string{"RABBITMQ_URL": "amqp://localhost", "EVENTS_QUEUE": "sale.events"},
			wantQueue: "sale.events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadNotifications()
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if err.Error() != tt.wantErr {
					t.Fatalf("want error %q, got %q", tt.wantErr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.EventsQueue != tt.wantQueue {
				t.Fatalf("want EventsQueue %q, got %q", tt.wantQueue, cfg.EventsQueue)
			}
			if cfg.Prefetch != defaultPrefetch {
				t.Fatalf("want Prefetch %d, got %d", defaultPrefetch, cfg.Prefetch)
			}
			if cfg.MetricsAddr != defaultMetricsAddr {
				t.Fatalf("want MetricsAddr %q, got %q", defaultMetricsAddr, cfg.MetricsAddr)
			}
			if cfg.ShutdownTimeout != defaultShutdownTimeout {
				t.Fatalf("want ShutdownTimeout %v, got %v", defaultShutdownTimeout, cfg.ShutdownTimeout)
			}
		})
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "RABBITMQ_URL", "HTTP_ADDR", "MIGRATIONS_PATH",
		"IMAGES_DIR", "SESSION_SECRET", "SECURE_COOKIES", "EVENTS_QUEUE", "CONSUMER_PREFETCH", "METRICS_ADDR", "MAX_UPLOAD_BYTES",
	} {
		if val, ok := os.LookupEnv(key); ok {
			t.Setenv(key, val)
		}
		os.Unsetenv(key)
	}
}
