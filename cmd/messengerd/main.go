// Messenger Engine Server
//
// Standalone process hosting the narrative chat engine with a durable
// SQLite slot store and a Prometheus metrics endpoint. The AI boundary
// is pluggable; without one the engine runs degraded and the agent
// thread reports the service unavailable.
//
// Usage:
//
//	go run ./cmd/messengerd                       # Defaults
//	go run ./cmd/messengerd -db messenger.db -metrics :9090
//	go build -o messengerd ./cmd/messengerd && ./messengerd
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skullsystem/messenger/chatengine/engine"
	"github.com/skullsystem/messenger/chatengine/events"
	"github.com/skullsystem/messenger/chatengine/observability"
	"github.com/skullsystem/messenger/chatengine/persist"
	"github.com/skullsystem/messenger/chatengine/storage"
)

// stdLogger implements the engine Logger using standard library log.
type stdLogger struct{}

func (l *stdLogger) Debug(msg string, keysAndValues ...any) {
	log.Printf("[DEBUG] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Info(msg string, keysAndValues ...any) {
	log.Printf("[INFO] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Warn(msg string, keysAndValues ...any) {
	log.Printf("[WARN] %s %v", msg, keysAndValues)
}

func (l *stdLogger) Error(msg string, keysAndValues ...any) {
	log.Printf("[ERROR] %s %v", msg, keysAndValues)
}

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", "messenger.db", "SQLite database path (empty for in-memory)")
	metricsAddr := flag.String("metrics", ":9090", "Prometheus metrics address")
	otlpEndpoint := flag.String("otlp", "", "OTLP collector endpoint (empty disables tracing)")
	flag.Parse()

	logger := &stdLogger{}
	logger.Info("messenger_starting", "version", "1.0.0", "db", *dbPath)

	// Optional tracing
	if *otlpEndpoint != "" {
		shutdown, err := observability.InitTracer("messenger-engine", *otlpEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				logger.Warn("tracer_shutdown_failed", "error", err.Error())
			}
		}()
		logger.Info("tracing_enabled", "endpoint", *otlpEndpoint)
	}

	// Durable slot store
	var store persist.Storage
	if *dbPath == "" {
		store = storage.NewMemoryStore()
		logger.Info("storage_configured", "backend", "memory")
	} else {
		sqlStore, err := storage.OpenSQLite(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		defer sqlStore.Close()
		store = sqlStore
		logger.Info("storage_configured", "backend", "sqlite", "path", *dbPath)
	}

	// Engine with no AI boundary attached; embedding applications
	// supply a boundary.Provider here.
	eng := engine.New(engine.Params{
		Logger:  logger,
		Storage: store,
	})
	if err := eng.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	eng.Bus().SubscribeAll(func(ctx context.Context, e events.Event) error {
		logger.Debug("engine_event", "kind", e.Kind())
		return nil
	})

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_failed", "error", err.Error())
		}
	}()
	logger.Info("metrics_listening", "address", *metricsAddr)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("\nMessenger Engine running (metrics on %s)\n", *metricsAddr)
	fmt.Println("Press Ctrl+C to stop")

	sig := <-sigCh
	logger.Info("shutdown_signal_received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	metricsServer.Shutdown(ctx)
	eng.Shutdown(ctx)
	logger.Info("messenger_stopped")
}
