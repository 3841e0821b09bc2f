// hlconnector is a standalone driver for the Hyperliquid perpetuals
// connector: it loads configuration, establishes the WebSocket session
// when enabled, logs every dispatched message, and waits for a shutdown
// signal.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hlconnector/internal/config"
	"hlconnector/internal/connector"
	"hlconnector/internal/ws"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("HL_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	conn := connector.New(cfg, logger)
	logger.Info("connector ready", "name", conn.Name(), "testnet", cfg.Testnet, "websocket", cfg.EnableWebsocket)

	if cfg.EnableWebsocket {
		conn.SetMessageCallback(func(m ws.Message) {
			logger.Debug("ws message", "kind", m.Kind)
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := conn.InitWebsocket(ctx); err != nil {
			logger.Error("failed to start websocket", "error", err)
			os.Exit(1)
		}
		defer conn.DisconnectWebsocket()

		if err := conn.Subscribe(ws.Subscription{Channel: "allMids"}); err != nil {
			logger.Error("failed to subscribe to allMids", "error", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
