package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.bug.st/serial"

	"i4.energy/across/atlink/at"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the module")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("urc-prefixes", "", "Comma-separated URC prefixes to watch (e.g. '+CMTI:,RING')")
	flag.String("mqtt-broker", "", "MQTT broker URL for URC events (empty disables MQTT)")
	flag.String("mqtt-topic", "at/urc", "MQTT topic for URC events")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	publisher := NewEventPublisher(config, logger.With("component", "events"))
	defer publisher.Close()

	linkConfig, err := at.NewConfigBuilder().
		WithDialer(at.SerialDialer{
			PortName: config.SerialPort,
			Mode:     &serial.Mode{BaudRate: config.BaudRate},
		}).
		WithURC(watchList(config.URCPrefixes, publisher)...).
		WithDebug(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "component", "at")
		}).
		Build()
	if err != nil {
		logger.Error("Failed to create link config", "error", err)
		os.Exit(1)
	}

	client, err := at.New(context.Background(), linkConfig)
	if err != nil {
		logger.Error("Failed to connect to module", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting AT bridge", "port", config.SerialPort, "baud", config.BaudRate)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	go func() {
		err := client.Run(runCtx)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
			logger.Info("Receiver loop stopped")
			return
		}
		logger.Error("Receiver loop failed", "error", err)
	}()

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Client: client,
		},
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sig := <-sigChan
	logger.Info("Received shutdown signal", "signal", sig)

	stopRun()

	logger.Info("Closing module connection")
	if err := client.Close(); err != nil {
		logger.Error("Failed to close module connection", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Failed to gracefully shutdown server", "error", err)
		os.Exit(1)
	}
}

// watchList turns the configured prefixes into URC table entries. Watched
// notifications are CR/LF terminated lines; each match is logged and
// published.
func watchList(prefixes []string, publisher *EventPublisher) []at.URC {
	urcs := make([]at.URC, 0, len(prefixes))
	for _, prefix := range prefixes {
		urcs = append(urcs, at.URC{
			Prefix:   prefix,
			EndMarks: "\r\n",
			Handle: func(info *at.URCInfo) {
				publisher.Publish(prefix, strings.TrimRight(info.Text(), "\r\n"))
			},
		})
	}
	return urcs
}
