package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/i4energy/espuplink/modem"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port the ESP8266 is attached to")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("serial-driver", "bugst", "Serial backend (bugst, tarm)")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server (empty disables it)")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("wifi-ssid", "", "Wifi network to join at startup")
	flag.String("wifi-password", "", "Wifi password")
	flag.String("cloudlog-host", "api.thingspeak.com", "Default cloud log host")
	flag.String("cloudlog-api-key", "", "Default cloud log write API key")
	flag.String("webhook-key", "", "Default IFTTT Maker key")
	flag.Duration("min-upload-interval", 15*time.Second, "Minimum time between cloud log uploads")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables MQTT)")
	flag.String("mqtt-client-id", "espuplink", "MQTT client ID")
	flag.String("mqtt-topic", "espuplink", "MQTT topic prefix")
	flag.String("reset-chip", "gpiochip0", "GPIO chip of the module reset line")
	flag.Int("reset-line", -1, "GPIO line wired to the module RST pin (-1 disables)")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	if config.ResetLine >= 0 {
		logger.Info("Pulsing module reset line", "chip", config.ResetChip, "line", config.ResetLine)
		if err := pulseReset(config.ResetChip, config.ResetLine, 100*time.Millisecond, 2*time.Second); err != nil {
			logger.Warn("Failed to reset module", "error", err)
		}
	}

	dialer, err := newDialer(config)
	if err != nil {
		logger.Error("Failed to create dialer", "error", err)
		os.Exit(1)
	}

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(dialer).
		WithLogger(logger.With("component", "modem")).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to create modem", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting ESP8266 uplink", "serial_port", config.SerialPort, "driver", config.SerialDriver)

	gw := NewGateway(logger.With("component", "gateway"), m, GatewayConfig{
		CloudLogHost:      config.CloudLogHost,
		CloudLogAPIKey:    config.CloudLogAPIKey,
		WebhookKey:        config.WebhookKey,
		MinUploadInterval: config.MinUploadInterval,
	})

	if config.MQTTBroker != "" {
		bridge, err := NewMQTTBridge(logger.With("component", "mqtt"),
			config.MQTTBroker, config.MQTTClientID, config.MQTTTopic, gw, m)
		if err != nil {
			logger.Error("Failed to connect to MQTT broker", "error", err)
		} else {
			gw.Publisher = bridge
			defer bridge.Close()
		}
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		gw.Run(ctx)
	}()

	if config.WifiSSID != "" {
		if _, err := gw.Enqueue(Job{
			Kind: JobWifi,
			Wifi: &WifiRequest{SSID: config.WifiSSID, Password: config.WifiPassword},
		}); err != nil {
			logger.Error("Failed to queue wifi join", "error", err)
		}
	}

	var httpServer *http.Server
	if config.BindAddress != "" {
		httpServer = &http.Server{
			Addr: config.BindAddress,
			Handler: &Server{
				Logger:  logger.With("component", "server"),
				Gateway: gw,
				Modem:   m,
			},
		}

		go func() {
			logger.Info("Starting HTTP server", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed", "error", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	<-workerDone

	logger.Info("Closing modem connection")
	if err := m.Close(); err != nil {
		logger.Error("Failed to close modem", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		logger.Info("Closing HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to gracefully shutdown server", "error", err)
		}
	}
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

// newDialer picks the serial backend named in the configuration.
func newDialer(config *Config) (modem.Dialer, error) {
	switch config.SerialDriver {
	case "", "bugst":
		return modem.SerialDialer{PortName: config.SerialPort, BaudRate: config.BaudRate}, nil
	case "tarm":
		return modem.TarmDialer{PortName: config.SerialPort, BaudRate: config.BaudRate}, nil
	default:
		return nil, fmt.Errorf("unknown serial driver %q", config.SerialDriver)
	}
}
