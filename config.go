package main

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP API listens on; empty disables it
	BindAddress string
	// SerialPort is the path to the ESP8266's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the module
	BaudRate int
	// SerialDriver selects the serial backend: "bugst" or "tarm"
	SerialDriver string
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string

	// WifiSSID and WifiPassword are used to join the network at startup
	WifiSSID     string
	WifiPassword string

	// CloudLogHost is the default host for cloud log uploads
	CloudLogHost string
	// CloudLogAPIKey is the default write API key for cloud log uploads
	CloudLogAPIKey string
	// WebhookKey is the default IFTTT Maker key
	WebhookKey string
	// MinUploadInterval spaces cloud log uploads apart
	MinUploadInterval time.Duration

	// MQTTBroker enables MQTT ingest and status publishing when set
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// ResetChip and ResetLine name the GPIO wired to the module's RST pin;
	// a negative line disables the reset pulse
	ResetChip string
	ResetLine int
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.SerialDriver = "bugst"
		c.LogLevel = "info"
		c.CloudLogHost = "api.thingspeak.com"
		c.MinUploadInterval = 15 * time.Second
		c.MQTTClientID = "espuplink"
		c.MQTTTopic = "espuplink"
		c.ResetChip = "gpiochip0"
		c.ResetLine = -1
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		setString := func(key string, dst *string) {
			if v := os.Getenv(key); v != "" {
				*dst = v
			}
		}

		setString("BIND_ADDRESS", &c.BindAddress)
		setString("SERIAL_PORT", &c.SerialPort)
		setString("SERIAL_DRIVER", &c.SerialDriver)
		setString("LOG_LEVEL", &c.LogLevel)
		setString("WIFI_SSID", &c.WifiSSID)
		setString("WIFI_PASSWORD", &c.WifiPassword)
		setString("CLOUDLOG_HOST", &c.CloudLogHost)
		setString("CLOUDLOG_API_KEY", &c.CloudLogAPIKey)
		setString("WEBHOOK_KEY", &c.WebhookKey)
		setString("MQTT_BROKER", &c.MQTTBroker)
		setString("MQTT_CLIENT_ID", &c.MQTTClientID)
		setString("MQTT_TOPIC", &c.MQTTTopic)
		setString("RESET_CHIP", &c.ResetChip)

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if interval := os.Getenv("MIN_UPLOAD_INTERVAL"); interval != "" {
			if d, err := time.ParseDuration(interval); err == nil {
				c.MinUploadInterval = d
			}
		}

		if line := os.Getenv("RESET_LINE"); line != "" {
			if l, err := strconv.Atoi(line); err == nil {
				c.ResetLine = l
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "serial-driver":
				c.SerialDriver = f.Value.String()
			case "log-level":
				c.LogLevel = f.Value.String()
			case "wifi-ssid":
				c.WifiSSID = f.Value.String()
			case "wifi-password":
				c.WifiPassword = f.Value.String()
			case "cloudlog-host":
				c.CloudLogHost = f.Value.String()
			case "cloudlog-api-key":
				c.CloudLogAPIKey = f.Value.String()
			case "webhook-key":
				c.WebhookKey = f.Value.String()
			case "min-upload-interval":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.MinUploadInterval = d
				}
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			case "mqtt-client-id":
				c.MQTTClientID = f.Value.String()
			case "mqtt-topic":
				c.MQTTTopic = f.Value.String()
			case "reset-chip":
				c.ResetChip = f.Value.String()
			case "reset-line":
				if l, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ResetLine = l
				}
			}
		})
		return nil
	}
}
