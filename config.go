package main

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Config holds the bridge daemon configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the module's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the module (e.g. 115200)
	BaudRate int
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string
	// URCPrefixes lists the unsolicited result code prefixes to watch,
	// e.g. "+CMTI:,RING". Each matched line is logged and, when MQTT is
	// configured, published.
	URCPrefixes []string
	// MqttBroker is the MQTT broker URL (e.g. "tcp://localhost:1883").
	// Empty disables MQTT publishing.
	MqttBroker string
	// MqttClientID identifies this bridge on the broker
	MqttClientID string
	// MqttTopic is the topic URC events are published to
	MqttTopic string
	// MqttUser is the broker username (optional)
	MqttUser string
	// MqttPass is the broker password (optional)
	MqttPass string
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
		c.LogLevel = "info"
		c.MqttClientID = "at-bridge-1"
		c.MqttTopic = "at/urc"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if prefixes := os.Getenv("URC_PREFIXES"); prefixes != "" {
			c.URCPrefixes = splitPrefixes(prefixes)
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MqttBroker = broker
		}
		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MqttClientID = id
		}
		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MqttTopic = topic
		}
		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MqttUser = user
		}
		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MqttPass = pass
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
			case "log-level":
				c.LogLevel = f.Value.String()
			case "urc-prefixes":
				c.URCPrefixes = splitPrefixes(f.Value.String())
			case "mqtt-broker":
				c.MqttBroker = f.Value.String()
			case "mqtt-topic":
				c.MqttTopic = f.Value.String()
			}
		})
		return nil
	}
}

func splitPrefixes(s string) []string {
	var prefixes []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return prefixes
}
