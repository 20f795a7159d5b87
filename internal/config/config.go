// Package config loads the client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BridgeFIFO    = "fifo"
	BridgeProcess = "process"
)

// WebsocketPath is the server's websocket endpoint.
const WebsocketPath = "/showdown/websocket"

// ErrUsage is returned for malformed command-line arguments.
var ErrUsage = errors.New("usage: client [<host> <port>]")

// Config holds client configuration, loaded from environment variables.
type Config struct {
	ServerURL    string        `env:"SERVER_URL" envDefault:"ws://localhost:8000/showdown/websocket"`
	LoginURL     string        `env:"LOGIN_URL" envDefault:"https://play.pokemonshowdown.com/api/login"`
	LoginTimeout time.Duration `env:"LOGIN_TIMEOUT" envDefault:"15s"`
	Username     string        `env:"SHOWDOWN_USERNAME,required,notEmpty"`
	Password     string        `env:"SHOWDOWN_PASSWORD"`

	BridgeMode    string   `env:"BRIDGE_MODE" envDefault:"fifo"`
	BridgeInPath  string   `env:"BRIDGE_IN_PATH" envDefault:"/tmp/ps_fifo"`
	BridgeOutPath string   `env:"BRIDGE_OUT_PATH" envDefault:"/tmp/fifo_to_bot"`
	BridgeCommand []string `env:"BRIDGE_COMMAND" envSeparator:" "`

	StatusAddr string `env:"STATUS_ADDR"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment and applies the optional `<host> <port>`
// arguments, which override SERVER_URL.
func Load(args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	switch len(args) {
	case 0:
	case 2:
		cfg.ServerURL = ServerURL(args[0], args[1])
	default:
		return Config{}, ErrUsage
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations env tags cannot express.
func (c Config) Validate() error {
	switch c.BridgeMode {
	case BridgeFIFO:
		if c.BridgeInPath == "" || c.BridgeOutPath == "" {
			return errors.New("config: fifo bridge needs BRIDGE_IN_PATH and BRIDGE_OUT_PATH")
		}
	case BridgeProcess:
		if len(c.BridgeCommand) == 0 {
			return errors.New("config: process bridge needs BRIDGE_COMMAND")
		}
	default:
		return fmt.Errorf("config: unknown BRIDGE_MODE %q", c.BridgeMode)
	}
	if c.ServerURL == "" {
		return errors.New("config: SERVER_URL is empty")
	}
	return nil
}

// ServerURL builds the websocket URL for host and port.
func ServerURL(host, port string) string {
	return "ws://" + net.JoinHostPort(host, port) + WebsocketPath
}
