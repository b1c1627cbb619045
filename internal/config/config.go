// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Server holds settings for the backing-store server process.
type Server struct {
	Port           string        `envconfig:"PORT" default:"8081"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	AllowedOrigins []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownGrace  time.Duration `envconfig:"SHUTDOWN_GRACE" default:"10s"`
}

// Terminal holds settings for one POS terminal process.
type Terminal struct {
	RemoteBaseURL   string        `envconfig:"REMOTE_BASE_URL" default:"http://localhost:8081"`
	PushURL         string        `envconfig:"PUSH_URL" default:"ws://localhost:8081/ws/orders"`
	Branch          string        `envconfig:"BRANCH" default:"main"`
	RefetchInterval time.Duration `envconfig:"REFETCH_INTERVAL" default:"1m"`
	CacheFile       string        `envconfig:"CACHE_FILE"`
	PerOrderMinutes int           `envconfig:"KITCHEN_PER_ORDER_MINUTES" default:"5"`
	KitchenCapacity int           `envconfig:"KITCHEN_CAPACITY" default:"10"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadServer reads server settings. A missing .env file is not an error.
func LoadServer() (*Server, error) {
	_ = godotenv.Load()
	var c Server
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	return &c, nil
}

// LoadTerminal reads terminal settings.
func LoadTerminal() (*Terminal, error) {
	_ = godotenv.Load()
	var c Terminal
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("load terminal config: %w", err)
	}
	return &c, nil
}
