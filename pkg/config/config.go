package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the application configuration, populated from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`

	// Database
	UseMemoryDB bool   `env:"USE_MEMORY_DB" envDefault:"true"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	// JWT
	JWTSecret string `env:"JWT_SECRET" envDefault:"your-secret-key-change-in-production"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	// Reminder sweep
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"1m"`
	ReminderWindow   time.Duration `env:"REMINDER_WINDOW" envDefault:"15m"`

	// Debug
	Debug bool `env:"DEBUG" envDefault:"false"`
}

// LoadConfig loads configuration from .env files and the environment.
func LoadConfig() *Config {
	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	switch environment {
	case "production":
		loadEnvFile(".env.production")
	default:
		loadEnvFile(".env.local")
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		fmt.Printf("[error] failed to parse environment: %v\n", err)
	}

	config.PostgresDSN = strings.TrimSpace(config.PostgresDSN)

	if config.Environment == "production" {
		// Production requires the external store and no debug output
		if config.PostgresDSN != "" {
			config.UseMemoryDB = false
		} else {
			fmt.Println("[warn] production environment without POSTGRES_DSN; falling back to memory store")
		}
		config.Debug = false
	}

	return config
}

// Cached config (initialized once per process)
var (
	cachedConfig *Config
	configOnce   sync.Once
)

// GetCached returns the process-wide cached Config, loading it on first use.
func GetCached() *Config {
	configOnce.Do(func() {
		cachedConfig = LoadConfig()
	})
	return cachedConfig
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.JWTSecret == "" || c.JWTSecret == "your-secret-key-change-in-production" {
		if c.Environment == "production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Environment == "development" {
			fmt.Println("[warn] using default JWT secret (not recommended for production)")
		}
	}

	if !c.UseMemoryDB && c.PostgresDSN == "" {
		return fmt.Errorf("database configuration incomplete: set POSTGRES_DSN or USE_MEMORY_DB=true")
	}

	if c.ReminderInterval <= 0 {
		return fmt.Errorf("REMINDER_INTERVAL must be positive")
	}

	return nil
}

// IsProduction reports whether this is the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether this is the development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// loadEnvFile loads a .env file into the process environment
func loadEnvFile(filename string) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return
	}

	file, err := os.Open(filename)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if len(value) >= 2 {
			if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
				(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
				value = value[1 : len(value)-1]
			}
		}

		// Real environment always wins over .env files
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
