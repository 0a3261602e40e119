package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AlrightyTighty/baddle-backend/internal"
)

type Config struct {
	Port         string
	BindAddress  string
	ClientOrigin string
	DatabaseURL  string
	WordsFile    string
	LogLevel     string
	LogFormat    string
	SettleDelay  time.Duration
	NameLength   int
	Defaults     internal.Options
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "3001"),
		BindAddress:  getEnv("BIND_ADDRESS", ""),
		ClientOrigin: getEnv("CLIENT_ORIGIN", "*"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		WordsFile:    getEnv("WORDS_FILE", ""),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	var err error
	defaults := internal.DefaultOptions()
	if defaults.RoundLength, err = getInt("ROUND_LENGTH_SECONDS", defaults.RoundLength); err != nil {
		return nil, err
	}
	if defaults.RoomSize, err = getInt("ROOM_SIZE", defaults.RoomSize); err != nil {
		return nil, err
	}
	if defaults.NumRounds, err = getInt("NUM_ROUNDS", defaults.NumRounds); err != nil {
		return nil, err
	}
	if defaults.AllowLateJoin, err = getBool("ALLOW_LATE_JOIN", defaults.AllowLateJoin); err != nil {
		return nil, err
	}
	if cfg.SettleDelay, err = getDuration("SETTLE_DELAY", internal.SettleDelay); err != nil {
		return nil, err
	}
	if cfg.NameLength, err = getInt("NAME_LENGTH", 6); err != nil {
		return nil, err
	}
	cfg.Defaults = defaults

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("config: PORT %q is not a number", c.Port)
	}
	if !c.Defaults.Valid() {
		return fmt.Errorf("config: default options out of range: %+v", c.Defaults)
	}
	if c.SettleDelay <= 0 {
		return fmt.Errorf("config: SETTLE_DELAY must be positive, got %s", c.SettleDelay)
	}
	if c.NameLength <= 0 {
		return fmt.Errorf("config: NAME_LENGTH must be positive, got %d", c.NameLength)
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

// AllowedOrigins splits CLIENT_ORIGIN on commas. Nil means any origin.
func (c *Config) AllowedOrigins() []string {
	if c.ClientOrigin == "" || c.ClientOrigin == "*" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(c.ClientOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
