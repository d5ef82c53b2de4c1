// Package config handles configuration for the bot server: defaults, an
// optional JSON file, environment variables and command-line flags, applied
// in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings.
//
// Fields:
//   - BotToken: Telegram bot API token.
//   - AdminIDs: Telegram user ids allowed to upload and finalize.
//   - DatabaseDriver / DatabaseDSN: "sqlite" (modernc) or "postgres" (pgx).
//   - BatchPolicy: "merge" appends repeat finalizes to the owner's batch,
//     "strict" mints a new code every time.
//   - CodeMaxAttempts: collision retries before giving up on a new code.
//   - HealthAddr: bind address of the liveness endpoint; empty disables it.
//   - LogLevel / LogFormat: slog level name and "json" or "text".
//   - PollTimeout: Telegram long-poll timeout.
//   - ShutdownTimeout: grace period for the health server on exit.
type Config struct {
	BotToken        string
	AdminIDs        []int64
	DatabaseDriver  string
	DatabaseDSN     string
	BatchPolicy     string
	CodeMaxAttempts int
	HealthAddr      string
	LogLevel        string
	LogFormat       string
	PollTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LoadDefaults populates Config with development defaults: an SQLite file in
// the working directory and the merge policy.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "file:mediadrop.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	c.BatchPolicy = "merge"
	c.CodeMaxAttempts = 10
	c.HealthAddr = ":8080"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.PollTimeout = 30 * time.Second
	c.ShutdownTimeout = 5 * time.Second
}

// LoadConfig builds a Config from defaults, then the JSON file named by
// -c/-config, then the environment, then flags, and validates it for the
// bot server.
func LoadConfig() (*Config, error) {
	cfg, err := LoadFrom(os.Args[1:])
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFrom applies all sources to args without validating the result.
func LoadFrom(args []string) (*Config, error) {
	return load(args, os.LookupEnv)
}

func load(args []string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("bot token is not set"))
	}
	if err := c.ValidateStorage(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ValidateStorage checks only the database and batch settings.
func (c *Config) ValidateStorage() error {
	var errs []error
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is not set"))
	}
	if c.CodeMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("code max attempts must be positive, got %d", c.CodeMaxAttempts))
	}
	return errors.Join(errs...)
}

// ParseIDList parses a comma separated list of user ids, skipping blanks.
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
