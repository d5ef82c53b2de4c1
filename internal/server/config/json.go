package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mediadrop/internal/flagx"
	"github.com/dmitrijs2005/mediadrop/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "30s" style strings or integer nanoseconds. Omitted fields keep the
// value already in Config.
type JsonConfig struct {
	BotToken        *string         `json:"bot_token"`
	AdminIDs        []int64         `json:"admin_ids"`
	DatabaseDriver  *string         `json:"database_driver"`
	DatabaseDSN     *string         `json:"database_dsn"`
	BatchPolicy     *string         `json:"batch_policy"`
	CodeMaxAttempts *int            `json:"code_max_attempts"`
	HealthAddr      *string         `json:"health_addr"`
	LogLevel        *string         `json:"log_level"`
	LogFormat       *string         `json:"log_format"`
	PollTimeout     *timex.Duration `json:"poll_timeout"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file named by -c/-config in args, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setIf(&config.BotToken, c.BotToken)
	setIf(&config.DatabaseDriver, c.DatabaseDriver)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.BatchPolicy, c.BatchPolicy)
	setIf(&config.CodeMaxAttempts, c.CodeMaxAttempts)
	setIf(&config.HealthAddr, c.HealthAddr)
	setIf(&config.LogLevel, c.LogLevel)
	setIf(&config.LogFormat, c.LogFormat)
	if c.AdminIDs != nil {
		config.AdminIDs = c.AdminIDs
	}
	if c.PollTimeout != nil {
		config.PollTimeout = c.PollTimeout.Duration
	}
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
