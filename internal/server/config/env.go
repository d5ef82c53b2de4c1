package config

import (
	"fmt"
	"strconv"
)

// parseEnv overlays values from the environment:
//
//	BOT_TOKEN, ADMIN_IDS (comma separated), DATABASE_DRIVER, DATABASE_DSN,
//	BATCH_POLICY, CODE_MAX_ATTEMPTS, HEALTH_ADDR, LOG_LEVEL
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("BOT_TOKEN", &config.BotToken)
	str("DATABASE_DRIVER", &config.DatabaseDriver)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("BATCH_POLICY", &config.BatchPolicy)
	str("HEALTH_ADDR", &config.HealthAddr)
	str("LOG_LEVEL", &config.LogLevel)

	if v, ok := lookup("ADMIN_IDS"); ok && v != "" {
		ids, err := ParseIDList(v)
		if err != nil {
			return fmt.Errorf("ADMIN_IDS: %w", err)
		}
		config.AdminIDs = ids
	}

	if v, ok := lookup("CODE_MAX_ATTEMPTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CODE_MAX_ATTEMPTS: %w", err)
		}
		config.CodeMaxAttempts = n
	}

	return nil
}
