package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/mediadrop/internal/flagx"
)

// FlagNames lists every flag LoadFrom understands, without dashes, including
// the config file flags.
func FlagNames() []string {
	return []string{"c", "config", "t", "a", "k", "d", "m", "n", "l", "v"}
}

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-t string   Telegram bot token
//	-a string   comma separated admin user ids
//	-k string   database driver (sqlite|postgres)
//	-d string   database DSN
//	-m string   batch policy (merge|strict)
//	-n int      code generation attempts
//	-l string   health endpoint address
//	-v string   log level
//
// Arguments are first narrowed with flagx.FilterArgs so the -c config flag
// handled by parseJson does not trip this FlagSet.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-t", "-a", "-k", "-d", "-m", "-n", "-l", "-v"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "telegram bot token")
	admins := fs.String("a", "", "comma separated admin user ids")
	fs.StringVar(&config.DatabaseDriver, "k", config.DatabaseDriver, "database driver")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BatchPolicy, "m", config.BatchPolicy, "batch policy")
	fs.IntVar(&config.CodeMaxAttempts, "n", config.CodeMaxAttempts, "code generation attempts")
	fs.StringVar(&config.HealthAddr, "l", config.HealthAddr, "health endpoint address")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *admins != "" {
		ids, err := ParseIDList(*admins)
		if err != nil {
			return err
		}
		config.AdminIDs = ids
	}
	return nil
}
