// Package admin is the operator command line: it applies migrations and
// inspects stored batches directly in the database, without the bot.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dmitrijs2005/mediadrop/internal/codegen"
	"github.com/dmitrijs2005/mediadrop/internal/common"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/models"
	"github.com/dmitrijs2005/mediadrop/internal/server/config"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediadrop/internal/server/services"
)

const usage = `Usage: mediadrop-admin <command> [flags] [args]

Commands:
  migrate              apply pending database migrations
  show <code>          list the items of a batch
  link <bot> <code>    print the start link for a batch
  help                 show this message

Flags: -c config file, -k driver, -d dsn (the server's other flags are accepted too)`

var ErrUsage = errors.New("usage error")

// Store reads batches.
type Store interface {
	Get(ctx context.Context, code string) ([]models.MediaReference, error)
}

type App struct {
	out     io.Writer
	store   Store
	migrate func(ctx context.Context) error
	close   func() error
}

// NewApp opens the database described by cfg.
func NewApp(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}

	policy, err := services.ParsePolicy(cfg.BatchPolicy)
	if err != nil {
		return nil, err
	}

	dialect := dbx.Dialect(cfg.DatabaseDriver)
	rm, err := repomanager.New(dialect)
	if err != nil {
		return nil, err
	}

	db, err := dbx.Open(ctx, dialect, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	logger := logging.New(io.Discard, cfg.LogLevel, cfg.LogFormat)
	store := services.NewBatchStore(db, rm, codegen.New(), policy, logger)

	return newApp(out, store, func(ctx context.Context) error {
		return rm.RunMigrations(ctx, db)
	}, db), nil
}

func newApp(out io.Writer, store Store, migrate func(context.Context) error, db *sql.DB) *App {
	a := &App{out: out, store: store, migrate: migrate, close: func() error { return nil }}
	if db != nil {
		a.close = db.Close
	}
	return a
}

func (a *App) Close() error {
	return a.close()
}

// Execute runs one command.
func (a *App) Execute(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	case "migrate":
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(a.out, "migrations applied")
		return nil
	case "show":
		if len(args) != 1 {
			return fmt.Errorf("%w: show <code>", ErrUsage)
		}
		return a.show(ctx, args[0])
	case "link":
		if len(args) != 2 {
			return fmt.Errorf("%w: link <bot> <code>", ErrUsage)
		}
		return a.link(ctx, args[0], args[1])
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) show(ctx context.Context, code string) error {
	items, err := a.store.Get(ctx, code)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKIND\tFILE ID")
	for i, item := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, item.Kind, item.ExternalID)
	}
	return w.Flush()
}

func (a *App) link(ctx context.Context, bot, code string) error {
	if _, err := a.store.Get(ctx, code); err != nil {
		return err
	}
	fmt.Fprintf(a.out, common.StartLinkFormat+"\n", bot, code)
	return nil
}

// SplitArgs separates leading flags from positional arguments. Flags must
// come before positionals, as with the standard flag package.
func SplitArgs(args []string) (flags, positional []string, err error) {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, name := range config.FlagNames() {
		fs.String(name, "", "")
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	positional = fs.Args()
	return args[:len(args)-len(positional)], positional, nil
}
