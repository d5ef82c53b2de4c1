// Package server wires the bot together: storage, the batch service, the
// Telegram gateway and the health endpoint, plus graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dmitrijs2005/mediadrop/internal/codegen"
	"github.com/dmitrijs2005/mediadrop/internal/dbx"
	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/config"
	"github.com/dmitrijs2005/mediadrop/internal/server/health"
	"github.com/dmitrijs2005/mediadrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mediadrop/internal/server/services"
	"github.com/dmitrijs2005/mediadrop/internal/server/sessions"
	"github.com/dmitrijs2005/mediadrop/internal/server/telegram"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	store   *services.BatchStore
	service *services.BatchService
}

// botConn is a live bot session: where to send, the bot's public name and
// the inbound update stream.
type botConn struct {
	api      telegram.BotAPI
	username string
	updates  <-chan tgbotapi.Update
}

// startBot is a seam for tests.
var startBot = func(ctx context.Context, c *config.Config) (*botConn, error) {
	bot, err := telegram.Connect(c.BotToken)
	if err != nil {
		return nil, err
	}
	return &botConn{
		api:      bot,
		username: bot.Self.UserName,
		updates:  telegram.Updates(ctx, bot, c.PollTimeout),
	}, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	policy, err := services.ParsePolicy(c.BatchPolicy)
	if err != nil {
		return nil, err
	}

	dialect := dbx.Dialect(c.DatabaseDriver)
	rm, err := repomanager.New(dialect)
	if err != nil {
		return nil, fmt.Errorf("repository manager: %w", err)
	}

	db, err := dbx.Open(ctx, dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	codes := codegen.New(codegen.WithMaxAttempts(c.CodeMaxAttempts))
	store := services.NewBatchStore(db, rm, codes, policy, logger)
	svc := services.NewBatchService(sessions.NewStore(c.AdminIDs), store, logger)

	logger.Info(ctx, "storage ready", "driver", c.DatabaseDriver, "policy", policy, "admins", len(c.AdminIDs))

	return &App{config: c, logger: logger, db: db, store: store, service: svc}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGateway(ctx context.Context, cancelFunc context.CancelFunc) error {
	conn, err := startBot(ctx, app.config)
	if err != nil {
		cancelFunc()
		return err
	}

	app.logger.Info(ctx, "bot connected", "username", conn.username)
	gw := telegram.NewGateway(conn.api, conn.username, app.service, app.logger)
	gw.Run(ctx, conn.updates)
	return nil
}

func (app *App) startHealthServer(ctx context.Context, cancelFunc context.CancelFunc) error {
	s := health.NewServer(app.config.HealthAddr, health.NewRouter(app.store, app.logger), app.logger)
	if err := s.Run(ctx, app.config.ShutdownTimeout); err != nil {
		cancelFunc()
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or a
// component fails. The database is closed on return.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	run := func(fn func(context.Context, context.CancelFunc) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx, cancelFunc); err != nil {
				app.logger.Error(ctx, err.Error())
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	run(app.startGateway)
	if app.config.HealthAddr != "" {
		run(app.startHealthServer)
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	app.logger.Info(context.Background(), "app stopped")
	return errors.Join(errs...)
}
