// Package bootstrap brings up the infrastructure every bot needs before its own wiring:
// the logger, then the optional Postgres pool and schema.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/businesssandbox/regbot/core/config"
	coredatabase "github.com/businesssandbox/regbot/core/database"
	"github.com/businesssandbox/regbot/core/logger"
)

// Options selects the steps. Nil funcs use the core implementations.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

func (o *Options) fill() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result holds what Run opened. DB is nil when no database is configured.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger and, when database.host is set, connects and migrates.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	opts.fill()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}
	ctx := logger.Background()

	if !opts.Database.Enabled() {
		logger.Info(ctx, "db", "db.skip", slog.String("status", "skip"), slog.String("cause", "no host configured"))
		return &Result{}, nil
	}
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	if opts.Database.SkipMigrations {
		logger.Info(ctx, "db.migrate", "db.migrate", slog.String("status", "skip"), slog.String("cause", "disabled"))
		return &Result{DB: db}, nil
	}
	if err := opts.Migrate(opts.Database); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations failed: %w", err), db.Close())
	}
	return &Result{DB: db}, nil
}
