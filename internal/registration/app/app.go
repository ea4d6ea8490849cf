// Package app wires configuration, storage, sinks and the Telegram adapter into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	corebootstrap "github.com/businesssandbox/regbot/core/bootstrap"
	coredatabase "github.com/businesssandbox/regbot/core/database"
	"github.com/businesssandbox/regbot/core/logger"
	tg "github.com/businesssandbox/regbot/core/telegram"
	"github.com/businesssandbox/regbot/core/telegram/router"
	"github.com/businesssandbox/regbot/core/telegram/state"
	"github.com/businesssandbox/regbot/internal/registration/bot"
	"github.com/businesssandbox/regbot/internal/registration/flow"
	"github.com/businesssandbox/regbot/internal/registration/ops"
	"github.com/businesssandbox/regbot/internal/registration/sink"
	"github.com/businesssandbox/regbot/migrations"
)

const pingTimeout = 5 * time.Second

// Deps carries infrastructure created outside the app. Nil fields are built from the config.
type Deps struct {
	DB     *sqlx.DB
	Values sink.ValuesAppender
	Redis  goredis.Cmdable
}

// App is the assembled registration bot.
type App struct {
	cfg      *Config
	registry *tg.Registry
	handler  *bot.Handler
	stats    *ops.Collector
	ops      *ops.Server

	db    *sqlx.DB
	redis *goredis.Client
}

// Bootstrap initializes logging and the optional database, then builds the app.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	res, err := corebootstrap.Run(corebootstrap.Options{
		Config:   &cfg.Config,
		Database: cfg.Database,
		Migrate:  coredatabase.Migrator{Source: migrations.FS}.Up,
	})
	if err != nil {
		return nil, err
	}
	a, err := Build(logger.Background(), cfg, Deps{DB: res.DB})
	if err != nil {
		if res.DB != nil {
			_ = res.DB.Close()
		}
		return nil, err
	}
	return a, nil
}

// Build assembles the app from cfg and deps.
func Build(ctx context.Context, cfg *Config, deps Deps) (*App, error) {
	a := &App{cfg: cfg, db: deps.DB}

	sessions, err := a.sessionStore(ctx, deps.Redis)
	if err != nil {
		return nil, err
	}

	values := deps.Values
	if values == nil {
		svc, err := sink.NewSheetsService(ctx, cfg.Sheets.CredentialsFile)
		if err != nil {
			a.closeRedis()
			return nil, fmt.Errorf("app: %w", err)
		}
		values = svc
	}
	sheets, err := sink.NewSheets(values, cfg.Sheets.SpreadsheetID, cfg.Sheets.Worksheet)
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("app: %w", err)
	}

	sinks := sink.Fanout{sheets}
	var archived ops.Counter
	if deps.DB != nil {
		archive, err := sink.NewArchive(deps.DB)
		if err != nil {
			a.closeRedis()
			return nil, fmt.Errorf("app: %w", err)
		}
		sinks = append(sinks, archive)
		archived = archive
	}
	counting := sink.NewCounting(sinks)
	a.stats = ops.NewCollector(counting, archived)

	phones, err := flow.NewPhoneRules(cfg.Registration.PhonePatterns)
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("app: %w", err)
	}
	conversation, err := flow.New(flow.Options{
		Catalog: flow.DefaultCatalog(cfg.Registration.PolicyURL),
		Phones:  phones,
		Sink:    counting,
		Source:  cfg.Registration.Source,
	})
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("app: %w", err)
	}

	a.handler, err = bot.New(bot.Options{
		Flow:     conversation,
		Sessions: sessions,
		Stats:    a.stats,
	})
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("app: %w", err)
	}
	a.registry = tg.NewRegistry()
	a.handler.Register(a.registry)

	if listen := strings.TrimSpace(cfg.Ops.Listen); listen != "" {
		a.ops = ops.NewServer(listen, a.stats)
	}

	logger.Info(ctx, "app", "app.build",
		slog.String("status", "ok"),
		slog.Int("sinks", len(sinks)),
		slog.Bool("redis", cfg.Redis.Addr != "" || deps.Redis != nil),
		slog.Bool("ops", a.ops != nil),
	)
	return a, nil
}

func (a *App) sessionStore(ctx context.Context, client goredis.Cmdable) (state.Store[flow.Session], error) {
	rc := a.cfg.Redis
	if client == nil && strings.TrimSpace(rc.Addr) == "" {
		return state.NewMemoryStore[flow.Session](rc.SessionTTL), nil
	}
	if client == nil {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		client = a.redis
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	start := time.Now()
	err := client.Ping(pingCtx).Err()
	logger.LogEvent(ctx, logger.Store, levelFor(err), "store.ping",
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("app: redis ping: %w", err)
	}
	return state.NewRedisStore[flow.Session](client, rc.Prefix, rc.SessionTTL), nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	if a == nil || a.cfg == nil {
		return tg.RunOptions{}, errors.New("app: not built")
	}
	core := &a.cfg.Config

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.MessageRoutes(a.registry, router.MessageOptions{})...)

	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ tg.Runtime) error {
			if a.ops == nil {
				return nil
			}
			return a.ops.Start(ctx)
		},
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			if a.ops == nil {
				return nil
			}
			return a.ops.Shutdown(ctx)
		},
	}, nil
}

// Close releases the Redis client and the database.
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
		a.redis = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}

func (a *App) closeRedis() {
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
}

func levelFor(err error) slog.Level {
	if err != nil {
		return slog.LevelError
	}
	return slog.LevelInfo
}
