package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/businesssandbox/regbot/core/logger"
)

const (
	readyTimeout = 30 * time.Second
	pingTimeout  = 5 * time.Second
	pingInterval = 2 * time.Second
)

// Connect opens the pool and waits for the server to answer. A container that is still
// starting gets readyTimeout to come up.
func Connect(cfg Config) (*sqlx.DB, error) {
	cfg.Normalize()
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.Open("postgres", cfg.KeywordDSN())
	if err == nil {
		if err = waitReady(ctx, db.DB); err != nil {
			_ = db.Close()
		}
	}
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	db.SetConnMaxIdleTime(5 * time.Minute)
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect", append(attrs, slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// waitReady pings db every pingInterval until it answers or ctx ends.
func waitReady(ctx context.Context, db *sql.DB) error {
	for {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := db.PingContext(pctx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database not ready: %w", err)
		case <-time.After(pingInterval):
		}
	}
}
