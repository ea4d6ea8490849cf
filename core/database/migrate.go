package database

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/businesssandbox/regbot/core/logger"
)

// Migrator applies up migrations. Files come from Config.MigrationsDir when it is set,
// otherwise from Source.
type Migrator struct {
	Source fs.FS
}

// Up migrates the database described by cfg to the latest version.
func (m Migrator) Up(cfg Config) error {
	cfg.Normalize()
	ctx := logger.Background()

	src, where, err := m.source(cfg.MigrationsDir)
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	files := upFiles(src)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "db.migrate.resolve",
		slog.String("path", where),
		slog.Int("files_total", len(files)),
	)

	driver, err := iofs.New(src, ".")
	if err != nil {
		return fmt.Errorf("migrate source: %w", err)
	}
	mg, err := migrate.NewWithSourceInstance("iofs", driver, cfg.URL())
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer func() { _, _ = mg.Close() }()

	from := version(mg)
	start := time.Now()
	err = mg.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		err = nil
	}
	to := version(mg)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate", append(attrs, slog.String("err", err.Error()))...)
		return fmt.Errorf("migrate up: %w", err)
	}
	applied := between(files, from, to)
	if len(applied) > 0 {
		attrs = append(attrs, slog.String("files", strings.Join(applied, ",")))
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "db.migrate", attrs...)
	return nil
}

// RunMigrations applies the migrations in cfg.MigrationsDir.
func RunMigrations(cfg Config) error {
	return Migrator{}.Up(cfg)
}

func (m Migrator) source(dir string) (fs.FS, string, error) {
	if strings.TrimSpace(dir) == "" {
		if m.Source == nil {
			return nil, "", errors.New("migrate: no migrations configured")
		}
		return m.Source, "embedded", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("migrate: resolve %s: %w", dir, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, "", fmt.Errorf("migrate: %w", err)
	}
	return os.DirFS(abs), abs, nil
}

func version(mg *migrate.Migrate) uint {
	v, _, err := mg.Version()
	if err != nil {
		return 0
	}
	return v
}

// upFiles lists the *.up.sql names of src in version order.
func upFiles(src fs.FS) []string {
	names, _ := fs.Glob(src, "*.up.sql")
	slices.SortFunc(names, func(a, b string) int { return int(fileVersion(a)) - int(fileVersion(b)) })
	return names
}

// between returns the files with from < version <= to.
func between(files []string, from, to uint) []string {
	var out []string
	for _, f := range files {
		if v := fileVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}

func fileVersion(name string) uint {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return uint(v)
}
