package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/internal/registration/flow"
)

const insertRegistration = `
INSERT INTO registrations (
	id, created_at, user_id, username, display_name, segment,
	name, phone, city, field, experience, source
) VALUES (
	:id, :created_at, :user_id, :username, :display_name, :segment,
	:name, :phone, :city, :field, :experience, :source
)`

const countRegistrations = `SELECT COUNT(*) FROM registrations`

type registrationRow struct {
	ID          string    `db:"id"`
	CreatedAt   time.Time `db:"created_at"`
	UserID      int64     `db:"user_id"`
	Username    string    `db:"username"`
	DisplayName string    `db:"display_name"`
	Segment     string    `db:"segment"`
	Name        string    `db:"name"`
	Phone       string    `db:"phone"`
	City        string    `db:"city"`
	Field       string    `db:"field"`
	Experience  string    `db:"experience"`
	Source      string    `db:"source"`
}

func toRow(rec flow.Record) registrationRow {
	return registrationRow{
		ID:          rec.ID.String(),
		CreatedAt:   rec.CreatedAt.UTC(),
		UserID:      rec.UserID,
		Username:    rec.Username,
		DisplayName: rec.DisplayName,
		Segment:     string(rec.Segment),
		Name:        rec.Name,
		Phone:       rec.Phone,
		City:        rec.City,
		Field:       rec.Field,
		Experience:  rec.Experience,
		Source:      rec.Source,
	}
}

// Archive mirrors registrations into the registrations table.
type Archive struct {
	db *sqlx.DB
}

// NewArchive wraps an open database handle.
func NewArchive(db *sqlx.DB) (*Archive, error) {
	if db == nil {
		return nil, errors.New("archive: nil db")
	}
	return &Archive{db: db}, nil
}

// Append implements flow.Appender.
func (a *Archive) Append(ctx context.Context, rec flow.Record) error {
	start := time.Now()
	_, err := a.db.NamedExecContext(ctx, insertRegistration, toRow(rec))
	logger.Debug(ctx, "sink", "sink.append",
		slog.String("status", logger.Status(err)),
		slog.String("sink", "archive"),
		slog.String("record_id", rec.ID.String()),
		slog.Duration("duration", logger.Took(start)),
	)
	if err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	return nil
}

// Count returns the number of archived registrations.
func (a *Archive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.db.GetContext(ctx, &n, countRegistrations); err != nil {
		return 0, fmt.Errorf("archive count: %w", err)
	}
	return n, nil
}
