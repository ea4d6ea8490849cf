package flow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/google/uuid"
)

// TimestampLayout is the format of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultSource is the source tag written to every row.
const DefaultSource = "telegram"

// Columns names the submission row columns in their fixed order.
var Columns = []string{
	"timestamp",
	"user_id",
	"username",
	"first_name",
	"segment",
	"name",
	"phone",
	"city",
	"field",
	"experience",
	"source",
}

// ErrIncomplete is returned when a record is built from a session missing answers.
var ErrIncomplete = errors.New("flow: registration is incomplete")

// Record is a finished registration. It is immutable once built.
type Record struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	UserID      int64
	Username    string
	DisplayName string
	Segment     Language
	Name        string
	Phone       string
	City        string
	Field       string
	Experience  string
	Source      string
}

// NewRecord builds the submission from a session whose answers are all present.
func NewRecord(s Session, at time.Time, source string) (Record, error) {
	if !s.Collected.Complete() {
		return Record{}, ErrIncomplete
	}
	if source == "" {
		source = DefaultSource
	}
	return Record{
		ID:          uuid.New(),
		CreatedAt:   at.UTC(),
		UserID:      s.UserID,
		Username:    s.Username,
		DisplayName: s.DisplayName,
		Segment:     s.Language,
		Name:        pointer.Get(s.Collected.Name),
		Phone:       pointer.Get(s.Collected.Phone),
		City:        pointer.Get(s.Collected.City),
		Field:       pointer.Get(s.Collected.Field),
		Experience:  pointer.Get(s.Collected.Experience),
		Source:      source,
	}, nil
}

// Row returns the record as the ordered column list described by Columns.
func (r Record) Row() []string {
	return []string{
		r.CreatedAt.UTC().Format(TimestampLayout),
		strconv.FormatInt(r.UserID, 10),
		r.Username,
		r.DisplayName,
		string(r.Segment),
		r.Name,
		r.Phone,
		r.City,
		r.Field,
		r.Experience,
		r.Source,
	}
}

// Appender persists finished registrations.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}

// AppenderFunc adapts a function to the Appender interface.
type AppenderFunc func(ctx context.Context, rec Record) error

// Append calls f.
func (f AppenderFunc) Append(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
