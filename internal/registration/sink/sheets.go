package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/internal/registration/flow"
)

const (
	// DefaultWorksheet is the tab rows are appended to when none is configured.
	DefaultWorksheet = "Registrations"

	valueInputRaw   = "RAW"
	insertDataRows  = "INSERT_ROWS"
	lastColumnIndex = 'A' + 10
)

// ValuesAppender appends rows to a spreadsheet range.
type ValuesAppender interface {
	AppendValues(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// SheetsService adapts the Google Sheets API client to ValuesAppender.
type SheetsService struct {
	svc *sheets.Service
}

// NewSheetsService builds a Sheets client authenticated with a service account key file.
// Extra client options are appended after the credentials.
func NewSheetsService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*SheetsService, error) {
	all := make([]option.ClientOption, 0, len(opts)+2)
	if strings.TrimSpace(credentialsFile) != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile))
	}
	all = append(all, option.WithScopes(sheets.SpreadsheetsScope))
	all = append(all, opts...)

	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &SheetsService{svc: svc}, nil
}

// AppendValues implements ValuesAppender.
func (s *SheetsService) AppendValues(ctx context.Context, spreadsheetID, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.
		Append(spreadsheetID, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption(valueInputRaw).
		InsertDataOption(insertDataRows).
		Context(ctx).
		Do()
	return err
}

// Sheets appends each registration as one row of the configured worksheet.
type Sheets struct {
	api           ValuesAppender
	spreadsheetID string
	rng           string
}

// NewSheets validates the target and returns a Sheets sink.
func NewSheets(api ValuesAppender, spreadsheetID, worksheet string) (*Sheets, error) {
	if api == nil {
		return nil, errors.New("sheets: nil client")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	worksheet = strings.TrimSpace(worksheet)
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}
	return &Sheets{
		api:           api,
		spreadsheetID: spreadsheetID,
		rng:           columnRange(worksheet, len(flow.Columns)),
	}, nil
}

// Append implements flow.Appender. The row is sent once; an append is not idempotent
// and a failed one is reported, never repeated.
func (s *Sheets) Append(ctx context.Context, rec flow.Record) error {
	cells := rec.Row()
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}

	start := time.Now()
	err := s.api.AppendValues(ctx, s.spreadsheetID, s.rng, [][]any{row})
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("sink", "sheets"),
		slog.String("record_id", rec.ID.String()),
		slog.Duration("duration", logger.Took(start)),
	}
	if code := httpCode(err); code != 0 {
		attrs = append(attrs, slog.Int("http_code", code))
	}
	logger.Debug(ctx, "sink", "sink.append", attrs...)
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}

// httpCode returns the status of a Sheets API error, or 0.
func httpCode(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// columnRange renders "<sheet>!A:<last>" and quotes sheet names that need it.
func columnRange(worksheet string, columns int) string {
	last := rune('A' + columns - 1)
	if columns <= 0 || last > 'Z' {
		last = lastColumnIndex
	}
	name := worksheet
	if strings.ContainsAny(name, " '!:") {
		name = "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return fmt.Sprintf("%s!A:%c", name, last)
}
