package ops

import (
	"context"
	"log/slog"

	"github.com/AlekSi/pointer"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/internal/registration/sink"
)

// Stats is the registration counters snapshot served by /stats.
type Stats struct {
	Appended uint64 `json:"appended"`
	Failed   uint64 `json:"failed"`
	// Archived is nil when no archive is configured or it could not be read.
	Archived *int64 `json:"archived,omitempty"`
}

// Counter reports a persisted total.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Collector assembles Stats from the in-process counters and the optional archive.
type Collector struct {
	counts  *sink.Counting
	archive Counter
}

// NewCollector returns a Collector. Both arguments may be nil.
func NewCollector(counts *sink.Counting, archive Counter) *Collector {
	return &Collector{counts: counts, archive: archive}
}

// Collect returns the current snapshot. An unreadable archive is logged and left out.
func (c *Collector) Collect(ctx context.Context) Stats {
	var out Stats
	if c == nil {
		return out
	}
	if c.counts != nil {
		s := c.counts.Stats()
		out.Appended, out.Failed = s.Appended, s.Failed
	}
	if c.archive != nil {
		n, err := c.archive.Count(ctx)
		if err != nil {
			logger.Warn(ctx, "ops", "ops.archive_count",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return out
		}
		out.Archived = pointer.To(n)
	}
	return out
}
