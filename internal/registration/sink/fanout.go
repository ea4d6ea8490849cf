package sink

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/businesssandbox/regbot/internal/registration/flow"
)

// Fanout hands every record to all sinks in order. A failing sink does not stop the others.
type Fanout []flow.Appender

// Append implements flow.Appender and joins the sink errors.
func (f Fanout) Append(ctx context.Context, rec flow.Record) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats is a snapshot of Counting.
type Stats struct {
	Appended uint64 `json:"appended"`
	Failed   uint64 `json:"failed"`
}

// Counting wraps a sink and counts successful and failed appends.
type Counting struct {
	next     flow.Appender
	appended atomic.Uint64
	failed   atomic.Uint64
}

// NewCounting wraps next.
func NewCounting(next flow.Appender) *Counting {
	return &Counting{next: next}
}

// Append implements flow.Appender.
func (c *Counting) Append(ctx context.Context, rec flow.Record) error {
	if err := c.next.Append(ctx, rec); err != nil {
		c.failed.Add(1)
		return err
	}
	c.appended.Add(1)
	return nil
}

// Stats returns the current counters.
func (c *Counting) Stats() Stats {
	return Stats{Appended: c.appended.Load(), Failed: c.failed.Load()}
}
