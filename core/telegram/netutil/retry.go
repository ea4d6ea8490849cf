// Package netutil holds the retry rules shared by the outbound clients: the Telegram
// HTTP transport, the send dispatcher and the spreadsheet sink.
package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"
)

// ShouldRetry reports whether err looks like a transient network failure:
// a timeout, or a dial error where the request never left the host.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err == nil {
			return false
		}
		err = urlErr.Err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Policy is a linear backoff schedule: attempt n waits Backoff*n, capped at MaxBackoff.
type Policy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// Delay returns the pause after the given failed attempt (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Backoff * time.Duration(max(attempt, 1))
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return max(d, 0)
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the attempts
// run out. A nil retryable means ShouldRetry. The last error is returned.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(attempt int) error) error {
	if retryable == nil {
		retryable = ShouldRetry
	}
	attempts := max(p.Attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) {
			return err
		}
		if !Sleep(ctx, p.Delay(attempt)) {
			return errors.Join(err, ctx.Err())
		}
	}
	return err
}

// Sleep waits for d or until ctx is done; false means ctx ended first.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
