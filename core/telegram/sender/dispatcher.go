package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/businesssandbox/regbot/core/logger"
	"github.com/businesssandbox/regbot/core/telegram/netutil"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the capacity of each lane.
	QueueSize int
	// Workers is the number of lanes. Jobs for one chat always share a lane.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher runs outbound Telegram calls on background lanes with retries. Jobs are
// routed by the chat id found in their context, so the replies to one chat go out in
// the order they were enqueued while different chats are served in parallel.
type Dispatcher struct {
	opts  Options
	lanes []chan job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	errs atomic.Uint64
}

// NewDispatcher starts the lanes. Zero options get defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	for i := range d.lanes {
		lane := make(chan job, opts.QueueSize)
		d.lanes[i] = lane
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range lane {
				d.process(j)
			}
		}()
	}
	return d
}

// Enqueue schedules run. It never blocks: a full lane yields ErrQueueFull.
// run must be safe to call again when retries are enabled.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.laneFor(ctx) <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) laneFor(ctx context.Context) chan job {
	key := logger.ChatIDFrom(ctx)
	if key == 0 {
		key = logger.UserIDFrom(ctx)
	}
	if key < 0 {
		key = -key
	}
	return d.lanes[key%int64(len(d.lanes))]
}

// ErrorCount returns the number of jobs that failed for good.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Close stops accepting jobs and waits until the queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, lane := range d.lanes {
			close(lane)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) process(j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var (
		err     error
		attempt int
	)
	for attempt = 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			d.logOutcome(j, nil, attempt, start)
			return
		}
		if attempt == attempts || !retryable(err) {
			break
		}

		delay := d.backoff(err, attempt)
		logger.Debug(j.ctx, component, "send.retry",
			append(jobAttrs(j),
				slog.Int("attempts", attempt),
				slog.Duration("backoff", delay),
				slog.String("err_code", ErrorCode(err)),
			)...,
		)
		if !netutil.Sleep(ctx, delay) {
			err = ctx.Err()
			break
		}
	}
	d.errs.Add(1)
	d.logOutcome(j, err, min(attempt, attempts), start)
}

// backoff grows linearly with the attempt; flood control dictates its own pause.
func (d *Dispatcher) backoff(err error, attempt int) time.Duration {
	if wait := retryAfter(err); wait > 0 {
		return wait
	}
	return d.opts.RetryBackoff * time.Duration(attempt)
}

func retryable(err error) bool {
	return netutil.ShouldRetry(err) || retryAfter(err) > 0
}

func (d *Dispatcher) logOutcome(j job, err error, attempts int, start time.Time) {
	attrs := append(jobAttrs(j),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	)
	if attempts > 1 {
		attrs = append(attrs, slog.Int("attempts", attempts))
	}
	if err == nil {
		logger.Debug(j.ctx, component, "send", attrs...)
		return
	}
	attrs = append(attrs,
		slog.String("err", SanitizeError(err)),
		slog.String("err_code", ErrorCode(err)),
	)
	logger.Error(j.ctx, component, "send", attrs...)
}

func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("op", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}
