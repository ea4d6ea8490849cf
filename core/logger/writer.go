package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// entry is either a log line or, when ack is set, a flush barrier.
type entry struct {
	line []byte
	ack  chan error
}

// asyncWriter fans log lines out to several outputs from a single goroutine. Lines are
// buffered and the buffers are flushed whenever the queue runs dry, so bursts cost one
// syscall per output instead of one per line.
type asyncWriter struct {
	queue   chan entry
	done    chan struct{}
	closing sync.Once

	outs []*bufio.Writer

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue: make(chan entry, 256),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.outs = append(w.outs, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for e := range w.queue {
		if e.ack != nil {
			e.ack <- w.flush()
			continue
		}
		w.fail(w.write(e.line))
		if len(w.queue) == 0 {
			w.fail(w.flush())
		}
	}
	w.fail(w.flush())
}

// Write queues a copy of p. It blocks only while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.failure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.queue <- entry{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before the call has reached the outputs.
func (w *asyncWriter) Flush() error {
	if err := w.failure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.queue <- entry{ack: ack}
	return <-ack
}

// Close drains the queue and returns the first write error, if any.
func (w *asyncWriter) Close() error {
	w.closing.Do(func() { close(w.queue) })
	<-w.done
	return w.failure()
}

func (w *asyncWriter) write(p []byte) error {
	for _, out := range w.outs {
		if _, err := out.Write(p); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, out := range w.outs {
		if err := out.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) failure() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
