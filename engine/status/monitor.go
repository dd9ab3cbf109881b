// Package status implements the optional status monitor of SPEC_FULL.md
// §4.8: a 1-second poll of queue depths and the reader's record count,
// printed as a single human-readable line, exiting once the reader is
// done and both queues it watches are empty.
package status

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Sizer reports the current number of buffered items. *queue.Queue[T]
// satisfies this for any T without status needing to know T.
type Sizer interface {
	Len() int
}

// Counter reports a running count, e.g. a reader's records-enqueued
// counter.
type Counter interface {
	Count() int
}

// ReaderDone reports whether the reader goroutine has finished.
type ReaderDone interface {
	Done() bool
}

// Monitor polls InputQueue/OutputQueue depths and ReaderRecords once per
// second, writing one line per tick to Out, until Reader reports done and
// both queues are empty.
type Monitor struct {
	InputQueue    Sizer
	OutputQueue   Sizer
	ReaderRecords Counter
	Reader        ReaderDone
	Out           io.Writer
	Interval      time.Duration
}

// Run blocks until the exit condition is met or ctx is canceled.
func (m Monitor) Run(ctx context.Context) error {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			inLen := m.InputQueue.Len()
			outLen := m.OutputQueue.Len()
			fmt.Fprintf(m.Out, "records=%d input_queue=%d output_queue=%d\n",
				m.ReaderRecords.Count(), inLen, outLen)
			if m.Reader.Done() && inLen == 0 && outLen == 0 {
				return nil
			}
		}
	}
}
