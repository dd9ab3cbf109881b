package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

// ReaderFunc feeds out with every record of a stage's input, injecting
// exactly nWorkers sentinels once it reaches EOF or its record target
// (spec §4.3).
type ReaderFunc[In any] func(ctx context.Context, out *queue.Queue[In], nWorkers int) (ReaderStats, error)

// WriterFunc drains in until it has absorbed nWorkers sentinels, then
// flushes any residual output (spec §4.5).
type WriterFunc[Out any] func(ctx context.Context, in *queue.Queue[Out], nWorkers int) (WriterStats, error)

// Stage composes a reader, a worker pool running Transform, and a writer,
// over two bounded queues, exactly as spec §4.6 describes. It produces a
// Summary when it ends.
type Stage[In, Out any] struct {
	// Name identifies the stage in logs and events (e.g. "ExtractText").
	Name string
	// Source is echoed verbatim into the summary (spec §4.6 step 1).
	Source map[string]any
	// KnownCorpusSize feeds the estimated-total-time derived statistic
	// (spec §4.6 step 8); zero disables the estimate.
	KnownCorpusSize int

	Reader        ReaderFunc[In]
	Transform     Transform[In, Out]
	Writer        WriterFunc[Out]
	Workers       int
	QueueCapacity int

	// InQueue/OutQueue let a caller supply pre-built queues instead of
	// Run constructing its own, so something outside the stage (the
	// optional status monitor, spec §4.8) can observe queue depth while
	// the stage runs. Nil means Run constructs both with QueueCapacity.
	InQueue  *queue.Queue[In]
	OutQueue *queue.Queue[Out]

	// SummaryPath is where the stage's summary is written on success —
	// its presence is the idempotency witness (P4).
	SummaryPath string
}

// Run executes the stage to completion. On any component failure the whole
// stage aborts via context cancellation and no summary is written, so a
// subsequent run resumes at this stage (spec §4.7 step 3).
func (s Stage[In, Out]) Run(ctx context.Context) (Summary, error) {
	if s.Workers <= 0 {
		return Summary{}, fmt.Errorf("etl: stage %s: workers must be > 0", s.Name)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inQ := s.InQueue
	if inQ == nil {
		inQ = queue.New[In](s.QueueCapacity)
	}
	outQ := s.OutQueue
	if outQ == nil {
		outQ = queue.New[Out](s.QueueCapacity)
	}

	type readResult struct {
		stats ReaderStats
		err   error
	}
	type writeResult struct {
		stats WriterStats
		err   error
	}

	readCh := make(chan readResult, 1)
	writeCh := make(chan writeResult, 1)
	poolCh := make(chan error, 1)

	start := time.Now()

	go func() {
		stats, err := s.Reader(ctx, inQ, s.Workers)
		if err != nil {
			cancel()
		}
		readCh <- readResult{stats, err}
	}()

	go func() {
		stats, err := s.Writer(ctx, outQ, s.Workers)
		if err != nil {
			cancel()
		}
		writeCh <- writeResult{stats, err}
	}()

	go func() {
		err := runPool(ctx, s.Workers, inQ, outQ, s.Transform)
		if err != nil {
			cancel()
		}
		poolCh <- err
	}()

	// Wait for workers first (spec §4.6 step 6), then reader and writer
	// (step 7) — mirrors the order the spec lists, though all three run
	// concurrently and any may finish first.
	poolErr := <-poolCh
	read := <-readCh
	write := <-writeCh

	wallTime := time.Since(start)

	firstErr := poolErr
	if firstErr == nil {
		firstErr = read.err
	}
	if firstErr == nil {
		firstErr = write.err
	}
	if firstErr != nil {
		return Summary{}, fmt.Errorf("etl: stage %s failed: %w", s.Name, firstErr)
	}

	summary := merge(s.Source, read.stats, write.stats, wallTime, s.KnownCorpusSize)
	if err := summary.WriteAtomically(s.SummaryPath); err != nil {
		return Summary{}, fmt.Errorf("etl: stage %s: %w", s.Name, err)
	}
	return summary, nil
}
