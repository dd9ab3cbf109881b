package writer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/engine/transform"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
	"github.com/gperdrizet/OpenSearch/pkg/resilience"
	"github.com/gperdrizet/OpenSearch/pkg/sink"
)

// retryDelay is how long a transient sink failure holds the buffer before
// the next attempt (spec §7, "Transient sink failure": "sleep 10s, retry
// with the same buffer"). A var, not a const, so tests can shrink it.
var retryDelay = 10 * time.Second

// BulkIndexWriter drains a queue of Indexing Request Pairs, buffers
// BatchSize pairs, attaches the stage's logical index name to each header
// (workers produce index-agnostic headers — spec §4.5), and submits the
// buffer as one bulk request. Transient sink failures retry with the same
// held buffer through a circuit breaker (spec §7 scenario 5); permanent
// failures propagate immediately.
type BulkIndexWriter struct {
	Sink      *sink.Client
	Index     string
	BatchSize int
	Breaker   *resilience.Breaker
	Logger    *slog.Logger
}

// Write satisfies engine/etl.WriterFunc.
func (w BulkIndexWriter) Write(ctx context.Context, in *queue.Queue[transform.RequestPair], nWorkers int) (etl.WriterStats, error) {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	batchSize := w.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	breaker := w.Breaker
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerOpts)
	}

	var stats etl.WriterStats
	var pending []transform.RequestPair
	sentinelsSeen := 0

	submit := func() error {
		if len(pending) == 0 {
			return nil
		}
		ndjson, err := encodeBulk(w.Index, pending)
		if err != nil {
			return err
		}
		for {
			err := breaker.Call(ctx, func(ctx context.Context) error {
				return w.Sink.Bulk(ctx, w.Index, ndjson)
			})
			if err == nil {
				break
			}
			if errors.Is(err, sink.ErrTransient) || errors.Is(err, resilience.ErrCircuitOpen) {
				log.Warn("writer.bulk.retry", "index", w.Index, "pairs", len(pending), "error", err)
				select {
				case <-time.After(retryDelay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}
		stats.OutputRecords += len(pending)
		stats.OutputBatches++
		pending = pending[:0]
		return nil
	}

	for sentinelsSeen < nWorkers {
		item, ok := in.Get(ctx)
		if !ok {
			return etl.WriterStats{}, ctx.Err()
		}
		if item.IsSentinel {
			sentinelsSeen++
			continue
		}
		pending = append(pending, item.Payload)
		if len(pending) >= batchSize {
			if err := submit(); err != nil {
				return etl.WriterStats{}, err
			}
		}
	}
	if err := submit(); err != nil {
		return etl.WriterStats{}, err
	}

	log.Info("writer.done", "writer", "bulk_index", "index", w.Index, "output_batches", stats.OutputBatches, "output_records", stats.OutputRecords)
	return stats, nil
}

// encodeBulk attaches the target index name to each pair's header and
// serializes header/body lines in order (spec §4.5: "header immediately
// followed by body").
func encodeBulk(index string, pairs []transform.RequestPair) ([]byte, error) {
	var buf bytes.Buffer
	for _, p := range pairs {
		header := p.Header
		header.Index = index
		line, err := json.Marshal(map[string]any{
			header.Action: map[string]any{"_index": header.Index, "_id": header.ID},
		})
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')

		body, err := json.Marshal(p.Body)
		if err != nil {
			return nil, err
		}
		buf.Write(body)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
