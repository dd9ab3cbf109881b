package reader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gperdrizet/OpenSearch/engine/archive"
	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

// ArchiveReader feeds a stage from a previous stage's Framed Archive Store
// output (spec §4.6 step 3: "each stage after the first reads the prior
// stage's archive"). Records are replayed in the order they were written.
type ArchiveReader struct {
	Path          string
	TargetRecords int
	Logger        *slog.Logger
}

// Read satisfies engine/etl.ReaderFunc.
func (r ArchiveReader) Read(ctx context.Context, out *queue.Queue[[]byte], nWorkers int) (etl.ReaderStats, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	ar, err := archive.Open(r.Path)
	if err != nil {
		return etl.ReaderStats{}, err
	}
	defer ar.Close()

	records := 0
	for batchID := 0; batchID < ar.NumBatches(); batchID++ {
		batch, err := ar.Batch(batchID)
		if err != nil {
			// A batch the footer promises but that fails to decode means
			// the previous stage's writer never finished sealing it
			// cleanly, so the archive is reported as incomplete.
			return etl.ReaderStats{}, fmt.Errorf("%w: %v", etl.ErrArchiveIncomplete, err)
		}
		for _, rec := range batch {
			if ctx.Err() != nil {
				return etl.ReaderStats{}, ctx.Err()
			}
			if err := out.Put(ctx, queue.Of(rec)); err != nil {
				return etl.ReaderStats{}, err
			}
			records++
			if r.TargetRecords > 0 && records >= r.TargetRecords {
				for i := 0; i < nWorkers; i++ {
					if err := out.Put(ctx, queue.Sentinel[[]byte]()); err != nil {
						return etl.ReaderStats{}, err
					}
				}
				log.Info("reader.done", "reader", "archive", "input_records", records)
				return etl.ReaderStats{InputRecords: records}, nil
			}
		}
	}

	for i := 0; i < nWorkers; i++ {
		if err := out.Put(ctx, queue.Sentinel[[]byte]()); err != nil {
			return etl.ReaderStats{}, err
		}
	}
	log.Info("reader.done", "reader", "archive", "input_records", records)
	return etl.ReaderStats{InputRecords: records}, nil
}
