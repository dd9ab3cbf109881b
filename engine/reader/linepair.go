// Package reader implements the two Reader goroutines of SPEC_FULL.md
// §4.3: LinePairReader for gzip-compressed CirrusSearch content dumps, and
// PageXMLReader for MediaWiki XML dumps. Both honor the Stage contract
// (engine/etl.ReaderFunc): enqueue records, inject one sentinel per
// downstream worker, and return the ReaderStats half of the stage
// summary.
package reader

import (
	"bufio"
	"compress/gzip"
	"context"
	"log/slog"
	"os"

	"github.com/gperdrizet/OpenSearch/engine/etl"
	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

// maxLineSize bounds the scanner's buffer: CirrusSearch content lines for
// long articles can run well past bufio.Scanner's 64KiB default.
const maxLineSize = 16 * 1024 * 1024

// LinePairReader reads a gzip-compressed CirrusSearch dump, where records
// come in header/content line pairs. Only the content (odd-indexed, 0
// based) line of each pair carries a record the pipeline cares about —
// the header line is bulk-action metadata from the original dump export
// and is not part of this pipeline's data model.
type LinePairReader struct {
	Path string
	// TargetRecords caps how many content records are enqueued; 0 means
	// no cap (spec §6.5, target_records).
	TargetRecords int
	Logger        *slog.Logger
}

// Read satisfies engine/etl.ReaderFunc.
func (r LinePairReader) Read(ctx context.Context, out *queue.Queue[[]byte], nWorkers int) (etl.ReaderStats, error) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	f, err := os.Open(r.Path)
	if err != nil {
		return etl.ReaderStats{}, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return etl.ReaderStats{}, err
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var lineIdx, records int
	for scanner.Scan() {
		if ctx.Err() != nil {
			return etl.ReaderStats{}, ctx.Err()
		}
		isContentLine := lineIdx%2 == 1
		if isContentLine {
			line := append([]byte(nil), scanner.Bytes()...)
			if err := out.Put(ctx, queue.Of(line)); err != nil {
				return etl.ReaderStats{}, err
			}
			records++
		}
		lineIdx++
		if r.TargetRecords > 0 && records >= r.TargetRecords {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return etl.ReaderStats{}, err
	}

	for i := 0; i < nWorkers; i++ {
		if err := out.Put(ctx, queue.Sentinel[[]byte]()); err != nil {
			return etl.ReaderStats{}, err
		}
	}

	log.Info("reader.done", "reader", "line_pair", "input_lines", lineIdx, "input_records", records)
	return etl.ReaderStats{InputRecords: records, InputLines: lineIdx}, nil
}
