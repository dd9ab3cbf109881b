package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gperdrizet/OpenSearch/pkg/queue"
)

// sliceReader feeds a fixed slice of values and reports how many it sent.
func sliceReader[T any](values []T) ReaderFunc[T] {
	return func(ctx context.Context, out *queue.Queue[T], nWorkers int) (ReaderStats, error) {
		for _, v := range values {
			if err := out.PutValue(ctx, v); err != nil {
				return ReaderStats{}, err
			}
		}
		for i := 0; i < nWorkers; i++ {
			if err := out.PutSentinel(ctx); err != nil {
				return ReaderStats{}, err
			}
		}
		return ReaderStats{InputRecords: len(values)}, nil
	}
}

// collectingWriter drains everything into a slice, thread-safely.
func collectingWriter[T any](dst *[]T, mu *sync.Mutex) WriterFunc[T] {
	return func(ctx context.Context, in *queue.Queue[T], nWorkers int) (WriterStats, error) {
		done := 0
		count := 0
		for done < nWorkers {
			item, ok := in.Get(ctx)
			if !ok {
				return WriterStats{}, ctx.Err()
			}
			if item.IsSentinel {
				done++
				continue
			}
			mu.Lock()
			*dst = append(*dst, item.Payload)
			mu.Unlock()
			count++
		}
		return WriterStats{OutputBatches: 1, OutputRecords: count}, nil
	}
}

// TestLinePairScenario models the stage shape of spec §8 scenario 1: the
// two article bodies that scenario's header/body lines carry are fed
// directly as 2 input records through an identity transform, 1 worker,
// yielding 2 outputs and a summary reporting input=2 output=2.
func TestLinePairScenario(t *testing.T) {
	bodies := []string{"body0 text", "body1 text"}

	var out []string
	var mu sync.Mutex

	stage := Stage[string, string]{
		Name:          "ExtractText",
		Source:        map[string]any{"raw_data_file": "fixture.json.gz"},
		Reader:        sliceReader(bodies),
		Transform:     func(_ context.Context, s string) ([]string, error) { return []string{s}, nil },
		Writer:        collectingWriter(&out, &mu),
		Workers:       1,
		QueueCapacity: 4,
		SummaryPath:   filepath.Join(t.TempDir(), "summary.json"),
	}

	summary, err := stage.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.InputRecords != 2 {
		t.Fatalf("expected input_records=2, got %d", summary.InputRecords)
	}
	if summary.OutputRecords != 2 {
		t.Fatalf("expected output_records=2, got %d", summary.OutputRecords)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 records written, got %d", len(out))
	}
}

// TestDisambiguationSkip reproduces spec §8 scenario 2: one of two input
// records is a disambiguation page and is dropped by the transform, but
// input_records still counts both.
func TestDisambiguationSkip(t *testing.T) {
	type rawRecord struct {
		text            string
		isDisambiguation bool
	}
	records := []rawRecord{
		{text: "Article A", isDisambiguation: false},
		{text: "Article B", isDisambiguation: true},
	}

	var out []string
	var mu sync.Mutex

	extract := func(_ context.Context, r rawRecord) ([]string, error) {
		if r.isDisambiguation {
			return nil, nil
		}
		return []string{r.text}, nil
	}

	stage := Stage[rawRecord, string]{
		Name:          "ExtractText",
		Reader:        sliceReader(records),
		Transform:     extract,
		Writer:        collectingWriter(&out, &mu),
		Workers:       1,
		QueueCapacity: 4,
		SummaryPath:   filepath.Join(t.TempDir(), "summary.json"),
	}

	summary, err := stage.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.InputRecords != 2 {
		t.Fatalf("expected input_records=2, got %d", summary.InputRecords)
	}
	if summary.OutputRecords != 1 {
		t.Fatalf("expected output_records=1, got %d", summary.OutputRecords)
	}
	if len(out) != 1 || out[0] != "Article A" {
		t.Fatalf("expected only Article A to survive, got %v", out)
	}
}

// TestStageFailureWritesNoSummary exercises §7/§8 P4: a failing transform
// aborts the stage and no summary file is written.
func TestStageFailureWritesNoSummary(t *testing.T) {
	var out []string
	var mu sync.Mutex
	summaryPath := filepath.Join(t.TempDir(), "summary.json")

	boom := fmt.Errorf("boom")
	stage := Stage[string, string]{
		Name:          "ParseText",
		Reader:        sliceReader([]string{"a", "b"}),
		Transform:     func(_ context.Context, _ string) ([]string, error) { return nil, boom },
		Writer:        collectingWriter(&out, &mu),
		Workers:       2,
		QueueCapacity: 4,
		SummaryPath:   summaryPath,
	}

	if _, err := stage.Run(context.Background()); err == nil {
		t.Fatal("expected stage failure")
	}
	if Exists(summaryPath) {
		t.Fatal("summary must not exist after a failed stage")
	}
}

// TestSuppliedQueuesAreObservable exercises the status monitor's
// requirement (spec §4.8): a caller-supplied InQueue/OutQueue lets it read
// depth from outside the stage while Run is using the very same queues.
func TestSuppliedQueuesAreObservable(t *testing.T) {
	var out []string
	var mu sync.Mutex

	inQ := queue.New[string](4)
	outQ := queue.New[string](4)

	stage := Stage[string, string]{
		Name:          "ExtractText",
		Reader:        sliceReader([]string{"a", "b"}),
		Transform:     func(_ context.Context, s string) ([]string, error) { return []string{s}, nil },
		Writer:        collectingWriter(&out, &mu),
		Workers:       1,
		QueueCapacity: 4,
		InQueue:       inQ,
		OutQueue:      outQ,
		SummaryPath:   filepath.Join(t.TempDir(), "summary.json"),
	}

	summary, err := stage.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.OutputRecords != 2 {
		t.Fatalf("expected output_records=2, got %d", summary.OutputRecords)
	}
	if inQ.Len() != 0 || outQ.Len() != 0 {
		t.Fatalf("expected supplied queues drained after Run, got in=%d out=%d", inQ.Len(), outQ.Len())
	}
}

// TestEmptyTransformOutput covers the boundary behavior: every record
// skipped by the transform still yields a completed stage with a valid
// summary and zero output records.
func TestEmptyTransformOutput(t *testing.T) {
	var out []string
	var mu sync.Mutex
	summaryPath := filepath.Join(t.TempDir(), "summary.json")

	stage := Stage[string, string]{
		Name:          "ExtractText",
		Reader:        sliceReader([]string{"a", "b", "c"}),
		Transform:     func(_ context.Context, _ string) ([]string, error) { return nil, nil },
		Writer:        collectingWriter(&out, &mu),
		Workers:       3,
		QueueCapacity: 4,
		SummaryPath:   summaryPath,
	}

	summary, err := stage.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if summary.OutputRecords != 0 {
		t.Fatalf("expected 0 output records, got %d", summary.OutputRecords)
	}
	if !Exists(summaryPath) {
		t.Fatal("expected summary file to exist even with empty output")
	}
}
