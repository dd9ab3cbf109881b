// Package source loads Data-Source Descriptors (spec §6.5): small JSON
// documents naming a raw dump file, its target index, which registered
// extractor to run over it, and the batching/sizing knobs for a pipeline
// run.
package source

import (
	"encoding/json"
	"fmt"
	"os"
)

// Count is an int that also accepts the JSON string literal "all", the
// original pipeline's spelling of "unbounded" (spec §6.5; grounded on
// original_source/semantic_search/functions/extraction/wikipedia_extractor.py:139
// and wikipedia.py:40, both of which compare their count argument against
// the literal string 'all'). It decodes to Unbounded (zero), the value
// every reader already treats as "no cap".
type Count int

// Unbounded is the decoded value of the JSON string "all".
const Unbounded Count = 0

// UnmarshalJSON accepts either a JSON number or the literal string "all".
func (c *Count) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = Count(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("source: count must be a number or \"all\": %s", data)
	}
	if s != "all" {
		return fmt.Errorf("source: count string must be \"all\", got %q", s)
	}
	*c = Unbounded
	return nil
}

// Descriptor is one data source's configuration.
type Descriptor struct {
	RawDataFile       string `json:"raw_data_file"`
	TargetIndexName   string `json:"target_index_name"`
	ExtractorFunction string `json:"extractor_function"`
	OutputBatchSize   int    `json:"output_batch_size"`
	TargetRecords     Count  `json:"target_records"`
	NumBatches        Count  `json:"num_batches"`
	VectorDoc         bool   `json:"vector_doc"`
	VectorDim         int    `json:"vector_dim"`
}

// Load reads and parses a Descriptor from path.
func Load(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("source: read %s: %w", path, err)
	}
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("source: parse %s: %w", path, err)
	}
	if d.RawDataFile == "" {
		return Descriptor{}, fmt.Errorf("source: %s: raw_data_file is required", path)
	}
	if d.ExtractorFunction == "" {
		return Descriptor{}, fmt.Errorf("source: %s: extractor_function is required", path)
	}
	if d.OutputBatchSize <= 0 {
		d.OutputBatchSize = 1000
	}
	return d, nil
}
