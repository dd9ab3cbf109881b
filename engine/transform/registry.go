package transform

import "fmt"

// Registry resolves an extractor_function name from a Data-Source
// Descriptor (spec §6.5) to a concrete ExtractorFunc. It is a plain map
// populated at startup — SPEC_FULL.md's REDESIGN FLAGS call out the
// original's dynamic getattr-by-string dispatch as a hazard (typos fail
// silently at runtime with an AttributeError deep in a worker); an
// explicit, closed registry fails fast at lookup time instead with a
// named error.
type Registry struct {
	extractors map[string]ExtractorFunc
}

// NewRegistry returns a Registry pre-populated with the extractors this
// repository ships.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]ExtractorFunc)}
	r.Register("wikipedia_cirrus_extractor", WikipediaCirrusExtractor)
	r.Register("wikipedia_xml_extractor", XMLArticleExtractor)
	return r
}

// Register adds or overwrites a named extractor.
func (r *Registry) Register(name string, fn ExtractorFunc) {
	r.extractors[name] = fn
}

// Lookup resolves a name to its ExtractorFunc, or a descriptive error if
// the Data-Source Descriptor named an extractor this build doesn't know.
func (r *Registry) Lookup(name string) (ExtractorFunc, error) {
	fn, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("transform: unknown extractor_function %q", name)
	}
	return fn, nil
}
