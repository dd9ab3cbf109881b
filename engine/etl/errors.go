package etl

import "errors"

// Sentinel errors for the failure classes of SPEC_FULL.md §7 that a stage
// component (rather than the remote sink) can itself detect. The
// remote-sink transient/permanent split lives in pkg/sink and
// pkg/resilience instead, since those are the packages that actually talk
// to OpenSearch and decide whether a failure is retryable.
var (
	// ErrArchiveIncomplete signals that a reader replaying a prior stage's
	// Framed Archive Store hit a batch its footer promised but that fails
	// to decode — the previous run was killed before sealing cleanly.
	ErrArchiveIncomplete = errors.New("etl: archive incomplete")
	// ErrMalformedInput signals a structural parse failure in the input
	// stream (bad JSON line, bad XML token).
	ErrMalformedInput = errors.New("etl: malformed input")
)
