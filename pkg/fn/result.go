// Package fn provides the small value-or-error vocabulary that
// pkg/resilience builds its generic breaker/limiter wrappers on: Result[T]
// lets CallResult, BreakerStage, and LimiterStage hand back either a value
// or an error without resorting to a (T, error) pair that a higher-order
// function can't easily thread through.
package fn

// Result[T] carries either a value or an error, never both. The zero value
// is a failed Result with a nil error; construct one with Ok or Err
// instead of using a bare Result[T]{}.
type Result[T any] struct {
	val T
	err error
	ok  bool
}

// Ok creates a successful Result.
func Ok[T any](v T) Result[T] {
	return Result[T]{val: v, ok: true}
}

// Err creates a failed Result from an error.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// IsOk returns true if the result is successful.
func (r Result[T]) IsOk() bool { return r.ok }

// IsErr returns true if the result is an error.
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value and error, mirroring the (T, error) shape the
// rest of this codebase returns from fallible calls.
func (r Result[T]) Unwrap() (T, error) { return r.val, r.err }

// Must returns the value or panics on error. Reserved for call sites that
// have already checked IsOk and just want the value back without a second
// branch — CallResult's callers use it this way once the breaker call
// itself has already reported success.
func (r Result[T]) Must() T {
	if !r.ok {
		panic(r.err)
	}
	return r.val
}
