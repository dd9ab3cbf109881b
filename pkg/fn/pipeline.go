package fn

import "context"

// Stage is a function that transforms In to Out within a context, reporting
// failure through a Result instead of a second return value. It exists so
// pkg/resilience's BreakerStage and LimiterStage can wrap an arbitrary
// single-input/single-output call (an embedding request, a bulk submit)
// without each caller re-deriving the same function shape.
type Stage[In, Out any] func(context.Context, In) Result[Out]
