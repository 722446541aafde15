package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/flowboard/internal/domain"
)

// DefaultMaxAttempts bounds optimistic-concurrency retries per mutation.
const DefaultMaxAttempts = 3

// WithRetry runs one optimistic-version write cycle: load the aggregate,
// apply the intent, save. The intent is a replayable description of the
// mutation, not a mutated snapshot — when the save reports a version
// conflict the aggregate is reloaded fresh and the intent reapplied, so a
// retry never overwrites concurrent changes with stale data.
//
// Exhausting maxAttempts surfaces ErrConflict to the caller, who may
// resubmit. Any non-conflict error from load, apply or save aborts
// immediately.
func WithRetry[A any](
	ctx context.Context,
	maxAttempts int,
	load func(ctx context.Context) (A, error),
	apply func(agg A) error,
	save func(ctx context.Context, agg A) error,
) (A, error) {
	var zero A
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	for attempt := 1; ; attempt++ {
		agg, err := load(ctx)
		if err != nil {
			return zero, fmt.Errorf("engine.WithRetry: load: %w", err)
		}

		if err := apply(agg); err != nil {
			return zero, err
		}

		err = save(ctx, agg)
		if err == nil {
			return agg, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return zero, fmt.Errorf("engine.WithRetry: save: %w", err)
		}
		if attempt >= maxAttempts {
			return zero, fmt.Errorf("engine.WithRetry: %d attempts exhausted: %w", maxAttempts, domain.ErrConflict)
		}

		log.Debug().Int("attempt", attempt).Msg("version conflict, reloading aggregate")
	}
}
