package reactive

import (
	"context"
	"fmt"

	"github.com/roach88/datastack/internal/editing"
	"github.com/roach88/datastack/internal/merge"
	"github.com/roach88/datastack/internal/scheduler"
)

func errQueueClosed(s *scheduler.Scheduler) error {
	return fmt.Errorf("context %q: %w", s.Context().Name(), editing.ErrQueueClosed)
}

// Of produces c, delivered on c's queue.
func Of(c *editing.Context) Producer[*editing.Context] {
	return Just(c).ObserveOn(scheduler.New(c))
}

// Perform runs fn on the delivered context's queue and produces its result.
// Upstream failure or empty completion skips fn.
func Perform[U any](p Producer[*editing.Context], fn func(ctx context.Context, c *editing.Context) (U, error)) Producer[U] {
	return FlatMap(p, func(c *editing.Context) Producer[U] {
		return Producer[U]{run: func(ctx context.Context, life scheduler.Disposable, emit func(Event[U])) {
			AttemptMap(Of(c), func(c *editing.Context) (U, error) {
				return fn(ctx, c)
			}).run(ctx, life, emit)
		}}
	})
}

// Then runs fn on the context's queue and passes the context on.
func Then(p Producer[*editing.Context], fn func(ctx context.Context, c *editing.Context) error) Producer[*editing.Context] {
	return Perform(p, func(ctx context.Context, c *editing.Context) (*editing.Context, error) {
		if err := fn(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Save saves the delivered context on its queue. An upstream failure is
// swallowed and the result completes empty. A failed save fails the result;
// with rollback set the context's pending changes are discarded first.
func Save(p Producer[*editing.Context], rollback bool) Producer[*editing.Context] {
	recovered := FlatMapError(p, func(error) Producer[*editing.Context] {
		return Empty[*editing.Context]()
	})
	return Then(recovered, func(ctx context.Context, c *editing.Context) error {
		err := c.Save(ctx)
		if err != nil && rollback {
			c.Rollback()
		}
		return err
	})
}

// MergeChanges links the delivered context to into through r, so every later
// save of it is merged into into on into's queue. The context passes on.
func MergeChanges(p Producer[*editing.Context], into *editing.Context, r *merge.Registry) Producer[*editing.Context] {
	return Map(p, func(c *editing.Context) *editing.Context {
		r.Link(c, into)
		return c
	})
}
