package stack

import (
	"context"
	"fmt"

	"github.com/roach88/datastack/internal/editing"
	"github.com/roach88/datastack/internal/reactive"
)

// Persist saves the main context into the writer, then the writer into the
// store, and calls completion with the outcome on the main queue. A failed
// main save is reported without touching the writer. completion is called
// exactly once; nil is allowed.
//
// Only the main context and the writer are saved. Background contexts must
// be saved before Persist for their changes to be included.
func (s *Stack) Persist(completion func(error)) {
	st := s.mustContexts()
	main, writer := st.main, st.writer

	deliver := func(err error) {
		if err != nil {
			s.logger.Warn("persist failed", "error", err)
		} else {
			s.logger.Debug("persisted", "location", st.coord.Location())
		}
		if completion == nil {
			return
		}
		if !s.mainQueue.Async(func() { completion(err) }) {
			completion(err)
		}
	}

	ctx := context.Background()
	if !main.Perform(func() {
		if err := main.Save(ctx); err != nil {
			deliver(err)
			return
		}
		if !writer.Perform(func() {
			deliver(writer.Save(ctx))
		}) {
			deliver(queueClosed(writer))
		}
	}) {
		deliver(queueClosed(main))
	}
}

func queueClosed(c *editing.Context) error {
	return fmt.Errorf("persist %s: %w", c.Name(), editing.ErrQueueClosed)
}

// PersistContext runs Persist and waits for its outcome or for ctx to end.
// It must not be called from the main queue.
func (s *Stack) PersistContext(ctx context.Context) error {
	done := make(chan error, 1)
	s.Persist(func(err error) {
		done <- err
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PersistProducer returns a producer that runs Persist when started and
// yields true on success.
func (s *Stack) PersistProducer() reactive.Producer[bool] {
	return reactive.New(func(_ context.Context, emit func(reactive.Event[bool])) {
		s.Persist(func(err error) {
			if err != nil {
				emit(reactive.Event[bool]{Err: err})
				return
			}
			emit(reactive.Event[bool]{Value: true})
		})
	})
}

// PurgeEntities deletes every object of entity through c, or the main
// context when c is nil, and reports whether it succeeded. With the
// BatchDelete capability the store is cleared directly; otherwise the
// objects are marked deleted in c and removed when c is saved.
//
// It blocks and must not be called from c's queue.
func (s *Stack) PurgeEntities(entity string, c *editing.Context) bool {
	if c == nil {
		c = s.MainContext()
	}
	return s.purger.Purge(context.Background(), c, entity)
}
