// Package purge deletes every object of one entity kind.
//
// Two paths exist, chosen once by the batch-delete capability flag:
//
//   - Batch: a single store-level delete keyed by entity, against the store
//     the context tree is bound to. Nothing is loaded. Contexts that already
//     registered the deleted objects are not told.
//   - Fallback: fetch identifiers only (no attribute values), then mark
//     each object deleted in the context. The deletes are pending until the
//     context is saved.
//
// Neither path is object-graph safe: no relationship cascade or nullify
// beyond what the store itself does. This is a maintenance operation.
package purge

import (
	"context"
	"log/slog"

	"github.com/roach88/datastack/internal/editing"
	"github.com/roach88/datastack/internal/store"
)

// Purger deletes whole entity collections.
type Purger struct {
	batchDelete bool
	logger      *slog.Logger
}

// New creates a Purger. batchDelete selects the store-level path.
// A nil logger means slog.Default().
func New(batchDelete bool, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{batchDelete: batchDelete, logger: logger}
}

// BatchDelete reports which path Purge takes.
func (p *Purger) BatchDelete() bool {
	return p.batchDelete
}

// Purge deletes every object of entity through c and reports whether it
// completed without error. It blocks until done and must not be called from
// c's queue.
func (p *Purger) Purge(ctx context.Context, c *editing.Context, entity string) bool {
	if p.batchDelete {
		return p.purgeBatch(ctx, c, entity)
	}
	return p.purgeFallback(ctx, c, entity)
}

func (p *Purger) purgeBatch(ctx context.Context, c *editing.Context, entity string) bool {
	n, err := c.RootStore().BatchDelete(ctx, entity)
	if err != nil {
		p.logger.Warn("batch delete rejected", "entity", entity, "context", c.Name(), "error", err)
		return false
	}
	p.logger.Debug("batch delete", "entity", entity, "deleted", n)
	return true
}

func (p *Purger) purgeFallback(ctx context.Context, c *editing.Context, entity string) bool {
	ok := false
	ran := c.PerformAndWait(func() {
		objs, err := c.Fetch(ctx, store.FetchRequest{Entity: entity, IDsOnly: true})
		if err != nil {
			p.logger.Warn("purge fetch failed", "entity", entity, "context", c.Name(), "error", err)
			return
		}
		for _, o := range objs {
			if err := c.Delete(o); err != nil {
				p.logger.Warn("purge delete failed", "entity", entity, "id", o.ID(), "error", err)
				return
			}
		}
		p.logger.Debug("purge marked objects deleted", "entity", entity, "context", c.Name(), "deleted", len(objs))
		ok = true
	})
	return ran && ok
}
