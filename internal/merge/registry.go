// Package merge propagates committed changes between editing contexts.
//
// A Registry holds explicit source -> target links. Each link observes the
// source's did-save notifications and re-dispatches target.MergeChanges
// onto the target's queue; the source's queue never touches the target's
// object graph. Notifications from one source arrive in commit order.
// Notifications from different sources have no relative order.
package merge

import (
	"log/slog"
	"sync"

	"github.com/roach88/datastack/internal/editing"
)

// Subscription is one source -> target link.
type Subscription struct {
	source *editing.Context
	target *editing.Context

	registry *Registry
	stop     func()
	once     sync.Once
}

func (s *Subscription) Source() *editing.Context { return s.source }
func (s *Subscription) Target() *editing.Context { return s.target }

// Cancel removes the link. Merges already dispatched to the target's queue
// still run. Cancel is idempotent.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.stop()
		s.registry.remove(s)
	})
}

// Registry owns merge links.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs []*Subscription
}

// NewRegistry creates an empty registry. A nil logger means slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Link merges every future commit of source into target.
func (r *Registry) Link(source, target *editing.Context) *Subscription {
	sub := &Subscription{source: source, target: target, registry: r}
	sub.stop = source.ObserveDidSave(func(n editing.SaveNotification) {
		if !target.Perform(func() { target.MergeChanges(n) }) {
			r.logger.Warn("merge target queue closed; dropping changes",
				"source", source.Name(),
				"target", target.Name(),
				"objects", n.Len(),
			)
		}
	})

	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	r.logger.Debug("merge link added", "source", source.Name(), "target", target.Name())
	return sub
}

// Unlink cancels every link from source and returns how many there were.
func (r *Registry) Unlink(source *editing.Context) int {
	return r.cancelWhere(func(s *Subscription) bool { return s.source == source })
}

// UnlinkTarget cancels every link into target and returns how many there were.
func (r *Registry) UnlinkTarget(target *editing.Context) int {
	return r.cancelWhere(func(s *Subscription) bool { return s.target == target })
}

// Close cancels every link.
func (r *Registry) Close() {
	r.cancelWhere(func(*Subscription) bool { return true })
}

// Len returns the number of live links.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Linked reports whether a link from source to target exists.
func (r *Registry) Linked(source, target *editing.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.source == source && s.target == target {
			return true
		}
	}
	return false
}

func (r *Registry) cancelWhere(match func(*Subscription) bool) int {
	r.mu.Lock()
	var matched []*Subscription
	for _, s := range r.subs {
		if match(s) {
			matched = append(matched, s)
		}
	}
	r.mu.Unlock()

	for _, s := range matched {
		s.Cancel()
	}
	return len(matched)
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s == sub {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}
