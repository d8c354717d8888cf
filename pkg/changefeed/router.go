package changefeed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Wildcard subscribes to every table.
const Wildcard = "*"

type subscription struct {
	id      uint64
	handler Handler
}

// Router fans events out to the handlers subscribed to their table. It is
// safe for concurrent use.
type Router struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
}

// NewRouter returns an empty router. A nil logger discards.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{logger: logger, subs: make(map[string][]subscription)}
}

// Subscribe registers h for events on table, or on every table when table
// is Wildcard. The returned function removes the subscription.
func (r *Router) Subscribe(table string, h Handler) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.subs[table] = append(r.subs[table], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(table, id) })
	}
}

func (r *Router) remove(table string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs[table]
	for i, s := range subs {
		if s.id == id {
			r.subs[table] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[table]) == 0 {
		delete(r.subs, table)
	}
}

func (r *Router) handlers(table string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var hs []Handler
	for _, s := range r.subs[table] {
		hs = append(hs, s.handler)
	}
	if table != Wildcard {
		for _, s := range r.subs[Wildcard] {
			hs = append(hs, s.handler)
		}
	}
	return hs
}

// Deliver validates ev, stamps an ID when it has none, and runs every
// matching handler concurrently. It returns the first handler error after
// all handlers finish; the context passed to handlers is cancelled on the
// first failure. The delivered event is returned so callers can see the
// assigned ID.
func (r *Router) Deliver(ctx context.Context, ev Event) (Event, error) {
	if err := ev.Validate(); err != nil {
		return ev, err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	hs := r.handlers(ev.Table)
	if len(hs) == 0 {
		r.logger.Debug("no subscribers", slog.String("table", ev.Table), slog.String("id", ev.ID))
		return ev, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range hs {
		g.Go(func() error {
			return h(gctx, ev)
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Warn("delivery failed",
			slog.String("table", ev.Table),
			slog.String("id", ev.ID),
			slog.String("error", err.Error()))
		return ev, fmt.Errorf("deliver %s on %s: %w", ev.Operation, ev.Table, err)
	}
	return ev, nil
}

// Run delivers events from src until it is closed or ctx is done. A failed
// delivery stops Run and is returned.
func (r *Router) Run(ctx context.Context, src <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-src:
			if !ok {
				return nil
			}
			if _, err := r.Deliver(ctx, ev); err != nil {
				return err
			}
		}
	}
}
