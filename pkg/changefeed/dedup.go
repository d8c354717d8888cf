package changefeed

import (
	"container/list"
	"context"
	"sync"
)

// Dedup remembers the IDs of the most recent events it has handled.
type Dedup struct {
	limit int

	mu       sync.Mutex
	order    *list.List
	seen     map[string]*list.Element
	inflight map[string]*flight
}

// flight is a delivery in progress. ok is set before done is closed.
type flight struct {
	done chan struct{}
	ok   bool
}

// NewDedup returns a Dedup remembering up to limit IDs. A non-positive
// limit defaults to 1024.
func NewDedup(limit int) *Dedup {
	if limit <= 0 {
		limit = 1024
	}
	return &Dedup{
		limit:    limit,
		order:    list.New(),
		seen:     make(map[string]*list.Element),
		inflight: make(map[string]*flight),
	}
}

// Seen records id and reports whether it was already recorded. Events
// without an ID are never considered duplicates.
func (d *Dedup) Seen(id string) bool {
	if id == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.record(id)
}

// record adds id to the window and reports whether it was present. The
// caller holds d.mu.
func (d *Dedup) record(id string) bool {
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = d.order.PushBack(id)
	if d.order.Len() > d.limit {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	return false
}

// Wrap returns a handler that skips events already handled. An ID is
// recorded only after its handler succeeds. A duplicate that arrives while
// the first delivery is still running waits for it, and is handled itself
// when that delivery fails.
func (d *Dedup) Wrap(h Handler) Handler {
	return func(ctx context.Context, ev Event) error {
		if ev.ID == "" {
			return h(ctx, ev)
		}
		for {
			f, leader, handled := d.begin(ev.ID)
			if handled {
				return nil
			}
			if leader {
				err := h(ctx, ev)
				d.finish(ev.ID, f, err == nil)
				return err
			}
			select {
			case <-f.done:
				if f.ok {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// begin claims the delivery of id. It returns the running flight when
// another delivery holds the claim, and handled when id already succeeded.
func (d *Dedup) begin(id string) (f *flight, leader, handled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return nil, false, true
	}
	if f, ok := d.inflight[id]; ok {
		return f, false, false
	}
	f = &flight{done: make(chan struct{})}
	d.inflight[id] = f
	return f, true, false
}

func (d *Dedup) finish(id string, f *flight, ok bool) {
	d.mu.Lock()
	delete(d.inflight, id)
	if ok {
		d.record(id)
	}
	f.ok = ok
	d.mu.Unlock()
	close(f.done)
}
