// Package dedupe coalesces refresh requests so an athlete has at most one
// snapshot job pending at a time.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Deduper tracks keys that have work in flight.
type Deduper interface {
	// SeenAndRecord reports whether key is already pending and claims it if not.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases key once its job has been picked up or dropped.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

type pending struct {
	key string
	at  time.Time
}

// pendingSet keeps claims in insertion order so the oldest is evicted first
// when the set is full. Claims older than ttl are treated as abandoned.
type pendingSet struct {
	mu      sync.Mutex
	index   map[string]*list.Element
	order   *list.List
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a pending set.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &pendingSet{
		index:   make(map[string]*list.Element),
		order:   list.New(),
		maxSize: 50000,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *pendingSet) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if el, ok := d.index[key]; ok {
		p := el.Value.(*pending)
		if d.ttl <= 0 || now.Sub(p.at) < d.ttl {
			return true
		}
		d.remove(el)
	}

	if d.maxSize > 0 && len(d.index) >= d.maxSize {
		d.remove(d.order.Front())
	}
	d.index[key] = d.order.PushBack(&pending{key: key, at: now})
	return false
}

func (d *pendingSet) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.index[key]; ok {
		d.remove(el)
	}
}

func (d *pendingSet) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.index))
}

// remove must be called with d.mu held.
func (d *pendingSet) remove(el *list.Element) {
	if el == nil {
		return
	}
	delete(d.index, el.Value.(*pending).key)
	d.order.Remove(el)
}
