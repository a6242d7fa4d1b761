package faults

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultDedupeSize = 10000

// Deduper records recently seen fault report IDs so that a client retrying
// a report gets it recorded once.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id, so a report that was marked seen but then rejected
	// downstream can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// DedupeOption configures the in-memory deduper.
type DedupeOption func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered IDs. When full the oldest ID is
// forgotten. Zero or negative disables the bound.
func WithMaxSize(n int) DedupeOption {
	return func(d *inMemoryDeduper) {
		d.maxSize = n
	}
}

type node struct {
	id         string
	prev, next *node
}

// inMemoryDeduper keeps IDs in a map plus a doubly linked list ordered by
// insertion, evicting from the tail (oldest).
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*node
	head    *node // newest
	tail    *node // oldest
	maxSize int
	size    atomic.Int64
}

// NewDeduper creates a bounded in-memory deduper.
func NewDeduper(opts ...DedupeOption) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultDedupeSize,
		seen:    make(map[string]*node),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.remove(d.tail)
	}

	n := &node{id: id, next: d.head}
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[id] = n
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[id]; ok {
		d.remove(n)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// remove unlinks n. Caller holds mu.
func (d *inMemoryDeduper) remove(n *node) {
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.seen, n.id)
	d.size.Add(-1)
}
