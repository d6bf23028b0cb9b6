// Package opstrack keeps an in-memory, bounded record of recent
// operations for the admin CLI to surface without standing up a metrics
// backend. graphstore records its TaskHub claim calls here; its other
// operations are not tracked, and the record lives only as long as the
// process that holds it.
package opstrack

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker records the last MaxOperations operations, evicting the oldest
// when full.
type Tracker struct {
	mu            sync.RWMutex
	operations    map[string]*Operation
	order         []string
	maxOperations int
}

// Config configures a Tracker.
type Config struct {
	MaxOperations int // default 1000
}

// New creates a Tracker.
func New(cfg Config) *Tracker {
	if cfg.MaxOperations == 0 {
		cfg.MaxOperations = 1000
	}
	return &Tracker{
		operations:    make(map[string]*Operation),
		maxOperations: cfg.MaxOperations,
	}
}

// Start begins tracking a new operation of the given kind and returns its
// ID (a fresh UUID), for later completion via Complete.
func (t *Tracker) Start(kind string, metadata map[string]any) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.operations) >= t.maxOperations {
		t.evictOldest()
	}

	id := uuid.NewString()
	t.operations[id] = &Operation{
		ID:        id,
		Kind:      kind,
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Metadata:  metadata,
	}
	t.order = append(t.order, id)
	return id
}

// Complete marks the operation done, recording err if non-nil.
func (t *Tracker) Complete(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.operations[id]
	if !ok {
		return
	}
	now := time.Now()
	op.CompletedAt = &now
	if err != nil {
		op.Status = StatusFailed
		op.Err = err.Error()
	} else {
		op.Status = StatusCompleted
	}
}

// Track wraps fn, starting an operation of kind before calling it and
// completing it with fn's returned error afterward.
func (t *Tracker) Track(kind string, metadata map[string]any, fn func() error) error {
	id := t.Start(kind, metadata)
	err := fn()
	t.Complete(id, err)
	return err
}

// Get returns a copy of the operation by ID, or nil if unknown.
func (t *Tracker) Get(id string) *Operation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.operations[id]
	if !ok {
		return nil
	}
	cp := *op
	return &cp
}

// List returns copies of every tracked operation, oldest first.
func (t *Tracker) List() []*Operation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ops := make([]*Operation, 0, len(t.order))
	for _, id := range t.order {
		if op, ok := t.operations[id]; ok {
			cp := *op
			ops = append(ops, &cp)
		}
	}
	return ops
}

// Stats aggregates the currently tracked operations.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	stats := Stats{
		ByStatus: make(map[Status]int),
		ByKind:   make(map[string]int),
	}

	var totalRuntime time.Duration
	var completed int
	for _, op := range t.operations {
		stats.Total++
		stats.ByStatus[op.Status]++
		stats.ByKind[op.Kind]++
		if op.CompletedAt != nil {
			totalRuntime += op.CompletedAt.Sub(op.StartedAt)
			completed++
		}
	}
	if completed > 0 {
		stats.AverageRunt = totalRuntime / time.Duration(completed)
	}
	return stats
}

// evictOldest drops the operation with the smallest StartedAt. Caller must
// hold the write lock.
func (t *Tracker) evictOldest() {
	if len(t.order) == 0 {
		return
	}
	oldestID := t.order[0]
	t.order = t.order[1:]
	delete(t.operations, oldestID)
}
