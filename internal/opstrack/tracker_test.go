package opstrack

import (
	"errors"
	"testing"
)

func TestTrackRecordsSuccess(t *testing.T) {
	tr := New(Config{})
	err := tr.Track("claim_taskhub_tasks", map[string]any{"hub": "h1"}, func() error { return nil })
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	ops := tr.List()
	if len(ops) != 1 {
		t.Fatalf("List() = %d operations, want 1", len(ops))
	}
	if ops[0].Status != StatusCompleted {
		t.Errorf("Status = %v, want %v", ops[0].Status, StatusCompleted)
	}
	if ops[0].CompletedAt == nil {
		t.Error("CompletedAt should be set after Track returns")
	}
}

func TestTrackRecordsFailure(t *testing.T) {
	tr := New(Config{})
	wantErr := errors.New("claim raced away")
	err := tr.Track("claim_taskhub_tasks", nil, func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("Track() error = %v, want %v", err, wantErr)
	}

	ops := tr.List()
	if len(ops) != 1 {
		t.Fatalf("List() = %d operations, want 1", len(ops))
	}
	if ops[0].Status != StatusFailed {
		t.Errorf("Status = %v, want %v", ops[0].Status, StatusFailed)
	}
	if ops[0].Err != wantErr.Error() {
		t.Errorf("Err = %q, want %q", ops[0].Err, wantErr.Error())
	}
}

func TestGetReturnsNilForUnknownID(t *testing.T) {
	tr := New(Config{})
	if got := tr.Get("nonexistent"); got != nil {
		t.Errorf("Get() = %v, want nil", got)
	}
}

func TestGetReturnsRunningOperationBeforeCompletion(t *testing.T) {
	tr := New(Config{})
	id := tr.Start("create_network", nil)
	op := tr.Get(id)
	if op == nil {
		t.Fatal("Get() = nil, want the in-flight operation")
	}
	if op.Status != StatusRunning {
		t.Errorf("Status = %v, want %v", op.Status, StatusRunning)
	}
	if op.CompletedAt != nil {
		t.Error("CompletedAt should be nil while running")
	}
}

func TestEvictOldestWhenOverCapacity(t *testing.T) {
	tr := New(Config{MaxOperations: 2})
	id1 := tr.Start("op1", nil)
	tr.Complete(id1, nil)
	id2 := tr.Start("op2", nil)
	tr.Complete(id2, nil)
	id3 := tr.Start("op3", nil)
	tr.Complete(id3, nil)

	ops := tr.List()
	if len(ops) != 2 {
		t.Fatalf("List() = %d operations, want 2 after eviction", len(ops))
	}
	if tr.Get(id1) != nil {
		t.Error("oldest operation should have been evicted")
	}
	if tr.Get(id2) == nil || tr.Get(id3) == nil {
		t.Error("the two most recent operations should survive eviction")
	}
}

func TestStatsAggregatesByKindAndStatus(t *testing.T) {
	tr := New(Config{})
	tr.Track("claim_taskhub_tasks", nil, func() error { return nil })
	tr.Track("claim_taskhub_tasks", nil, func() error { return errors.New("fail") })
	tr.Track("create_network", nil, func() error { return nil })

	stats := tr.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByKind["claim_taskhub_tasks"] != 2 {
		t.Errorf("ByKind[claim_taskhub_tasks] = %d, want 2", stats.ByKind["claim_taskhub_tasks"])
	}
	if stats.ByStatus[StatusCompleted] != 2 {
		t.Errorf("ByStatus[completed] = %d, want 2", stats.ByStatus[StatusCompleted])
	}
	if stats.ByStatus[StatusFailed] != 1 {
		t.Errorf("ByStatus[failed] = %d, want 1", stats.ByStatus[StatusFailed])
	}
}

func TestCompleteIsNoOpForUnknownID(t *testing.T) {
	tr := New(Config{})
	tr.Complete("nonexistent", nil) // must not panic
	if len(tr.List()) != 0 {
		t.Error("List() should remain empty")
	}
}
