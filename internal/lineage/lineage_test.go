package lineage

import (
	"errors"
	"testing"
)

// chainLookup builds a PredecessorLookup from a map of key -> predecessor.
func chainLookup(edges map[string]string) PredecessorLookup {
	return func(key string) (string, bool, error) {
		pred, ok := edges[key]
		return pred, ok, nil
	}
}

func TestValidateNoCycleAcceptsLinearChain(t *testing.T) {
	// c -> b -> a (a has no predecessor)
	lookup := chainLookup(map[string]string{"c": "b", "b": "a"})
	if err := ValidateNoCycle("d", "c", lookup); err != nil {
		t.Errorf("ValidateNoCycle() error = %v, want nil", err)
	}
}

func TestValidateNoCycleRejectsSelfLoop(t *testing.T) {
	lookup := chainLookup(map[string]string{"a": "a"})
	if err := ValidateNoCycle("z", "a", lookup); err == nil {
		t.Error("ValidateNoCycle() expected error for self-loop, got nil")
	}
}

func TestValidateNoCycleRejectsLoopBackToStart(t *testing.T) {
	// linking start's new predecessor candidate "b" would eventually walk
	// back to start itself
	lookup := chainLookup(map[string]string{"b": "start"})
	if err := ValidateNoCycle("start", "b", lookup); err == nil {
		t.Error("ValidateNoCycle() expected error when chain loops back to start, got nil")
	}
}

func TestValidateNoCyclePropagatesLookupError(t *testing.T) {
	wantErr := errors.New("boom")
	lookup := func(key string) (string, bool, error) { return "", false, wantErr }
	if err := ValidateNoCycle("start", "a", lookup); !errors.Is(err, wantErr) {
		t.Errorf("ValidateNoCycle() error = %v, want %v", err, wantErr)
	}
}

func TestChainReturnsFullAncestry(t *testing.T) {
	lookup := chainLookup(map[string]string{"c": "b", "b": "a"})
	chain, err := Chain("c", lookup)
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	want := []string{"b", "a"}
	if len(chain) != len(want) {
		t.Fatalf("Chain() = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("Chain()[%d] = %q, want %q", i, chain[i], want[i])
		}
	}
}

func TestChainEmptyForRootTask(t *testing.T) {
	lookup := chainLookup(map[string]string{})
	chain, err := Chain("root", lookup)
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if len(chain) != 0 {
		t.Errorf("Chain() = %v, want empty", chain)
	}
}

func TestChainDetectsCycle(t *testing.T) {
	lookup := chainLookup(map[string]string{"a": "b", "b": "a"})
	if _, err := Chain("a", lookup); err == nil {
		t.Error("Chain() expected error for cyclic chain, got nil")
	}
}
