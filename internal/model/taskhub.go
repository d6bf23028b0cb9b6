package model

import "alchemicore/internal/objectgraph"

// TaskHub is the dispatch queue owned by exactly one AlchemicalNetwork.
// NetworkKey (the owning network's ScopedKey string) is the sole content
// attribute: hashing on it alone means re-creating a hub for a network
// already owning one always reproduces the same ScopedKey, which is what
// makes create_taskhub's "conditional insert, return the key either way"
// idempotence trivial rather than requiring a separate existence check.
//
// Weight is mutable fairness state, excluded from ShallowDict for the same
// reason Task's operational fields are: changing it must never change the
// hub's ScopedKey.
type TaskHub struct {
	NetworkKey string
	Weight     float64
}

// DefaultHubWeight is assigned to a newly created TaskHub.
const DefaultHubWeight = 0.5

func (h *TaskHub) ClassName() string { return "TaskHub" }

func (h *TaskHub) ShallowDict() map[string]any {
	return map[string]any{"network": h.NetworkKey}
}

func reconstructTaskHub(attrs map[string]any) (objectgraph.Tokenizable, error) {
	h := &TaskHub{}
	h.NetworkKey, _ = attrs["network"].(string)
	return h, nil
}

func init() {
	objectgraph.Register("TaskHub", reconstructTaskHub)
}
