package model

import "testing"

func TestTaskHubShallowDictExcludesWeight(t *testing.T) {
	hub := &TaskHub{NetworkKey: "AlchemicalNetwork-abc-org-campaign-project", Weight: 3.5}
	dict := hub.ShallowDict()
	if len(dict) != 1 {
		t.Fatalf("ShallowDict() = %v, want exactly network", dict)
	}
	if dict["network"] != hub.NetworkKey {
		t.Errorf("ShallowDict()[\"network\"] = %v, want %q", dict["network"], hub.NetworkKey)
	}
}

func TestReconstructTaskHub(t *testing.T) {
	obj, err := reconstructTaskHub(map[string]any{"network": "AlchemicalNetwork-abc-org-campaign-project"})
	if err != nil {
		t.Fatalf("reconstructTaskHub() error = %v", err)
	}
	hub, ok := obj.(*TaskHub)
	if !ok {
		t.Fatalf("reconstructTaskHub() returned %T, want *TaskHub", obj)
	}
	if hub.NetworkKey != "AlchemicalNetwork-abc-org-campaign-project" {
		t.Errorf("NetworkKey = %q", hub.NetworkKey)
	}
	if hub.Weight != 0 {
		t.Errorf("Weight = %v, want zero value (set by graphstore, not the codec)", hub.Weight)
	}
}

func TestTaskHubsWithSameNetworkHashIdentically(t *testing.T) {
	a := &TaskHub{NetworkKey: "AlchemicalNetwork-abc-org-campaign-project", Weight: 0.1}
	b := &TaskHub{NetworkKey: "AlchemicalNetwork-abc-org-campaign-project", Weight: 0.9}
	if a.ShallowDict()["network"] != b.ShallowDict()["network"] {
		t.Fatal("two hubs for the same network must have identical content identity regardless of weight")
	}
}
