package model

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskWaiting, TaskRunning, true},
		{TaskWaiting, TaskComplete, false},
		{TaskWaiting, TaskError, false},
		{TaskRunning, TaskComplete, true},
		{TaskRunning, TaskError, true},
		{TaskRunning, TaskWaiting, true},
		{TaskRunning, TaskRunning, false},
		{TaskWaiting, TaskCancelled, true},
		{TaskWaiting, TaskInvalid, true},
		{TaskWaiting, TaskDeleted, true},
		{TaskRunning, TaskCancelled, true},
		{TaskComplete, TaskWaiting, false},
		{TaskComplete, TaskRunning, false},
		{TaskComplete, TaskCancelled, false},
		{TaskCancelled, TaskWaiting, false},
		{TaskInvalid, TaskRunning, false},
		{TaskDeleted, TaskCancelled, false},
		{TaskError, TaskWaiting, false},
		{TaskError, TaskRunning, false},
		{TaskError, TaskCancelled, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTaskStatusIsTerminal(t *testing.T) {
	terminal := []TaskStatus{TaskComplete, TaskCancelled, TaskInvalid, TaskDeleted}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false, want true", s)
		}
	}
	nonTerminal := []TaskStatus{TaskWaiting, TaskRunning, TaskError}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true, want false", s)
		}
	}
}

func TestTaskShallowDictExcludesOperationalFields(t *testing.T) {
	task := &Task{
		ExtendsKey: "Task-abc123-org-campaign-project",
		Token:      "tok-1",
		Status:     TaskRunning,
		Priority:   5,
		Claim:      "worker-7",
	}
	dict := task.ShallowDict()
	if len(dict) != 2 {
		t.Fatalf("ShallowDict() = %v, want exactly extends+token", dict)
	}
	if dict["extends"] != task.ExtendsKey || dict["token"] != task.Token {
		t.Errorf("ShallowDict() = %v, want extends=%q token=%q", dict, task.ExtendsKey, task.Token)
	}
}

func TestReconstructTaskRoundTripsContentFields(t *testing.T) {
	attrs := map[string]any{"extends": "Task-xyz-org-campaign-project", "token": "tok-2"}
	obj, err := reconstructTask(attrs)
	if err != nil {
		t.Fatalf("reconstructTask() error = %v", err)
	}
	task, ok := obj.(*Task)
	if !ok {
		t.Fatalf("reconstructTask() returned %T, want *Task", obj)
	}
	if task.ExtendsKey != "Task-xyz-org-campaign-project" || task.Token != "tok-2" {
		t.Errorf("reconstructTask() = %+v, want matching extends/token", task)
	}
	if task.Status != "" || task.Priority != 0 || task.Claim != "" {
		t.Errorf("reconstructTask() should leave operational fields zero-valued, got %+v", task)
	}
}
