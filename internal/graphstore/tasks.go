package graphstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"alchemicore/internal/lineage"
	"alchemicore/internal/model"
	"alchemicore/internal/objectgraph"
	"alchemicore/internal/scope"
)

// taskPredecessorLookup resolves a task's EXTENDS predecessor within tx,
// for lineage.ValidateNoCycle.
func taskPredecessorLookup(ctx context.Context, tx neo4j.ManagedTransaction) lineage.PredecessorLookup {
	return func(key string) (string, bool, error) {
		res, err := tx.Run(ctx, "MATCH (t:Task {_scoped_key: $key})-[:EXTENDS]->(p) RETURN p._scoped_key AS key", map[string]any{"key": key})
		if err != nil {
			return "", false, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return "", false, nil
		}
		v, _ := rec.Get("key")
		k, _ := v.(string)
		return k, true, nil
	}
}

// DefaultTaskPriority is the priority assigned to a task at creation when
// the caller does not request one explicitly.
const DefaultTaskPriority = 0

// CreateTask creates a Task node in the transformation's scope, PERFORMS to
// transformationKey, and — if extendFrom is non-nil — EXTENDS to the
// predecessor task. Every call creates a new Task node: Task's content
// identity includes a random creation-time token, so two tasks targeting
// the same transformation are always distinct (see model.Task).
func (s *Store) CreateTask(ctx context.Context, transformationKey scope.ScopedKey, extendFrom *scope.ScopedKey) (scope.ScopedKey, error) {
	task := &model.Task{
		Token:    uuid.NewString(),
		Status:   model.TaskWaiting,
		Priority: DefaultTaskPriority,
	}
	if extendFrom != nil {
		task.ExtendsKey = extendFrom.String()
	}

	sg, sk, err := objectgraph.Encode(task, transformationKey.Scope)
	if err != nil {
		return scope.ScopedKey{}, fmt.Errorf("graphstore: encoding task: %w", err)
	}

	_, err = s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := upsertSubgraph(ctx, tx, sg); err != nil {
			return nil, err
		}

		opQuery := fmt.Sprintf(`
			MATCH (t:%s {_scoped_key: $key})
			SET t.status = $status, t.priority = $priority, t.claim = ""
		`, objectgraph.UniversalLabel)
		if _, err := tx.Run(ctx, opQuery, map[string]any{
			"key": sk.String(), "status": string(task.Status), "priority": task.Priority,
		}); err != nil {
			return nil, err
		}

		performsQuery := fmt.Sprintf(`
			MATCH (t:%s {_scoped_key: $taskKey})
			MATCH (tr:%s {_scoped_key: $trKey})
			MERGE (t)-[:PERFORMS]->(tr)
		`, objectgraph.UniversalLabel, objectgraph.UniversalLabel)
		if _, err := tx.Run(ctx, performsQuery, map[string]any{
			"taskKey": sk.String(), "trKey": transformationKey.String(),
		}); err != nil {
			return nil, err
		}

		if extendFrom != nil {
			if err := lineage.ValidateNoCycle(sk.String(), extendFrom.String(), taskPredecessorLookup(ctx, tx)); err != nil {
				return nil, invalidf("%v", err)
			}

			extendsQuery := fmt.Sprintf(`
				MATCH (t:%s {_scoped_key: $taskKey})
				MATCH (p:%s {_scoped_key: $predKey})
				MERGE (t)-[:EXTENDS]->(p)
			`, objectgraph.UniversalLabel, objectgraph.UniversalLabel)
			if _, err := tx.Run(ctx, extendsQuery, map[string]any{
				"taskKey": sk.String(), "predKey": extendFrom.String(),
			}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	if err != nil {
		return scope.ScopedKey{}, err
	}
	return sk, nil
}

// SetTaskPriority mutates a task's priority atomically.
func (s *Store) SetTaskPriority(ctx context.Context, taskKey scope.ScopedKey, priority int) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := "MATCH (t:Task {_scoped_key: $key}) SET t.priority = $priority RETURN t"
		res, err := tx.Run(ctx, query, map[string]any{"key": taskKey.String(), "priority": priority})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, notFoundf("task %s not found", taskKey.String())
		}
		return nil, nil
	})
	return err
}

// GetTaskTransformation returns the task's target Transformation and, if it
// extends a predecessor, the predecessor's result descriptor (via
// EXTENDS -> RESULTS_IN), or nil if the predecessor has none yet.
func (s *Store) GetTaskTransformation(ctx context.Context, taskKey scope.ScopedKey) (*model.Transformation, *model.ProtocolDAGResult, error) {
	query := `
		MATCH (t:Task {_scoped_key: $key})
		MATCH (t)-[:PERFORMS]->(tr)
		OPTIONAL MATCH (t)-[:EXTENDS]->(pred)-[:RESULTS_IN]->(res)
		RETURN tr._scoped_key AS trKey, res._scoped_key AS resKey
	`
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res1, err := tx.Run(ctx, query, map[string]any{"key": taskKey.String()})
		if err != nil {
			return nil, err
		}
		rec, err := res1.Single(ctx)
		if err != nil {
			return nil, notFoundf("task %s not found", taskKey.String())
		}
		trRaw, _ := rec.Get("trKey")
		trKeyStr, _ := trRaw.(string)
		resRaw, _ := rec.Get("resKey")
		resKeyStr, _ := resRaw.(string)
		return [2]string{trKeyStr, resKeyStr}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	keys := result.([2]string)

	trKey, err := scope.ParseScopedKey(keys[0])
	if err != nil {
		return nil, nil, fmt.Errorf("graphstore: parsing transformation key %q: %w", keys[0], err)
	}
	transformation, err := s.GetTransformation(ctx, trKey)
	if err != nil {
		return nil, nil, err
	}

	var predResult *model.ProtocolDAGResult
	if keys[1] != "" {
		resKey, err := scope.ParseScopedKey(keys[1])
		if err != nil {
			return nil, nil, fmt.Errorf("graphstore: parsing result key %q: %w", keys[1], err)
		}
		predResult, err = s.GetProtocolDAGResult(ctx, resKey)
		if err != nil {
			return nil, nil, err
		}
	}

	return transformation, predResult, nil
}

// GetProtocolDAGResult fetches and decodes the ProtocolDAGResult at sk.
func (s *Store) GetProtocolDAGResult(ctx context.Context, sk scope.ScopedKey) (*model.ProtocolDAGResult, error) {
	obj, err := s.getTokenizable(ctx, sk)
	if err != nil {
		return nil, err
	}
	p, ok := obj.(*model.ProtocolDAGResult)
	if !ok {
		return nil, fmt.Errorf("graphstore: %s is not a ProtocolDAGResult", sk)
	}
	return p, nil
}

// SetTaskResult upserts result (and its nested ObjectStoreRef, if any) and
// links it from the task via RESULTS_IN. Idempotent per (task,
// result-content): resubmitting the same result content links the same
// node again, a no-op MERGE.
func (s *Store) SetTaskResult(ctx context.Context, taskKey scope.ScopedKey, result *model.ProtocolDAGResult) (scope.ScopedKey, error) {
	sg, sk, err := objectgraph.Encode(result, taskKey.Scope)
	if err != nil {
		return scope.ScopedKey{}, fmt.Errorf("graphstore: encoding result: %w", err)
	}

	_, err = s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := upsertSubgraph(ctx, tx, sg); err != nil {
			return nil, err
		}
		query := fmt.Sprintf(`
			MATCH (t:%s {_scoped_key: $taskKey})
			MATCH (r:%s {_scoped_key: $resultKey})
			MERGE (t)-[:RESULTS_IN]->(r)
		`, objectgraph.UniversalLabel, objectgraph.UniversalLabel)
		_, err := tx.Run(ctx, query, map[string]any{"taskKey": taskKey.String(), "resultKey": sk.String()})
		return nil, err
	})
	if err != nil {
		return scope.ScopedKey{}, err
	}
	return sk, nil
}

// transitionTask validates the task's current status against model.CanTransition
// before writing the new status (and, if claim is non-nil, the claim string)
// in the same transaction — the read-then-write sequence is what makes the
// rejection race-free under the database's transaction isolation.
func (s *Store) transitionTask(ctx context.Context, taskKey scope.ScopedKey, to model.TaskStatus, claim *string) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (t:Task {_scoped_key: $key}) RETURN t.status AS status", map[string]any{"key": taskKey.String()})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, notFoundf("task %s not found", taskKey.String())
		}
		statusRaw, _ := rec.Get("status")
		current, _ := statusRaw.(string)
		from := model.TaskStatus(current)

		if !model.CanTransition(from, to) {
			return nil, stateTransitionf("task %s: illegal transition %s -> %s", taskKey.String(), from, to)
		}

		params := map[string]any{"key": taskKey.String(), "status": string(to)}
		setClause := "t.status = $status"
		if claim != nil {
			setClause += ", t.claim = $claim"
			params["claim"] = *claim
		}
		updateQuery := fmt.Sprintf("MATCH (t:Task {_scoped_key: $key}) SET %s", setClause)
		_, err = tx.Run(ctx, updateQuery, params)
		return nil, err
	})
	return err
}

// SetTaskRunning claims task for claimant (waiting -> running).
func (s *Store) SetTaskRunning(ctx context.Context, taskKey scope.ScopedKey, claimant string) error {
	return s.transitionTask(ctx, taskKey, model.TaskRunning, &claimant)
}

// SetTaskComplete marks task successfully finished (running -> complete).
func (s *Store) SetTaskComplete(ctx context.Context, taskKey scope.ScopedKey) error {
	return s.transitionTask(ctx, taskKey, model.TaskComplete, nil)
}

// SetTaskError marks task failed (running -> error).
func (s *Store) SetTaskError(ctx context.Context, taskKey scope.ScopedKey) error {
	return s.transitionTask(ctx, taskKey, model.TaskError, nil)
}

// SetTaskWaiting abandons a claim, clearing it and returning the task to
// the waiting pool (running -> waiting).
func (s *Store) SetTaskWaiting(ctx context.Context, taskKey scope.ScopedKey) error {
	empty := ""
	return s.transitionTask(ctx, taskKey, model.TaskWaiting, &empty)
}

// SetTaskCancelled administratively cancels task (any non-terminal -> cancelled).
func (s *Store) SetTaskCancelled(ctx context.Context, taskKey scope.ScopedKey) error {
	return s.transitionTask(ctx, taskKey, model.TaskCancelled, nil)
}

// SetTaskInvalid administratively marks task invalid (any non-terminal -> invalid).
func (s *Store) SetTaskInvalid(ctx context.Context, taskKey scope.ScopedKey) error {
	return s.transitionTask(ctx, taskKey, model.TaskInvalid, nil)
}

// SetTaskDeleted administratively marks task deleted (any non-terminal -> deleted).
func (s *Store) SetTaskDeleted(ctx context.Context, taskKey scope.ScopedKey) error {
	return s.transitionTask(ctx, taskKey, model.TaskDeleted, nil)
}

// SetTasks would materialize a fixed count of tasks for a transformation in
// one call. Left unimplemented: the original declares this method but never
// fills it in, and nothing downstream in this design depends on it.
func (s *Store) SetTasks(ctx context.Context, transformationKey scope.ScopedKey, count int, extendFrom *scope.ScopedKey) ([]scope.ScopedKey, error) {
	return nil, ErrNotImplemented
}

// QueryTasks would search tasks by arbitrary attribute filters. Left
// unimplemented for the same reason as SetTasks.
func (s *Store) QueryTasks(ctx context.Context, sc scope.Scope, filters map[string]any) ([]scope.ScopedKey, error) {
	return nil, ErrNotImplemented
}
