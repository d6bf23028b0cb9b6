package graphstore

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"alchemicore/internal/lineage"
	"alchemicore/internal/model"
	"alchemicore/internal/objectgraph"
	"alchemicore/internal/scope"
)

// CreateTaskHub creates the one TaskHub for networkKey. TaskHub's content
// identity is the network's ScopedKey alone (model.TaskHub), so a second
// call for the same network upserts onto the existing node and returns the
// same ScopedKey — I2 falls directly out of content-addressed upsert,
// with no separate existence check or swallowed constraint violation
// needed.
func (s *Store) CreateTaskHub(ctx context.Context, networkKey scope.ScopedKey) (scope.ScopedKey, error) {
	hub := &model.TaskHub{NetworkKey: networkKey.String(), Weight: model.DefaultHubWeight}
	sg, sk, err := objectgraph.Encode(hub, networkKey.Scope)
	if err != nil {
		return scope.ScopedKey{}, fmt.Errorf("graphstore: encoding taskhub: %w", err)
	}

	_, err = s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := upsertSubgraph(ctx, tx, sg); err != nil {
			return nil, err
		}
		weightQuery := fmt.Sprintf(`
			MATCH (h:%s {_scoped_key: $key})
			SET h.weight = coalesce(h.weight, $weight)
		`, objectgraph.UniversalLabel)
		if _, err := tx.Run(ctx, weightQuery, map[string]any{"key": sk.String(), "weight": hub.Weight}); err != nil {
			return nil, err
		}
		performsQuery := fmt.Sprintf(`
			MATCH (h:%s {_scoped_key: $hubKey})
			MATCH (net:%s {_scoped_key: $netKey})
			MERGE (h)-[:PERFORMS]->(net)
		`, objectgraph.UniversalLabel, objectgraph.UniversalLabel)
		_, err := tx.Run(ctx, performsQuery, map[string]any{"hubKey": sk.String(), "netKey": networkKey.String()})
		return nil, err
	})
	if err != nil {
		return scope.ScopedKey{}, err
	}
	return sk, nil
}

// DeleteTaskHub deletes the TaskHub node and every ACTIONS/PERFORMS edge
// incident to it, leaving Tasks and the owning AlchemicalNetwork intact.
func (s *Store) DeleteTaskHub(ctx context.Context, hubKey scope.ScopedKey) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, "MATCH (h:TaskHub {_scoped_key: $key}) DETACH DELETE h", map[string]any{"key": hubKey.String()})
		return nil, err
	})
	return err
}

// GetTaskHub resolves the TaskHub owned by networkKey.
func (s *Store) GetTaskHub(ctx context.Context, networkKey scope.ScopedKey) (scope.ScopedKey, error) {
	query := `
		MATCH (h:TaskHub)-[:PERFORMS]->(net {_scoped_key: $netKey})
		RETURN h._scoped_key AS key
	`
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"netKey": networkKey.String()})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, notFoundf("no TaskHub for network %s", networkKey.String())
		}
		v, _ := rec.Get("key")
		keyStr, _ := v.(string)
		return keyStr, nil
	})
	if err != nil {
		return scope.ScopedKey{}, err
	}
	return scope.ParseScopedKey(result.(string))
}

// QueryTaskHubs lists every TaskHub within sc.
func (s *Store) QueryTaskHubs(ctx context.Context, sc scope.Scope) ([]scope.ScopedKey, error) {
	return s.queryScopedKeys(ctx, "TaskHub", nil, nil, sc)
}

// SetTaskHubWeight mutates a hub's own fairness weight.
func (s *Store) SetTaskHubWeight(ctx context.Context, hubKey scope.ScopedKey, weight float64) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := "MATCH (h:TaskHub {_scoped_key: $key}) SET h.weight = $weight RETURN h"
		res, err := tx.Run(ctx, query, map[string]any{"key": hubKey.String(), "weight": weight})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, notFoundf("taskhub %s not found", hubKey.String())
		}
		return nil, nil
	})
	return err
}

// QueueTaskHubTasks actions each of taskKeys onto hubKey, iff the task's
// transformation belongs to the hub's network and (I4) any EXTENDS
// predecessor is complete. The whole call fails — with no edges created —
// if any task fails either check.
func (s *Store) QueueTaskHubTasks(ctx context.Context, hubKey scope.ScopedKey, taskKeys []scope.ScopedKey) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, taskKey := range taskKeys {
			if err := queueOneTask(ctx, tx, hubKey, taskKey); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func queueOneTask(ctx context.Context, tx neo4j.ManagedTransaction, hubKey, taskKey scope.ScopedKey) error {
	memberQuery := `
		MATCH (h:TaskHub {_scoped_key: $hubKey})-[:PERFORMS]->(net)
		MATCH (t:Task {_scoped_key: $taskKey})-[:PERFORMS]->(tr)
		RETURN count(CASE WHEN (net)-[:DEPENDS_ON]->(tr) THEN 1 END) AS isMember
	`
	res, err := tx.Run(ctx, memberQuery, map[string]any{"hubKey": hubKey.String(), "taskKey": taskKey.String()})
	if err != nil {
		return err
	}
	rec, err := res.Single(ctx)
	if err != nil {
		return notFoundf("hub %s or task %s not found", hubKey.String(), taskKey.String())
	}
	memberRaw, _ := rec.Get("isMember")
	memberCount, _ := memberRaw.(int64)
	if memberCount == 0 {
		return membershipf("task %s's transformation is not a member of hub %s's network", taskKey.String(), hubKey.String())
	}

	predQuery := `
		MATCH (t:Task {_scoped_key: $taskKey})
		OPTIONAL MATCH (t)-[:EXTENDS]->(pred)
		RETURN pred IS NOT NULL AS hasPred, pred._scoped_key AS predKey, pred.status AS predStatus
	`
	predRes, err := tx.Run(ctx, predQuery, map[string]any{"taskKey": taskKey.String()})
	if err != nil {
		return err
	}
	predRec, err := predRes.Single(ctx)
	if err != nil {
		return err
	}
	hasPredRaw, _ := predRec.Get("hasPred")
	hasPred, _ := hasPredRaw.(bool)
	if hasPred {
		predKeyRaw, _ := predRec.Get("predKey")
		predKeyStr, _ := predKeyRaw.(string)
		if err := lineage.ValidateNoCycle(taskKey.String(), predKeyStr, taskPredecessorLookup(ctx, tx)); err != nil {
			return invalidf("%v", err)
		}

		statusRaw, _ := predRec.Get("predStatus")
		status, _ := statusRaw.(string)
		if model.TaskStatus(status) != model.TaskComplete {
			return membershipf("task %s's EXTENDS predecessor is not complete", taskKey.String())
		}
	}

	mergeQuery := `
		MATCH (h:TaskHub {_scoped_key: $hubKey})
		MATCH (t:Task {_scoped_key: $taskKey})
		MERGE (h)-[a:ACTIONS]->(t)
		ON CREATE SET a.weight = 1.0, a.taskhub = $hubKey, a.parent_task = $taskKey
	`
	_, err = tx.Run(ctx, mergeQuery, map[string]any{"hubKey": hubKey.String(), "taskKey": taskKey.String()})
	return err
}

// DequeueTaskHubTasks removes the ACTIONS edges for taskKeys, leaving the
// Task nodes themselves untouched — a Task may still be queued on another
// hub (I3) or queued again on this one later.
func (s *Store) DequeueTaskHubTasks(ctx context.Context, hubKey scope.ScopedKey, taskKeys []scope.ScopedKey) error {
	keyStrs := scopedKeyStrings(taskKeys)
	query := `
		MATCH (h:TaskHub {_scoped_key: $hubKey})-[a:ACTIONS]->(t:Task)
		WHERE t._scoped_key IN $taskKeys
		DELETE a
	`
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"hubKey": hubKey.String(), "taskKeys": keyStrs})
		return nil, err
	})
	return err
}

// SetTaskWeights mutates the ACTIONS edge weight per task, individually.
// Distinct from SetTaskWeight (one weight, many tasks): two separate,
// precisely-typed methods replace the original's single polymorphic
// function that had to reject a list-without-scalar or map-with-scalar at
// runtime — Go's type system makes that caller error unrepresentable here.
func (s *Store) SetTaskWeights(ctx context.Context, hubKey scope.ScopedKey, weights map[scope.ScopedKey]float64) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for taskKey, weight := range weights {
			if err := setOneTaskWeight(ctx, tx, hubKey, taskKey, weight); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// SetTaskWeight applies one weight to every task in taskKeys.
func (s *Store) SetTaskWeight(ctx context.Context, hubKey scope.ScopedKey, taskKeys []scope.ScopedKey, weight float64) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, taskKey := range taskKeys {
			if err := setOneTaskWeight(ctx, tx, hubKey, taskKey, weight); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func setOneTaskWeight(ctx context.Context, tx neo4j.ManagedTransaction, hubKey, taskKey scope.ScopedKey, weight float64) error {
	query := `
		MATCH (h:TaskHub {_scoped_key: $hubKey})-[a:ACTIONS]->(t:Task {_scoped_key: $taskKey})
		SET a.weight = $weight
		RETURN a
	`
	res, err := tx.Run(ctx, query, map[string]any{"hubKey": hubKey.String(), "taskKey": taskKey.String(), "weight": weight})
	if err != nil {
		return err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return notFoundf("no ACTIONS edge from hub %s to task %s", hubKey.String(), taskKey.String())
	}
	return nil
}

// GetTaskWeights reads the ACTIONS edge weight for each of taskKeys queued
// on hubKey. Tasks not queued on the hub are omitted from the result.
func (s *Store) GetTaskWeights(ctx context.Context, hubKey scope.ScopedKey, taskKeys []scope.ScopedKey) (map[scope.ScopedKey]float64, error) {
	query := `
		MATCH (h:TaskHub {_scoped_key: $hubKey})-[a:ACTIONS]->(t:Task)
		WHERE t._scoped_key IN $taskKeys
		RETURN t._scoped_key AS taskKey, a.weight AS weight
	`
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"hubKey": hubKey.String(), "taskKeys": scopedKeyStrings(taskKeys)})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := map[string]float64{}
		for _, rec := range records {
			kRaw, _ := rec.Get("taskKey")
			kStr, _ := kRaw.(string)
			wRaw, _ := rec.Get("weight")
			w, _ := wRaw.(float64)
			out[kStr] = w
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	raw := result.(map[string]float64)
	weights := make(map[scope.ScopedKey]float64, len(raw))
	for k, w := range raw {
		sk, err := scope.ParseScopedKey(k)
		if err != nil {
			return nil, fmt.Errorf("graphstore: parsing task key %q: %w", k, err)
		}
		weights[sk] = w
	}
	return weights, nil
}

// GetTaskHubTasks lists every task actioned by hubKey, claimed or not.
func (s *Store) GetTaskHubTasks(ctx context.Context, hubKey scope.ScopedKey) ([]scope.ScopedKey, error) {
	return s.taskHubTaskKeys(ctx, hubKey, "")
}

// GetTaskHubUnclaimedTasks lists only the hub's waiting tasks.
func (s *Store) GetTaskHubUnclaimedTasks(ctx context.Context, hubKey scope.ScopedKey) ([]scope.ScopedKey, error) {
	return s.taskHubTaskKeys(ctx, hubKey, string(model.TaskWaiting))
}

func (s *Store) taskHubTaskKeys(ctx context.Context, hubKey scope.ScopedKey, statusFilter string) ([]scope.ScopedKey, error) {
	where := ""
	params := map[string]any{"hubKey": hubKey.String()}
	if statusFilter != "" {
		where = "WHERE t.status = $status"
		params["status"] = statusFilter
	}
	query := fmt.Sprintf(`
		MATCH (h:TaskHub {_scoped_key: $hubKey})-[:ACTIONS]->(t:Task)
		%s
		RETURN t._scoped_key AS key
	`, where)

	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		keys := make([]scope.ScopedKey, 0, len(records))
		for _, rec := range records {
			v, _ := rec.Get("key")
			raw, _ := v.(string)
			sk, err := scope.ParseScopedKey(raw)
			if err != nil {
				return nil, fmt.Errorf("graphstore: parsing task key %q: %w", raw, err)
			}
			keys = append(keys, sk)
		}
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]scope.ScopedKey), nil
}

func scopedKeyStrings(keys []scope.ScopedKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

// ClaimTaskHubTasks is the scheduler's hot path: it produces a slice of
// length count, each element either a claimed Task's ScopedKey or nil (no
// eligible task this iteration). Each iteration runs in its own
// transaction (§9: "trades throughput for simpler recovery — a partial
// batch commits task-by-task").
func (s *Store) ClaimTaskHubTasks(ctx context.Context, hubKey scope.ScopedKey, claimant string, count int) ([]*scope.ScopedKey, error) {
	claimed := make([]*scope.ScopedKey, 0, count)
	err := s.ops.Track("claim_taskhub_tasks", map[string]any{
		"hub": hubKey.String(), "claimant": claimant, "count": count,
	}, func() error {
		for i := 0; i < count; i++ {
			sk, err := s.claimOneTask(ctx, hubKey, claimant)
			if err != nil {
				return err
			}
			claimed = append(claimed, sk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

type weightedCandidate struct {
	key    string
	weight float64
}

func (s *Store) claimOneTask(ctx context.Context, hubKey scope.ScopedKey, claimant string) (*scope.ScopedKey, error) {
	result, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		minQuery := `
			MATCH (h:TaskHub {_scoped_key: $hubKey})-[:ACTIONS]->(t:Task {status: 'waiting'})
			RETURN min(t.priority) AS minPriority
		`
		minRes, err := tx.Run(ctx, minQuery, map[string]any{"hubKey": hubKey.String()})
		if err != nil {
			return nil, err
		}
		minRec, err := minRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		minRaw, ok := minRec.Get("minPriority")
		if !ok || minRaw == nil {
			return (*scope.ScopedKey)(nil), nil // no waiting task at any priority
		}
		minPriority, _ := minRaw.(int64)

		poolQuery := `
			MATCH (h:TaskHub {_scoped_key: $hubKey})-[a:ACTIONS]->(t:Task {status: 'waiting', priority: $priority})
			RETURN t._scoped_key AS key, a.weight AS weight
		`
		poolRes, err := tx.Run(ctx, poolQuery, map[string]any{"hubKey": hubKey.String(), "priority": minPriority})
		if err != nil {
			return nil, err
		}
		records, err := poolRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return (*scope.ScopedKey)(nil), nil
		}

		pool := make([]weightedCandidate, 0, len(records))
		var totalWeight float64
		for _, rec := range records {
			kRaw, _ := rec.Get("key")
			kStr, _ := kRaw.(string)
			wRaw, _ := rec.Get("weight")
			w, _ := wRaw.(float64)
			pool = append(pool, weightedCandidate{key: kStr, weight: w})
			totalWeight += w
		}
		if totalWeight <= 0 {
			// all weights zero: this tier is deliberately frozen (§4.6
			// "backpressure off"); nothing is claimable even though
			// waiting tasks exist.
			return (*scope.ScopedKey)(nil), nil
		}

		chosen := sampleWeighted(pool, totalWeight)

		claimQuery := `
			MATCH (h:TaskHub {_scoped_key: $hubKey})-[:ACTIONS]->(t:Task {_scoped_key: $taskKey, status: 'waiting'})
			WITH t LIMIT 1
			SET t.status = 'running', t.claim = $claimant
			RETURN t._scoped_key AS key
		`
		claimRes, err := tx.Run(ctx, claimQuery, map[string]any{
			"hubKey": hubKey.String(), "taskKey": chosen, "claimant": claimant,
		})
		if err != nil {
			return nil, err
		}
		claimRecords, err := claimRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(claimRecords) == 0 {
			// raced with a concurrent claimant between selection and
			// claim (I6 guard); no task claimed this iteration.
			return (*scope.ScopedKey)(nil), nil
		}
		keyRaw, _ := claimRecords[0].Get("key")
		keyStr, _ := keyRaw.(string)
		sk, err := scope.ParseScopedKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("graphstore: parsing claimed task key %q: %w", keyStr, err)
		}
		return &sk, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*scope.ScopedKey), nil
}

// sampleWeighted draws one candidate with probability proportional to its
// weight, via a uniform draw against the cumulative distribution.
func sampleWeighted(pool []weightedCandidate, totalWeight float64) string {
	draw := rand.Float64() * totalWeight
	var cumulative float64
	for _, c := range pool {
		cumulative += c.weight
		if draw < cumulative {
			return c.key
		}
	}
	// floating-point rounding: fall back to the last candidate.
	return pool[len(pool)-1].key
}
