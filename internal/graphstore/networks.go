package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"alchemicore/internal/model"
	"alchemicore/internal/objectgraph"
	"alchemicore/internal/scope"
)

// CreateNetwork encodes network (with shared sub-objects) and upserts the
// resulting subgraph. Idempotent: resubmitting the same network in the same
// scope returns the same ScopedKey and creates no duplicate nodes (P2).
func (s *Store) CreateNetwork(ctx context.Context, network *model.AlchemicalNetwork, sc scope.Scope) (scope.ScopedKey, error) {
	sg, sk, err := objectgraph.Encode(network, sc)
	if err != nil {
		return scope.ScopedKey{}, fmt.Errorf("graphstore: encoding network: %w", err)
	}
	_, err = s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, upsertSubgraph(ctx, tx, sg)
	})
	if err != nil {
		return scope.ScopedKey{}, err
	}
	return sk, nil
}

// DeleteNetwork detaches the network node, first deleting its TaskHub (if
// any). Transformations and ChemicalSystems are never touched (I8): a
// DETACH DELETE only removes relationships incident to the deleted node,
// never the nodes at their far end.
func (s *Store) DeleteNetwork(ctx context.Context, sk scope.ScopedKey) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		hubQuery := `
			MATCH (hub:TaskHub)-[:PERFORMS]->(net {_scoped_key: $key})
			DETACH DELETE hub
		`
		if _, err := tx.Run(ctx, hubQuery, map[string]any{"key": sk.String()}); err != nil {
			return nil, err
		}
		netQuery := `
			MATCH (net {_scoped_key: $key})
			DETACH DELETE net
		`
		_, err := tx.Run(ctx, netQuery, map[string]any{"key": sk.String()})
		return nil, err
	})
	return err
}

// GetNetwork fetches and decodes the AlchemicalNetwork at sk.
func (s *Store) GetNetwork(ctx context.Context, sk scope.ScopedKey) (*model.AlchemicalNetwork, error) {
	obj, err := s.getTokenizable(ctx, sk)
	if err != nil {
		return nil, err
	}
	n, ok := obj.(*model.AlchemicalNetwork)
	if !ok {
		return nil, fmt.Errorf("graphstore: %s is not an AlchemicalNetwork", sk)
	}
	return n, nil
}

// GetTransformation fetches and decodes the Transformation at sk.
func (s *Store) GetTransformation(ctx context.Context, sk scope.ScopedKey) (*model.Transformation, error) {
	obj, err := s.getTokenizable(ctx, sk)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(*model.Transformation)
	if !ok {
		return nil, fmt.Errorf("graphstore: %s is not a Transformation", sk)
	}
	return t, nil
}

// GetChemicalSystem fetches and decodes the ChemicalSystem at sk.
func (s *Store) GetChemicalSystem(ctx context.Context, sk scope.ScopedKey) (*model.ChemicalSystem, error) {
	obj, err := s.getTokenizable(ctx, sk)
	if err != nil {
		return nil, err
	}
	cs, ok := obj.(*model.ChemicalSystem)
	if !ok {
		return nil, fmt.Errorf("graphstore: %s is not a ChemicalSystem", sk)
	}
	return cs, nil
}

func (s *Store) getTokenizable(ctx context.Context, sk scope.ScopedKey) (objectgraph.Tokenizable, error) {
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return decodeScopedKey(ctx, tx, sk.String())
	})
	if err != nil {
		return nil, err
	}
	return result.(objectgraph.Tokenizable), nil
}

// QueryNetworks filters AlchemicalNetwork nodes by optional name and
// content-hash, within sc (which may contain wildcard components).
func (s *Store) QueryNetworks(ctx context.Context, name, contentHash *string, sc scope.Scope) ([]scope.ScopedKey, error) {
	return s.queryScopedKeys(ctx, "AlchemicalNetwork", name, contentHash, sc)
}

// QueryTransformations filters Transformation nodes the same way.
func (s *Store) QueryTransformations(ctx context.Context, name, contentHash *string, sc scope.Scope) ([]scope.ScopedKey, error) {
	return s.queryScopedKeys(ctx, "Transformation", name, contentHash, sc)
}

// QueryChemicalSystems filters ChemicalSystem nodes the same way.
func (s *Store) QueryChemicalSystems(ctx context.Context, name, contentHash *string, sc scope.Scope) ([]scope.ScopedKey, error) {
	return s.queryScopedKeys(ctx, "ChemicalSystem", name, contentHash, sc)
}

func (s *Store) queryScopedKeys(ctx context.Context, label string, name, contentHash *string, sc scope.Scope) ([]scope.ScopedKey, error) {
	conds, params := scopeConditions(sc, "n")
	if name != nil {
		conds = append(conds, "n.name = $name")
		params["name"] = *name
	}
	if contentHash != nil {
		conds = append(conds, "n._gufe_key = $gufeKey")
		params["gufeKey"] = label + "-" + *contentHash
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	query := fmt.Sprintf("MATCH (n:%s:%s) %s RETURN n._scoped_key AS key", objectgraph.UniversalLabel, label, where)

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
				return nil, fmt.Errorf("graphstore: parsing stored scoped key %q: %w", raw, err)
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

// scopeConditions builds WHERE clause fragments and parameters matching
// nodeVar's _org/_campaign/_project against sc, skipping any wildcard or
// empty component (meaning "any").
func scopeConditions(sc scope.Scope, nodeVar string) ([]string, map[string]any) {
	var conds []string
	params := map[string]any{}
	if sc.Org != "" && sc.Org != scope.Wildcard {
		conds = append(conds, nodeVar+"._org = $org")
		params["org"] = sc.Org
	}
	if sc.Campaign != "" && sc.Campaign != scope.Wildcard {
		conds = append(conds, nodeVar+"._campaign = $campaign")
		params["campaign"] = sc.Campaign
	}
	if sc.Project != "" && sc.Project != scope.Wildcard {
		conds = append(conds, nodeVar+"._project = $project")
		params["project"] = sc.Project
	}
	return conds, params
}

// Exists reports whether a node with the given ScopedKey is persisted.
func (s *Store) Exists(ctx context.Context, sk scope.ScopedKey) (bool, error) {
	count, err := s.countByScopedKey(ctx, sk)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) countByScopedKey(ctx context.Context, sk scope.ScopedKey) (int64, error) {
	query := fmt.Sprintf("MATCH (n:%s {_scoped_key: $key}) RETURN count(n) AS c", objectgraph.UniversalLabel)
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"key": sk.String()})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		c, _ := rec.Get("c")
		count, _ := c.(int64)
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

// GetScopedKey resolves obj to its persisted ScopedKey in sc, failing with
// ErrNotFound if absent or ErrDuplicateFound if the uniqueness constraint
// has somehow been violated.
func (s *Store) GetScopedKey(ctx context.Context, obj objectgraph.Tokenizable, sc scope.Scope) (scope.ScopedKey, error) {
	hash := objectgraph.ContentHash(obj)
	candidate := scope.NewScopedKey(obj.ClassName(), hash, sc)

	count, err := s.countByScopedKey(ctx, candidate)
	if err != nil {
		return scope.ScopedKey{}, err
	}
	switch {
	case count == 0:
		return scope.ScopedKey{}, notFoundf("no persisted %s matches content in scope %s", obj.ClassName(), sc.String())
	case count > 1:
		return scope.ScopedKey{}, duplicatef("scoped key %s resolved to %d nodes", candidate.String(), count)
	}
	return candidate, nil
}
