package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"alchemicore/internal/model"
	"alchemicore/internal/scope"
)

// CreateCredentialedEntity upserts a node labeled both CredentialedEntity
// and entity's concrete kind, keyed on identifier. A re-submission updates
// hashed_key but never touches an existing scopes list.
func (s *Store) CreateCredentialedEntity(ctx context.Context, entity *model.CredentialedEntity) error {
	query := fmt.Sprintf(`
		MERGE (n:CredentialedEntity:%s {identifier: $identifier})
		ON CREATE SET n.hashed_key = $hashedKey, n.scopes = []
		ON MATCH SET n.hashed_key = $hashedKey
	`, string(entity.Kind))
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{
			"identifier": entity.Identifier, "hashedKey": entity.HashedKey,
		})
		return nil, err
	})
	return err
}

// GetCredentialedEntity fetches the identity of kind by identifier.
func (s *Store) GetCredentialedEntity(ctx context.Context, kind model.IdentityKind, identifier string) (*model.CredentialedEntity, error) {
	query := fmt.Sprintf(`
		MATCH (n:CredentialedEntity:%s {identifier: $identifier})
		RETURN n.identifier AS identifier, n.hashed_key AS hashedKey, n.scopes AS scopes
	`, string(kind))
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"identifier": identifier})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, notFoundf("%s %q not found", kind, identifier)
		}
		return recordToEntity(kind, rec), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.CredentialedEntity), nil
}

// ListCredentialedEntities lists every identity of kind.
func (s *Store) ListCredentialedEntities(ctx context.Context, kind model.IdentityKind) ([]*model.CredentialedEntity, error) {
	query := fmt.Sprintf(`
		MATCH (n:CredentialedEntity:%s)
		RETURN n.identifier AS identifier, n.hashed_key AS hashedKey, n.scopes AS scopes
	`, string(kind))
	result, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		entities := make([]*model.CredentialedEntity, 0, len(records))
		for _, rec := range records {
			entities = append(entities, recordToEntity(kind, rec))
		}
		return entities, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]*model.CredentialedEntity), nil
}

func recordToEntity(kind model.IdentityKind, rec *neo4j.Record) *model.CredentialedEntity {
	idRaw, _ := rec.Get("identifier")
	id, _ := idRaw.(string)
	hkRaw, _ := rec.Get("hashedKey")
	hk, _ := hkRaw.(string)
	scopesRaw, _ := rec.Get("scopes")
	scopesList, _ := scopesRaw.([]any)
	scopes := make([]string, 0, len(scopesList))
	for _, v := range scopesList {
		if str, ok := v.(string); ok {
			scopes = append(scopes, str)
		}
	}
	return &model.CredentialedEntity{Kind: kind, Identifier: id, HashedKey: hk, Scopes: scopes}
}

// RemoveCredentialedIdentity deletes an identity and any relationships
// incident to it.
func (s *Store) RemoveCredentialedIdentity(ctx context.Context, kind model.IdentityKind, identifier string) error {
	query := fmt.Sprintf("MATCH (n:CredentialedEntity:%s {identifier: $identifier}) DETACH DELETE n", string(kind))
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, map[string]any{"identifier": identifier})
		return nil, err
	})
	return err
}

// AddScope appends sc to the identity's scopes list iff not already
// present (idempotent, P8).
func (s *Store) AddScope(ctx context.Context, kind model.IdentityKind, identifier string, sc scope.Scope) error {
	query := fmt.Sprintf(`
		MATCH (n:CredentialedEntity:%s {identifier: $identifier})
		SET n.scopes = CASE WHEN $scope IN coalesce(n.scopes, []) THEN n.scopes ELSE coalesce(n.scopes, []) + $scope END
		RETURN n
	`, string(kind))
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"identifier": identifier, "scope": sc.String()})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, notFoundf("%s %q not found", kind, identifier)
		}
		return nil, nil
	})
	return err
}

// RemoveScope filters sc out of the identity's scopes list (idempotent, P8).
func (s *Store) RemoveScope(ctx context.Context, kind model.IdentityKind, identifier string, sc scope.Scope) error {
	query := fmt.Sprintf(`
		MATCH (n:CredentialedEntity:%s {identifier: $identifier})
		SET n.scopes = [s IN coalesce(n.scopes, []) WHERE s <> $scope]
		RETURN n
	`, string(kind))
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"identifier": identifier, "scope": sc.String()})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, notFoundf("%s %q not found", kind, identifier)
		}
		return nil, nil
	})
	return err
}

// ListScopes decodes each stored scope string back into a scope.Scope.
func (s *Store) ListScopes(ctx context.Context, kind model.IdentityKind, identifier string) ([]scope.Scope, error) {
	entity, err := s.GetCredentialedEntity(ctx, kind, identifier)
	if err != nil {
		return nil, err
	}
	scopes := make([]scope.Scope, 0, len(entity.Scopes))
	for _, raw := range entity.Scopes {
		sc, err := scope.ParseScope(raw)
		if err != nil {
			return nil, fmt.Errorf("graphstore: parsing stored scope %q: %w", raw, err)
		}
		scopes = append(scopes, sc)
	}
	return scopes, nil
}
