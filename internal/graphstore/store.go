// Package graphstore is the transactional Neo4j-backed repository: CRUD
// with uniqueness constraints, idempotent merge, the network/task/TaskHub
// stores, the TaskHub scheduler, the identity & scope store, and admin
// (init/check/reset) operations. It is the only package with a direct
// dependency on the Neo4j driver.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"alchemicore/internal/corecfg"
	"alchemicore/internal/corelog"
	"alchemicore/internal/model"
	"alchemicore/internal/objectgraph"
	"alchemicore/internal/opstrack"
)

// SentinelLabel marks the single node Init creates to work around the
// database engine's node-id-reuse quirks; Check verifies it remains present
// and Reset never deletes it.
const SentinelLabel = "NOPE"

const sentinelConstraintName = "alchemicore_gufe_scoped_key"
const userIdentityConstraintName = "alchemicore_user_identity_identifier"
const computeIdentityConstraintName = "alchemicore_compute_identity_identifier"

// Store is the repository over one Neo4j database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *corelog.ContextLogger
	ops      *opstrack.Tracker
}

// NewStore validates cfg, opens a driver, and verifies connectivity.
func NewStore(ctx context.Context, cfg corecfg.CoreConfig, log *corelog.ContextLogger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URL, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("%w: creating driver: %v", ErrStorageUnavailable, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("%w: connecting: %v", ErrStorageUnavailable, err)
	}

	if log == nil {
		log = corelog.NewContextLogger(nil, map[string]any{"component": "graphstore"})
	}

	return &Store{driver: driver, database: cfg.Database, log: log, ops: opstrack.New(opstrack.Config{})}, nil
}

// Ops exposes the store's operation tracker, read by cmd/corectl's "ops"
// subcommand.
func (s *Store) Ops() *opstrack.Tracker {
	return s.ops
}

// Close releases the underlying driver's connection pool.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// write runs fn inside one write transaction: commits on normal return,
// rolls back on any error.
func (s *Store) write(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, fn)
	if err != nil {
		return nil, translateErr(err)
	}
	return result, nil
}

// read runs fn inside one read transaction.
func (s *Store) read(ctx context.Context, fn func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.ExecuteRead(ctx, fn)
	if err != nil {
		return nil, translateErr(err)
	}
	return result, nil
}

// translateErr leaves a already-typed sentinel error (raised deliberately by
// a transaction function) untouched, recognizes a genuine engine-side
// constraint violation (e.g. the per-kind identity uniqueness constraints
// Init declares) and wraps it as ErrConstraintViolation, and wraps anything
// else — driver errors, network failures — as ErrStorageUnavailable, per
// §7's propagation policy.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		ErrNotFound, ErrDuplicateFound, ErrConstraintViolation,
		ErrInvalidRequest, ErrStateTransition, ErrMembership,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) && strings.Contains(neo4jErr.Code, "ConstraintValidationFailed") {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}

// Init declares the schema's uniqueness constraints and creates the
// sentinel node, idempotently. Identity uniqueness is constrained per
// concrete kind label, not on the shared CredentialedEntity label, so the
// same identifier string may be used once as a UserIdentity and once as a
// ComputeIdentity without colliding.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		stmts := []string{
			fmt.Sprintf(
				"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n._scoped_key IS UNIQUE",
				sentinelConstraintName, objectgraph.UniversalLabel,
			),
			fmt.Sprintf(
				"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.identifier IS UNIQUE",
				userIdentityConstraintName, model.UserIdentity,
			),
			fmt.Sprintf(
				"CREATE CONSTRAINT %s IF NOT EXISTS FOR (n:%s) REQUIRE n.identifier IS UNIQUE",
				computeIdentityConstraintName, model.ComputeIdentity,
			),
		}
		for _, stmt := range stmts {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, err
			}
		}
		_, err := tx.Run(ctx, fmt.Sprintf("MERGE (n:%s {id: 'sentinel'})", SentinelLabel), nil)
		return nil, err
	})
	return err
}

// Check verifies all three constraints exist and the sentinel node is
// present.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "SHOW CONSTRAINTS YIELD name RETURN collect(name) AS names", nil)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		namesRaw, _ := record.Get("names")
		names, _ := namesRaw.([]any)
		have := map[string]bool{}
		for _, n := range names {
			if s, ok := n.(string); ok {
				have[s] = true
			}
		}
		if !have[sentinelConstraintName] {
			return nil, fmt.Errorf("missing constraint %s", sentinelConstraintName)
		}
		if !have[userIdentityConstraintName] {
			return nil, fmt.Errorf("missing constraint %s", userIdentityConstraintName)
		}
		if !have[computeIdentityConstraintName] {
			return nil, fmt.Errorf("missing constraint %s", computeIdentityConstraintName)
		}

		sentinelRes, err := tx.Run(ctx, fmt.Sprintf("MATCH (n:%s {id:'sentinel'}) RETURN count(n) AS c", SentinelLabel), nil)
		if err != nil {
			return nil, err
		}
		sentinelRecord, err := sentinelRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		countRaw, _ := sentinelRecord.Get("c")
		count, _ := countRaw.(int64)
		if count != 1 {
			return nil, fmt.Errorf("sentinel node missing or duplicated: count=%d", count)
		}
		return nil, nil
	})
	return err
}

// Reset deletes every non-sentinel node (and its relationships) and drops
// all three constraints. Intended for test fixtures, not production use.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.write(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf("MATCH (n) WHERE NOT n:%s DETACH DELETE n", SentinelLabel)
		if _, err := tx.Run(ctx, query, nil); err != nil {
			return nil, err
		}
		for _, stmt := range []string{
			fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", sentinelConstraintName),
			fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", userIdentityConstraintName),
			fmt.Sprintf("DROP CONSTRAINT %s IF EXISTS", computeIdentityConstraintName),
		} {
			if _, err := tx.Run(ctx, stmt, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}
