package graphstore

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"alchemicore/internal/objectgraph"
)

// upsertSubgraph merges every node and edge of sg into the graph. Nodes are
// merged on the universal label plus _scoped_key (content-addressed
// upsert); since non-content attributes never change, SET x += $props is
// safe to repeat. Labels are interpolated into the query text rather than
// parameterized — Cypher does not allow parameterized labels — but they
// originate from objectgraph's own registered class names, never from
// caller-controlled strings.
func upsertSubgraph(ctx context.Context, tx neo4j.ManagedTransaction, sg *objectgraph.Subgraph) error {
	keys := make([]string, 0, len(sg.Nodes))
	for k := range sg.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		node := sg.Nodes[key]
		labelPattern := strings.Join(node.Labels, ":")
		query := fmt.Sprintf("MERGE (x:%s {_scoped_key: $key}) SET x += $props", labelPattern)
		if _, err := tx.Run(ctx, query, map[string]any{"key": key, "props": node.Props}); err != nil {
			return fmt.Errorf("upserting node %q: %w", key, err)
		}
	}

	for _, edge := range sg.Edges {
		if err := upsertEdge(ctx, tx, edge); err != nil {
			return err
		}
	}
	return nil
}

func upsertEdge(ctx context.Context, tx neo4j.ManagedTransaction, e *objectgraph.EncodedEdge) error {
	propClauses := []string{"attribute: $attribute"}
	params := map[string]any{
		"from":      e.FromKey,
		"to":        e.ToKey,
		"attribute": e.Attribute,
	}
	if e.HasKey {
		propClauses = append(propClauses, "key: $key")
		params["key"] = e.Key
	}
	if e.HasIndex {
		propClauses = append(propClauses, "index: $index")
		params["index"] = e.Index
	}

	query := fmt.Sprintf(`
		MATCH (a:%s {_scoped_key: $from})
		MATCH (b:%s {_scoped_key: $to})
		MERGE (a)-[r:%s {%s}]->(b)
	`, objectgraph.UniversalLabel, objectgraph.UniversalLabel, e.Type, strings.Join(propClauses, ", "))

	if _, err := tx.Run(ctx, query, params); err != nil {
		return fmt.Errorf("upserting edge %s->%s: %w", e.FromKey, e.ToKey, err)
	}
	return nil
}

// fetchSubgraph loads the root node (by _scoped_key) and everything
// reachable from it via DEPENDS_ON, plus every DEPENDS_ON edge among those
// nodes. ok is false if the root itself does not exist.
func fetchSubgraph(ctx context.Context, tx neo4j.ManagedTransaction, scopedKey string) (objectgraph.RawSubgraph, bool, error) {
	nodeQuery := fmt.Sprintf(`
		MATCH (root:%s {_scoped_key: $key})
		OPTIONAL MATCH (root)-[:DEPENDS_ON*0..]->(n)
		RETURN collect(DISTINCT n) AS nodes
	`, objectgraph.UniversalLabel)

	nodeRes, err := tx.Run(ctx, nodeQuery, map[string]any{"key": scopedKey})
	if err != nil {
		return objectgraph.RawSubgraph{}, false, err
	}
	nodeRecord, err := nodeRes.Single(ctx)
	if err != nil {
		// zero records: root does not exist.
		return objectgraph.RawSubgraph{}, false, nil
	}
	nodesRaw, _ := nodeRecord.Get("nodes")
	nodeList, _ := nodesRaw.([]any)
	if len(nodeList) == 0 {
		return objectgraph.RawSubgraph{}, false, nil
	}

	sg := objectgraph.RawSubgraph{}
	for _, raw := range nodeList {
		n, ok := raw.(neo4j.Node)
		if !ok {
			continue
		}
		sg.Nodes = append(sg.Nodes, nodeToRaw(n))
	}

	edgeQuery := fmt.Sprintf(`
		MATCH (root:%s {_scoped_key: $key})
		MATCH (root)-[:DEPENDS_ON*0..]->(a)-[r:DEPENDS_ON]->(b)
		RETURN DISTINCT a, r, b
	`, objectgraph.UniversalLabel)
	edgeRes, err := tx.Run(ctx, edgeQuery, map[string]any{"key": scopedKey})
	if err != nil {
		return objectgraph.RawSubgraph{}, false, err
	}
	edgeRecords, err := edgeRes.Collect(ctx)
	if err != nil {
		return objectgraph.RawSubgraph{}, false, err
	}
	for _, rec := range edgeRecords {
		relRaw, ok := rec.Get("r")
		if !ok {
			continue
		}
		rel, ok := relRaw.(neo4j.Relationship)
		if !ok {
			continue
		}
		sg.Edges = append(sg.Edges, relToRaw(rel))
	}

	return sg, true, nil
}

func nodeToRaw(n neo4j.Node) objectgraph.RawNode {
	return objectgraph.RawNode{ID: n.ElementId, Labels: n.Labels, Props: n.Props}
}

func relToRaw(r neo4j.Relationship) objectgraph.RawEdge {
	return objectgraph.RawEdge{Type: r.Type, StartID: r.StartElementId, EndID: r.EndElementId, Props: r.Props}
}

// decodeScopedKey fetches and decodes the object rooted at scopedKey.
func decodeScopedKey(ctx context.Context, tx neo4j.ManagedTransaction, scopedKey string) (objectgraph.Tokenizable, error) {
	sg, ok, err := fetchSubgraph(ctx, tx, scopedKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFoundf("no node with _scoped_key %q", scopedKey)
	}
	rootID, err := rootElementID(sg, scopedKey)
	if err != nil {
		return nil, err
	}
	return objectgraph.Decode(rootID, sg)
}

func rootElementID(sg objectgraph.RawSubgraph, scopedKey string) (string, error) {
	for _, n := range sg.Nodes {
		if key, _ := n.Props["_scoped_key"].(string); key == scopedKey {
			return n.ID, nil
		}
	}
	return "", notFoundf("root node for %q missing from fetched subgraph", scopedKey)
}
