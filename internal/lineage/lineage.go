// Package lineage validates Task EXTENDS chains: since EXTENDS points to
// exactly one predecessor, the chain is a linked list rather than a general
// DAG, so cycle detection is a single walk with a visited set rather than
// full depth-first recursion over multiple children — the same visited-set
// idiom as a DAG cycle check, specialized to a single-parent chain.
package lineage

import "fmt"

// PredecessorLookup resolves key's EXTENDS predecessor. ok is false when
// key has no predecessor.
type PredecessorLookup func(key string) (predecessor string, ok bool, err error)

// ValidateNoCycle walks candidatePredecessor's own EXTENDS chain and fails
// if it ever revisits start or loops back on itself — guarding against
// linking start to a predecessor whose chain is already corrupt.
func ValidateNoCycle(start, candidatePredecessor string, lookup PredecessorLookup) error {
	visited := map[string]bool{start: true}
	current := candidatePredecessor
	for {
		if visited[current] {
			return fmt.Errorf("lineage: EXTENDS chain through %s would cycle back to %s", candidatePredecessor, current)
		}
		visited[current] = true

		next, ok, err := lookup(current)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		current = next
	}
}

// Chain returns the full ancestor chain starting at key (key itself
// excluded), walking EXTENDS predecessors until one has none.
func Chain(key string, lookup PredecessorLookup) ([]string, error) {
	var chain []string
	visited := map[string]bool{key: true}
	current := key
	for {
		next, ok, err := lookup(current)
		if err != nil {
			return nil, err
		}
		if !ok {
			return chain, nil
		}
		if visited[next] {
			return nil, fmt.Errorf("lineage: cyclic EXTENDS chain detected at %s", next)
		}
		visited[next] = true
		chain = append(chain, next)
		current = next
	}
}
