// Package scope implements the three-level tenant namespace (org/campaign/project)
// and the globally unique ScopedKey used to address every persisted entity.
package scope

import (
	"fmt"
	"strings"
)

// Wildcard matches any value at a given position in a Scope.
const Wildcard = "*"

// Scope is a hierarchical (org, campaign, project) tenant namespace triple.
// A component equal to Wildcard matches any value at that position.
type Scope struct {
	Org      string
	Campaign string
	Project  string
}

// String renders the canonical "<org>-<campaign>-<project>" wire form.
func (s Scope) String() string {
	return fmt.Sprintf("%s-%s-%s", orAny(s.Org), orAny(s.Campaign), orAny(s.Project))
}

func orAny(v string) string {
	if v == "" {
		return Wildcard
	}
	return v
}

// ParseScope parses the "<org>-<campaign>-<project>" wire form produced by String.
func ParseScope(s string) (Scope, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Scope{}, fmt.Errorf("scope: malformed scope string %q", s)
	}
	return Scope{Org: parts[0], Campaign: parts[1], Project: parts[2]}, nil
}

// Matches reports whether the receiver (treated as a grant, e.g. "a-*-*")
// authorizes access to the candidate scope. Hierarchical: a wildcard at a
// position in the receiver matches any value of the candidate at that
// position.
func (s Scope) Matches(candidate Scope) bool {
	return matchesComponent(s.Org, candidate.Org) &&
		matchesComponent(s.Campaign, candidate.Campaign) &&
		matchesComponent(s.Project, candidate.Project)
}

func matchesComponent(grant, candidate string) bool {
	if grant == Wildcard || grant == "" {
		return true
	}
	return grant == candidate
}

// IsWildcard reports whether any component of the scope is the wildcard.
func (s Scope) IsWildcard() bool {
	return s.Org == Wildcard || s.Campaign == Wildcard || s.Project == Wildcard
}

// ScopedKey globally and uniquely identifies a persisted entity: a class
// name, a content-hash, and the Scope it lives in.
type ScopedKey struct {
	Class string
	Hash  string
	Scope Scope
}

// NewScopedKey builds a ScopedKey from its parts.
func NewScopedKey(class, hash string, s Scope) ScopedKey {
	return ScopedKey{Class: class, Hash: hash, Scope: s}
}

// String renders the canonical "<classname>-<content-hash>-<org>-<campaign>-<project>" form.
func (k ScopedKey) String() string {
	return fmt.Sprintf("%s-%s-%s", k.Class, k.Hash, k.Scope.String())
}

// ParseScopedKey parses the wire form produced by String.
func ParseScopedKey(s string) (ScopedKey, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return ScopedKey{}, fmt.Errorf("scope: malformed scoped key %q", s)
	}
	return ScopedKey{
		Class: parts[0],
		Hash:  parts[1],
		Scope: Scope{Org: parts[2], Campaign: parts[3], Project: parts[4]},
	}, nil
}

// Key returns the "<classname>-<content-hash>" portion used as the
// scope-independent content identity (analogous to a GufeKey).
func (k ScopedKey) Key() string {
	return fmt.Sprintf("%s-%s", k.Class, k.Hash)
}
