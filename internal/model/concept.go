// Package model defines the core data types shared across the
// resolution and reconciliation pipeline.
package model

import "strings"

// GAAPNamespace is the taxonomy namespace virtually all reconciled
// metrics live in.
const GAAPNamespace = "us-gaap"

// Concept identifies a single accounting element within a taxonomy:
// a namespace plus a local name, e.g. us-gaap:Revenues. Concepts are
// value types and safe to use as map keys.
type Concept struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// GAAP returns a Concept in the us-gaap namespace.
func GAAP(name string) Concept {
	return Concept{Namespace: GAAPNamespace, Name: name}
}

// ParseConcept parses "ns:LocalName" into a Concept. A bare local name
// defaults to the us-gaap namespace.
func ParseConcept(s string) Concept {
	if ns, name, ok := strings.Cut(s, ":"); ok && name != "" {
		return Concept{Namespace: ns, Name: name}
	}
	return GAAP(s)
}

// String renders the concept as "ns:LocalName".
func (c Concept) String() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + ":" + c.Name
}

// IsZero reports whether the concept is unset.
func (c Concept) IsZero() bool {
	return c.Name == ""
}

// ConceptSet is the set of concepts an entity has actually used in its
// disclosures. Read-only once built.
type ConceptSet map[Concept]struct{}

// NewConceptSet builds a set from the given concepts.
func NewConceptSet(concepts ...Concept) ConceptSet {
	s := make(ConceptSet, len(concepts))
	for _, c := range concepts {
		s[c] = struct{}{}
	}
	return s
}

// Has reports set membership.
func (s ConceptSet) Has(c Concept) bool {
	_, ok := s[c]
	return ok
}

// Add inserts a concept.
func (s ConceptSet) Add(c Concept) {
	s[c] = struct{}{}
}

// Sorted returns the members ordered by namespace then name, for
// deterministic iteration.
func (s ConceptSet) Sorted() []Concept {
	out := make([]Concept, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sortConcepts(out)
	return out
}

func sortConcepts(cs []Concept) {
	// Insertion sort; reported sets are a few hundred entries.
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && conceptLess(cs[j], cs[j-1]); j-- {
			cs[j], cs[j-1] = cs[j-1], cs[j]
		}
	}
}

func conceptLess(a, b Concept) bool {
	if a.Namespace != b.Namespace {
		return a.Namespace < b.Namespace
	}
	return a.Name < b.Name
}
