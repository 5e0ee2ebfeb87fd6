// Package taxonomy holds a versioned snapshot of US-GAAP concept
// texts and presentation hierarchies, and answers the text, depth,
// children, and ancestor queries the similarity scorers need.
package taxonomy

import (
	"errors"

	"github.com/sells-group/edgar-recon/internal/model"
)

// ErrUnavailable is returned when no taxonomy version from the
// preference list could be loaded. No resolution is possible without
// a taxonomy, so callers treat this as fatal.
var ErrUnavailable = errors.New("taxonomy: no version available")

// network is one presentation hierarchy: parent/child edges plus BFS
// depths from the roots. A concept may appear in several networks at
// different depths, so all edge queries are network-scoped.
type network struct {
	children map[model.Concept][]model.Concept
	parents  map[model.Concept][]model.Concept
	depths   map[model.Concept]int
}

// Store is an immutable taxonomy snapshot. Built once per run by the
// Loader (or by NewStore in tests) and read-only afterwards.
type Store struct {
	version  string
	texts    map[model.Concept]string
	networks map[string]*network
	order    []string // network names in load order
	merged   map[model.Concept]int
}

// NewStore assembles a Store from raw text and edge maps. Depths are
// computed per network by BFS from the roots; when a concept is
// reachable at several depths the smallest wins.
func NewStore(version string, texts map[model.Concept]string, edges map[string][]Edge) *Store {
	s := &Store{
		version:  version,
		texts:    texts,
		networks: make(map[string]*network, len(edges)),
	}
	if s.texts == nil {
		s.texts = make(map[model.Concept]string)
	}
	for name, es := range edges {
		s.order = append(s.order, name)
		s.networks[name] = buildNetwork(es)
	}
	sortStrings(s.order)
	s.merged = mergeDepths(s.networks)
	return s
}

// Edge is one parent→child presentation arc.
type Edge struct {
	Parent model.Concept
	Child  model.Concept
}

func buildNetwork(edges []Edge) *network {
	n := &network{
		children: make(map[model.Concept][]model.Concept),
		parents:  make(map[model.Concept][]model.Concept),
		depths:   make(map[model.Concept]int),
	}
	for _, e := range edges {
		n.children[e.Parent] = append(n.children[e.Parent], e.Child)
		n.parents[e.Child] = append(n.parents[e.Child], e.Parent)
	}

	// Roots are parents that are never children.
	var queue []model.Concept
	for p := range n.children {
		if _, isChild := n.parents[p]; !isChild {
			queue = append(queue, p)
			n.depths[p] = 0
		}
	}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		d := n.depths[node]
		for _, ch := range n.children[node] {
			if prev, seen := n.depths[ch]; seen && prev <= d+1 {
				continue
			}
			n.depths[ch] = d + 1
			queue = append(queue, ch)
		}
	}
	return n
}

func mergeDepths(networks map[string]*network) map[model.Concept]int {
	merged := make(map[model.Concept]int)
	for _, n := range networks {
		for c, d := range n.depths {
			if prev, ok := merged[c]; !ok || d < prev {
				merged[c] = d
			}
		}
	}
	return merged
}

// Version returns the loaded taxonomy year.
func (s *Store) Version() string {
	return s.version
}

// TextOf returns the concept's standard label concatenated with its
// documentation text, or the empty string when neither exists.
func (s *Store) TextOf(c model.Concept) string {
	return s.texts[c]
}

// HasText reports whether any text is known for the concept.
func (s *Store) HasText(c model.Concept) bool {
	_, ok := s.texts[c]
	return ok
}

// Known reports whether the taxonomy knows the concept at all, by
// text or by membership in any presentation network.
func (s *Store) Known(c model.Concept) bool {
	if _, ok := s.texts[c]; ok {
		return true
	}
	_, ok := s.merged[c]
	return ok
}

// Concepts returns all concepts with known text, sorted.
func (s *Store) Concepts() []model.Concept {
	set := make(model.ConceptSet, len(s.texts))
	for c := range s.texts {
		set.Add(c)
	}
	return set.Sorted()
}

// Networks returns the presentation network names, sorted.
func (s *Store) Networks() []string {
	return s.order
}

// DepthOf returns the concept's depth within one network (root = 0).
func (s *Store) DepthOf(c model.Concept, networkName string) (int, bool) {
	n, ok := s.networks[networkName]
	if !ok {
		return 0, false
	}
	d, ok := n.depths[c]
	return d, ok
}

// MergedDepths returns the minimum depth of every concept across all
// networks. The depth-difference scorer operates on this view.
func (s *Store) MergedDepths() map[model.Concept]int {
	return s.merged
}

// ChildrenOf returns the concept's direct children within one network.
func (s *Store) ChildrenOf(c model.Concept, networkName string) []model.Concept {
	n, ok := s.networks[networkName]
	if !ok {
		return nil
	}
	return n.children[c]
}

// AncestorsOf returns the path from the concept up to a root within
// one network, starting with the concept itself. When a concept has
// several parents the first-loaded edge wins, matching the upstream
// presentation order.
func (s *Store) AncestorsOf(c model.Concept, networkName string) []model.Concept {
	n, ok := s.networks[networkName]
	if !ok {
		return nil
	}
	if _, known := n.depths[c]; !known {
		return nil
	}
	path := []model.Concept{c}
	seen := map[model.Concept]struct{}{c: {}}
	cur := c
	for {
		parents := n.parents[cur]
		if len(parents) == 0 {
			return path
		}
		next := parents[0]
		if _, loop := seen[next]; loop {
			return path
		}
		seen[next] = struct{}{}
		path = append(path, next)
		cur = next
	}
}

// Descendants returns every concept in the subtree rooted at c within
// one network, excluding c itself.
func (s *Store) Descendants(c model.Concept, networkName string) []model.Concept {
	n, ok := s.networks[networkName]
	if !ok {
		return nil
	}
	var out []model.Concept
	seen := map[model.Concept]struct{}{c: {}}
	stack := append([]model.Concept(nil), n.children[c]...)
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		out = append(out, node)
		stack = append(stack, n.children[node]...)
	}
	return out
}

// NetworksContaining returns the networks in which the concept
// appears (as parent or child of any arc), sorted.
func (s *Store) NetworksContaining(c model.Concept) []string {
	var out []string
	for _, name := range s.order {
		n := s.networks[name]
		if _, ok := n.depths[c]; ok {
			out = append(out, name)
		}
	}
	return out
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j] < ss[j-1]; j-- {
			ss[j], ss[j-1] = ss[j-1], ss[j]
		}
	}
}
