package similarity

import (
	"regexp"
	"strings"

	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

var camelSegment = regexp.MustCompile(`[A-Z][a-z0-9]*`)

// DepthDiffScorer scores candidates by |depth(candidate) -
// depth(target)| over the merged presentation depths. Lower is
// closer. When the target has no depth entry its depth is
// approximated by progressively truncating the camel-case name and
// reusing the longest known prefix, then by the median depth of all
// known concepts.
type DepthDiffScorer struct {
	store *taxonomy.Store
}

// NewDepthDiffScorer creates a DepthDiffScorer over the given taxonomy.
func NewDepthDiffScorer(store *taxonomy.Store) *DepthDiffScorer {
	return &DepthDiffScorer{store: store}
}

// Name implements Scorer.
func (s *DepthDiffScorer) Name() string { return "depth" }

// HigherBetter implements Scorer.
func (s *DepthDiffScorer) HigherBetter() bool { return false }

// Rank implements Scorer. Candidates without a depth entry are
// excluded. Returns nil when no reference depth can be established.
func (s *DepthDiffScorer) Rank(target model.Concept, pool []model.Concept, limit int) Ranking {
	depths := s.store.MergedDepths()
	ref, ok := referenceDepth(target, depths)
	if !ok {
		return nil
	}

	var ranking Ranking
	for _, c := range pool {
		d, known := depths[c]
		if !known {
			continue
		}
		gap := d - ref
		if gap < 0 {
			gap = -gap
		}
		ranking = append(ranking, Candidate{Concept: c, Score: float64(gap)})
	}
	sortRanking(ranking, false)
	return truncate(ranking, limit)
}

// referenceDepth resolves the target's depth, falling back first to
// the longest camel-case prefix with a known depth and then to the
// median depth across all concepts.
func referenceDepth(target model.Concept, depths map[model.Concept]int) (int, bool) {
	if d, ok := depths[target]; ok {
		return d, true
	}

	parts := camelSegment.FindAllString(target.Name, -1)
	for i := len(parts) - 1; i > 0; i-- {
		prefix := model.Concept{Namespace: target.Namespace, Name: strings.Join(parts[:i], "")}
		if d, ok := depths[prefix]; ok {
			return d, true
		}
	}

	if len(depths) == 0 {
		return 0, false
	}
	vals := make([]int, 0, len(depths))
	for _, d := range depths {
		vals = append(vals, d)
	}
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j] < vals[j-1]; j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
	return vals[len(vals)/2], true
}

// TreeDistanceScorer scores candidates inside the target's descendant
// subtree by LCA path length: the number of edges from the candidate
// up to the lowest common ancestor with the target plus the edges
// from the target down to that ancestor. Lower is closer; candidates
// outside the subtree are excluded, not penalized.
type TreeDistanceScorer struct {
	store *taxonomy.Store
}

// NewTreeDistanceScorer creates a TreeDistanceScorer over the given
// taxonomy.
func NewTreeDistanceScorer(store *taxonomy.Store) *TreeDistanceScorer {
	return &TreeDistanceScorer{store: store}
}

// Name implements Scorer.
func (s *TreeDistanceScorer) Name() string { return "tree" }

// HigherBetter implements Scorer.
func (s *TreeDistanceScorer) HigherBetter() bool { return false }

// Rank implements Scorer. The first network (in name order)
// containing the target with a non-empty subtree is used.
func (s *TreeDistanceScorer) Rank(target model.Concept, pool []model.Concept, limit int) Ranking {
	networkName, subtree := s.subtreeOf(target)
	if networkName == "" {
		return nil
	}

	inPool := make(map[model.Concept]struct{}, len(pool))
	for _, c := range pool {
		inPool[c] = struct{}{}
	}

	var ranking Ranking
	for _, c := range subtree {
		if _, ok := inPool[c]; !ok {
			continue
		}
		if d, ok := s.distance(target, c, networkName); ok {
			ranking = append(ranking, Candidate{Concept: c, Score: float64(d)})
		}
	}
	sortRanking(ranking, false)
	return truncate(ranking, limit)
}

func (s *TreeDistanceScorer) subtreeOf(target model.Concept) (string, []model.Concept) {
	for _, name := range s.store.NetworksContaining(target) {
		if desc := s.store.Descendants(target, name); len(desc) > 0 {
			return name, desc
		}
	}
	return "", nil
}

// distance sums both legs of the path through the lowest common
// ancestor of a and b within the network.
func (s *TreeDistanceScorer) distance(a, b model.Concept, networkName string) (int, bool) {
	pathA := s.store.AncestorsOf(a, networkName)
	pathB := s.store.AncestorsOf(b, networkName)
	if len(pathA) == 0 || len(pathB) == 0 {
		return 0, false
	}

	depthA := make(map[model.Concept]int, len(pathA))
	for i, c := range pathA {
		depthA[c] = i
	}
	for j, c := range pathB {
		if i, ok := depthA[c]; ok {
			return i + j, true
		}
	}
	return 0, false
}
