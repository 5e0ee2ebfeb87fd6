package similarity

import "github.com/sells-group/edgar-recon/internal/model"

// Candidate is one scored substitute concept.
type Candidate struct {
	Concept model.Concept `json:"concept"`
	Score   float64       `json:"score"`
}

// Ranking is an ordered candidate list, best match first. Score
// direction is scorer-specific (cosine: higher is closer; tree and
// depth distances: lower is closer) and rankings from different
// scorer families are never merged except through the hybrid blend.
type Ranking []Candidate

// Concepts returns the ranked concepts in order.
func (r Ranking) Concepts() []model.Concept {
	out := make([]model.Concept, len(r))
	for i, c := range r {
		out[i] = c.Concept
	}
	return out
}

// Scorer ranks a candidate pool against a target concept. An empty
// ranking means no usable signal (missing target text/structure or an
// empty pool) and is a valid terminal result, never an error.
type Scorer interface {
	// Name identifies the scorer family for logging and CLI selection.
	Name() string

	// HigherBetter reports the score direction: true for similarity
	// scores, false for distances.
	HigherBetter() bool

	// Rank scores the pool and returns up to limit candidates, best
	// first; limit <= 0 returns the full ranking. Ties are broken by
	// concept identifier so rankings are stable.
	Rank(target model.Concept, pool []model.Concept, limit int) Ranking
}

// sortRanking orders candidates best-first. higherBetter selects the
// score direction; equal scores fall back to identifier order.
func sortRanking(r Ranking, higherBetter bool) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && rankLess(r[j], r[j-1], higherBetter); j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}

func rankLess(a, b Candidate, higherBetter bool) bool {
	if a.Score != b.Score {
		if higherBetter {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	if a.Concept.Namespace != b.Concept.Namespace {
		return a.Concept.Namespace < b.Concept.Namespace
	}
	return a.Concept.Name < b.Concept.Name
}

func truncate(r Ranking, limit int) Ranking {
	if limit > 0 && len(r) > limit {
		return r[:limit]
	}
	return r
}
