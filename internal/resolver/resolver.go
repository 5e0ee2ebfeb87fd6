// Package resolver picks substitute taxonomy concepts for a metric an
// entity never reported under its canonical tag.
package resolver

import (
	"go.uber.org/zap"

	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/similarity"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

// degenerateScore marks a candidate whose text is identical to the
// target's: a near-duplicate concept, not a true substitute.
const degenerateScore = 1.0 - 1e-9

// Resolution is the outcome of one resolve call: the full ranked set
// plus the recommended substitute after the degenerate-match skip.
type Resolution struct {
	Target      model.Concept         `json:"target"`
	Scorer      string                `json:"scorer"`
	Ranking     similarity.Ranking    `json:"ranking"`
	Recommended *similarity.Candidate `json:"recommended,omitempty"`
}

// Empty reports whether no candidate could be ranked. An empty
// resolution is a valid terminal result, distinct from a failure.
func (r Resolution) Empty() bool {
	return len(r.Ranking) == 0
}

// Resolver ranks an entity's reported concepts against a missing
// target concept using a single scorer family per call.
type Resolver struct {
	store  *taxonomy.Store
	scorer similarity.Scorer
}

// New creates a Resolver. A nil scorer defaults to the textual scorer.
func New(store *taxonomy.Store, scorer similarity.Scorer) *Resolver {
	if scorer == nil {
		scorer = similarity.NewTextualScorer(store, nil)
	}
	return &Resolver{store: store, scorer: scorer}
}

// Resolve ranks the intersection of the reported set and the
// taxonomy-known concepts against the target, keeping the top topN+1
// candidates. The target itself never appears in the ranking. When
// the best candidate's text is identical to the target's (score
// effectively 1.0) the recommendation skips to the next-best
// candidate while the full ranked set is preserved.
func (r *Resolver) Resolve(target model.Concept, reported model.ConceptSet, topN int) Resolution {
	res := Resolution{Target: target, Scorer: r.scorer.Name()}

	pool := make([]model.Concept, 0, len(reported))
	for _, c := range reported.Sorted() {
		if c == target {
			continue
		}
		if r.store.Known(c) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		zap.L().Debug("resolver: empty candidate pool",
			zap.String("target", target.String()),
		)
		return res
	}

	limit := 0
	if topN > 0 {
		limit = topN + 1
	}
	res.Ranking = r.scorer.Rank(target, pool, limit)
	if len(res.Ranking) == 0 {
		return res
	}

	idx := 0
	if r.scorer.HigherBetter() && res.Ranking[0].Score >= degenerateScore {
		idx = 1
	}
	if idx >= len(res.Ranking) {
		// The only candidate is a textual duplicate of the target;
		// nothing to recommend.
		return res
	}
	rec := res.Ranking[idx]
	res.Recommended = &rec

	zap.L().Debug("resolver: ranked candidates",
		zap.String("target", target.String()),
		zap.String("scorer", res.Scorer),
		zap.Int("candidates", len(res.Ranking)),
		zap.String("recommended", rec.Concept.String()),
		zap.Float64("score", rec.Score),
	)
	return res
}
