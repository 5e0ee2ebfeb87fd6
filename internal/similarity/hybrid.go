package similarity

import (
	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

// DefaultAlpha is the standard textual weight in the hybrid blend.
const DefaultAlpha = 0.6

// HybridScorer blends the textual cosine score with the proximity
// density score: score = alpha*textual + (1-alpha)*proximity. Both
// inputs already live in [0,1], so the blend is directly comparable.
type HybridScorer struct {
	textual   *TextualScorer
	proximity *ProximityScorer
	alpha     float64
}

// NewHybridScorer creates a HybridScorer with mixing weight alpha in
// [0,1]; out-of-range values are clamped.
func NewHybridScorer(store *taxonomy.Store, norm *Normalizer, alpha float64) *HybridScorer {
	if norm == nil {
		norm = NewNormalizer(nil)
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return &HybridScorer{
		textual:   NewTextualScorer(store, norm),
		proximity: NewProximityScorer(store, norm),
		alpha:     alpha,
	}
}

// Name implements Scorer.
func (s *HybridScorer) Name() string { return "hybrid" }

// HigherBetter implements Scorer.
func (s *HybridScorer) HigherBetter() bool { return true }

// Rank implements Scorer. Only candidates scored by both signals
// participate in the blend.
func (s *HybridScorer) Rank(target model.Concept, pool []model.Concept, limit int) Ranking {
	cos := s.textual.Rank(target, pool, 0)
	if len(cos) == 0 {
		return nil
	}

	ranking := make(Ranking, 0, len(cos))
	for _, cand := range cos {
		prox := s.proximity.ScoreText(s.textual.store.TextOf(cand.Concept))
		ranking = append(ranking, Candidate{
			Concept: cand.Concept,
			Score:   s.alpha*cand.Score + (1-s.alpha)*prox,
		})
	}
	sortRanking(ranking, true)
	return truncate(ranking, limit)
}
