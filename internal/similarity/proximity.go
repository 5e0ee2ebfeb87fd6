package similarity

import (
	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

// proximityOffset dampens the token-count score so short texts stay
// well below 1.0.
const proximityOffset = 5.0

// ProximityScorer is a deliberately crude text-density heuristic:
// score = tokenCount / (tokenCount + 5) over the candidate's own
// text. It is not a standalone selector; it exists as a blending term
// for the hybrid scorer and as a cheap fallback signal.
type ProximityScorer struct {
	store *taxonomy.Store
	norm  *Normalizer
}

// NewProximityScorer creates a ProximityScorer over the given taxonomy.
func NewProximityScorer(store *taxonomy.Store, norm *Normalizer) *ProximityScorer {
	if norm == nil {
		norm = NewNormalizer(nil)
	}
	return &ProximityScorer{store: store, norm: norm}
}

// Name implements Scorer.
func (s *ProximityScorer) Name() string { return "proximity" }

// HigherBetter implements Scorer.
func (s *ProximityScorer) HigherBetter() bool { return true }

// ScoreText returns the density score for a single text.
func (s *ProximityScorer) ScoreText(text string) float64 {
	n := float64(len(s.norm.Tokens(text)))
	return n / (n + proximityOffset)
}

// Rank implements Scorer. Range [0,1), higher is better.
func (s *ProximityScorer) Rank(target model.Concept, pool []model.Concept, limit int) Ranking {
	if s.store.TextOf(target) == "" {
		return nil
	}

	var ranking Ranking
	for _, c := range pool {
		text := s.store.TextOf(c)
		if text == "" {
			continue
		}
		ranking = append(ranking, Candidate{Concept: c, Score: s.ScoreText(text)})
	}
	sortRanking(ranking, true)
	return truncate(ranking, limit)
}
