package similarity

import (
	"github.com/sells-group/edgar-recon/internal/model"
	"github.com/sells-group/edgar-recon/internal/taxonomy"
)

// TextualScorer scores candidates by cosine similarity of tf-idf
// vectors built over normalized label+definition texts. Scores are in
// [0,1], higher is closer. Candidates with no taxonomy text are
// excluded rather than scored zero.
type TextualScorer struct {
	store *taxonomy.Store
	norm  *Normalizer
}

// NewTextualScorer creates a TextualScorer over the given taxonomy.
func NewTextualScorer(store *taxonomy.Store, norm *Normalizer) *TextualScorer {
	if norm == nil {
		norm = NewNormalizer(nil)
	}
	return &TextualScorer{store: store, norm: norm}
}

// Name implements Scorer.
func (s *TextualScorer) Name() string { return "textual" }

// HigherBetter implements Scorer.
func (s *TextualScorer) HigherBetter() bool { return true }

// Rank implements Scorer. The vector space is rebuilt per call over
// the target plus the current pool, matching the per-entity corpus
// the similarity is defined against.
func (s *TextualScorer) Rank(target model.Concept, pool []model.Concept, limit int) Ranking {
	targetText := s.store.TextOf(target)
	if targetText == "" {
		return nil
	}

	docs := [][]string{s.norm.Tokens(targetText)}
	var kept []model.Concept
	for _, c := range pool {
		text := s.store.TextOf(c)
		if text == "" {
			continue
		}
		docs = append(docs, s.norm.Tokens(text))
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil
	}

	vec := newTFIDF(docs)
	ranking := make(Ranking, len(kept))
	for i, c := range kept {
		ranking[i] = Candidate{Concept: c, Score: vec.cosine(0, i+1)}
	}
	sortRanking(ranking, true)
	return truncate(ranking, limit)
}
