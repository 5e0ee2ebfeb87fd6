package similarity

import "math"

// tfidf builds an l2-normalized tf-idf vector space over a small
// document corpus. Term weighting follows the smoothed formulation
// idf = ln((1+n)/(1+df)) + 1, so cosine similarity of two documents
// is the dot product of their normalized vectors. Tokens shorter than
// two characters are ignored.
type tfidf struct {
	vocab map[string]int
	rows  []map[int]float64
}

func newTFIDF(docs [][]string) *tfidf {
	v := &tfidf{vocab: make(map[string]int)}

	counts := make([]map[int]float64, len(docs))
	df := make(map[int]int)
	for i, doc := range docs {
		row := make(map[int]float64)
		for _, tok := range doc {
			if len(tok) < 2 {
				continue
			}
			id, ok := v.vocab[tok]
			if !ok {
				id = len(v.vocab)
				v.vocab[tok] = id
			}
			row[id]++
		}
		for id := range row {
			df[id]++
		}
		counts[i] = row
	}

	n := float64(len(docs))
	v.rows = make([]map[int]float64, len(docs))
	for i, row := range counts {
		weighted := make(map[int]float64, len(row))
		var sumSq float64
		for id, tf := range row {
			w := tf * (math.Log((1+n)/(1+float64(df[id]))) + 1)
			weighted[id] = w
			sumSq += w * w
		}
		if norm := math.Sqrt(sumSq); norm > 0 {
			for id := range weighted {
				weighted[id] /= norm
			}
		}
		v.rows[i] = weighted
	}
	return v
}

// cosine returns the cosine similarity between documents i and j.
func (v *tfidf) cosine(i, j int) float64 {
	a, b := v.rows[i], v.rows[j]
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for id, w := range a {
		dot += w * b[id]
	}
	return dot
}
