package domain

import (
	"math"
	"sort"
)

// CosineSimilarity returns the cosine of the angle between a and b.
// Vectors of different length or zero magnitude have similarity 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RankTopK scores candidates against query and returns the best k.
// Candidates must be in insertion order; equal scores keep that order.
func RankTopK(query []float32, candidates []Chunk, k int) []RetrievalResult {
	if k <= 0 || len(candidates) == 0 {
		return []RetrievalResult{}
	}
	results := make([]RetrievalResult, len(candidates))
	for i, c := range candidates {
		results[i] = RetrievalResult{Chunk: c, Score: CosineSimilarity(query, c.Embedding)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}
