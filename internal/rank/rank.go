// Package rank scores vendor-scoped candidate records against a query
// embedding by cosine similarity and selects the top K. Ranking is a pure
// function over its inputs: no I/O, no stored state, and a total order —
// degenerate vectors score 0 rather than producing NaN.
package rank

import (
	"math"
	"sort"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// Scored pairs a candidate record with its similarity to the query.
type Scored struct {
	// Record is the candidate that was scored.
	Record knowledge.Record

	// Score is the cosine similarity to the query vector, in [-1, 1].
	Score float64
}

// Cosine returns the cosine similarity dot(a,b)/(‖a‖·‖b‖). If either
// vector has zero magnitude (including mismatched or empty inputs), the
// similarity is defined as 0 so ranking stays total and stable.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// TopK returns the k candidates most similar to query, ordered by
// descending score. Ties preserve the original candidate order (stable
// sort). k is clamped to the candidate count; asking for more results
// than exist returns everything rather than failing.
func TopK(query []float32, candidates []knowledge.Record, k int) []Scored {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		scored[i] = Scored{Record: c, Score: Cosine(query, c.Vector)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}
