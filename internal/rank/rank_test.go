package rank

import (
	"math"
	"testing"

	"github.com/draftforge/draftforge-go/internal/chunker"
	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// candidate builds a record with only the fields ranking cares about.
func candidate(id string, vector ...float32) knowledge.Record {
	return knowledge.Record{
		Chunk:  chunker.Chunk{ID: id, DocumentID: "doc", Text: id},
		Vendor: knowledge.VendorGemini,
		Vector: vector,
	}
}

func Test_Cosine_SelfSimilarityIsOne(t *testing.T) {
	t.Parallel()

	v := []float32{0.3, -0.7, 1.2, 0.01}
	got := Cosine(v, v)
	if math.Abs(got-1) > 1e-9 {
		t.Errorf("self similarity = %v, want 1", got)
	}
}

func Test_Cosine_OrthogonalIsZero(t *testing.T) {
	t.Parallel()

	got := Cosine([]float32{1, 0}, []float32{0, 1})
	if got != 0 {
		t.Errorf("orthogonal similarity = %v, want 0", got)
	}
}

func Test_Cosine_ZeroVectorIsZeroNotNaN(t *testing.T) {
	t.Parallel()

	cases := [][2][]float32{
		{{0, 0, 0}, {1, 2, 3}},
		{{1, 2, 3}, {0, 0, 0}},
		{{0, 0}, {0, 0}},
		{nil, {1}},
	}
	for _, c := range cases {
		got := Cosine(c[0], c[1])
		if math.IsNaN(got) {
			t.Fatalf("Cosine(%v, %v) = NaN", c[0], c[1])
		}
		if got != 0 {
			t.Errorf("Cosine(%v, %v) = %v, want 0", c[0], c[1], got)
		}
	}
}

func Test_Cosine_OppositeIsMinusOne(t *testing.T) {
	t.Parallel()

	got := Cosine([]float32{2, 2}, []float32{-1, -1})
	if math.Abs(got+1) > 1e-9 {
		t.Errorf("opposite similarity = %v, want -1", got)
	}
}

func Test_TopK_OrdersByDescendingScore(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	candidates := []knowledge.Record{
		candidate("far", 0, 1),
		candidate("near", 1, 0.1),
		candidate("exact", 1, 0),
	}

	got := TopK(query, candidates, 3)
	if len(got) != 3 {
		t.Fatalf("want 3 results, got %d", len(got))
	}
	wantOrder := []string{"exact", "near", "far"}
	for i, w := range wantOrder {
		if got[i].Record.Chunk.ID != w {
			t.Errorf("result %d = %s, want %s", i, got[i].Record.Chunk.ID, w)
		}
	}
	if got[0].Score < got[1].Score || got[1].Score < got[2].Score {
		t.Errorf("scores not descending: %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
}

func Test_TopK_TiesPreserveCandidateOrder(t *testing.T) {
	t.Parallel()

	query := []float32{1, 0}
	// All candidates are identical directions — every score ties.
	candidates := []knowledge.Record{
		candidate("first", 2, 0),
		candidate("second", 4, 0),
		candidate("third", 1, 0),
	}

	got := TopK(query, candidates, 3)
	wantOrder := []string{"first", "second", "third"}
	for i, w := range wantOrder {
		if got[i].Record.Chunk.ID != w {
			t.Errorf("tied result %d = %s, want %s", i, got[i].Record.Chunk.ID, w)
		}
	}
}

func Test_TopK_ClampsToCandidateCount(t *testing.T) {
	t.Parallel()

	got := TopK([]float32{1}, []knowledge.Record{candidate("only", 1)}, 10)
	if len(got) != 1 {
		t.Errorf("want all candidates when k exceeds pool, got %d", len(got))
	}

	if got := TopK([]float32{1}, nil, 5); got != nil {
		t.Errorf("want nil for empty pool, got %v", got)
	}
	if got := TopK([]float32{1}, []knowledge.Record{candidate("x", 1)}, 0); got != nil {
		t.Errorf("want nil for k=0, got %v", got)
	}
}
