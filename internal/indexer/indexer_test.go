package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/provider"
)

// fakeEmbedder is a Provider that returns a fixed-dimension vector per
// input, or a configured error.
type fakeEmbedder struct {
	embedErr error
	calls    int
}

func (f *fakeEmbedder) Name() knowledge.Vendor { return knowledge.VendorOpenAI }

func (f *fakeEmbedder) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) Generate(_ context.Context, _ []*schema.Message, _ provider.GenerateOptions) (*provider.Result, error) {
	return nil, errors.New("not a generation test")
}

func newTestIndexer(t *testing.T, p provider.Provider, store knowledge.Store) *Indexer {
	t.Helper()
	ix, err := New(p, store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return ix
}

func saveDoc(t *testing.T, store knowledge.Store, doc knowledge.Document) {
	t.Helper()
	if err := store.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
}

func TestIndex_StoresRecordsAndMarksIndexed(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	doc := knowledge.Document{
		ID:     "doc-1",
		Name:   "notes.md",
		Text:   strings.Repeat("a", 2500),
		Active: true,
		Mode:   knowledge.ModeRAG,
	}
	saveDoc(t, store, doc)

	ix := newTestIndexer(t, &fakeEmbedder{}, store)
	if err := ix.Index(context.Background(), doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	records, err := store.QueryByVendor(context.Background(), knowledge.VendorOpenAI)
	if err != nil {
		t.Fatalf("QueryByVendor: %v", err)
	}
	// 2500 chars at window 1000 / overlap 200 → starts at 0, 800, 1600, 2400.
	if len(records) != 4 {
		t.Fatalf("want 4 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Chunk.DocumentID != "doc-1" {
			t.Errorf("record points at %q, want doc-1", r.Chunk.DocumentID)
		}
		if len(r.Vector) == 0 {
			t.Error("record stored without a vector")
		}
	}

	got, err := store.GetDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if !got.Indexed {
		t.Error("document should be marked indexed after a successful run")
	}
}

func TestIndex_EmbedFailureLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	doc := knowledge.Document{ID: "doc-1", Name: "notes.md", Text: "some text", Mode: knowledge.ModeRAG}
	saveDoc(t, store, doc)

	embedErr := errors.New("endpoint down")
	ix := newTestIndexer(t, &fakeEmbedder{embedErr: embedErr}, store)

	err := ix.Index(context.Background(), doc)
	if !errors.Is(err, embedErr) {
		t.Fatalf("expected embed error, got %v", err)
	}

	records, err := store.QueryByVendor(context.Background(), knowledge.VendorOpenAI)
	if err != nil {
		t.Fatalf("QueryByVendor: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("failed run must store no records, got %d", len(records))
	}

	got, err := store.GetDocument(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Indexed {
		t.Error("failed run must leave the document un-indexed")
	}
}

func TestIndex_EmptyTextErrors(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	ix := newTestIndexer(t, &fakeEmbedder{}, store)

	err := ix.Index(context.Background(), knowledge.Document{ID: "doc-1", Text: "   \n\t "})
	if err == nil {
		t.Fatal("expected error for whitespace-only document")
	}
}

func TestIndex_ReindexReusesRecordSlots(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	doc := knowledge.Document{ID: "doc-1", Name: "notes.md", Text: "original text", Mode: knowledge.ModeRAG}
	saveDoc(t, store, doc)

	ix := newTestIndexer(t, &fakeEmbedder{}, store)
	if err := ix.Index(context.Background(), doc); err != nil {
		t.Fatalf("first Index: %v", err)
	}

	doc.Text = "replacement text"
	if err := ix.Index(context.Background(), doc); err != nil {
		t.Fatalf("second Index: %v", err)
	}

	records, err := store.QueryByVendor(context.Background(), knowledge.VendorOpenAI)
	if err != nil {
		t.Fatalf("QueryByVendor: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("re-index must overwrite, not accumulate: got %d records", len(records))
	}
	if records[0].Chunk.Text != "replacement text" {
		t.Errorf("record text = %q, want replacement text", records[0].Chunk.Text)
	}
}

func TestRemove_PurgesRecordsAndDocument(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	doc := knowledge.Document{ID: "doc-1", Name: "notes.md", Text: "some text", Mode: knowledge.ModeRAG}
	saveDoc(t, store, doc)

	ix := newTestIndexer(t, &fakeEmbedder{}, store)
	if err := ix.Index(context.Background(), doc); err != nil {
		t.Fatalf("Index: %v", err)
	}

	if err := ix.Remove(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	records, err := store.QueryByVendor(context.Background(), knowledge.VendorOpenAI)
	if err != nil {
		t.Fatalf("QueryByVendor: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("want 0 records after Remove, got %d", len(records))
	}
	if _, err := store.GetDocument(context.Background(), "doc-1"); !errors.Is(err, knowledge.ErrNotFound) {
		t.Errorf("want ErrNotFound after Remove, got %v", err)
	}

	// Removing again is a no-op.
	if err := ix.Remove(context.Background(), "doc-1"); err != nil {
		t.Errorf("second Remove should be idempotent, got %v", err)
	}
}
