package assemble

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/chunker"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/provider"
)

// fakeProvider records every call so tests can assert on the assembled
// prompt and generation options.
type fakeProvider struct {
	embedVector []float32
	embedErr    error
	result      *provider.Result
	generateErr error

	embeddedTexts []string
	gotMessages   []*schema.Message
	gotOpts       provider.GenerateOptions
}

func (f *fakeProvider) Name() knowledge.Vendor { return knowledge.VendorOllama }

func (f *fakeProvider) ListModels(_ context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.embeddedTexts = append(f.embeddedTexts, texts...)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.embedVector
	}
	return out, nil
}

func (f *fakeProvider) Generate(_ context.Context, msgs []*schema.Message, opts provider.GenerateOptions) (*provider.Result, error) {
	f.gotMessages = msgs
	f.gotOpts = opts
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &provider.Result{Text: "a drafted post"}, nil
}

func newTestAssembler(t *testing.T, p *fakeProvider, store knowledge.VectorStore) *Assembler {
	t.Helper()
	a, err := New(&Config{Provider: p, Vectors: store, TopK: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func promptText(msgs []*schema.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

func putRecords(t *testing.T, store knowledge.VectorStore, docID string, texts []string, vectors [][]float32) {
	t.Helper()
	records := make([]knowledge.Record, len(texts))
	for i, text := range texts {
		records[i] = knowledge.Record{
			Chunk: chunker.Chunk{
				ID:         chunker.ChunkID(docID, i),
				DocumentID: docID,
				Ordinal:    i,
				Text:       text,
			},
			Vendor: knowledge.VendorOllama,
			Vector: vectors[i],
		}
	}
	if err := store.Put(context.Background(), records); err != nil {
		t.Fatalf("Put: %v", err)
	}
}

func TestGenerate_FreshDraftInlinesContextDocuments(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	a := newTestAssembler(t, p, knowledge.NewMemoryStore())

	_, err := a.Generate(context.Background(), &Request{
		Context:      "announce the platform migration",
		Instructions: "mention the zero-downtime cutover",
		Documents: []knowledge.Document{
			{ID: "d1", Name: "migration-notes.md", Text: "we moved 40 services", Active: true, Mode: knowledge.ModeContext},
			{ID: "d2", Name: "ignored.md", Text: "inactive material", Active: false, Mode: knowledge.ModeContext},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	prompt := promptText(p.gotMessages)
	if !strings.Contains(prompt, "migration-notes.md") {
		t.Error("prompt missing active context document name")
	}
	if !strings.Contains(prompt, "we moved 40 services") {
		t.Error("prompt missing active context document text")
	}
	if strings.Contains(prompt, "inactive material") {
		t.Error("prompt includes inactive document text")
	}
	if !strings.Contains(prompt, "from scratch") {
		t.Error("fresh draft should use the from-scratch task")
	}

	// No retrieval documents — nothing should have been embedded.
	if len(p.embeddedTexts) != 0 {
		t.Errorf("expected no embeddings, got %v", p.embeddedTexts)
	}

	last := p.gotMessages[len(p.gotMessages)-1]
	if last.Role != schema.User || last.Content != "mention the zero-downtime cutover" {
		t.Errorf("last message should be the raw instructions, got role=%s content=%q", last.Role, last.Content)
	}
}

func TestGenerate_RefinementPreservesUntouchedSections(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	a := newTestAssembler(t, p, knowledge.NewMemoryStore())

	_, err := a.Generate(context.Background(), &Request{
		Context:      "platform migration",
		Instructions: "make the hook stronger",
		CurrentDraft: "Our migration is done.\n\nForty services moved.",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	prompt := promptText(p.gotMessages)
	if !strings.Contains(prompt, "Our migration is done.") {
		t.Error("prompt missing current draft")
	}
	if !strings.Contains(prompt, "preserve every section") {
		t.Error("refinement task should ask to preserve untouched sections")
	}
}

func TestGenerate_RetrievesFromIndexedDocuments(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	putRecords(t, store, "d1",
		[]string{"relevant chunk", "less relevant chunk", "irrelevant chunk"},
		[][]float32{{1, 0}, {0.5, 0.5}, {0, 1}},
	)
	// Records for a document not in the request must never surface.
	putRecords(t, store, "stale-doc", []string{"stale chunk"}, [][]float32{{1, 0}})

	p := &fakeProvider{embedVector: []float32{1, 0}}
	a := newTestAssembler(t, p, store)

	_, err := a.Generate(context.Background(), &Request{
		Context:      "migration story",
		Instructions: "write about the cutover",
		Documents: []knowledge.Document{
			{ID: "d1", Name: "runbook.md", Active: true, Mode: knowledge.ModeRAG, Indexed: true},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(p.embeddedTexts) != 1 || p.embeddedTexts[0] != "write about the cutover" {
		t.Errorf("query embedding should use instructions, got %v", p.embeddedTexts)
	}

	prompt := promptText(p.gotMessages)
	if !strings.Contains(prompt, "relevant chunk") {
		t.Error("prompt missing best-matching chunk")
	}
	if !strings.Contains(prompt, "runbook.md") {
		t.Error("retrieved excerpt should be attributed to its document name")
	}
	if strings.Contains(prompt, "irrelevant chunk") {
		t.Error("topK=2 should exclude the worst-matching chunk")
	}
	if strings.Contains(prompt, "stale chunk") {
		t.Error("records outside the request's documents must not surface")
	}
}

func TestGenerate_QueryFallsBackToContext(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	putRecords(t, store, "d1", []string{"chunk"}, [][]float32{{1, 0}})

	p := &fakeProvider{embedVector: []float32{1, 0}}
	a := newTestAssembler(t, p, store)

	_, err := a.Generate(context.Background(), &Request{
		Context: "the topic brief",
		Documents: []knowledge.Document{
			{ID: "d1", Name: "notes.md", Active: true, Mode: knowledge.ModeRAG, Indexed: true},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(p.embeddedTexts) != 1 || p.embeddedTexts[0] != "the topic brief" {
		t.Errorf("query embedding should fall back to context, got %v", p.embeddedTexts)
	}
}

func TestGenerate_ExcludesUnindexedRetrievalDocuments(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{embedVector: []float32{1, 0}}
	a := newTestAssembler(t, p, knowledge.NewMemoryStore())

	_, err := a.Generate(context.Background(), &Request{
		Context:      "topic",
		Instructions: "write it",
		Documents: []knowledge.Document{
			{ID: "d1", Name: "pending.md", Text: "pending text", Active: true, Mode: knowledge.ModeRAG, Indexed: false},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// The only retrieval doc is un-indexed, so there is nothing to embed
	// against and its text must not leak into the prompt.
	if len(p.embeddedTexts) != 0 {
		t.Errorf("expected no embeddings, got %v", p.embeddedTexts)
	}
	if strings.Contains(promptText(p.gotMessages), "pending text") {
		t.Error("un-indexed document text must not appear in the prompt")
	}
}

func TestGenerate_WebGroundingOnURLDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		context string
		want    bool
	}{
		{"url in context", "summarize https://example.com/post for my followers", true},
		{"no url", "write about our quarterly results", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &fakeProvider{}
			a := newTestAssembler(t, p, knowledge.NewMemoryStore())

			_, err := a.Generate(context.Background(), &Request{Context: tt.context, Instructions: "go"})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if p.gotOpts.WebGrounding != tt.want {
				t.Errorf("WebGrounding = %v, want %v", p.gotOpts.WebGrounding, tt.want)
			}
		})
	}
}

func TestGenerate_EmbedFailureAborts(t *testing.T) {
	t.Parallel()

	store := knowledge.NewMemoryStore()
	putRecords(t, store, "d1", []string{"chunk"}, [][]float32{{1, 0}})

	embedErr := errors.New("embedding endpoint down")
	p := &fakeProvider{embedErr: embedErr}
	a := newTestAssembler(t, p, store)

	_, err := a.Generate(context.Background(), &Request{
		Instructions: "write it",
		Documents: []knowledge.Document{
			{ID: "d1", Name: "notes.md", Active: true, Mode: knowledge.ModeRAG, Indexed: true},
		},
	})
	if !errors.Is(err, embedErr) {
		t.Fatalf("expected embed failure to abort, got %v", err)
	}
	if p.gotMessages != nil {
		t.Error("generation must not run after an embedding failure")
	}
}

func TestGenerate_NormalisesEmptyTextAndDedupesSources(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{result: &provider.Result{
		Text: "   \n",
		Sources: []provider.Source{
			{Title: "First", URL: "https://a.example/1"},
			{Title: "Second", URL: "https://b.example/2"},
			{Title: "First again", URL: "https://a.example/1"},
		},
	}}
	a := newTestAssembler(t, p, knowledge.NewMemoryStore())

	result, err := a.Generate(context.Background(), &Request{Instructions: "go"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != emptyResponseMarker {
		t.Errorf("Text = %q, want empty-response marker", result.Text)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("want 2 deduplicated sources, got %d", len(result.Sources))
	}
	if result.Sources[0].URL != "https://a.example/1" || result.Sources[1].URL != "https://b.example/2" {
		t.Errorf("dedupe must preserve input order, got %v", result.Sources)
	}
}

func TestGenerate_ModelOverridePassedThrough(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{}
	a := newTestAssembler(t, p, knowledge.NewMemoryStore())

	_, err := a.Generate(context.Background(), &Request{Instructions: "go", Model: "llama3:70b"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if p.gotOpts.Model != "llama3:70b" {
		t.Errorf("Model = %q, want llama3:70b", p.gotOpts.Model)
	}
}
