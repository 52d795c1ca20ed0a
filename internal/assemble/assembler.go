// Package assemble turns a drafting request plus the author's knowledge
// base into a grounded generation call: it partitions documents by mode,
// retrieves the most relevant indexed excerpts, builds the prompt, and
// normalises the provider's result.
package assemble

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/budget"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/logging"
	"github.com/draftforge/draftforge-go/internal/provider"
	"github.com/draftforge/draftforge-go/internal/rank"
)

// DefaultTopK is the number of retrieved excerpts injected per draft when
// the caller does not configure one.
const DefaultTopK = 5

// emptyResponseMarker is substituted when the model returns no text, so
// callers and the UI layer never have to special-case a blank draft.
const emptyResponseMarker = "[the model returned no response]"

// Request describes one drafting run. Requests are ephemeral — nothing in
// them is persisted by the assembler.
type Request struct {
	// Context is the topic brief: what the post is about. It is also the
	// signal for web grounding — an absolute URL anywhere in it switches
	// live grounding on for providers that support it.
	Context string

	// Persona describes the author's voice. Optional.
	Persona string

	// Instructions is the author's free-form ask for this run. On
	// refinement runs it describes the requested changes.
	Instructions string

	// Format selects the target post length.
	Format Format

	// Model overrides the provider's default generation model. Optional.
	Model string

	// CurrentDraft, when non-empty, switches the run into refinement mode:
	// the model is asked to change only what Instructions request.
	CurrentDraft string

	// Documents is the author's document set. Inactive documents are
	// ignored; the rest are partitioned by mode.
	Documents []knowledge.Document
}

// Config holds the dependencies required to construct an Assembler.
type Config struct {
	// Provider is the active vendor backend.
	Provider provider.Provider

	// Vectors is the chunk record store queried for retrieval. May be nil
	// when no documents use retrieval mode.
	Vectors knowledge.VectorStore

	// TopK is the number of excerpts to retrieve per draft. Defaults to
	// DefaultTopK if zero.
	TopK int

	// MaxContextTokens is the estimated token budget for the full prompt.
	// Retrieved excerpts are trimmed to fit; inlined documents are not.
	// Defaults to budget.DefaultMaxContextTokens if zero.
	MaxContextTokens int
}

// Assembler builds grounded prompts and dispatches them to a provider.
type Assembler struct {
	provider         provider.Provider
	vectors          knowledge.VectorStore
	topK             int
	maxContextTokens int
}

// New constructs an Assembler from the provided Config.
func New(cfg *Config) (*Assembler, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("assemble: Provider must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Assembler{
		provider:         cfg.Provider,
		vectors:          cfg.Vectors,
		topK:             topK,
		maxContextTokens: maxCtx,
	}, nil
}

// Generate runs one drafting request end to end: partition documents,
// retrieve relevant excerpts, build the prompt, call the provider, and
// normalise the result.
func (a *Assembler) Generate(ctx context.Context, req *Request) (*provider.Result, error) {
	contextDocs, ragDocs := a.partition(ctx, req.Documents)

	scored, err := a.retrieve(ctx, req, ragDocs)
	if err != nil {
		return nil, err
	}

	messages := a.buildMessages(ctx, req, contextDocs, ragDocs, scored)

	opts := provider.GenerateOptions{
		Model:        req.Model,
		WebGrounding: provider.ContainsAbsoluteURL(req.Context),
	}
	result, err := a.provider.Generate(ctx, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("assemble: generation failed: %w", err)
	}

	return normalize(result), nil
}

// partition splits the active documents by mode. Retrieval-mode documents
// that have not been indexed yet cannot be grounded on — they are excluded
// and logged, never silently inlined.
func (a *Assembler) partition(ctx context.Context, docs []knowledge.Document) (contextDocs, ragDocs []knowledge.Document) {
	for _, d := range docs {
		if !d.Active {
			continue
		}
		switch d.Mode {
		case knowledge.ModeContext:
			contextDocs = append(contextDocs, d)
		case knowledge.ModeRAG:
			if !d.Indexed {
				logging.FromContext(ctx).Warn("excluding un-indexed retrieval document from grounding",
					slog.String("document_id", d.ID),
					slog.String("name", d.Name),
				)
				continue
			}
			ragDocs = append(ragDocs, d)
		}
	}
	return contextDocs, ragDocs
}

// retrieve embeds the query and ranks the vendor's stored chunk records,
// restricted to the given retrieval documents. Returns nil when there is
// nothing to retrieve from or no query text to embed with.
func (a *Assembler) retrieve(ctx context.Context, req *Request, ragDocs []knowledge.Document) ([]rank.Scored, error) {
	if len(ragDocs) == 0 || a.vectors == nil {
		return nil, nil
	}

	query := strings.TrimSpace(req.Instructions)
	if query == "" {
		query = strings.TrimSpace(req.Context)
	}
	if query == "" {
		return nil, nil
	}

	vecs, err := a.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("assemble: query embedding failed: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("assemble: expected 1 query embedding, got %d", len(vecs))
	}

	records, err := a.vectors.QueryByVendor(ctx, a.provider.Name())
	if err != nil {
		return nil, fmt.Errorf("assemble: record query failed: %w", err)
	}

	// Restrict the candidate pool to the active retrieval documents; the
	// store may hold records for documents that are inactive or deleted
	// from this request's set.
	pool := make(map[string]bool, len(ragDocs))
	for _, d := range ragDocs {
		pool[d.ID] = true
	}
	candidates := records[:0:0]
	for _, r := range records {
		if pool[r.Chunk.DocumentID] {
			candidates = append(candidates, r)
		}
	}

	return rank.TopK(vecs[0], candidates, a.topK), nil
}

// buildMessages assembles the full prompt: persona, task, inlined context
// documents, and budget-trimmed retrieved excerpts, with the author's raw
// instructions as the user turn.
func (a *Assembler) buildMessages(ctx context.Context, req *Request, contextDocs, ragDocs []knowledge.Document, scored []rank.Scored) []*schema.Message {
	messages := []*schema.Message{
		schema.SystemMessage(systemPersona),
		schema.SystemMessage(buildTaskMessage(req)),
	}
	if block := buildContextBlock(contextDocs); block != "" {
		messages = append(messages, schema.SystemMessage(block))
	}

	instructions := req.Instructions
	if instructions == "" {
		instructions = "Write the post."
	}
	userMsg := schema.UserMessage(instructions)

	// Retrieved excerpts are the one elastic part of the prompt: trim them
	// to the token budget. Inlined context documents are never trimmed —
	// the author put them there explicitly.
	fixed := append(append([]*schema.Message{}, messages...), userMsg)
	before := len(scored)
	scored = budget.TrimChunks(scored, budget.EstimateMessages(fixed), a.maxContextTokens)
	if dropped := before - len(scored); dropped > 0 {
		logging.FromContext(ctx).Warn("dropped retrieved excerpts to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(scored)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	if block := buildRetrievedBlock(scored, docNames(ragDocs)); block != "" {
		messages = append(messages, schema.SystemMessage(block))
	}
	return append(messages, userMsg)
}

// docNames maps document IDs to display names for excerpt attribution.
func docNames(docs []knowledge.Document) map[string]string {
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	return names
}

// normalize post-processes a provider result: blank text becomes an
// explicit marker, and sources are deduplicated by URL with the vendor's
// reporting order preserved.
func normalize(result *provider.Result) *provider.Result {
	if strings.TrimSpace(result.Text) == "" {
		result.Text = emptyResponseMarker
	}

	if len(result.Sources) > 1 {
		seen := make(map[string]bool, len(result.Sources))
		deduped := result.Sources[:0]
		for _, s := range result.Sources {
			if seen[s.URL] {
				continue
			}
			seen[s.URL] = true
			deduped = append(deduped, s)
		}
		result.Sources = deduped
	}
	return result
}
