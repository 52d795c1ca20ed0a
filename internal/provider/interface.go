// Package provider defines the uniform capability interface over hosted
// LLM vendors — model discovery, text embedding, and grounded content
// generation — together with a factory for selecting and constructing the
// per-vendor implementations at runtime. Supported vendors: Google Gemini,
// OpenAI, and a locally running Ollama instance.
//
// Every implementation honours the same contract: embeddings come back one
// vector per input in input order (batching against per-vendor limits is
// internal), and Generate is the only operation that may reach out to the
// live web for grounding. Vendors are not comparable to each other — the
// embedding space of one vendor must never be mixed with another's.
package provider

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// ModelInfo describes one generation-capable model a credential can use.
type ModelInfo struct {
	// ID is the vendor's model identifier, passed back on generation.
	ID string

	// DisplayName is a human-readable label; falls back to ID when the
	// vendor does not supply one.
	DisplayName string
}

// Source is one attribution entry extracted from a provider's grounding
// metadata. Present only when the provider performed live web grounding.
type Source struct {
	// Title is the human-readable title of the grounding source.
	Title string

	// URL locates the grounding source.
	URL string
}

// Result is the normalised outcome of a generation call.
type Result struct {
	// Text is the generated content. May be empty when the model returned
	// nothing; the assembler substitutes an explicit marker.
	Text string

	// Sources lists web grounding attributions in the order the vendor
	// reported them. Empty unless live grounding happened.
	Sources []Source
}

// GenerateOptions carries per-call generation parameters.
type GenerateOptions struct {
	// Model is the model ID to generate with. Empty selects the provider's
	// configured default.
	Model string

	// WebGrounding asks the provider to ground the response in live web
	// content. Only honoured by vendors that support it; others ignore it
	// and the call still succeeds without grounding.
	WebGrounding bool
}

// Provider is the capability interface implemented once per vendor.
// Implementations must be safe to call from multiple goroutines and must
// never mutate document or vector-store state — post-processing a result
// is the assembler's job.
type Provider interface {
	// Name returns the vendor identity, which is also the embedding-space
	// tag written onto stored chunk records.
	Name() knowledge.Vendor

	// ListModels enumerates the generation-capable models available to the
	// configured credential. Models that cannot do free-form generation
	// (embedding-only, audio, image) are filtered out.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Embed converts a batch of texts into embeddings, one vector per
	// input, order preserved. Inputs exceeding the vendor's per-call limit
	// are batched internally.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Generate runs the assembled conversation through the vendor's chat
	// model and returns the normalised result.
	Generate(ctx context.Context, msgs []*schema.Message, opts GenerateOptions) (*Result, error)
}

// maxEmbedBatch is the conservative per-call input cap shared by all
// vendor embedding endpoints the engine talks to.
const maxEmbedBatch = 100

// embedBatched slices texts into maxEmbedBatch-sized calls to fn and
// reassembles the results in input order.
func embedBatched(ctx context.Context, texts []string, fn func(ctx context.Context, batch []string) ([][]float32, error)) ([][]float32, error) {
	if len(texts) <= maxEmbedBatch {
		return fn(ctx, texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxEmbedBatch {
		end := start + maxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}
