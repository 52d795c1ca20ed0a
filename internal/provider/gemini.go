package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// Default Gemini models.
const (
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiEmbedModel = "text-embedding-004"
)

// GeminiProvider implements Provider against the Google Gemini API via the
// official genai SDK. It talks to the SDK directly (rather than through a
// chat-model adapter) because grounding metadata — the source attributions
// behind a web-grounded response — is only reachable on the raw API
// response. It is safe for concurrent use.
type GeminiProvider struct {
	// client is the underlying genai API client.
	client *genai.Client

	// model is the default generation model when a request names none.
	model string

	// embedModel is the embedding model for this vendor's space.
	embedModel string

	// temperature controls response randomness (0.0–1.0).
	temperature float32

	// maxTokens caps generated output length.
	maxTokens int
}

// GeminiConfig holds the settings for constructing a GeminiProvider.
type GeminiConfig struct {
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the default generation model (default: gemini-2.0-flash).
	Model string
	// EmbedModel is the embedding model (default: text-embedding-004).
	EmbedModel string
	// Temperature controls response randomness.
	Temperature float32
	// MaxTokens caps generated output length.
	MaxTokens int
}

// NewGeminiProvider constructs a GeminiProvider from the given config.
func NewGeminiProvider(ctx context.Context, cfg *GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: gemini requires an API key (GOOGLE_API_KEY)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: failed to create Gemini client: %w", err)
	}

	p := &GeminiProvider{
		client:      client,
		model:       cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
	if p.model == "" {
		p.model = defaultGeminiModel
	}
	if p.embedModel == "" {
		p.embedModel = defaultGeminiEmbedModel
	}
	return p, nil
}

// Name returns the vendor identity.
func (p *GeminiProvider) Name() knowledge.Vendor { return knowledge.VendorGemini }

// ListModels enumerates generation-capable models available to the key.
// Embedding-only and other non-generative models are filtered out by their
// supported actions.
func (p *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, vendorErr(knowledge.VendorGemini, opListModels, nil, err)
		}
		if !supportsGeneration(m) {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		display := m.DisplayName
		if display == "" {
			display = id
		}
		models = append(models, ModelInfo{ID: id, DisplayName: display})
	}
	return models, nil
}

// supportsGeneration reports whether the model can do free-form content
// generation.
func supportsGeneration(m *genai.Model) bool {
	for _, action := range m.SupportedActions {
		if action == "generateContent" {
			return true
		}
	}
	return false
}

// Embed converts texts into embeddings, batching against the API's
// per-call input limit.
func (p *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatched(ctx, texts, func(ctx context.Context, batch []string) ([][]float32, error) {
		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := p.client.Models.EmbedContent(ctx, p.embedModel, contents, nil)
		if err != nil {
			return nil, vendorErr(knowledge.VendorGemini, opEmbed, nil, err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, vendorErr(knowledge.VendorGemini, opEmbed, ErrUnsupported,
				fmt.Errorf("expected %d embeddings, got %d", len(batch), len(resp.Embeddings)))
		}

		vectors := make([][]float32, len(batch))
		for i, e := range resp.Embeddings {
			vectors[i] = e.Values
		}
		return vectors, nil
	})
}

// Generate runs the conversation through the Gemini API. When web
// grounding is requested the GoogleSearch tool is attached, and any
// grounding metadata on the response is normalised into Sources.
func (p *GeminiProvider) Generate(ctx context.Context, msgs []*schema.Message, opts GenerateOptions) (*Result, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	config := &genai.GenerateContentConfig{}
	if p.temperature > 0 {
		config.Temperature = genai.Ptr(p.temperature)
	}
	if p.maxTokens > 0 {
		config.MaxOutputTokens = int32(p.maxTokens)
	}
	if opts.WebGrounding {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	var contents []*genai.Content
	var system []string
	for _, m := range msgs {
		switch m.Role {
		case schema.System:
			system = append(system, m.Content)
		case schema.Assistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, vendorErr(knowledge.VendorGemini, opGenerate, nil, err)
	}

	return &Result{
		Text:    resp.Text(),
		Sources: geminiSources(resp),
	}, nil
}

// geminiSources extracts web grounding attributions from the response.
// Responses without grounding metadata yield no sources.
func geminiSources(resp *genai.GenerateContentResponse) []Source {
	var sources []Source
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, gc := range cand.GroundingMetadata.GroundingChunks {
			if gc == nil || gc.Web == nil || gc.Web.URI == "" {
				continue
			}
			sources = append(sources, Source{Title: gc.Web.Title, URL: gc.Web.URI})
		}
	}
	return sources
}

var _ Provider = (*GeminiProvider)(nil)
