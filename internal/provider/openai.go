package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// Default OpenAI settings.
const (
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultOpenAIModel      = "gpt-4o"
	defaultOpenAIEmbedModel = "text-embedding-3-small"
)

// OpenAIProvider implements Provider against the OpenAI API. Generation
// goes through the eino chat-model adapter; embeddings and model listing
// use the REST API directly — no additional SDK is required for those.
// It is safe for concurrent use.
type OpenAIProvider struct {
	// apiKey is the Bearer token for all calls.
	apiKey string

	// baseURL is the API base (default "https://api.openai.com/v1");
	// overridable for compatible gateways.
	baseURL string

	// model is the default generation model when a request names none.
	model string

	// embedModel is the embedding model for this vendor's space.
	embedModel string

	// temperature controls response randomness (0.0–1.0).
	temperature float32

	// maxTokens caps generated output length.
	maxTokens int

	// client is the shared HTTP client for embeddings and model listing.
	client *http.Client
}

// OpenAIConfig holds the settings for constructing an OpenAIProvider.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// BaseURL overrides the default API endpoint.
	BaseURL string
	// Model is the default generation model (default: gpt-4o).
	Model string
	// EmbedModel is the embedding model (default: text-embedding-3-small).
	EmbedModel string
	// Temperature controls response randomness.
	Temperature float32
	// MaxTokens caps generated output length.
	MaxTokens int
}

// NewOpenAIProvider constructs an OpenAIProvider from the given config.
func NewOpenAIProvider(cfg *OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider: openai requires an API key (OPENAI_API_KEY)")
	}
	p := &OpenAIProvider{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		embedModel:  cfg.EmbedModel,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
	if p.baseURL == "" {
		p.baseURL = defaultOpenAIBaseURL
	}
	if p.model == "" {
		p.model = defaultOpenAIModel
	}
	if p.embedModel == "" {
		p.embedModel = defaultOpenAIEmbedModel
	}
	return p, nil
}

// Name returns the vendor identity.
func (p *OpenAIProvider) Name() knowledge.Vendor { return knowledge.VendorOpenAI }

// openaiModelsResponse is the JSON body returned by GET /models.
type openaiModelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// nonGenerativeMarkers identifies model families that cannot do free-form
// chat generation and are filtered from ListModels.
var nonGenerativeMarkers = []string{
	"embed", "whisper", "tts", "dall-e", "moderation", "audio", "realtime", "transcribe", "image",
}

// ListModels enumerates generation-capable models available to the key.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOpenAI, opListModels, ErrUnsupported, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOpenAI, opListModels, ErrTransient, err)
	}
	defer resp.Body.Close()

	var result openaiModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, vendorErr(knowledge.VendorOpenAI, opListModels, ErrUnsupported, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, vendorErr(knowledge.VendorOpenAI, opListModels, classifyStatus(resp.StatusCode), apiErr(resp.StatusCode, errMessage(result.Error)))
	}

	models := make([]ModelInfo, 0, len(result.Data))
	for _, m := range result.Data {
		if !isGenerativeModelID(m.ID) {
			continue
		}
		models = append(models, ModelInfo{ID: m.ID, DisplayName: m.ID})
	}
	return models, nil
}

// isGenerativeModelID filters out embedding, audio, image, and moderation
// model IDs by substring. The catalogue carries no capability flags, so a
// marker list is the best available signal.
func isGenerativeModelID(id string) bool {
	lower := strings.ToLower(id)
	for _, marker := range nonGenerativeMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// openaiEmbedRequest is the JSON body sent to the embeddings endpoint.
type openaiEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// openaiEmbedResponse is the JSON body returned from the embeddings endpoint.
type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed converts texts into embeddings via the REST embeddings endpoint,
// batching against the per-call input limit. The API may return data out
// of order; results are reassembled by index.
func (p *OpenAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatched(ctx, texts, func(ctx context.Context, batch []string) ([][]float32, error) {
		payload, err := json.Marshal(openaiEmbedRequest{Input: batch, Model: p.embedModel})
		if err != nil {
			return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, ErrUnsupported, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, ErrUnsupported, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, ErrTransient, err)
		}
		defer resp.Body.Close()

		var result openaiEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, ErrUnsupported, err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, classifyStatus(resp.StatusCode), apiErr(resp.StatusCode, errMessage(result.Error)))
		}
		if len(result.Data) != len(batch) {
			return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, ErrUnsupported,
				fmt.Errorf("expected %d embeddings, got %d", len(batch), len(result.Data)))
		}

		vectors := make([][]float32, len(batch))
		for _, d := range result.Data {
			if d.Index < 0 || d.Index >= len(batch) {
				return nil, vendorErr(knowledge.VendorOpenAI, opEmbed, ErrUnsupported,
					fmt.Errorf("embedding index %d out of range [0, %d)", d.Index, len(batch)))
			}
			vectors[d.Index] = d.Embedding
		}
		return vectors, nil
	})
}

// Generate runs the conversation through the eino OpenAI chat model.
// OpenAI performs no live web grounding here, so Sources is always empty
// and the WebGrounding option is ignored.
func (p *OpenAIProvider) Generate(ctx context.Context, msgs []*schema.Message, opts GenerateOptions) (*Result, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	cmCfg := &einoopenai.ChatModelConfig{
		Model:  model,
		APIKey: p.apiKey,
	}
	if p.baseURL != defaultOpenAIBaseURL {
		cmCfg.BaseURL = p.baseURL
	}
	if p.maxTokens > 0 {
		cmCfg.MaxTokens = &p.maxTokens
	}
	if p.temperature > 0 {
		cmCfg.Temperature = &p.temperature
	}

	cm, err := einoopenai.NewChatModel(ctx, cmCfg)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOpenAI, opGenerate, nil, err)
	}

	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOpenAI, opGenerate, nil, err)
	}
	return &Result{Text: out.Content}, nil
}

// errMessage extracts the vendor-supplied message from a decoded error
// body, or empty string when none was present.
func errMessage(e *struct {
	Message string `json:"message"`
}) string {
	if e == nil {
		return ""
	}
	return e.Message
}

// apiErr formats a non-2xx API response as an error.
func apiErr(status int, message string) error {
	if message == "" {
		return fmt.Errorf("HTTP %d", status)
	}
	return fmt.Errorf("HTTP %d: %s", status, message)
}

var _ Provider = (*OpenAIProvider)(nil)
