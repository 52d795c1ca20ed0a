package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	einoollama "github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// Default Ollama settings. No API key is required — Ollama runs locally.
const (
	defaultOllamaHost       = "http://localhost:11434"
	defaultOllamaModel      = "llama3"
	defaultOllamaEmbedModel = "nomic-embed-text"
)

// OllamaProvider implements Provider against a local Ollama instance.
// Generation goes through the eino chat-model adapter; embeddings and
// model listing use Ollama's HTTP API directly. Safe for concurrent use.
type OllamaProvider struct {
	// host is the Ollama server base URL.
	host string

	// model is the default generation model when a request names none.
	model string

	// embedModel is the embedding model for this vendor's space.
	embedModel string

	// client is the shared HTTP client for embeddings and model listing.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaProvider.
type OllamaConfig struct {
	// Host is the Ollama server base URL (default: http://localhost:11434).
	Host string
	// Model is the default generation model (default: llama3).
	Model string
	// EmbedModel is the embedding model (default: nomic-embed-text).
	EmbedModel string
}

// NewOllamaProvider constructs an OllamaProvider from the given config.
func NewOllamaProvider(cfg *OllamaConfig) *OllamaProvider {
	p := &OllamaProvider{
		host:       cfg.Host,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		client:     &http.Client{Timeout: 120 * time.Second},
	}
	if p.host == "" {
		p.host = defaultOllamaHost
	}
	if p.model == "" {
		p.model = defaultOllamaModel
	}
	if p.embedModel == "" {
		p.embedModel = defaultOllamaEmbedModel
	}
	return p
}

// Name returns the vendor identity.
func (p *OllamaProvider) Name() knowledge.Vendor { return knowledge.VendorOllama }

// ollamaTagsResponse is the JSON body returned by GET /api/tags.
type ollamaTagsResponse struct {
	Models []struct {
		Name    string `json:"name"`
		Details struct {
			Family string `json:"family"`
		} `json:"details"`
	} `json:"models"`
}

// embeddingFamilies lists model families that only produce embeddings and
// are filtered from the generation catalogue.
var embeddingFamilies = map[string]bool{
	"bert":       true,
	"nomic-bert": true,
}

// ListModels enumerates locally pulled models that can generate text.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOllama, opListModels, ErrUnsupported, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOllama, opListModels, ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, vendorErr(knowledge.VendorOllama, opListModels, classifyStatus(resp.StatusCode), apiErr(resp.StatusCode, ""))
	}

	var result ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, vendorErr(knowledge.VendorOllama, opListModels, ErrUnsupported, err)
	}

	models := make([]ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		if embeddingFamilies[strings.ToLower(m.Details.Family)] {
			continue
		}
		models = append(models, ModelInfo{ID: m.Name, DisplayName: m.Name})
	}
	return models, nil
}

// ollamaEmbedRequest is the JSON body sent to POST /api/embed.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the JSON body returned from POST /api/embed.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// Embed converts texts into embeddings via the /api/embed endpoint,
// batching against the shared per-call input cap.
func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return embedBatched(ctx, texts, func(ctx context.Context, batch []string) ([][]float32, error) {
		payload, err := json.Marshal(ollamaEmbedRequest{Model: p.embedModel, Input: batch})
		if err != nil {
			return nil, vendorErr(knowledge.VendorOllama, opEmbed, ErrUnsupported, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embed", bytes.NewReader(payload))
		if err != nil {
			return nil, vendorErr(knowledge.VendorOllama, opEmbed, ErrUnsupported, err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, vendorErr(knowledge.VendorOllama, opEmbed, ErrTransient, err)
		}
		defer resp.Body.Close()

		var result ollamaEmbedResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, vendorErr(knowledge.VendorOllama, opEmbed, ErrUnsupported, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, vendorErr(knowledge.VendorOllama, opEmbed, classifyStatus(resp.StatusCode), apiErr(resp.StatusCode, result.Error))
		}
		if len(result.Embeddings) != len(batch) {
			return nil, vendorErr(knowledge.VendorOllama, opEmbed, ErrUnsupported,
				fmt.Errorf("expected %d embeddings, got %d", len(batch), len(result.Embeddings)))
		}
		return result.Embeddings, nil
	})
}

// Generate runs the conversation through the eino Ollama chat model.
// Ollama performs no live web grounding; the WebGrounding option is
// ignored and Sources is always empty.
func (p *OllamaProvider) Generate(ctx context.Context, msgs []*schema.Message, opts GenerateOptions) (*Result, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	cm, err := einoollama.NewChatModel(ctx, &einoollama.ChatModelConfig{
		BaseURL: p.host,
		Model:   model,
	})
	if err != nil {
		return nil, vendorErr(knowledge.VendorOllama, opGenerate, nil, err)
	}

	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return nil, vendorErr(knowledge.VendorOllama, opGenerate, nil, err)
	}
	return &Result{Text: out.Content}, nil
}

var _ Provider = (*OllamaProvider)(nil)
