package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/draftforge/draftforge-go/internal/assemble"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/provider"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// DraftTimeout bounds a single POST /api/draft generation call.
	// Defaults to 5 minutes if zero.
	DraftTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives this server's metric registrations.
	// If nil, prometheus.DefaultRegisterer is used. Tests inject a fresh
	// registry to stay hermetic.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. If nil, prometheus.DefaultGatherer
	// is used.
	MetricsGatherer prometheus.Gatherer
}

// drafter runs one assembled drafting request. *assemble.Assembler
// satisfies it; tests inject a fake.
type drafter interface {
	Generate(ctx context.Context, req *assemble.Request) (*provider.Result, error)
}

// modelLister enumerates generation-capable models for the active vendor.
type modelLister interface {
	ListModels(ctx context.Context) ([]provider.ModelInfo, error)
}

// documentIndexer manages a document's chunk records in the vector store.
// *indexer.Indexer satisfies it.
type documentIndexer interface {
	Index(ctx context.Context, doc knowledge.Document) error
	Remove(ctx context.Context, documentID string) error
}

// Deps holds the collaborators the server exposes over HTTP.
type Deps struct {
	// Store persists documents and chunk records.
	Store knowledge.Store
	// Drafter runs grounded generation requests.
	Drafter drafter
	// Models lists generation-capable models.
	Models modelLister
	// Indexer indexes and removes documents.
	Indexer documentIndexer
}

// Server is the HTTP server exposing the drafting engine's REST API.
type Server struct {
	store   knowledge.Store
	drafter drafter
	models  modelLister
	indexer documentIndexer
	cfg     *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this instance's Prometheus collectors.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// documentCreateRequest is the JSON body for POST /api/documents.
type documentCreateRequest struct {
	// Name is the display name, usually the uploaded filename.
	Name string `json:"name"`
	// MIME is the declared content type. Optional; the extension and
	// content are consulted when it is absent.
	MIME string `json:"mime,omitempty"`
	// Content is the raw document bytes, base64-encoded in JSON.
	Content []byte `json:"content"`
	// Mode is "context" or "rag". Defaults to "context".
	Mode string `json:"mode,omitempty"`
}

// documentPatchRequest is the JSON body for PATCH /api/documents/{id}.
// Absent fields are left unchanged.
type documentPatchRequest struct {
	// Active toggles participation in generation.
	Active *bool `json:"active,omitempty"`
	// Mode switches between "context" and "rag". Switching to "rag" for a
	// document that has never been indexed triggers indexing.
	Mode *string `json:"mode,omitempty"`
}

// documentResponse is the JSON representation of a stored document.
// Text is summarised as a character count — full text never leaves the
// store over the list API.
type documentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MIME      string    `json:"mime,omitempty"`
	Mode      string    `json:"mode"`
	Active    bool      `json:"active"`
	Indexed   bool      `json:"indexed"`
	Chars     int       `json:"chars"`
	CreatedAt time.Time `json:"createdAt"`
}

// draftRequest is the JSON body for POST /api/draft.
type draftRequest struct {
	// Context is the topic brief.
	Context string `json:"context"`
	// Persona describes the author's voice. Optional.
	Persona string `json:"persona,omitempty"`
	// Instructions is the free-form ask for this run.
	Instructions string `json:"instructions"`
	// Format is "long" or "short". Defaults to "long".
	Format string `json:"format,omitempty"`
	// Model overrides the vendor's default generation model.
	Model string `json:"model,omitempty"`
	// CurrentDraft switches the run into refinement mode when non-empty.
	CurrentDraft string `json:"currentDraft,omitempty"`
}

// draftResponse is the JSON body returned by POST /api/draft.
type draftResponse struct {
	// Text is the generated post.
	Text string `json:"text"`
	// Sources lists web grounding attributions, deduplicated by URL.
	Sources []sourceResponse `json:"sources,omitempty"`
}

// sourceResponse is one grounding attribution in a draftResponse.
type sourceResponse struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
}

// modelsResponse is the JSON body returned by GET /api/models.
type modelsResponse struct {
	// Models lists generation-capable models for the active vendor.
	Models []modelResponse `json:"models"`
}

// modelResponse is one entry in a modelsResponse.
type modelResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}
