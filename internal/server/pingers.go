package server

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// ProviderPinger probes a model provider by listing its available models.
// Model listing is a zero-token call on every supported vendor, which makes
// it a cheap readiness probe. It satisfies the Pinger interface and is used
// by GET /api/ready.
type ProviderPinger struct {
	// models is the provider's model listing surface to probe.
	models modelLister
	// name identifies the vendor in readiness responses (e.g. "ollama").
	name string
}

// NewProviderPinger constructs a ProviderPinger for the given model lister
// and vendor name.
func NewProviderPinger(models modelLister, name string) *ProviderPinger {
	return &ProviderPinger{models: models, name: name}
}

// Name returns the vendor label used in readiness responses.
func (p *ProviderPinger) Name() string { return p.name }

// Ping lists the provider's models and succeeds when the call returns at
// least one model.
func (p *ProviderPinger) Ping(ctx context.Context) error {
	models, err := p.models.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models failed: %w", err)
	}
	if len(models) == 0 {
		return fmt.Errorf("provider reported no models")
	}
	return nil
}

// QdrantPinger probes a Qdrant instance using its native HealthCheck RPC.
// It satisfies the Pinger interface and is used by GET /api/ready.
type QdrantPinger struct {
	// client is the Qdrant gRPC client to probe.
	client *qdrant.Client
}

// NewQdrantPinger constructs a QdrantPinger for the given Qdrant client.
func NewQdrantPinger(client *qdrant.Client) *QdrantPinger {
	return &QdrantPinger{client: client}
}

// Name returns the dependency label used in readiness responses.
func (p *QdrantPinger) Name() string { return "qdrant" }

// Ping calls the Qdrant HealthCheck RPC.
// Returns nil if Qdrant is reachable, or a descriptive error otherwise.
func (p *QdrantPinger) Ping(ctx context.Context) error {
	_, err := p.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}
