// Package indexer implements the document indexing pipeline: it chunks a
// document's text, embeds each chunk via the active vendor, stores the
// resulting records, and marks the document as indexed. Indexing is
// all-or-nothing per document — a failure at any stage leaves the document
// un-indexed and stores nothing new.
package indexer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/draftforge/draftforge-go/internal/chunker"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/logging"
	"github.com/draftforge/draftforge-go/internal/provider"
)

// Config holds the configuration for the indexing pipeline.
type Config struct {
	// WindowSize is the maximum number of characters per chunk.
	// Defaults to chunker.DefaultWindowSize if zero.
	WindowSize int

	// Overlap is the number of characters shared between consecutive
	// chunks. Defaults to chunker.DefaultOverlap if zero.
	Overlap int
}

// Indexer orchestrates the chunk → embed → store → mark flow for a single
// document at a time.
type Indexer struct {
	provider provider.Provider
	store    knowledge.Store
	cfg      *Config
}

// New constructs an Indexer from the provided dependencies and config.
func New(p provider.Provider, store knowledge.Store, cfg *Config) (*Indexer, error) {
	if p == nil {
		return nil, fmt.Errorf("indexer: provider must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("indexer: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = chunker.DefaultWindowSize
	}
	if cfg.Overlap <= 0 {
		cfg.Overlap = chunker.DefaultOverlap
	}

	return &Indexer{provider: p, store: store, cfg: cfg}, nil
}

// Index chunks, embeds, and stores the document's text, then marks the
// document indexed. Chunk IDs are deterministic per (document, ordinal),
// so re-indexing a changed document overwrites the same record slots.
// Any failure leaves the document's Indexed flag false and persists no
// new records.
func (ix *Indexer) Index(ctx context.Context, doc knowledge.Document) error {
	chunks, err := chunker.Split(doc.ID, doc.Text, ix.cfg.WindowSize, ix.cfg.Overlap)
	if err != nil {
		return fmt.Errorf("indexer: chunking failed for %s: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("indexer: document %s has no indexable text", doc.ID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.provider.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("indexer: embedding failed for %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("indexer: expected %d embeddings for %s, got %d", len(chunks), doc.ID, len(vectors))
	}

	records := make([]knowledge.Record, len(chunks))
	for i, c := range chunks {
		records[i] = knowledge.Record{
			Chunk:  c,
			Vendor: ix.provider.Name(),
			Vector: vectors[i],
		}
	}

	if err := ix.store.Put(ctx, records); err != nil {
		return fmt.Errorf("indexer: storing records failed for %s: %w", doc.ID, err)
	}

	doc.Indexed = true
	if err := ix.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("indexer: marking %s indexed failed: %w", doc.ID, err)
	}

	logging.FromContext(ctx).Info("indexed document",
		slog.String("document_id", doc.ID),
		slog.String("name", doc.Name),
		slog.Int("chunks", len(chunks)),
		slog.String("vendor", string(ix.provider.Name())),
	)
	return nil
}

// Remove purges the document's chunk records across all vendors, then
// deletes the document record itself. Removing a document that was never
// indexed, or removing twice, is not an error.
func (ix *Indexer) Remove(ctx context.Context, documentID string) error {
	if err := ix.store.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("indexer: purging records failed for %s: %w", documentID, err)
	}
	if err := ix.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("indexer: deleting document %s failed: %w", documentID, err)
	}

	logging.FromContext(ctx).Info("removed document", slog.String("document_id", documentID))
	return nil
}
