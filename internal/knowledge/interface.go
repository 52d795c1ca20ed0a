// Package knowledge defines the data model and storage contracts for the
// retrieval and grounding engine: documents, vendor-tagged embedded chunk
// records, and the stores that persist them. Concrete implementations
// (SQLite, Qdrant, in-memory) satisfy these interfaces so the assembler
// and indexing workflow never depend on a specific backend.
package knowledge

import (
	"context"
	"errors"
	"time"

	"github.com/draftforge/draftforge-go/internal/chunker"
)

// Vendor identifies one hosted LLM backend and, equally, one embedding
// space. Embedding vectors are only ever comparable within a single
// vendor's space — records tagged with different vendors must never be
// ranked against each other.
type Vendor string

const (
	// VendorGemini is the Google Gemini API.
	VendorGemini Vendor = "gemini"
	// VendorOpenAI is the OpenAI API.
	VendorOpenAI Vendor = "openai"
	// VendorOllama is a locally running Ollama instance.
	VendorOllama Vendor = "ollama"
)

// Mode selects how a document participates in grounding.
type Mode string

const (
	// ModeContext inlines the document's full text into every generation
	// request, regardless of length.
	ModeContext Mode = "context"
	// ModeRAG indexes the document into the vector store; only the
	// top-matching chunks are retrieved at generation time.
	ModeRAG Mode = "rag"
)

// Document is an uploaded source of grounding material.
type Document struct {
	// ID is the unique identifier assigned at upload time.
	ID string

	// Name is the user-visible display name (usually the filename).
	Name string

	// MIME is the declared media type of the original upload.
	MIME string

	// Text is the extracted plain text of the document.
	Text string

	// Active controls whether the document participates in generation at
	// all. Inactive documents are skipped entirely.
	Active bool

	// Mode selects full-context inlining versus chunked retrieval.
	Mode Mode

	// Indexed reports whether the document's chunks have been embedded and
	// stored. A ModeRAG document only participates in retrieval once
	// Indexed is true; the indexing workflow sets it after a successful
	// batch write and never before.
	Indexed bool

	// CreatedAt is when the document was first registered.
	CreatedAt time.Time
}

// Record is a persisted embedded chunk: a chunk of document text, the
// vendor whose model produced the embedding, and the embedding itself.
// The vector store exclusively owns these records.
type Record struct {
	// Chunk is the text span this record embeds.
	Chunk chunker.Chunk

	// Vendor tags the embedding space the vector belongs to.
	Vendor Vendor

	// Vector is the embedding produced by the vendor's embedding model.
	Vector []float32
}

// ErrPersistence indicates the backing storage is unavailable, full, or
// otherwise failed. Callers must not treat the operation as having
// succeeded — in particular, a document whose chunk write fails must not
// be marked indexed.
var ErrPersistence = errors.New("knowledge: persistent storage failure")

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("knowledge: document not found")

// VectorStore is the durable keyed store for embedded chunk records.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Put upserts a batch of records, keyed by (chunk ID, vendor).
	// The batch is atomic: a concurrent reader observes either none or all
	// of the batch, never a partial write.
	Put(ctx context.Context, records []Record) error

	// QueryByVendor returns every record tagged with the given vendor, in
	// no guaranteed order. Ordering is the ranker's responsibility.
	QueryByVendor(ctx context.Context, vendor Vendor) ([]Record, error)

	// DeleteByDocument removes every record whose chunk belongs to the
	// given document, across all vendors. Deleting a document with zero
	// stored records is a no-op, not an error.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Close releases any resources held by the store.
	Close() error
}

// DocumentStore is the registry of uploaded documents and their lifecycle
// flags. Implementations must be safe to call from multiple goroutines.
type DocumentStore interface {
	// SaveDocument inserts or fully replaces a document by ID.
	SaveDocument(ctx context.Context, doc Document) error

	// GetDocument returns the document with the given ID, or a
	// ErrNotFound-wrapping error if it does not exist.
	GetDocument(ctx context.Context, id string) (Document, error)

	// ListDocuments returns all registered documents ordered by creation time.
	ListDocuments(ctx context.Context) ([]Document, error)

	// DeleteDocument removes the document registration. Purging the
	// document's chunk records is the indexing workflow's job.
	DeleteDocument(ctx context.Context, id string) error
}

// Store combines vector and document storage, the shape both shipped
// backends provide.
type Store interface {
	VectorStore
	DocumentStore
}
