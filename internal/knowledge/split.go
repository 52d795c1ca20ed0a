package knowledge

import "context"

// SplitStore pairs a vector backend with a separate document registry so
// the two concerns can live in different systems — chunk records in Qdrant,
// document registrations in SQLite. It satisfies Store by delegation.
type SplitStore struct {
	vectors   VectorStore
	documents DocumentStore
}

// NewSplitStore combines a vector store and a document store into one Store.
func NewSplitStore(vectors VectorStore, documents DocumentStore) *SplitStore {
	return &SplitStore{vectors: vectors, documents: documents}
}

// Put upserts a batch of chunk records in the vector backend.
func (s *SplitStore) Put(ctx context.Context, records []Record) error {
	return s.vectors.Put(ctx, records)
}

// QueryByVendor returns every record tagged with the given vendor.
func (s *SplitStore) QueryByVendor(ctx context.Context, vendor Vendor) ([]Record, error) {
	return s.vectors.QueryByVendor(ctx, vendor)
}

// DeleteByDocument removes the document's chunk records across all vendors.
func (s *SplitStore) DeleteByDocument(ctx context.Context, documentID string) error {
	return s.vectors.DeleteByDocument(ctx, documentID)
}

// SaveDocument inserts or fully replaces a document registration.
func (s *SplitStore) SaveDocument(ctx context.Context, doc Document) error {
	return s.documents.SaveDocument(ctx, doc)
}

// GetDocument returns the registration for the given document ID.
func (s *SplitStore) GetDocument(ctx context.Context, id string) (Document, error) {
	return s.documents.GetDocument(ctx, id)
}

// ListDocuments returns all registered documents ordered by creation time.
func (s *SplitStore) ListDocuments(ctx context.Context) ([]Document, error) {
	return s.documents.ListDocuments(ctx)
}

// DeleteDocument removes the document registration.
func (s *SplitStore) DeleteDocument(ctx context.Context, id string) error {
	return s.documents.DeleteDocument(ctx, id)
}

// Close releases both backends. The document side is closed only when it
// exposes a Close method of its own.
func (s *SplitStore) Close() error {
	var docErr error
	if closer, ok := s.documents.(interface{ Close() error }); ok {
		docErr = closer.Close()
	}
	if err := s.vectors.Close(); err != nil {
		return err
	}
	return docErr
}

var _ Store = (*SplitStore)(nil)
