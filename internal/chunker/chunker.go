// Package chunker splits raw document text into overlapping fixed-size
// windows, the unit of retrieval for the knowledge engine. Chunking is a
// pure function: the same text and parameters always produce the same
// chunk boundaries and the same chunk IDs, so re-indexing a document
// reuses its existing record slots instead of leaking new keys.
package chunker

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
)

// DefaultWindowSize is the default number of characters per chunk.
const DefaultWindowSize = 1000

// DefaultOverlap is the default number of characters shared between
// consecutive chunks.
const DefaultOverlap = 200

// ErrInvalidChunking is returned when the chunking parameters cannot
// produce a terminating window sequence. It indicates a caller bug, not a
// retryable condition.
var ErrInvalidChunking = errors.New("chunker: invalid chunking parameters")

// Chunk is a fixed-size, possibly overlapping substring of a document.
type Chunk struct {
	// ID is the stable identifier for this chunk, derived from the owning
	// document ID and the chunk's ordinal position — never from content.
	ID string

	// DocumentID identifies the document this chunk was cut from.
	DocumentID string

	// Ordinal is the zero-based position of the chunk within the document.
	Ordinal int

	// Text is the raw text span of the chunk.
	Text string
}

// Split cuts text into overlapping chunks of windowSize characters,
// advancing by windowSize-overlap characters per step. The final chunk may
// be shorter than windowSize. Empty or whitespace-only text yields no
// chunks. overlap must be strictly less than windowSize and windowSize
// must be positive; otherwise Split fails with ErrInvalidChunking.
func Split(documentID, text string, windowSize, overlap int) ([]Chunk, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: window size %d must be positive", ErrInvalidChunking, windowSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidChunking, overlap)
	}
	if overlap >= windowSize {
		return nil, fmt.Errorf("%w: overlap %d must be less than window size %d", ErrInvalidChunking, overlap, windowSize)
	}

	// Windows are measured in runes so a multi-byte character never gets
	// split across a chunk boundary.
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil, nil
	}

	step := windowSize - overlap
	chunks := make([]Chunk, 0, len(runes)/step+1)

	// The window keeps sliding until its start passes the end of the text,
	// even when an earlier window already reached it. A 2500-char text with
	// window 1000 / overlap 200 therefore yields starts 0, 800, 1600, 2400.
	for start, ordinal := 0, 0; start < len(runes); start, ordinal = start+step, ordinal+1 {
		end := start + windowSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			ID:         ChunkID(documentID, ordinal),
			DocumentID: documentID,
			Ordinal:    ordinal,
			Text:       string(runes[start:end]),
		})
	}

	return chunks, nil
}

// ChunkID derives the stable identifier for the chunk at the given ordinal
// position of a document. The ID depends only on the document ID and the
// ordinal, so re-chunking edited text overwrites existing slots.
func ChunkID(documentID string, ordinal int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", documentID, ordinal)))
	return fmt.Sprintf("%x", h[:16])
}
