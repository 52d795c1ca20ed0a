// Package budget provides token budget estimation and retrieval trimming
// for the drafting engine. Because drafts can be generated by multiple LLM
// backends with different tokenizers, this package uses a conservative
// character-based heuristic: 1 token ≈ 4 characters (English prose).
// This deliberately under-estimates token counts to leave headroom for
// model-specific overhead.
package budget

import (
	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/rank"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English prose; using 3
	// would be more aggressive but risks overflowing context windows.
	charsPerToken = 4

	// DefaultMaxContextTokens is the default input context budget in tokens.
	// Conservative enough to fit within 8k-context models (Llama 3 8B)
	// while leaving room for the generated post.
	DefaultMaxContextTokens = 6000
)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// EstimateMessages returns the estimated total token count for a slice of
// schema.Message values, summing role + content for each message.
func EstimateMessages(msgs []*schema.Message) int {
	total := 0
	for _, m := range msgs {
		// Each message has a small per-message overhead (~4 tokens in most APIs).
		total += 4
		total += Estimate(string(m.Role))
		total += Estimate(m.Content)
	}
	return total
}

// TrimChunks drops retrieved chunks from the tail of scored until the total
// estimated token count of fixedTokens + chunks fits within maxTokens.
// scored must be ordered best-first, so the least relevant chunks are
// sacrificed. fixedTokens covers everything that must not be trimmed
// (persona, brief, inline context documents, current draft).
//
// Returns the trimmed slice. If even a single chunk cannot fit, the result
// is empty — retrieval is an enrichment, never worth displacing the brief.
func TrimChunks(scored []rank.Scored, fixedTokens, maxTokens int) []rank.Scored {
	if len(scored) == 0 {
		return scored
	}

	total := fixedTokens
	for i, s := range scored {
		total += Estimate(s.Record.Chunk.Text)
		if total > maxTokens {
			return scored[:i]
		}
	}
	return scored
}
