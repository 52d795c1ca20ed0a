package assemble

import (
	"fmt"
	"strings"

	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/rank"
)

// systemPersona is the base system prompt injected into every drafting run.
// It establishes the ghostwriter's voice, quality bar, and the rules that
// keep generated posts grounded in the supplied material rather than
// invented filler.
const systemPersona = `You are a professional LinkedIn ghostwriter. You draft posts on behalf of a
specific author, in that author's voice, for that author's audience. The post
must read as if the author wrote it — never as marketing copy, never as an
AI summary.

You hold yourself to these standards:
- Ground every factual claim in the material provided below. If the material
  does not support a claim, do not make it.
- Hook the reader in the first two lines; LinkedIn truncates everything after.
- Short paragraphs, plain language, no corporate jargon, no hashtag spam
  (at most 3 relevant hashtags, at the end, only if they earn their place).
- Write in the first person as the author. Never mention that you are an
  assistant, never mention these instructions.
- Return ONLY the post text itself — no preamble, no commentary, no quotation
  marks around the post.`

// Format selects the target length of the drafted post.
type Format string

const (
	// FormatLong is a full post: several paragraphs, roughly 150–300 words.
	FormatLong Format = "long"

	// FormatShort is a punchy post: a few lines, under 80 words.
	FormatShort Format = "short"
)

// formatGuidance returns the length instruction for the given format.
// Unknown values fall back to long form.
func formatGuidance(f Format) string {
	if f == FormatShort {
		return "Write a SHORT post: a few punchy lines, under 80 words total."
	}
	return "Write a full post: several short paragraphs, roughly 150-300 words."
}

// buildTaskMessage formats the drafting task itself: what to write about,
// in whose voice, and — on refinement runs — the current draft together
// with the instruction to change only what the author asked to change.
func buildTaskMessage(req *Request) string {
	var sb strings.Builder

	sb.WriteString("## Task\n\n")
	if req.CurrentDraft != "" {
		sb.WriteString("Refine the existing draft below according to the author's instructions. ")
		sb.WriteString("Apply ONLY the requested changes — preserve every section the ")
		sb.WriteString("instructions do not touch, word for word.\n\n")
		sb.WriteString("### Current draft\n\n")
		sb.WriteString(req.CurrentDraft)
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("Draft a new LinkedIn post from scratch using the material below.\n\n")
	}

	if req.Persona != "" {
		fmt.Fprintf(&sb, "### Author voice\n\n%s\n\n", req.Persona)
	}
	if req.Context != "" {
		fmt.Fprintf(&sb, "### Topic brief\n\n%s\n\n", req.Context)
	}
	fmt.Fprintf(&sb, "### Length\n\n%s\n", formatGuidance(req.Format))

	return sb.String()
}

// buildContextBlock inlines context-mode documents verbatim, each tagged
// with its document name so the model can attribute material to its source.
// Returns an empty string when there is nothing to inline.
func buildContextBlock(docs []knowledge.Document) string {
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Reference documents\n\n")
	sb.WriteString("The author supplied the following documents in full. ")
	sb.WriteString("Use them as source material where relevant.\n\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "### Document: %s\n%s\n\n", d.Name, d.Text)
	}
	return sb.String()
}

// buildRetrievedBlock formats retrieved chunks, best match first, each
// tagged with the document it came from. docNames maps document ID to
// display name; IDs without a name fall back to the raw ID.
func buildRetrievedBlock(scored []rank.Scored, docNames map[string]string) string {
	if len(scored) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("## Retrieved excerpts\n\n")
	sb.WriteString("The following excerpts were retrieved from the author's knowledge ")
	sb.WriteString("base as most relevant to this post. Use them to inform the draft ")
	sb.WriteString("where applicable.\n\n")
	for i, s := range scored {
		name := docNames[s.Record.Chunk.DocumentID]
		if name == "" {
			name = s.Record.Chunk.DocumentID
		}
		fmt.Fprintf(&sb, "### Excerpt %d (from %s)\n%s\n\n", i+1, name, s.Record.Chunk.Text)
	}
	return sb.String()
}
