package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/draftforge/draftforge-go/internal/chunker"
	"github.com/draftforge/draftforge-go/internal/knowledge"
	"github.com/draftforge/draftforge-go/internal/rank"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateMessages(t *testing.T) {
	t.Parallel()
	msgs := []*schema.Message{
		schema.UserMessage("hello world"), // 4 overhead + 1 (role) + 2 (content) = 7
		schema.UserMessage("hello world"),
	}
	got := EstimateMessages(msgs)
	// Each message: 4 overhead + Estimate("user")=1 + Estimate("hello world")=2 = 7
	// Two messages: 14
	if got != 14 {
		t.Errorf("EstimateMessages = %d, want 14", got)
	}
}

func scoredChunk(text string, score float64) rank.Scored {
	return rank.Scored{
		Record: knowledge.Record{
			Chunk:  chunker.Chunk{Text: text},
			Vendor: knowledge.VendorOllama,
		},
		Score: score,
	}
}

func Test_TrimChunks_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	scored := []rank.Scored{
		scoredChunk("short chunk one", 0.9),
		scoredChunk("short chunk two", 0.8),
	}
	got := TrimChunks(scored, 100, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 chunks retained, got %d", len(got))
	}
}

func Test_TrimChunks_DropsTail(t *testing.T) {
	t.Parallel()
	// Each chunk is 40 chars = 10 tokens. Fixed = 5 tokens.
	// Budget of 20 fits one chunk (5+10=15) but not two (5+20=25).
	scored := []rank.Scored{
		scoredChunk(strings.Repeat("a", 40), 0.9),
		scoredChunk(strings.Repeat("b", 40), 0.5),
	}
	got := TrimChunks(scored, 5, 20)
	if len(got) != 1 {
		t.Fatalf("want 1 chunk after trim, got %d", len(got))
	}
	if got[0].Score != 0.9 {
		t.Errorf("want best-scored chunk retained, got score %v", got[0].Score)
	}
}

func Test_TrimChunks_Empty(t *testing.T) {
	t.Parallel()
	got := TrimChunks(nil, 0, DefaultMaxContextTokens)
	if len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}

func Test_TrimChunks_AllDroppedWhenFixedExceedsBudget(t *testing.T) {
	t.Parallel()
	scored := []rank.Scored{
		scoredChunk("tiny", 0.9),
		scoredChunk("tiny too", 0.8),
	}
	got := TrimChunks(scored, 7000, 6000)
	if len(got) != 0 {
		t.Errorf("want 0 chunks, got %d", len(got))
	}
}
