package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func Test_Split_WindowBoundaries(t *testing.T) {
	t.Parallel()

	// 2500 chars with window 1000 / overlap 200 advances by 800:
	// starts at 0, 800, 1600, 2400.
	text := strings.Repeat("a", 2500)

	chunks, err := Split("doc-1", text, 1000, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("want 4 chunks, got %d", len(chunks))
	}

	wantLens := []int{1000, 1000, 900, 100}
	for i, c := range chunks {
		if c.Ordinal != i {
			t.Errorf("chunk %d: ordinal = %d", i, c.Ordinal)
		}
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk %d: document id = %q", i, c.DocumentID)
		}
		if len(c.Text) != wantLens[i] {
			t.Errorf("chunk %d: len = %d, want %d", i, len(c.Text), wantLens[i])
		}
	}
}

func Test_Split_ExactWindowMultiple(t *testing.T) {
	t.Parallel()

	// The window slides until its start passes the end of the text, so a
	// text of exactly one window still gets a trailing overlap chunk:
	// starts at 0 and 800.
	text := strings.Repeat("b", 1000)

	chunks, err := Split("doc-3", text, 1000, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0].Text) != 1000 {
		t.Errorf("chunk 0: len = %d, want 1000", len(chunks[0].Text))
	}
	if len(chunks[1].Text) != 200 {
		t.Errorf("chunk 1: len = %d, want 200", len(chunks[1].Text))
	}
}

func Test_Split_MultiByteRunes(t *testing.T) {
	t.Parallel()

	// 1500 two-byte runes with window 1000 / overlap 200: starts at 0 and
	// 800 measured in runes, and no chunk boundary may split a rune.
	text := strings.Repeat("é", 1500)

	chunks, err := Split("doc-4", text, 1000, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("want 2 chunks, got %d", len(chunks))
	}

	wantRunes := []int{1000, 700}
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Errorf("chunk %d: text is not valid UTF-8", i)
		}
		if got := utf8.RuneCountInString(c.Text); got != wantRunes[i] {
			t.Errorf("chunk %d: rune count = %d, want %d", i, got, wantRunes[i])
		}
	}
}

func Test_Split_Idempotent(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 120)

	first, err := Split("doc-2", text, 500, 100)
	if err != nil {
		t.Fatalf("first split: %v", err)
	}
	second, err := Split("doc-2", text, 500, 100)
	if err != nil {
		t.Fatalf("second split: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: IDs differ: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d: text differs", i)
		}
	}
}

func Test_Split_InvalidParameters(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		window  int
		overlap int
	}{
		{"overlap equals window", 100, 100},
		{"overlap exceeds window", 100, 150},
		{"zero window", 0, 0},
		{"negative overlap", 100, -1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Split("doc", "some text", tc.window, tc.overlap)
			if !errors.Is(err, ErrInvalidChunking) {
				t.Errorf("want ErrInvalidChunking, got %v", err)
			}
		})
	}
}

func Test_Split_EmptyText(t *testing.T) {
	t.Parallel()

	chunks, err := Split("doc", "   \n\t  ", DefaultWindowSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("want no chunks for whitespace-only text, got %d", len(chunks))
	}
}

func Test_Split_ShortText_SingleChunk(t *testing.T) {
	t.Parallel()

	chunks, err := Split("doc", "short note", 1000, 200)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short note" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}

func Test_ChunkID_IndependentOfContent(t *testing.T) {
	t.Parallel()

	if ChunkID("doc", 0) != ChunkID("doc", 0) {
		t.Error("same document and ordinal must yield the same ID")
	}
	if ChunkID("doc", 0) == ChunkID("doc", 1) {
		t.Error("different ordinals must yield different IDs")
	}
	if ChunkID("doc-a", 0) == ChunkID("doc-b", 0) {
		t.Error("different documents must yield different IDs")
	}
}
