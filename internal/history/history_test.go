package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_History_AppendAndLatest(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, Revision{Topic: "launch", Text: "draft one", Instructions: "write it"}); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := s.Append(ctx, Revision{Topic: "launch", Text: "draft two", Instructions: "tighten the hook"}); err != nil {
		t.Fatalf("append second: %v", err)
	}

	rev, err := s.Latest(ctx, "launch")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if rev.Text != "draft two" {
		t.Errorf("latest text = %q, want draft two", rev.Text)
	}
	if rev.Instructions != "tighten the hook" {
		t.Errorf("latest instructions = %q, want tighten the hook", rev.Instructions)
	}
}

func Test_History_LatestEmptyTopic(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.Latest(context.Background(), "nothing-here")
	if !errors.Is(err, ErrNoDrafts) {
		t.Errorf("want ErrNoDrafts, got %v", err)
	}
}

func Test_History_RecentNewestFirstAndLimited(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		rev := Revision{Topic: "migration", Text: fmt.Sprintf("rev %d", i)}
		if err := s.Append(ctx, rev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	revs, err := s.Recent(ctx, "migration", 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("want 3 revisions, got %d", len(revs))
	}
	if revs[0].Text != "rev 4" {
		t.Errorf("revs[0] = %q, want rev 4 (newest first)", revs[0].Text)
	}
}

func Test_History_TopicIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, Revision{Topic: "a", Text: "from a"}); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := s.Append(ctx, Revision{Topic: "b", Text: "from b"}); err != nil {
		t.Fatalf("append b: %v", err)
	}

	rev, err := s.Latest(ctx, "a")
	if err != nil {
		t.Fatalf("latest a: %v", err)
	}
	if rev.Text != "from a" {
		t.Errorf("topic isolation failed: got %q", rev.Text)
	}

	revs, err := s.Recent(ctx, "b", 10)
	if err != nil {
		t.Fatalf("recent b: %v", err)
	}
	if len(revs) != 1 || revs[0].Text != "from b" {
		t.Errorf("topic isolation failed for b: got %v", revs)
	}
}
