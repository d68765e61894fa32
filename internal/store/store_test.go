package store

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"ainews/internal/story"
)

func TestNilStorePutSoftFails(t *testing.T) {
	var s *Store
	st := &story.Story{Headline: "h", Link: "https://a.com/1", FullContent: "body"}
	id, method := s.Put(context.Background(), st)
	if id != "" || method != story.StorageNone {
		t.Errorf("nil store Put = (%q, %q), want (\"\", none)", id, method)
	}
}

func TestNilStoreGetErrors(t *testing.T) {
	var s *Store
	if _, err := s.Get(context.Background(), "some-id"); err == nil {
		t.Error("nil store Get should error")
	}
}

func TestOpenEmptyConnString(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s != nil {
		t.Error("empty conn string should disable storage, not open it")
	}
}

func TestTruncate(t *testing.T) {
	short := "short content"
	if got := Truncate(short); got != short {
		t.Errorf("short content changed: %q", got)
	}

	long := strings.Repeat("가", MaxContentBytes) // 3 bytes per rune
	got := Truncate(long)
	if len(got) > MaxContentBytes+len(truncationNotice) {
		t.Errorf("truncated length %d over cap", len(got))
	}
	if !strings.HasSuffix(got, truncationNotice) {
		t.Error("truncation notice missing")
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a rune")
	}
}

func TestStoredContentLength(t *testing.T) {
	short, n := storedContent("hello")
	if short != "hello" || n != 5 {
		t.Errorf("storedContent(short) = (%q, %d)", short, n)
	}

	big := strings.Repeat("가나다라 the quick brown fox ", 20000)
	content, n := storedContent(big)
	if n != len(content) {
		t.Errorf("recorded length %d, stored %d bytes", n, len(content))
	}
	if n >= len(big) {
		t.Errorf("oversized content not truncated: %d >= %d", n, len(big))
	}
	if n > MaxContentBytes+len(truncationNotice) {
		t.Errorf("stored %d bytes, cap is %d", n, MaxContentBytes+len(truncationNotice))
	}
}

func TestContentKeyStability(t *testing.T) {
	a := &story.Story{Headline: "A", Link: "https://Example.com/story"}
	b := &story.Story{Headline: "B", Link: "https://example.com/story"}
	if contentKey(a) != contentKey(b) {
		t.Error("key should depend on the normalized link, not the headline")
	}

	c := &story.Story{Headline: "no link", DatePosted: "2 hours ago"}
	d := &story.Story{Headline: "no link", DatePosted: "3 hours ago"}
	if contentKey(c) == contentKey(d) {
		t.Error("link-less stories with different dates should not collide")
	}
	if contentKey(c) == "" || len(contentKey(c)) != 64 {
		t.Errorf("key should be a sha256 hex digest, got %q", contentKey(c))
	}
}
