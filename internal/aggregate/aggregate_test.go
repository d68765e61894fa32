package aggregate

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ainews/internal/config"
	"ainews/internal/scraper"
	"ainews/internal/story"
)

type stubScraper struct {
	stories []story.RawStory
	err     error
}

func (s stubScraper) Scrape(ctx context.Context, src config.Source) ([]story.RawStory, error) {
	return s.stories, s.err
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultTimeframeHours: 36,
		FallbackMaxAgeHours:   72,
	}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func newTestCollector(cfg *config.Config, scrapers map[string]scraper.Scraper, opts ...Option) *Collector {
	base := []Option{
		WithSleep(noSleep),
		WithScraperFunc(func(src config.Source) scraper.Scraper {
			return scrapers[src.Name]
		}),
	}
	return New(cfg, append(base, opts...)...)
}

func TestCollectKeepsMostRecentPerDomain(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"s1": stubScraper{stories: []story.RawStory{
			{Headline: "older on a.com", Link: "https://a.com/blog/old", DatePosted: "5 hours ago"},
			{Headline: "fresh on b.com", Link: "https://b.com/x", DatePosted: "2 hours ago"},
		}},
		"s2": stubScraper{stories: []story.RawStory{
			{Headline: "newer on a.com", Link: "https://www.a.com/new", DatePosted: "1 hour ago"},
		}},
	}
	c := newTestCollector(testConfig(), scrapers)

	got, err := c.Collect(context.Background(), []config.Source{{Name: "s1"}, {Name: "s2"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	// The a.com winner sits in the slot the domain first appeared in.
	if got[0].Headline != "newer on a.com" {
		t.Errorf("got[0] = %q, want the 1-hour-ago story", got[0].Headline)
	}
	if got[1].Headline != "fresh on b.com" {
		t.Errorf("got[1] = %q", got[1].Headline)
	}
}

func TestCollectDomainDedupDisabled(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"s1": stubScraper{stories: []story.RawStory{
			{Headline: "one", Link: "https://a.com/1", DatePosted: "1 hour ago"},
			{Headline: "two", Link: "https://a.com/2", DatePosted: "2 hours ago"},
		}},
	}
	cfg := testConfig()
	cfg.DisableDomainDedup = true
	c := newTestCollector(cfg, scrapers)

	got, err := c.Collect(context.Background(), []config.Source{{Name: "s1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 with dedup disabled", len(got))
	}
}

func TestCollectFallbackWhenNothingFresh(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"stale": stubScraper{stories: []story.RawStory{
			{Headline: "very old", Link: "https://a.com/1", DatePosted: "9 days ago"},
			{Headline: "least old", Link: "https://a.com/2", DatePosted: "3 days ago"},
		}},
	}
	c := newTestCollector(testConfig(), scrapers)

	got, err := c.Collect(context.Background(), []config.Source{{Name: "stale"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 fallback story", len(got))
	}
	if got[0].Headline != "least old" {
		t.Errorf("fallback picked %q, want the most recent stale story", got[0].Headline)
	}
}

func TestCollectFallbackRespectsCeiling(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"dead": stubScraper{stories: []story.RawStory{
			{Headline: "ancient", Link: "https://a.com/1", DatePosted: "9 days ago"},
		}},
	}
	c := newTestCollector(testConfig(), scrapers)

	got, err := c.Collect(context.Background(), []config.Source{{Name: "dead"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0 when everything is past the ceiling", len(got))
	}
}

func TestCollectContinuesPastFailingSource(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"bad": stubScraper{err: errors.New("boom")},
		"good": stubScraper{stories: []story.RawStory{
			{Headline: "ok", Link: "https://b.com/1", DatePosted: "1 hour ago"},
		}},
	}
	c := newTestCollector(testConfig(), scrapers)

	got, err := c.Collect(context.Background(), []config.Source{{Name: "bad"}, {Name: "good"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Headline != "ok" {
		t.Errorf("got %+v, want the story from the healthy source", got)
	}
}

func TestCollectAllSourcesFailed(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"bad1": stubScraper{err: errors.New("boom")},
		"bad2": stubScraper{err: errors.New("boom")},
	}
	c := newTestCollector(testConfig(), scrapers)

	if _, err := c.Collect(context.Background(), []config.Source{{Name: "bad1"}, {Name: "bad2"}}); err == nil {
		t.Error("expected error when every source fails")
	}
}

func TestCollectSleepsBetweenSources(t *testing.T) {
	scrapers := map[string]scraper.Scraper{
		"s1": stubScraper{}, "s2": stubScraper{}, "s3": stubScraper{},
	}
	var sleeps int
	c := newTestCollector(testConfig(), scrapers,
		WithSleep(func(ctx context.Context, d time.Duration) error {
			sleeps++
			return nil
		}))

	sources := []config.Source{{Name: "s1"}, {Name: "s2"}, {Name: "s3"}}
	if _, err := c.Collect(context.Background(), sources); err != nil {
		t.Fatal(err)
	}
	if sleeps != 2 {
		t.Errorf("sleeps = %d, want 2 (between sources, not before the first)", sleeps)
	}
}

func TestCollectSkipsSeenStories(t *testing.T) {
	seen := NewSeenLog(filepath.Join(t.TempDir(), "seen.json"), 48*time.Hour)
	seen.Mark(story.Story{Headline: "Already sent", Link: "https://a.com/1"})

	scrapers := map[string]scraper.Scraper{
		"s1": stubScraper{stories: []story.RawStory{
			{Headline: "Already sent", Link: "https://a.com/1", DatePosted: "1 hour ago"},
			{Headline: "Brand new", Link: "https://b.com/2", DatePosted: "1 hour ago"},
		}},
	}
	c := newTestCollector(testConfig(), scrapers, WithSeenLog(seen))

	got, err := c.Collect(context.Background(), []config.Source{{Name: "s1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Headline != "Brand new" {
		t.Errorf("got %+v, want only the unseen story", got)
	}
}

func TestSeenLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	first := NewSeenLog(path, 48*time.Hour)
	first.Mark(story.Story{Headline: "Sent story", Link: "https://a.com/1"})
	if err := first.Save(); err != nil {
		t.Fatal(err)
	}

	second := NewSeenLog(path, 48*time.Hour)
	if err := second.Load(); err != nil {
		t.Fatal(err)
	}
	if !second.Seen(story.Story{Headline: "Sent story", Link: "https://a.com/1"}) {
		t.Error("reloaded log lost the entry")
	}
	if second.Seen(story.Story{Headline: "Other story", Link: "https://b.com/2"}) {
		t.Error("unexpected hit for a story never marked")
	}
}

func TestSeenLogMatchesAcrossURLVariants(t *testing.T) {
	sl := NewSeenLog(filepath.Join(t.TempDir(), "seen.json"), 48*time.Hour)
	sl.Mark(story.Story{Headline: "Same Story", Link: "https://www.a.com/path-one"})

	if !sl.Seen(story.Story{Headline: "same story", Link: "https://a.com/path-two"}) {
		t.Error("same headline on same domain should count as seen")
	}
}
