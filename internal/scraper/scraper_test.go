package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ainews/internal/config"
)

const listingHTML = `<!DOCTYPE html>
<html><body>
<article>
  <h2>OpenAI releases new model</h2>
  <a href="/story/1">read</a>
  <time datetime="2 hours ago">2 hours ago</time>
  <span class="points">120 points</span>
</article>
<article>
  <h2>Research lab publishes benchmark paper</h2>
  <a href="/story/2">read</a>
  <span class="date">yesterday</span>
</article>
</body></html>`

const articleHTML = `<!DOCTYPE html>
<html><body><article>
<p>This is the first paragraph of the article body with enough length.</p>
<p>This is the second paragraph carrying more detail about the story.</p>
<p>Subscribe to our newsletter for more updates every single day.</p>
<p>The third real paragraph closes out the article with a conclusion.</p>
<figure><img src="/img/hero.png"></figure>
<iframe src="https://www.youtube.com/embed/abc123"></iframe>
</article></body></html>`

func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingHTML))
	})
	mux.HandleFunc("/story/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articleHTML))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPageScrape(t *testing.T) {
	srv := newTestSite(t)
	p := NewPage(srv.Client())

	src := config.Source{URL: srv.URL + "/", Kind: "page", MaxItems: 10}
	stories, err := p.Scrape(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 2 {
		t.Fatalf("len = %d, want 2", len(stories))
	}

	first := stories[0]
	if first.Headline != "OpenAI releases new model" {
		t.Errorf("headline = %q", first.Headline)
	}
	if !strings.HasSuffix(first.Link, "/story/1") {
		t.Errorf("link = %q", first.Link)
	}
	if first.DatePosted != "2 hours ago" {
		t.Errorf("date = %q", first.DatePosted)
	}
	if first.Popularity != "120" {
		t.Errorf("popularity = %q, want 120", first.Popularity)
	}
	if !strings.Contains(first.FullContent, "first paragraph") {
		t.Errorf("content missing: %q", first.FullContent)
	}
	if strings.Contains(first.FullContent, "Subscribe") {
		t.Error("junk line survived cleanup")
	}
	if len(first.ImageURLs) != 1 || !strings.HasSuffix(first.ImageURLs[0], "/img/hero.png") {
		t.Errorf("images = %v", first.ImageURLs)
	}
	if len(first.VideoURLs) != 1 {
		t.Errorf("videos = %v", first.VideoURLs)
	}

	if stories[1].DatePosted != "yesterday" {
		t.Errorf("second date = %q", stories[1].DatePosted)
	}
}

func TestPageScrapeRespectsMaxItems(t *testing.T) {
	srv := newTestSite(t)
	p := NewPage(srv.Client())

	stories, err := p.Scrape(context.Background(), config.Source{URL: srv.URL + "/", MaxItems: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 1 {
		t.Errorf("len = %d, want 1", len(stories))
	}
}

func TestPageScrapeEmptyListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><div>nothing here</div></body></html>"))
	}))
	defer srv.Close()

	p := NewPage(srv.Client())
	if _, err := p.Scrape(context.Background(), config.Source{URL: srv.URL, MaxItems: 5}); err == nil {
		t.Error("expected error for page with no story cards")
	}
}

const feedXML = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>AI Feed</title>
<item>
  <title>New agent framework announced</title>
  <link>https://example.com/agent</link>
  <pubDate>Tue, 10 Jun 2025 09:00:00 GMT</pubDate>
  <description>&lt;p&gt;An agent framework with SDK support was announced today.&lt;/p&gt;</description>
</item>
<item>
  <title>Model weights released</title>
  <link>https://example.com/weights</link>
</item>
</channel></rss>`

func TestFeedScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feedXML))
	}))
	defer srv.Close()

	f := NewFeed(srv.Client())
	stories, err := f.Scrape(context.Background(), config.Source{URL: srv.URL, Kind: "feed", MaxItems: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(stories) != 2 {
		t.Fatalf("len = %d, want 2", len(stories))
	}
	if stories[0].Headline != "New agent framework announced" {
		t.Errorf("headline = %q", stories[0].Headline)
	}
	if stories[0].DatePosted != "2025-06-10T09:00:00Z" {
		t.Errorf("date = %q, want RFC3339", stories[0].DatePosted)
	}
	if strings.Contains(stories[0].FullContent, "<p>") {
		t.Errorf("HTML not stripped: %q", stories[0].FullContent)
	}
}

func TestForSource(t *testing.T) {
	if _, ok := ForSource(config.Source{Kind: "feed"}, nil).(*Feed); !ok {
		t.Error("feed kind should yield Feed scraper")
	}
	if _, ok := ForSource(config.Source{Kind: "page"}, nil).(*Page); !ok {
		t.Error("page kind should yield Page scraper")
	}
}

func TestCleanContent(t *testing.T) {
	in := "A real paragraph about models that is long enough.\nClick here to Subscribe to our newsletter\nAnother   real  paragraph."
	out := cleanContent(in)
	if strings.Contains(out, "Subscribe") {
		t.Errorf("junk survived: %q", out)
	}
	if strings.Contains(out, "  ") {
		t.Errorf("whitespace not collapsed: %q", out)
	}
}
