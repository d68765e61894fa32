// Package scraper turns a configured source into raw stories. HTML listing
// pages go through goquery selector cascades, RSS/Atom sources through
// gofeed.
package scraper

import (
	"context"
	"net/http"
	"time"

	"ainews/internal/config"
	"ainews/internal/story"
)

// Scraper fetches one source and returns its raw stories, newest first as
// the source lists them. Implementations respect ctx cancellation.
type Scraper interface {
	Scrape(ctx context.Context, src config.Source) ([]story.RawStory, error)
}

// ForSource picks the implementation for a source kind. Unknown kinds fall
// back to the page scraper; config validation rejects them earlier.
func ForSource(src config.Source, client *http.Client) Scraper {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if src.Kind == "feed" {
		return NewFeed(client)
	}
	return NewPage(client)
}

const userAgent = "Mozilla/5.0 (compatible; ainews/1.0)"
