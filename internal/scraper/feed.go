package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"ainews/internal/config"
	"ainews/internal/story"
)

// Feed scrapes RSS/Atom sources via gofeed.
type Feed struct {
	parser *gofeed.Parser
}

func NewFeed(client *http.Client) *Feed {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Feed{parser: parser}
}

func (f *Feed) Scrape(ctx context.Context, src config.Source) ([]story.RawStory, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	stories := make([]story.RawStory, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(stories) >= src.MaxItems {
			break
		}
		if item.Title == "" {
			continue
		}
		raw := story.RawStory{
			Headline:   strings.TrimSpace(item.Title),
			Link:       item.Link,
			DatePosted: feedDate(item),
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		raw.FullContent = cleanContent(stripHTML(content))

		if item.Image != nil && item.Image.URL != "" {
			raw.ImageURLs = append(raw.ImageURLs, item.Image.URL)
		}
		for _, enc := range item.Enclosures {
			switch {
			case strings.HasPrefix(enc.Type, "image/"):
				raw.ImageURLs = append(raw.ImageURLs, enc.URL)
			case strings.HasPrefix(enc.Type, "video/"):
				raw.VideoURLs = append(raw.VideoURLs, enc.URL)
			}
		}

		stories = append(stories, raw)
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("feed %s has no usable items", src.URL)
	}
	return stories, nil
}

// feedDate prefers the parsed timestamp in RFC3339 so the freshness check
// gets an absolute date; the raw string is a fallback.
func feedDate(item *gofeed.Item) string {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.Format(time.RFC3339)
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.Format(time.RFC3339)
	}
	if item.Published != "" {
		return item.Published
	}
	return item.Updated
}

func stripHTML(s string) string {
	if s == "" || !strings.ContainsRune(s, '<') {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return doc.Text()
}
