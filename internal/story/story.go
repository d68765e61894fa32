// Package story holds the shared data model for scraped and processed news.
package story

import (
	"net/url"
	"strings"
)

// StorageMethod says where a story's full content ended up.
type StorageMethod string

const (
	StorageDatabase StorageMethod = "database"
	StorageNone     StorageMethod = "none"
)

// RawStory is what a scraper returns for one page or feed item.
// DatePosted is kept as the raw source string; recency parsing happens later.
type RawStory struct {
	Headline    string   `json:"headline"`
	Link        string   `json:"link"`
	DatePosted  string   `json:"date_posted"`
	FullContent string   `json:"fullContent,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	VideoURLs   []string `json:"videoUrls,omitempty"`
	Popularity  string   `json:"popularity,omitempty"`
}

// Story is a news item that survived recency filtering and dedup.
// The pipeline fills the Korean fields; sinks treat the struct as read-only.
type Story struct {
	Headline    string
	Link        string
	DatePosted  string
	FullContent string
	ImageURLs   []string
	VideoURLs   []string
	Popularity  string
	Category    string

	HeadlineKo string
	ContentKo  string
	SummaryKo  string
	BulletsKo  []string

	ContentStorageID     string
	ContentStorageMethod StorageMethod
}

// FromRaw copies the scraped fields into a Story with storage unset.
func FromRaw(r RawStory) Story {
	return Story{
		Headline:             r.Headline,
		Link:                 r.Link,
		DatePosted:           r.DatePosted,
		FullContent:          r.FullContent,
		ImageURLs:            r.ImageURLs,
		VideoURLs:            r.VideoURLs,
		Popularity:           r.Popularity,
		ContentStorageMethod: StorageNone,
	}
}

// SetStored records where the content was persisted. A story never carries
// an id together with method "none".
func (s *Story) SetStored(id string, method StorageMethod) {
	if method == StorageNone {
		s.ContentStorageID = ""
		s.ContentStorageMethod = StorageNone
		return
	}
	s.ContentStorageID = id
	s.ContentStorageMethod = method
}

// NormalizedDomain reduces a link to its host for per-domain dedup:
// lowercased, www. stripped, path and scheme ignored. Unparseable links
// collapse to "unknown" so they never collide with a real domain by accident.
func NormalizedDomain(link string) string {
	if link == "" {
		return "unknown"
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		// Tolerate bare host strings without a scheme.
		trimmed := strings.TrimPrefix(strings.TrimPrefix(link, "http://"), "https://")
		if i := strings.IndexByte(trimmed, '/'); i >= 0 {
			trimmed = trimmed[:i]
		}
		if trimmed == "" {
			return "unknown"
		}
		return strings.TrimPrefix(strings.ToLower(trimmed), "www.")
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
