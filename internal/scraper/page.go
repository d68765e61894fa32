package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ainews/internal/config"
	"ainews/internal/logger"
	"ainews/internal/story"
)

// Page scrapes an HTML news listing: it finds story cards on the listing
// page, then fetches each linked article for its full text.
type Page struct {
	client *http.Client
}

func NewPage(client *http.Client) *Page {
	return &Page{client: client}
}

// Selector cascades tried in order; the first one that yields results wins.
var (
	itemSelectors = []string{
		"article",
		".post",
		".news-item",
		".story",
		"li.article",
		".entry",
		".card",
	}
	headlineSelectors = []string{"h1", "h2", "h3", ".title", ".headline", "a"}
	dateSelectors     = []string{"time", ".date", ".timestamp", ".posted", ".meta time", ".byline time", ".age"}
	popularitySelectors = []string{".points", ".score", ".likes", ".comments-count"}
)

func (p *Page) Scrape(ctx context.Context, src config.Source) ([]story.RawStory, error) {
	doc, err := p.fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing %s: %w", src.URL, err)
	}

	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("bad source url %s: %w", src.URL, err)
	}

	var stories []story.RawStory
	for _, selector := range itemSelectors {
		doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if len(stories) >= src.MaxItems {
				return false
			}
			raw, ok := extractCard(s, base)
			if ok {
				stories = append(stories, raw)
			}
			return true
		})
		if len(stories) > 0 {
			break
		}
	}
	if len(stories) == 0 {
		return nil, fmt.Errorf("no story cards found at %s", src.URL)
	}

	// Full text comes from the article pages, not the listing.
	for i := range stories {
		if stories[i].Link == "" {
			continue
		}
		content, media, err := p.extractArticle(ctx, stories[i].Link)
		if err != nil {
			logger.Debug("article fetch failed", "url", stories[i].Link, "error", err)
			continue
		}
		stories[i].FullContent = content
		stories[i].ImageURLs = append(stories[i].ImageURLs, media.images...)
		stories[i].VideoURLs = append(stories[i].VideoURLs, media.videos...)
	}

	return stories, nil
}

func (p *Page) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// extractCard pulls headline, link, date and popularity from one listing
// entry. Entries without a headline are skipped.
func extractCard(s *goquery.Selection, base *url.URL) (story.RawStory, bool) {
	var raw story.RawStory

	for _, sel := range headlineSelectors {
		text := strings.TrimSpace(s.Find(sel).First().Text())
		if text != "" && len(text) > 5 {
			raw.Headline = text
			break
		}
	}
	if raw.Headline == "" {
		return raw, false
	}

	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		raw.Link = resolveURL(base, href)
	}

	for _, sel := range dateSelectors {
		node := s.Find(sel).First()
		if dt, ok := node.Attr("datetime"); ok && dt != "" {
			raw.DatePosted = strings.TrimSpace(dt)
			break
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			raw.DatePosted = text
			break
		}
	}

	for _, sel := range popularitySelectors {
		text := strings.TrimSpace(s.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if _, err := strconv.Atoi(strings.Fields(text)[0]); err == nil {
			raw.Popularity = strings.Fields(text)[0]
			break
		}
	}

	return raw, true
}

type mediaURLs struct {
	images []string
	videos []string
}

var contentSelectors = []string{
	"article p",
	".article-body p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
	"#content p",
	"p",
}

func (p *Page) extractArticle(ctx context.Context, articleURL string) (string, mediaURLs, error) {
	doc, err := p.fetch(ctx, articleURL)
	if err != nil {
		return "", mediaURLs{}, err
	}

	var paragraphs []string
	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text != "" && len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
	}

	base, _ := url.Parse(articleURL)
	media := extractMedia(doc, base)
	return cleanContent(strings.Join(paragraphs, "\n\n")), media, nil
}

func extractMedia(doc *goquery.Document, base *url.URL) mediaURLs {
	var media mediaURLs
	seen := make(map[string]bool)

	doc.Find("article img, .article-body img, .post-content img, figure img").Each(func(i int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		u := resolveURL(base, src)
		if u != "" && !seen[u] && len(media.images) < 5 {
			seen[u] = true
			media.images = append(media.images, u)
		}
	})

	doc.Find("video source[src], video[src], iframe[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		if goquery.NodeName(s) == "iframe" && !strings.Contains(src, "youtube") && !strings.Contains(src, "vimeo") {
			return
		}
		u := resolveURL(base, src)
		if u != "" && !seen[u] && len(media.videos) < 3 {
			seen[u] = true
			media.videos = append(media.videos, u)
		}
	})

	return media
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// Boilerplate that ends up in extracted paragraphs on most news sites.
var junkPhrases = []string{
	"Subscribe to our newsletter",
	"Sign up for our newsletter",
	"Read more:", "See also:", "Related:",
	"Share this article", "Follow us on",
	"Cookie", "Privacy Policy", "Terms of Service",
	"Log in", "Create account", "Advertisement",
}

func cleanContent(content string) string {
	if content == "" {
		return ""
	}

	for _, phrase := range junkPhrases {
		content = strings.ReplaceAll(content, phrase, "")
	}

	lines := strings.Split(content, "\n")
	var cleanLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) < 8 {
			continue
		}
		lower := strings.ToLower(line)
		junk := false
		for _, indicator := range []string{"cookie", "advertisement", "subscribe", "sign up", "follow us", "share this"} {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if !junk {
			cleanLines = append(cleanLines, line)
		}
	}

	result := strings.Join(cleanLines, "\n\n")
	for strings.Contains(result, "  ") {
		result = strings.ReplaceAll(result, "  ", " ")
	}
	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}
