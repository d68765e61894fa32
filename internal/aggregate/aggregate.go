// Package aggregate runs the crawl: sources are scraped one at a time with
// a randomized pause between them, stories are filtered for freshness and
// deduplicated per domain across all sources.
package aggregate

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"ainews/internal/config"
	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/recency"
	"ainews/internal/scraper"
	"ainews/internal/story"
)

// Collector gathers stories from all configured sources. Sources run
// strictly one after another; crawl targets tend to rate limit, and the
// pause between sources keeps the crawler polite.
type Collector struct {
	cfg        *config.Config
	scraperFor func(config.Source) scraper.Scraper
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
	rnd        *rand.Rand
	seen       *SeenLog
}

type Option func(*Collector)

// WithScraperFunc overrides how a source is turned into a scraper.
func WithScraperFunc(fn func(config.Source) scraper.Scraper) Option {
	return func(c *Collector) { c.scraperFor = fn }
}

// WithSleep overrides the inter-source pause, letting tests skip real waits.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Collector) { c.sleep = fn }
}

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithRand overrides the delay randomness.
func WithRand(rnd *rand.Rand) Option {
	return func(c *Collector) { c.rnd = rnd }
}

// WithSeenLog filters out stories already delivered on a previous run.
func WithSeenLog(seen *SeenLog) Option {
	return func(c *Collector) { c.seen = seen }
}

func New(cfg *config.Config, opts ...Option) *Collector {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	c := &Collector{
		cfg: cfg,
		scraperFor: func(src config.Source) scraper.Scraper {
			return scraper.ForSource(src, client)
		},
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
		now: time.Now,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect scrapes every source and returns fresh, deduplicated stories.
// A failing source is logged and skipped; the error is non-nil only when
// every source failed or the context was cancelled.
func (c *Collector) Collect(ctx context.Context, sources []config.Source) ([]story.Story, error) {
	var (
		kept     []story.Story
		failures int
	)
	// Winner index per normalized domain, for the cross-source dedup.
	byDomain := make(map[string]int)

	for i, src := range sources {
		if i > 0 {
			if err := c.sleep(ctx, c.delay()); err != nil {
				return kept, err
			}
		}

		raw, err := c.scraperFor(src).Scrape(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return kept, ctx.Err()
			}
			failures++
			metrics.Global.IncrementSourceFailures()
			logger.Warn("source failed", "source", sourceName(src), "error", err)
			continue
		}
		metrics.Global.AddStoriesScraped(len(raw))

		fresh := c.filterFresh(src, raw)
		logger.Info("source scraped",
			"source", sourceName(src), "items", len(raw), "fresh", len(fresh))

		for _, st := range fresh {
			if c.seen != nil && c.seen.Seen(st) {
				metrics.Global.IncrementDuplicatesFiltered()
				continue
			}
			if c.cfg.DisableDomainDedup {
				kept = append(kept, st)
				continue
			}

			domain := story.NormalizedDomain(st.Link)
			if j, ok := byDomain[domain]; ok {
				// Same domain seen before: the more recent story wins, in
				// the earlier story's position.
				if recency.Rank(st.DatePosted, c.now()) < recency.Rank(kept[j].DatePosted, c.now()) {
					kept[j] = st
				}
				metrics.Global.IncrementDuplicatesFiltered()
				continue
			}
			byDomain[domain] = len(kept)
			kept = append(kept, st)
		}
	}

	metrics.Global.AddStoriesKept(len(kept))

	if failures == len(sources) && len(sources) > 0 {
		return nil, fmt.Errorf("all %d sources failed", len(sources))
	}
	return kept, nil
}

// filterFresh applies the source's freshness window. A source where nothing
// passes still contributes its single most recent story, as long as that
// story is younger than the fallback ceiling; going quiet entirely usually
// means the date format changed, not that the source died.
func (c *Collector) filterFresh(src config.Source, raw []story.RawStory) []story.Story {
	window := c.cfg.TimeframeFor(src)
	now := c.now()

	var fresh []story.Story
	for _, r := range raw {
		if recency.IsRecentAt(r.DatePosted, window, now) {
			fresh = append(fresh, story.FromRaw(r))
		}
	}
	if len(fresh) > 0 || len(raw) == 0 {
		return fresh
	}

	best := -1
	bestRank := recency.Rank("", now)
	for i, r := range raw {
		if rank := recency.Rank(r.DatePosted, now); rank < bestRank {
			best = i
			bestRank = rank
		}
	}
	if best < 0 || bestRank > float64(c.cfg.FallbackMaxAgeHours) {
		return nil
	}
	logger.Warn("no fresh stories, falling back to most recent",
		"source", sourceName(src), "age_hours", bestRank)
	return []story.Story{story.FromRaw(raw[best])}
}

func (c *Collector) delay() time.Duration {
	min, max := c.cfg.MinSourceDelay, c.cfg.MaxSourceDelay
	if max <= min {
		return min
	}
	return min + time.Duration(c.rnd.Int63n(int64(max-min)))
}

func sourceName(src config.Source) string {
	if src.Name != "" {
		return src.Name
	}
	return src.URL
}
