// Package pipeline runs the LLM stages over a batch of stories: Korean
// translation, summarization and the final digest. Results are memoized in
// the TTL cache keyed by input text, uncached items run concurrently, and
// every per-item failure degrades to a placeholder instead of failing the
// batch.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"ainews/internal/cache"
	"ainews/internal/config"
	"ainews/internal/jsonx"
	"ainews/internal/llm"
	"ainews/internal/metrics"
	"ainews/internal/ratelimit"
	"ainews/internal/retry"
)

type Pipeline struct {
	completer llm.Completer
	cache     *cache.Cache
	limits    *ratelimit.Limiter
	cfg       *config.Config
}

func New(completer llm.Completer, c *cache.Cache, limits *ratelimit.Limiter, cfg *config.Config) *Pipeline {
	return &Pipeline{completer: completer, cache: c, limits: limits, cfg: cfg}
}

// batchResult is the outcome for one input, in input order.
type batchResult struct {
	raw    string
	fields map[string]string
	grade  jsonx.Grade
	err    error
}

// runBatch resolves one LLM stage for all inputs: cached entries are served
// from the TTL cache, the rest fan out to the provider with bounded
// concurrency, and everything merges back in input order.
func (p *Pipeline) runBatch(ctx context.Context, stage string, inputs []string, fields []string, build func(input string) llm.Request) []batchResult {
	results := make([]batchResult, len(inputs))

	type job struct {
		index int
		key   string
	}
	var jobs []job
	for i, input := range inputs {
		key := cache.Key(stage, normalize(input))
		if cached, ok := p.cache.Get(key); ok {
			if m, ok := cached.(map[string]string); ok {
				metrics.Global.IncrementCacheHits()
				p.limits.RecordCacheHit()
				results[i] = batchResult{fields: m, grade: jsonx.Parsed}
				continue
			}
		}
		metrics.Global.IncrementCacheMisses()
		jobs = append(jobs, job{index: i, key: key})
	}

	if len(jobs) == 0 {
		return results
	}

	concurrency := p.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := p.callOnce(ctx, build(inputs[j.index]), fields)
			if res.err == nil && res.grade != jsonx.Emergency {
				// Emergency output is degraded; caching it would pin the
				// degradation for the whole TTL.
				p.cache.Set(j.key, res.fields, p.cfg.CacheTTL)
			}
			results[j.index] = res
		}(j)
	}
	wg.Wait()

	return results
}

func (p *Pipeline) callOnce(ctx context.Context, req llm.Request, fields []string) batchResult {
	if err := p.limits.Use(p.completer.Name()); err != nil {
		return batchResult{err: err}
	}
	metrics.Global.IncrementLLMCalls()

	var raw string
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: p.cfg.RetryAttempts,
		BaseDelay:   p.cfg.RetryDelay,
		Retryable:   llm.Retryable,
	}, func() error {
		var callErr error
		raw, callErr = p.completer.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		metrics.Global.IncrementLLMFailures()
		return batchResult{err: err}
	}
	if fields == nil {
		// Caller parses the raw response itself.
		return batchResult{raw: raw}
	}

	parsed, grade := jsonx.ExtractObject(raw, fields)
	switch grade {
	case jsonx.Repaired:
		metrics.Global.IncrementRepairedResponses()
	case jsonx.Emergency:
		metrics.Global.IncrementEmergencyResponses()
	}
	return batchResult{raw: raw, fields: parsed, grade: grade}
}

// Truncate cuts s to maxChars runes, trying to end on a sentence.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	trimmed := string(runes[:maxChars])
	if idx := strings.LastIndex(trimmed, ". "); idx > maxChars/4 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func fallbackValue(m map[string]string, key, fallback string) string {
	if m != nil && strings.TrimSpace(m[key]) != "" {
		return strings.TrimSpace(m[key])
	}
	return fallback
}
