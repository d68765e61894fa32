// Package ratelimit caps how many LLM requests a run may spend per provider.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"ainews/internal/logger"
)

type Limiter struct {
	mu          sync.Mutex
	openaiCount int
	geminiCount int
	totalCount  int
	maxOpenAI   int
	maxGemini   int
	maxTotal    int
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
}

// New creates a limiter; a zero max means unlimited for that bucket.
// Counters reset daily.
func New(maxOpenAI, maxGemini, maxTotal int) *Limiter {
	return &Limiter{
		maxOpenAI: maxOpenAI,
		maxGemini: maxGemini,
		maxTotal:  maxTotal,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// Allow reports whether one more request to provider fits the budget.
func (rl *Limiter) Allow(provider string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	count, max := rl.bucket(provider)
	if max > 0 && count >= max {
		logger.Warn("LLM provider budget reached", "provider", provider, "used", count, "limit", max)
		return false
	}
	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		logger.Warn("total LLM budget reached", "used", rl.totalCount, "limit", rl.maxTotal)
		return false
	}
	return true
}

// Use consumes one request from provider's budget.
func (rl *Limiter) Use(provider string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.checkReset()

	count, max := rl.bucket(provider)
	if max > 0 && count >= max {
		return fmt.Errorf("%s request budget exceeded (%d/%d)", provider, count, max)
	}
	if rl.maxTotal > 0 && rl.totalCount >= rl.maxTotal {
		return fmt.Errorf("total LLM request budget exceeded (%d/%d)", rl.totalCount, rl.maxTotal)
	}

	switch provider {
	case "gemini":
		rl.geminiCount++
	default:
		rl.openaiCount++
	}
	rl.totalCount++
	rl.cacheMisses++

	return nil
}

// RecordCacheHit accounts for a request we did not have to spend.
func (rl *Limiter) RecordCacheHit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.cacheHits++
}

// HitRate returns the cache hit percentage for this budget window.
func (rl *Limiter) HitRate() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.hitRateLocked()
}

func (rl *Limiter) hitRateLocked() float64 {
	total := rl.cacheHits + rl.cacheMisses
	if total == 0 {
		return 0
	}
	return float64(rl.cacheHits) / float64(total) * 100
}

func (rl *Limiter) Stats() map[string]interface{} {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]interface{}{
		"openai_used":    rl.openaiCount,
		"openai_limit":   rl.maxOpenAI,
		"gemini_used":    rl.geminiCount,
		"gemini_limit":   rl.maxGemini,
		"total_used":     rl.totalCount,
		"total_limit":    rl.maxTotal,
		"cache_hits":     rl.cacheHits,
		"cache_misses":   rl.cacheMisses,
		"cache_hit_rate": rl.hitRateLocked(),
		"reset_time":     rl.resetTime,
	}
}

func (rl *Limiter) bucket(provider string) (count, max int) {
	if provider == "gemini" {
		return rl.geminiCount, rl.maxGemini
	}
	return rl.openaiCount, rl.maxOpenAI
}

func (rl *Limiter) checkReset() {
	if time.Now().After(rl.resetTime) {
		logger.Info("resetting LLM budget counters",
			"openai_used", rl.openaiCount, "gemini_used", rl.geminiCount, "hit_rate", rl.hitRateLocked())
		rl.openaiCount = 0
		rl.geminiCount = 0
		rl.totalCount = 0
		rl.cacheHits = 0
		rl.cacheMisses = 0
		rl.resetTime = time.Now().Add(24 * time.Hour)
	}
}
