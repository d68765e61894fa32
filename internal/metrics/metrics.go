package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	StoriesScraped     int64
	StoriesKept        int64
	DuplicatesFiltered int64
	SourceFailures     int64
	CacheHits          int64
	CacheMisses        int64
	LLMCalls           int64
	LLMFailures        int64
	RepairedResponses  int64
	EmergencyResponses int64
	PayloadsSent       int64

	// Timings
	LastRunDuration time.Duration
	TotalRunTime    time.Duration
	RunCount        int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddStoriesScraped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoriesScraped += int64(n)
}

func (m *Metrics) AddStoriesKept(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StoriesKept += int64(n)
}

func (m *Metrics) IncrementDuplicatesFiltered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered++
}

func (m *Metrics) IncrementSourceFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SourceFailures++
}

func (m *Metrics) IncrementCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *Metrics) IncrementCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *Metrics) IncrementLLMCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMCalls++
}

func (m *Metrics) IncrementLLMFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LLMFailures++
}

func (m *Metrics) IncrementRepairedResponses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RepairedResponses++
}

func (m *Metrics) IncrementEmergencyResponses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmergencyResponses++
}

func (m *Metrics) IncrementPayloadsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PayloadsSent++
}

func (m *Metrics) RecordRun(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = duration
	m.TotalRunTime += duration
	m.RunCount++
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"stories_scraped":      m.StoriesScraped,
		"stories_kept":         m.StoriesKept,
		"duplicates_filtered":  m.DuplicatesFiltered,
		"source_failures":      m.SourceFailures,
		"cache_hits":           m.CacheHits,
		"cache_misses":         m.CacheMisses,
		"llm_calls":            m.LLMCalls,
		"llm_failures":         m.LLMFailures,
		"repaired_responses":   m.RepairedResponses,
		"emergency_responses":  m.EmergencyResponses,
		"payloads_sent":        m.PayloadsSent,
		"last_run_duration_ms": m.LastRunDuration.Milliseconds(),
		"run_count":            m.RunCount,
		"last_run_time":        m.LastRunTime.Format(time.RFC3339),
		"last_error_time":      m.LastErrorTime.Format(time.RFC3339),
		"last_error":           m.LastError,
		"is_healthy":           m.IsHealthy,
	}
}
