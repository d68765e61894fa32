package aggregate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"ainews/internal/story"
)

// seenEntry records one story that already went out.
type seenEntry struct {
	Hash     string    `json:"hash"`
	Headline string    `json:"headline"`
	Link     string    `json:"link"`
	SentAt   time.Time `json:"sent_at"`
}

// SeenLog is a JSON-file-backed record of delivered stories, used to keep
// reruns from sending the same story twice.
type SeenLog struct {
	filePath string
	ttl      time.Duration
	now      func() time.Time
	items    map[string]seenEntry
	mu       sync.RWMutex
}

func NewSeenLog(filePath string, ttl time.Duration) *SeenLog {
	return &SeenLog{
		filePath: filePath,
		ttl:      ttl,
		now:      time.Now,
		items:    make(map[string]seenEntry),
	}
}

// Load reads the log from disk, dropping expired entries. A missing file is
// an empty log.
func (sl *SeenLog) Load() error {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	data, err := os.ReadFile(sl.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seen log: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []seenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal seen log: %w", err)
	}

	cutoff := sl.now().Add(-sl.ttl)
	for _, e := range entries {
		if e.SentAt.After(cutoff) {
			sl.items[e.Hash] = e
		}
	}
	return nil
}

func (sl *SeenLog) Save() error {
	sl.mu.RLock()
	entries := make([]seenEntry, 0, len(sl.items))
	for _, e := range sl.items {
		entries = append(entries, e)
	}
	sl.mu.RUnlock()

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seen log: %w", err)
	}
	if err := os.WriteFile(sl.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write seen log: %w", err)
	}
	return nil
}

// Seen reports whether the story was already delivered within the TTL.
func (sl *SeenLog) Seen(st story.Story) bool {
	hash := storyHash(st)

	sl.mu.RLock()
	defer sl.mu.RUnlock()

	entry, ok := sl.items[hash]
	if !ok {
		return false
	}
	return entry.SentAt.After(sl.now().Add(-sl.ttl))
}

// Mark records a delivered story.
func (sl *SeenLog) Mark(st story.Story) {
	hash := storyHash(st)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	sl.items[hash] = seenEntry{
		Hash:     hash,
		Headline: st.Headline,
		Link:     st.Link,
		SentAt:   sl.now(),
	}
}

// storyHash keys a story by normalized headline plus domain, so the same
// story reposted under a slightly different URL still matches.
func storyHash(st story.Story) string {
	normalized := strings.ToLower(strings.TrimSpace(st.Headline))
	normalized = strings.Join(strings.Fields(normalized), " ")

	h := sha256.New()
	h.Write([]byte(normalized + "|" + story.NormalizedDomain(st.Link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
