// Package notify delivers the finished digest. Two sinks exist: a chat
// webhook for the daily digest message and a document store that gets one
// page per story. Sinks are independent; one failing does not stop the other.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ainews/internal/story"
)

// Digest is the final payload handed to sinks.
type Digest struct {
	Date    time.Time
	Stories []story.Story
	Note    string // non-empty when the run degraded and the content is partial
}

// Sink delivers a digest somewhere.
type Sink interface {
	Send(ctx context.Context, d Digest) error
	Name() string
}

// Placeholder builds the digest sent when a run produced nothing, so the
// channel still sees that the crawler ran.
func Placeholder(date time.Time, reason string) Digest {
	return Digest{
		Date: date,
		Note: fmt.Sprintf("오늘은 전달할 소식이 없습니다. (%s)", reason),
	}
}

var categoryEmoji = map[string]string{
	"모델 업데이트": "🤖",
	"연구 동향":   "🔬",
	"시장 동향":   "📈",
	"개발자 도구":  "🛠",
}

// FormatDigest renders the digest as the Korean chat message.
func FormatDigest(d Digest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📰 **AI 뉴스 다이제스트** (%s)\n\n", d.Date.Format("2006-01-02"))

	if len(d.Stories) == 0 {
		if d.Note != "" {
			sb.WriteString(d.Note)
		} else {
			sb.WriteString("오늘은 전달할 소식이 없습니다.")
		}
		return strings.TrimSpace(sb.String())
	}

	for i, st := range d.Stories {
		emoji := categoryEmoji[st.Category]
		if emoji == "" {
			emoji = "📌"
		}
		headline := st.HeadlineKo
		if headline == "" {
			headline = st.Headline
		}
		fmt.Fprintf(&sb, "%d. %s [%s] %s\n", i+1, emoji, st.Category, headline)
		if st.SummaryKo != "" {
			fmt.Fprintf(&sb, "   %s\n", st.SummaryKo)
		}
		for _, b := range st.BulletsKo {
			fmt.Fprintf(&sb, "   • %s\n", b)
		}
		if st.Link != "" {
			fmt.Fprintf(&sb, "   🔗 %s\n", st.Link)
		}
		sb.WriteString("\n")
	}

	if d.Note != "" {
		fmt.Fprintf(&sb, "⚠️ %s\n", d.Note)
	}
	return strings.TrimSpace(sb.String())
}

// chunkMessage splits text into pieces of at most max bytes, preferring line
// boundaries. A single line longer than max is hard-split.
func chunkMessage(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > max {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
				current.Reset()
			}
			cut := max
			for cut > 0 && line[cut]&0xC0 == 0x80 {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if current.Len() > 0 && current.Len()+len(line)+1 > max {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if trimmed := strings.TrimRight(current.String(), "\n"); trimmed != "" {
		chunks = append(chunks, trimmed)
	}
	return chunks
}
