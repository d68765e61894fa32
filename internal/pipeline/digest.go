package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ainews/internal/jsonx"
	"ainews/internal/llm"
	"ainews/internal/logger"
	"ainews/internal/metrics"
	"ainews/internal/story"
)

const digestSystem = `당신은 AI 뉴스 큐레이터입니다. 오늘의 주요 소식을 엄선해 구조화된 다이제스트를 만듭니다.`

const digestPrompt = `아래는 오늘 수집된 AI 뉴스 요약입니다. 중요도 순으로 최대 %d건을 골라 다이제스트를 만드세요.

%s

JSON으로만 응답하세요:
{"stories": [{"headline": "<한국어 제목>", "link": "<원문 링크>", "date_posted": "<게시 시점>", "summary": "<한 문장 요약>", "category": "<모델 업데이트|연구 동향|시장 동향|개발자 도구 중 하나>"}]}`

// maxDigestStories caps the final digest length.
const maxDigestStories = 10

// Digest asks the model to rank and condense the processed stories into the
// final structured digest. When the call fails the digest is assembled
// locally from the per-story summaries, so a digest always comes out.
func (p *Pipeline) Digest(ctx context.Context, stories []story.Story) ([]story.Story, jsonx.Grade) {
	if len(stories) == 0 {
		return nil, jsonx.Parsed
	}

	res := p.callOnce(ctx, llm.Request{
		System:      digestSystem,
		Prompt:      fmt.Sprintf(digestPrompt, maxDigestStories, formatDigestInput(stories)),
		Temperature: 0.2,
		JSONMode:    true,
	}, nil)
	if res.err != nil {
		logger.Warn("digest generation failed, assembling locally", "error", res.err)
		return localDigest(stories), jsonx.Emergency
	}

	items, grade := jsonx.ExtractStories(res.raw)
	if len(items) == 0 {
		// The model dropped every story; the run already decided they
		// are worth publishing.
		logger.Warn("digest came back empty, assembling locally")
		return localDigest(stories), jsonx.Emergency
	}
	if len(items) > maxDigestStories {
		items = items[:maxDigestStories]
	}
	switch grade {
	case jsonx.Repaired:
		metrics.Global.IncrementRepairedResponses()
	case jsonx.Emergency:
		metrics.Global.IncrementEmergencyResponses()
	}
	return items, grade
}

func formatDigestInput(stories []story.Story) string {
	var sb strings.Builder
	for i, st := range stories {
		headline := st.HeadlineKo
		if headline == "" {
			headline = st.Headline
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, headline)
		fmt.Fprintf(&sb, "   링크: %s\n", st.Link)
		fmt.Fprintf(&sb, "   게시: %s\n", st.DatePosted)
		if st.SummaryKo != "" && st.SummaryKo != summarizeFallback {
			fmt.Fprintf(&sb, "   요약: %s\n", st.SummaryKo)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func localDigest(stories []story.Story) []story.Story {
	n := len(stories)
	if n > maxDigestStories {
		n = maxDigestStories
	}
	out := make([]story.Story, n)
	copy(out, stories[:n])
	return out
}
