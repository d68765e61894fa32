package pipeline

import (
	"context"
	"fmt"

	"ainews/internal/llm"
	"ainews/internal/logger"
	"ainews/internal/story"
)

const summarizeSystem = `당신은 AI 뉴스 에디터입니다. 기술 독자를 위해 핵심만 간결하게 정리합니다.`

const summarizePrompt = `다음 기사를 요약하세요.

제목: %s

내용:
%s

JSON으로만 응답하세요:
{"summary": "<2-3문장 요약>", "bullet_1": "<핵심 포인트 1>", "bullet_2": "<핵심 포인트 2>", "bullet_3": "<핵심 포인트 3>"}`

var summarizeFields = []string{"summary", "bullet_1", "bullet_2", "bullet_3"}

const summarizeFallback = "(요약을 생성하지 못했습니다)"

// SummarizeAll fills SummaryKo and BulletsKo for every story, preferring the
// translated body as summarization input.
func (p *Pipeline) SummarizeAll(ctx context.Context, stories []story.Story) []story.Story {
	inputs := make([]string, len(stories))
	for i, st := range stories {
		body := st.ContentKo
		if body == "" || body == translateFallback {
			body = st.FullContent
		}
		if body == "" {
			body = st.Headline
		}
		headline := st.HeadlineKo
		if headline == "" {
			headline = st.Headline
		}
		inputs[i] = headline + "\n\n" + Truncate(body, p.cfg.SummarizeMaxChars)
	}

	results := p.runBatch(ctx, "summarize", inputs, summarizeFields, func(input string) llm.Request {
		headline, body, _ := cutInput(input)
		return llm.Request{
			System:      summarizeSystem,
			Prompt:      fmt.Sprintf(summarizePrompt, headline, body),
			Temperature: 0.4,
			JSONMode:    true,
		}
	})

	out := make([]story.Story, len(stories))
	for i, st := range stories {
		res := results[i]
		if res.err != nil {
			logger.Warn("summarization failed", "headline", st.Headline, "error", res.err)
			st.SummaryKo = summarizeFallback
			out[i] = st
			continue
		}
		st.SummaryKo = fallbackValue(res.fields, "summary", summarizeFallback)
		st.BulletsKo = nil
		for _, key := range []string{"bullet_1", "bullet_2", "bullet_3"} {
			if b := res.fields[key]; b != "" {
				st.BulletsKo = append(st.BulletsKo, b)
			}
		}
		out[i] = st
	}
	return out
}
