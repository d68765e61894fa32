package pipeline

import (
	"context"
	"fmt"

	"ainews/internal/classify"
	"ainews/internal/llm"
	"ainews/internal/logger"
	"ainews/internal/story"
)

const translateSystem = `당신은 AI/기술 뉴스 전문 번역가입니다. 영어 기사를 자연스러운 한국어로 번역합니다.
회사명, 제품명, 모델명은 원문 그대로 유지합니다. "~라는 소식입니다" 같은 군더더기 표현은 쓰지 않습니다.`

const translatePrompt = `다음 기사를 한국어로 번역하고 분류하세요.

제목: %s

본문:
%s

JSON으로만 응답하세요:
{"headline_ko": "<한국어 제목>", "content_ko": "<한국어 본문>", "category": "<모델 업데이트|연구 동향|시장 동향|개발자 도구 중 하나>"}`

var translateFields = []string{"headline_ko", "content_ko", "category"}

const translateFallback = "(번역을 생성하지 못했습니다)"

// TranslateAll fills HeadlineKo, ContentKo and Category for every story.
// Items that fail keep the original headline and a placeholder body, so the
// batch always comes back complete and in order.
func (p *Pipeline) TranslateAll(ctx context.Context, stories []story.Story) []story.Story {
	inputs := make([]string, len(stories))
	for i, st := range stories {
		body := st.FullContent
		if body == "" {
			body = st.Headline
		}
		inputs[i] = st.Headline + "\n\n" + Truncate(body, p.cfg.TranslateMaxChars)
	}

	results := p.runBatch(ctx, "translate", inputs, translateFields, func(input string) llm.Request {
		headline, body, _ := cutInput(input)
		return llm.Request{
			System:      translateSystem,
			Prompt:      fmt.Sprintf(translatePrompt, headline, body),
			Temperature: 0.3,
			JSONMode:    true,
		}
	})

	out := make([]story.Story, len(stories))
	for i, st := range stories {
		res := results[i]
		if res.err != nil {
			logger.Warn("translation failed", "headline", st.Headline, "error", res.err)
			st.HeadlineKo = st.Headline
			st.ContentKo = translateFallback
			st.Category = string(classify.Classify("", st.Headline+" "+st.FullContent))
			out[i] = st
			continue
		}
		st.HeadlineKo = fallbackValue(res.fields, "headline_ko", st.Headline)
		st.ContentKo = fallbackValue(res.fields, "content_ko", translateFallback)
		st.Category = string(classify.Classify(res.fields["category"], st.Headline+" "+st.FullContent))
		out[i] = st
	}
	return out
}

// cutInput splits the batch input back into headline and body. The input was
// assembled as headline, blank line, body.
func cutInput(input string) (headline, body string, ok bool) {
	for i := 0; i+1 < len(input); i++ {
		if input[i] == '\n' && input[i+1] == '\n' {
			return input[:i], input[i+2:], true
		}
	}
	return input, input, false
}
