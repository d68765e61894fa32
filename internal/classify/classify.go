// Package classify buckets news text into the fixed notification categories.
package classify

import (
	"regexp"
	"strings"
)

// Category is one of the fixed labels the notification sinks accept.
type Category string

const (
	ModelUpdate    Category = "모델 업데이트"
	Research       Category = "연구 동향"
	Market         Category = "시장 동향"
	DeveloperTools Category = "개발자 도구"
)

// DefaultCategory is returned when nothing in the text matches any lexicon.
const DefaultCategory = Research

// AllCategories returns the valid categories in declaration order.
// Ties break toward the earlier category.
func AllCategories() []Category {
	return []Category{ModelUpdate, Research, Market, DeveloperTools}
}

// Keyword lexicons mix Korean terms with the English terms the crawled
// sources actually use. Matching is case-insensitive substring counting.
var categoryKeywords = map[Category][]string{
	ModelUpdate: {
		"새로운 모델", "성능 향상", "추론 속도", "파라미터", "파인튜닝",
		"컨텍스트 길이", "다중모달", "오픈 웨이트",
		"new model", "model release", "releases", "release", "launch", "launches",
		"fine-tun", "context window", "multimodal", "weights", "inference speed",
		"model", "version", "gpt", "claude", "gemini", "llama",
	},
	Research: {
		"논문", "연구 결과", "방법론", "벤치마크", "실험 결과", "알고리즘",
		"데이터셋", "평가 지표",
		"paper", "research", "study", "benchmark", "method", "dataset",
		"experiment", "evaluation", "findings", "novel approach",
	},
	Market: {
		"시장 점유율", "투자", "인수", "합병", "펀딩", "기업 가치", "제품 출시",
		"사업 전략",
		"funding", "investment", "acquisition", "acquires", "merger", "valuation",
		"raises", "series a", "series b", "ipo", "revenue", "partnership",
	},
	DeveloperTools: {
		"툴킷", "프레임워크", "라이브러리", "개발 환경", "플러그인", "배포 도구",
		"sdk", "api", "toolkit", "framework", "library", "plugin", "cli",
		"open source", "github", "developer",
	},
}

// Short ASCII tokens ("api", "cli", "ipo") match on word boundaries only,
// so "capital" does not count as "api". Longer keywords use substring counts.
var shortTokenRe = func() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp)
	for _, keywords := range categoryKeywords {
		for _, kw := range keywords {
			if len(kw) <= 3 && kw == strings.ToLower(kw) && isASCII(kw) {
				res[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
		}
	}
	return res
}()

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Valid reports whether label is a member of the closed category set.
func Valid(label string) bool {
	for _, cat := range AllCategories() {
		if string(cat) == label {
			return true
		}
	}
	return false
}

// Classify returns the best category for text. An existing valid label passes
// through untouched; all-zero scores fall back to DefaultCategory.
func Classify(existing, text string) Category {
	if Valid(existing) {
		return Category(existing)
	}

	lower := strings.ToLower(text)

	best := DefaultCategory
	bestScore := 0
	for _, cat := range AllCategories() {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if re, ok := shortTokenRe[kw]; ok {
				score += len(re.FindAllStringIndex(lower, -1))
				continue
			}
			score += strings.Count(lower, kw)
		}
		// Strictly greater: earlier declaration wins ties.
		if score > bestScore {
			bestScore = score
			best = cat
		}
	}

	return best
}
