// Package jsonx turns unreliable LLM text responses into usable structures.
// Models are asked for JSON but return truncated, over-escaped or otherwise
// broken text often enough that parsing must be a total function: a ladder of
// progressively harsher repairs ends in a regex-based emergency extraction
// that always yields a well-formed result.
package jsonx

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ainews/internal/classify"
	"ainews/internal/story"
)

// Grade records how hard the parser had to work. Callers use it to tell
// degraded output from clean output in logs and metrics.
type Grade int

const (
	Parsed Grade = iota
	Repaired
	Emergency
)

func (g Grade) String() string {
	switch g {
	case Parsed:
		return "parsed"
	case Repaired:
		return "repaired"
	default:
		return "emergency"
	}
}

// ExtractObject parses raw into a flat string map. Every name in fields is
// present in the result; unrecoverable fields hold "".
func ExtractObject(raw string, fields []string) (map[string]string, Grade) {
	var direct map[string]any
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return flatten(direct, fields), Parsed
	}

	if repaired, ok := repair(raw); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(repaired), &m); err == nil {
			return flatten(m, fields), Repaired
		}
	}

	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = fieldValue(raw, f)
	}
	return out, Emergency
}

type digestItem struct {
	Headline   string `json:"headline"`
	Link       string `json:"link"`
	DatePosted string `json:"date_posted"`
	Summary    string `json:"summary"`
	Category   string `json:"category"`
}

type digestList struct {
	Stories []digestItem `json:"stories"`
}

// ExtractStories parses raw as {"stories": [...]} and never fails on broken
// input: the emergency path assembles at least one entry from whatever
// fragments the text still holds, with the category resolved over the
// recovered text. Valid JSON is taken at face value, including an empty
// list when the model decided there is nothing to report.
func ExtractStories(raw string) ([]story.Story, Grade) {
	var direct digestList
	if err := json.Unmarshal([]byte(raw), &direct); err == nil {
		return toStories(direct.Stories), Parsed
	}

	if repaired, ok := repair(raw); ok {
		var list digestList
		if err := json.Unmarshal([]byte(repaired), &list); err == nil && len(list.Stories) > 0 {
			return toStories(list.Stories), Repaired
		}
	}

	return emergencyStories(raw), Emergency
}

func toStories(items []digestItem) []story.Story {
	out := make([]story.Story, 0, len(items))
	for _, it := range items {
		out = append(out, story.Story{
			Headline:   it.Headline,
			Link:       it.Link,
			DatePosted: it.DatePosted,
			SummaryKo:  it.Summary,
			Category:   string(classify.Classify(it.Category, it.Headline+" "+it.Summary)),
		})
	}
	return out
}

// repair applies the middle rungs of the ladder: brace windowing, URL quote
// fixes and bracket balancing first, then the generic syntax cleanups.
// It returns false only when there is no brace to anchor on at all.
func repair(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	var window string
	switch {
	case start < 0:
		return "", false
	case end > start:
		window = raw[start : end+1]
	default:
		// No closing brace: balancing will supply it.
		window = raw[start:]
	}

	candidate := balance(fixURLQuotes(window))
	if json.Valid([]byte(candidate)) {
		return candidate, true
	}

	candidate = balance(cleanupSyntax(fixURLQuotes(window)))
	return candidate, json.Valid([]byte(candidate))
}

// A URL-valued string missing its closing quote before a delimiter, e.g.
// {"link": "https://a.com/x, "next": ...}. Models truncate these a lot.
var unclosedURLRe = regexp.MustCompile(`("https?://[^"\s,}\]]+)([\s,}\]])`)

func fixURLQuotes(s string) string {
	return unclosedURLRe.ReplaceAllString(s, `$1"$2`)
}

var (
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	bareKeyRe       = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	strayBackslash  = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
)

func cleanupSyntax(s string) string {
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = bareKeyRe.ReplaceAllString(s, `$1"$2":`)
	s = strayBackslash.ReplaceAllString(s, `\\$1`)
	return s
}

// balance closes an unterminated string and any open braces/brackets, and
// drops a dangling key or comma left behind by truncation.
func balance(s string) string {
	inString := false
	escaped := false
	var stack []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	// A truncation like `..., "headline": ` or a trailing comma leaves the
	// object unclosable; trim back to the last complete value.
	s = strings.TrimRight(s, " \t\n\r")
	for {
		trimmed := strings.TrimRight(s, " \t\n\r")
		if strings.HasSuffix(trimmed, ":") {
			// Drop the dangling key string as well.
			if i := strings.LastIndexByte(trimmed[:len(trimmed)-1], '"'); i >= 0 {
				if j := lastStringStart(trimmed, i); j >= 0 {
					s = strings.TrimRight(strings.TrimSuffix(trimmed[:j], ","), " \t\n\r")
					continue
				}
			}
			s = strings.TrimSuffix(trimmed, ":")
			continue
		}
		if strings.HasSuffix(trimmed, ",") {
			s = trimmed[:len(trimmed)-1]
			continue
		}
		s = trimmed
		break
	}

	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}
	return s
}

// lastStringStart finds the opening quote of the string whose closing quote
// is at index end, or -1.
func lastStringStart(s string, end int) int {
	for i := end - 1; i >= 0; i-- {
		if s[i] == '"' && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}
	return -1
}

// fieldValue loosely matches `"field": "value"` in raw, tolerating missing
// quotes and truncation.
func fieldValue(raw, field string) string {
	re := regexp.MustCompile(`(?i)"?` + regexp.QuoteMeta(field) + `"?\s*[:=]\s*"([^"\n]*)`)
	if m := re.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func fieldValues(raw, field string) []string {
	re := regexp.MustCompile(`(?i)"?` + regexp.QuoteMeta(field) + `"?\s*[:=]\s*"([^"\n]*)`)
	var out []string
	for _, m := range re.FindAllStringSubmatch(raw, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

func emergencyStories(raw string) []story.Story {
	headlines := fieldValues(raw, "headline")
	links := fieldValues(raw, "link")
	dates := fieldValues(raw, "date_posted")
	summaries := fieldValues(raw, "summary")

	n := len(headlines)
	if n == 0 {
		n = 1
	}
	out := make([]story.Story, 0, n)
	for i := 0; i < n; i++ {
		s := story.Story{
			Headline:   pick(headlines, i),
			Link:       pick(links, i),
			DatePosted: pick(dates, i),
			SummaryKo:  pick(summaries, i),
		}
		if s.Headline == "" {
			s.Headline = "(제목을 복구하지 못했습니다)"
		}
		s.Category = string(classify.Classify("", s.Headline+" "+s.SummaryKo+" "+raw))
		out = append(out, s)
	}
	return out
}

func pick(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func flatten(m map[string]any, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		v, ok := m[f]
		if !ok || v == nil {
			out[f] = ""
			continue
		}
		switch t := v.(type) {
		case string:
			out[f] = t
		case float64:
			out[f] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[f] = fmt.Sprintf("%t", t)
		default:
			b, _ := json.Marshal(t)
			out[f] = string(b)
		}
	}
	return out
}
