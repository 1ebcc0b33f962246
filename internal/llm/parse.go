package llm

import (
	"encoding/json"
	"strings"

	"github.com/daringdolphin/chemcheck/internal/model"
)

// ParseResult turns raw model output into a validated AnalysisResult.
// Models routinely wrap JSON in prose or code fences, or leave control
// characters unescaped inside string values, so parsing runs a sequence of
// repair attempts, each tried only if the previous one failed:
//
//  1. strip code fences, slice to the outermost {...}, parse as-is
//  2. escape control characters inside string values (string-aware scan)
//  3. coarse global newline/CR/tab escape over the outermost {...} of the
//     original text
//
// A result is valid only when both feedback sections are present with
// non-empty string content.
func ParseResult(raw string) (*model.AnalysisResult, error) {
	candidate := extractJSONSpan(raw)

	attempts := []string{
		candidate,
		escapeControlChars(candidate),
		coarseEscape(outerSpan(raw)),
	}

	var payload map[string]any
	parsed := false
	for _, s := range attempts {
		if s == "" {
			continue
		}
		if err := json.Unmarshal([]byte(s), &payload); err == nil {
			parsed = true
			break
		}
	}
	if !parsed {
		return nil, &Error{Kind: KindInvalidJSON, Message: "invalid JSON response from model"}
	}

	examSkills, ok1 := sectionContent(payload, "examSkills")
	conceptual, ok2 := sectionContent(payload, "conceptualUnderstanding")
	if !ok1 || !ok2 {
		return nil, &Error{Kind: KindInvalidStructure, Message: "response is missing examSkills or conceptualUnderstanding content"}
	}

	return &model.AnalysisResult{
		ExamSkills:              model.FeedbackSection{Content: examSkills},
		ConceptualUnderstanding: model.FeedbackSection{Content: conceptual},
	}, nil
}

func sectionContent(payload map[string]any, key string) (string, bool) {
	section, ok := payload[key].(map[string]any)
	if !ok {
		return "", false
	}
	content, ok := section["content"].(string)
	if !ok || content == "" {
		return "", false
	}
	return content, true
}

// extractJSONSpan strips markdown code fences and slices the text to the
// outermost JSON object.
func extractJSONSpan(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if strings.HasPrefix(cleaned, "```json") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(cleaned[len("```json") : len(cleaned)-3])
	} else if strings.HasPrefix(cleaned, "```") && strings.HasSuffix(cleaned, "```") {
		cleaned = strings.TrimSpace(cleaned[3 : len(cleaned)-3])
	}

	return outerSpan(cleaned)
}

// outerSpan slices from the first '{' to the last '}', or returns the
// input unchanged if no such span exists.
func outerSpan(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

// escapeControlChars walks the candidate text tracking whether the scanner
// is inside a quoted string (respecting backslash escapes) and rewrites
// raw control characters inside strings into their JSON escape sequences.
// Text outside strings passes through untouched. This fixes the specific
// failure mode of unescaped control characters inside otherwise
// well-formed JSON; a lenient parser would paper over other defects too.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			b.WriteRune(r)
			escaped = true
			continue
		}
		if r == '"' {
			inString = !inString
			b.WriteRune(r)
			continue
		}
		if inString {
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			default:
				b.WriteRune(r)
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var coarseReplacer = strings.NewReplacer(
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// coarseEscape is the last-resort repair: escape every newline, carriage
// return and tab regardless of string boundaries.
func coarseEscape(s string) string {
	return coarseReplacer.Replace(s)
}
