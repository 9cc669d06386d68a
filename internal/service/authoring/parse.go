package authoring

import (
	"regexp"
	"strings"
	"time"

	"github.com/zhouzirui/sirius-report/backend/internal/model/report"
)

const (
	unknownSentinel = report.UnknownValue
	headerLines     = 4
	titlePrefix     = "TITEL:"
	officerPrefix   = "BEAMTER:"
)

var markupPattern = regexp.MustCompile("(\\*{1,2}|#{1,6}|~{2}|`{1,3})")

// Clean strips markdown emphasis, headings, strike-through and code fences and
// trims surrounding whitespace. Applying it twice yields the same result.
func Clean(s string) string {
	for {
		next := markupPattern.ReplaceAllString(s, "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

// IsComplete reports whether an analysis response carries the completion phrase.
func IsComplete(response string) bool {
	return strings.Contains(strings.ToLower(response), completionPhrase)
}

// ParseQuestions splits an analysis response into non-empty trimmed lines.
func ParseQuestions(response string) []string {
	lines := strings.Split(Clean(response), "\n")
	questions := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			questions = append(questions, trimmed)
		}
	}
	return questions
}

// ParsedReport is the header/body split of a generated report.
type ParsedReport struct {
	Title   string
	Officer string
	Body    string
}

// ParseReport cleans raw model output, scans the first four lines for the
// TITEL and BEAMTER prefixes and joins the remaining lines into the body.
// Header lines are matched by prefix, not position.
func ParseReport(raw, defaultOfficer string) ParsedReport {
	if defaultOfficer == "" {
		defaultOfficer = report.DefaultOfficer
	}

	lines := strings.Split(Clean(raw), "\n")
	n := headerLines
	if len(lines) < n {
		n = len(lines)
	}
	header, rest := lines[:n], lines[n:]

	parsed := ParsedReport{
		Title:   headerValue(header, titlePrefix, report.DefaultTitle),
		Officer: headerValue(header, officerPrefix, defaultOfficer),
	}
	parsed.Body = strings.TrimSpace(strings.Join(rest, "\n"))
	return parsed
}

func headerValue(header []string, prefix, fallback string) string {
	for _, line := range header {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		if value := strings.TrimSpace(strings.TrimPrefix(line, prefix)); value != "" {
			return value
		}
		return fallback
	}
	return fallback
}

// ParseDate extracts an RFC 3339 timestamp from a single-line answer. The
// sentinel or anything unparseable yields nil.
func ParseDate(answer string) *time.Time {
	cleaned := Clean(answer)
	if cleaned == "" || strings.Contains(cleaned, unknownSentinel) {
		return nil
	}

	if t, err := time.Parse(time.RFC3339, cleaned); err == nil {
		return &t
	}
	for _, field := range strings.Fields(cleaned) {
		field = strings.Trim(field, ".,;:()[]\"'„“")
		if t, err := time.Parse(time.RFC3339, field); err == nil {
			return &t
		}
	}
	return nil
}

// ParseLocation returns the cleaned location or the sentinel.
func ParseLocation(answer string) string {
	cleaned := Clean(answer)
	if cleaned == "" || strings.Contains(cleaned, unknownSentinel) {
		return unknownSentinel
	}
	if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	return cleaned
}

// ParseKeywords splits a comma separated answer; the count is not enforced.
func ParseKeywords(answer string) []string {
	cleaned := Clean(answer)
	if cleaned == "" {
		return []string{}
	}
	return report.NormalizeTags(strings.Split(cleaned, ","))
}
