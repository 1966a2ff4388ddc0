package harvest

import (
	"fmt"
	"regexp"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

// SuggestPattern turns highlighted text into a reusable pattern:
// literal characters are escaped and digit runs become \d+.
func SuggestPattern(selection string) (string, error) {
	s := strings.TrimSpace(selection)
	if s == "" {
		return "", fmt.Errorf("selection is empty")
	}
	quoted := regexp.QuoteMeta(s)
	return `\b` + digitRun.ReplaceAllString(quoted, `\d+`) + `\b`, nil
}

// Match is one pattern hit inside a sample text.
type Match struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// TestPattern compiles pattern the way the harvester does and returns all matches in sample.
func TestPattern(pattern, sample string) ([]Match, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	matches := make([]Match, 0)
	for _, loc := range re.FindAllStringIndex(sample, -1) {
		matches = append(matches, Match{Text: sample[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return matches, nil
}
