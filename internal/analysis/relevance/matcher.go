package relevance

import (
	"strings"
)

// Vocabulary is the fixed keyword list that marks a message as being about
// the uploaded document.
var Vocabulary = []string{"file", "document", "content", "text", "read", "uploaded"}

// Decision reports whether a message refers to the uploaded document.
type Decision struct {
	Related bool
	Matches []string
}

// Matcher checks messages against a keyword vocabulary.
type Matcher struct {
	keywords []string
}

// NewMatcher builds a matcher; with no keywords it uses Vocabulary.
func NewMatcher(keywords ...string) *Matcher {
	if len(keywords) == 0 {
		keywords = Vocabulary
	}
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &Matcher{keywords: normalized}
}

// Analyze matches keywords as case-insensitive substrings, so "reading" and
// "files" count as well.
func (m *Matcher) Analyze(message string) Decision {
	normalized := strings.ToLower(message)
	if strings.TrimSpace(normalized) == "" {
		return Decision{}
	}

	var matches []string
	for _, word := range m.keywords {
		if strings.Contains(normalized, word) {
			matches = append(matches, word)
		}
	}
	return Decision{Related: len(matches) > 0, Matches: matches}
}
