package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DocumentPolicy decides when uploaded document text joins the prompt.
type DocumentPolicy string

const (
	// DocumentAlways includes the document with every message.
	DocumentAlways DocumentPolicy = "always"
	// DocumentKeyword includes it only when the message mentions the document.
	DocumentKeyword DocumentPolicy = "keyword"
)

// GreetingPolicy controls how the tutor opens a conversation.
type GreetingPolicy string

const (
	GreetOnceByName  GreetingPolicy = "once-by-name"
	GreetFixedPhrase GreetingPolicy = "fixed-phrase"
)

// VerbosityPolicy controls answer length.
type VerbosityPolicy string

const (
	VerbosityTerseThenExpand VerbosityPolicy = "terse-then-expand"
)

// FormattingPolicy controls the markup the tutor answers in.
type FormattingPolicy string

const (
	FormatMarkdown      FormattingPolicy = "markdown"
	FormatPlainEmphasis FormattingPolicy = "plain-emphasis"
)

const (
	DefaultMaxChars  = 30000
	TruncationMarker = "... (content truncated)"
)

// Policy is selected once at startup and shapes every prompt.
type Policy struct {
	Document   DocumentPolicy
	Greeting   GreetingPolicy
	Verbosity  VerbosityPolicy
	Formatting FormattingPolicy
	MaxChars   int
}

// DefaultPolicy mirrors the behaviour the service has always had.
func DefaultPolicy() Policy {
	return Policy{
		Document:   DocumentAlways,
		Greeting:   GreetOnceByName,
		Verbosity:  VerbosityTerseThenExpand,
		Formatting: FormatMarkdown,
		MaxChars:   DefaultMaxChars,
	}
}

// ParsePolicy builds a policy from configuration strings. Empty values keep
// the defaults.
func ParsePolicy(document, greeting, verbosity, formatting string, maxChars int) (Policy, error) {
	p := DefaultPolicy()
	if v := normalize(document); v != "" {
		p.Document = DocumentPolicy(v)
	}
	if v := normalize(greeting); v != "" {
		p.Greeting = GreetingPolicy(v)
	}
	if v := normalize(verbosity); v != "" {
		p.Verbosity = VerbosityPolicy(v)
	}
	if v := normalize(formatting); v != "" {
		p.Formatting = FormattingPolicy(v)
	}
	if maxChars > 0 {
		p.MaxChars = maxChars
	}
	return p, p.Validate()
}

// Validate rejects unknown options and budgets too small for the marker.
func (p Policy) Validate() error {
	switch p.Document {
	case DocumentAlways, DocumentKeyword:
	default:
		return fmt.Errorf("invalid document policy %q (want always or keyword)", p.Document)
	}
	switch p.Greeting {
	case GreetOnceByName, GreetFixedPhrase:
	default:
		return fmt.Errorf("invalid greeting policy %q (want once-by-name or fixed-phrase)", p.Greeting)
	}
	switch p.Verbosity {
	case VerbosityTerseThenExpand:
	default:
		return fmt.Errorf("invalid verbosity policy %q (want terse-then-expand)", p.Verbosity)
	}
	switch p.Formatting {
	case FormatMarkdown, FormatPlainEmphasis:
	default:
		return fmt.Errorf("invalid formatting policy %q (want markdown or plain-emphasis)", p.Formatting)
	}
	if p.MaxChars <= utf8.RuneCountInString(TruncationMarker) {
		return fmt.Errorf("prompt budget %d is too small, must exceed %d characters", p.MaxChars, utf8.RuneCountInString(TruncationMarker))
	}
	return nil
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
