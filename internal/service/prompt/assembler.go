package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/study-mentor/backend/internal/analysis/relevance"
	"github.com/zhouzirui/study-mentor/backend/internal/model/chat"
)

// Attachment is the session's uploaded document. Text may be left empty when
// WantsDocument reports the document would not be used.
type Attachment struct {
	Filename string
	Text     string
}

// Prompt is the assembled content of the outgoing turn.
type Prompt struct {
	Text             string
	DocumentIncluded bool
	Truncated        bool
}

// Assembler merges profile, document and message into one bounded prompt.
type Assembler struct {
	policy  Policy
	matcher *relevance.Matcher
}

// NewAssembler validates policy and returns an assembler.
func NewAssembler(policy Policy) (*Assembler, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{policy: policy, matcher: relevance.NewMatcher()}, nil
}

// Policy returns the policy the assembler was built with.
func (a *Assembler) Policy() Policy {
	return a.policy
}

// WantsDocument reports whether a document would be spliced into the prompt
// for message. Callers use it to skip extraction when it would be discarded.
func (a *Assembler) WantsDocument(message string) bool {
	switch a.policy.Document {
	case DocumentKeyword:
		return a.matcher.Analyze(message).Related
	default:
		return true
	}
}

// Assemble builds the prompt sent as the new turn. The raw message, not this
// prompt, is what gets recorded in history.
func (a *Assembler) Assemble(profile chat.Profile, attachment *Attachment, message string) Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "User context: the user's name is %s and their age is %s.\n\n", profile.Name, profile.Age)

	hasDocument := attachment != nil && attachment.Filename != ""
	wanted := hasDocument && a.WantsDocument(message)
	include := wanted && strings.TrimSpace(attachment.Text) != ""
	if include {
		fmt.Fprintf(&b, "Uploaded document %q:\n", attachment.Filename)
		b.WriteString("<document>\n")
		b.WriteString(attachment.Text)
		b.WriteString("\n</document>\n\n")
	}

	b.WriteString("User message: ")
	b.WriteString(message)
	b.WriteString("\n\n")

	switch {
	case include:
		b.WriteString("Instruction: use the uploaded document content above to answer the user's message where it is relevant. ")
		b.WriteString("If the document does not cover the question, say so briefly and answer from general knowledge.")
	case wanted:
		fmt.Fprintf(&b, "Instruction: the uploaded document %q contains no readable text; tell the user if they ask about it and answer from general knowledge.", attachment.Filename)
	case hasDocument:
		fmt.Fprintf(&b, "Instruction: the user has uploaded %q, but this message does not appear to be about it. ", attachment.Filename)
		b.WriteString("Answer normally and do not invent details about the document.")
	default:
		b.WriteString("Instruction: no document content is supplied; answer from general knowledge.")
	}

	text, truncated := Truncate(b.String(), a.policy.MaxChars)
	return Prompt{Text: text, DocumentIncluded: include, Truncated: truncated}
}

// Truncate cuts s to at most max characters, ending with TruncationMarker
// when anything was removed. The cut is not paragraph-aware.
func Truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	keep := max - utf8.RuneCountInString(TruncationMarker)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + TruncationMarker, true
}
