package prompt

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/study-mentor/backend/internal/model/persona"
)

// SystemInstruction renders the fixed instruction the model receives with
// every exchange: the persona plus the guidance implied by the policy.
func SystemInstruction(p persona.Persona, policy Policy) string {
	rules := append([]string(nil), p.Rules...)
	rules = append(rules, greetingRule(policy.Greeting, p.OpeningLine))
	rules = append(rules, verbosityRule(policy.Verbosity))
	rules = append(rules, formattingRule(policy.Formatting))
	rules = append(rules, documentRule(policy.Document))

	return fmt.Sprintf(`You are a %s. %s

Persona:
- Tone: %s
- Traits: %s
- Expertise: %s

Conversation rules:
- %s`,
		p.Title,
		p.Description,
		p.Tone,
		strings.Join(p.Traits, ", "),
		strings.Join(p.Expertise, ", "),
		strings.Join(rules, "\n- "),
	)
}

func greetingRule(g GreetingPolicy, opening string) string {
	switch g {
	case GreetFixedPhrase:
		return fmt.Sprintf("Open the conversation with %q and do not address the user by name.", opening)
	default:
		return "Greet the user by their name once at the start of the conversation; do not repeat the greeting or their name in later replies."
	}
}

func verbosityRule(VerbosityPolicy) string {
	return "Answer basic and simple questions in one or two words or a single short sentence. Expand into a full explanation only when the user asks for more detail."
}

func formattingRule(f FormattingPolicy) string {
	switch f {
	case FormatPlainEmphasis:
		return "Do not use Markdown syntax. Write plain sentences and set key terms apart with quotes."
	default:
		return "Format answers with Markdown: short headings, bullet lists, **bold** key terms and fenced code blocks for code."
	}
}

func documentRule(d DocumentPolicy) string {
	switch d {
	case DocumentKeyword:
		return "Document content is supplied only when the user asks about their uploaded file; never guess what an unseen document says."
	default:
		return "When document content is supplied with a message, prefer it over general knowledge and say when it does not cover the question."
	}
}
