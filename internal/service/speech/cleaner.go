// Package speech prepares model replies for speech synthesis.
package speech

import (
	"regexp"
	"strings"
)

var (
	codeFence   = regexp.MustCompile("(?s)```.*?```")
	inlineCode  = regexp.MustCompile("`([^`]*)`")
	mdLink      = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	bareURL     = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	emphasis    = regexp.MustCompile(`\*\*|__|~~`)
	singleStar  = regexp.MustCompile(`(^|\s)\*(\S[^*\n]*?)\*`)
	heading     = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*`)
	blockquote  = regexp.MustCompile(`(?m)^\s*>\s?`)
	bullet      = regexp.MustCompile(`(?m)^\s*[-*+•]\s+`)
	numbered    = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
	rule        = regexp.MustCompile(`(?m)^\s*([-*_])(\s*[-*_]){2,}\s*$`)
	emoji       = regexp.MustCompile(`[\x{1F000}-\x{1FAFF}\x{2600}-\x{27BF}\x{2B00}-\x{2BFF}\x{FE0F}\x{200D}\x{1F1E6}-\x{1F1FF}]`)
	blankLines  = regexp.MustCompile(`\n{2,}`)
	spaceRun    = regexp.MustCompile(`[ \t]+`)
	orphanPunct = regexp.MustCompile(`\s+([,.!?;:])`)
)

// Clean strips markdown and other non-speakable content from text. When name
// is non-empty, whole-word occurrences of it are removed as well.
func Clean(text, name string) string {
	out := codeFence.ReplaceAllString(text, " ")
	out = mdLink.ReplaceAllString(out, "$1")
	out = bareURL.ReplaceAllString(out, "")
	out = inlineCode.ReplaceAllString(out, "$1")
	out = rule.ReplaceAllString(out, "")
	out = heading.ReplaceAllString(out, "")
	out = blockquote.ReplaceAllString(out, "")
	out = bullet.ReplaceAllString(out, "")
	out = numbered.ReplaceAllString(out, "")
	out = emphasis.ReplaceAllString(out, "")
	out = singleStar.ReplaceAllString(out, "$1$2")
	out = emoji.ReplaceAllString(out, "")

	if name = strings.TrimSpace(name); name != "" {
		namePattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(name) + `\b`)
		out = namePattern.ReplaceAllString(out, "")
	}

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		line = spaceRun.ReplaceAllString(line, " ")
		line = orphanPunct.ReplaceAllString(line, "$1")
		lines[i] = strings.TrimSpace(line)
	}
	out = strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}
