package agent

import (
	"log/slog"
	"regexp"
	"strings"
)

// SanitizeReply cleans model output before it is evaluated or sent to an
// employer. Order matters: reasoning blocks go first so that wrapper tags
// and preambles inside them never reach the later steps.
func SanitizeReply(content string) string {
	if content == "" {
		return content
	}
	original := content

	content = stripThinkingTags(content)
	content = stripFinalTags(content)
	content = stripReplyPreamble(content)
	content = collapseConsecutiveDuplicateBlocks(content)
	content = stripWrappingQuotes(strings.TrimSpace(content))

	if content != original {
		slog.Debug("sanitized model reply",
			"original_len", len(original),
			"cleaned_len", len(content),
		)
	}
	return content
}

// Go regexp has no backreferences, so each tag gets its own pattern.
var thinkingTagPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?is)<thought>.*?</thought>`),
}

func stripThinkingTags(content string) string {
	lower := strings.ToLower(content)
	if !strings.Contains(lower, "<think") && !strings.Contains(lower, "<thought") {
		return content
	}
	for _, pat := range thinkingTagPatterns {
		content = pat.ReplaceAllString(content, "")
	}
	return strings.TrimSpace(content)
}

var finalTagPattern = regexp.MustCompile(`(?i)<\s*/?\s*final\s*>`)

func stripFinalTags(content string) string {
	if !strings.Contains(strings.ToLower(content), "final") {
		return content
	}
	return finalTagPattern.ReplaceAllString(content, "")
}

// replyPreamblePattern matches a leading label line some models emit before
// the message body, e.g. "Professional version:" or "Yanıt:".
var replyPreamblePattern = regexp.MustCompile(`(?i)^\s*(?:professional version|reply|response|yanıt|cevap)\s*:\s*\n?`)

func stripReplyPreamble(content string) string {
	return replyPreamblePattern.ReplaceAllString(content, "")
}

func collapseConsecutiveDuplicateBlocks(content string) string {
	blocks := strings.Split(content, "\n\n")
	if len(blocks) <= 1 {
		return content
	}

	var result []string
	for _, block := range blocks {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" {
			continue
		}
		if len(result) > 0 && trimmed == strings.TrimSpace(result[len(result)-1]) {
			continue
		}
		result = append(result, block)
	}
	return strings.Join(result, "\n\n")
}

// stripWrappingQuotes drops one pair of quotes around the whole reply.
func stripWrappingQuotes(content string) string {
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}} {
		if len(content) > len(q[0])+len(q[1]) &&
			strings.HasPrefix(content, q[0]) && strings.HasSuffix(content, q[1]) {
			inner := content[len(q[0]) : len(content)-len(q[1])]
			if !strings.Contains(inner, q[0]) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return content
}
