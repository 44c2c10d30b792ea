package enhance

import (
	"fmt"
	"strings"

	"enhancerd/internal/rules"
	"enhancerd/pkg/types"
)

// roleTags maps caller-facing role enumerations to rewriter style tags.
var roleTags = map[string]string{
	"casual_writer":       rules.TagCasual,
	"professional_editor": rules.TagProfessional,
	"creative_author":     rules.TagCreative,
	"technical_writer":    rules.TagConcise,
}

var knownTags = map[string]bool{
	rules.TagCasual:       true,
	rules.TagProfessional: true,
	rules.TagCreative:     true,
	rules.TagConcise:      true,
}

const defaultTag = rules.TagProfessional

// DeriveSystemPrompt deterministically derives the system-prompt string and
// the rewriter style tag from a style configuration. The prompt override wins
// for the prompt text; the tag is always derived so the fallback path still
// picks the right rule branch.
func DeriveSystemPrompt(cfg types.StyleConfig) (prompt, styleTag string) {
	styleTag = defaultTag
	if t, ok := roleTags[cfg.Role]; ok {
		styleTag = t
	}
	if knownTags[cfg.Style] {
		styleTag = cfg.Style
	}
	if cfg.PromptOverride != "" {
		return cfg.PromptOverride, styleTag
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the following note in a %s tone.", styleTag)
	if cfg.Focus != "" {
		fmt.Fprintf(&b, " Focus on %s.", cfg.Focus)
	}
	if cfg.MaxOutputChars > 0 {
		fmt.Fprintf(&b, " Keep it under %d characters.", cfg.MaxOutputChars)
	}
	return b.String(), styleTag
}

// clampOutput enforces the configured maximum output length.
func clampOutput(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= maxChars {
		return text
	}
	return string(r[:maxChars])
}
