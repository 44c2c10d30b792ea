// Package rules is the deterministic, always-available text rewriter used as
// the guaranteed-success fallback. It is pure string transformation: no I/O,
// no state, no failure modes.
package rules

import (
	"regexp"
	"strings"
)

// Rewriter is the capability consumed by the orchestrator. Implementations
// must be pure; the orchestrator still guards the call defensively.
type Rewriter interface {
	Rewrite(text, styleTag string) string
}

// Style tags understood by the default engine.
const (
	TagCasual       = "casual"
	TagProfessional = "professional"
	TagCreative     = "creative"
	TagConcise      = "concise"
)

// Engine is the default rule set.
type Engine struct{}

var (
	multiSpace  = regexp.MustCompile(`[ \t]{2,}`)
	contraction = strings.NewReplacer(
		"can't", "cannot",
		"won't", "will not",
		"don't", "do not",
		"it's", "it is",
		"I'm", "I am",
	)
	fillerWords = regexp.MustCompile(`\b(really|very|just|basically|actually)\s+`)
	openers     = map[string][]string{
		TagCasual:   {"So, ", "Honestly, "},
		TagCreative: {"Picture this: ", "Here is a thought: "},
	}
)

func (Engine) Rewrite(text, styleTag string) string {
	out := multiSpace.ReplaceAllString(strings.TrimSpace(text), " ")
	switch styleTag {
	case TagProfessional:
		out = contraction.Replace(out)
		out = fillerWords.ReplaceAllString(out, "")
	case TagConcise:
		out = fillerWords.ReplaceAllString(out, "")
	case TagCasual, TagCreative:
		if out != "" {
			bank := openers[styleTag]
			// stable pick keyed on input length so output is reproducible
			out = bank[len(out)%len(bank)] + out
		}
	}
	return out
}
