package acquire

import (
	"fmt"
	"strings"
)

// RewriteRule derives an alternative source URL from the original. Rules are
// tried in order after the original URL fails; a rule that does not apply
// returns ok=false and is skipped.
type RewriteRule struct {
	Name  string
	Apply func(url string) (string, bool)
}

// ReplaceRule builds a rule that substitutes the first occurrence of a path
// fragment. Used for host-specific variants supplied via configuration.
func ReplaceRule(name, from, to string) RewriteRule {
	return RewriteRule{
		Name: name,
		Apply: func(url string) (string, bool) {
			if from == "" || !strings.Contains(url, from) {
				return "", false
			}
			return strings.Replace(url, from, to, 1), true
		},
	}
}

// RawContentRule derives a source-control raw-content URL from hub-style
// repository coordinates: host/{owner}/{repo}/resolve/{rev}/{path} becomes
// raw.githubusercontent.com/{owner}/{repo}/{rev}/{path}.
func RawContentRule() RewriteRule {
	return RewriteRule{
		Name: "raw-content",
		Apply: func(url string) (string, bool) {
			rest, ok := stripScheme(url)
			if !ok {
				return "", false
			}
			parts := strings.SplitN(rest, "/", 6)
			// host owner repo "resolve" rev path
			if len(parts) < 6 || parts[3] != "resolve" {
				return "", false
			}
			return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s",
				parts[1], parts[2], parts[4], parts[5]), true
		},
	}
}

func stripScheme(url string) (string, bool) {
	for _, p := range []string{"https://", "http://"} {
		if strings.HasPrefix(url, p) {
			return strings.TrimPrefix(url, p), true
		}
	}
	return "", false
}

// DefaultRewriteRules covers the known source hosts: nested asset sub-path
// swap, branch swap, and raw-content derivation.
func DefaultRewriteRules() []RewriteRule {
	return []RewriteRule{
		ReplaceRule("drop-onnx-subpath", "/onnx/", "/"),
		ReplaceRule("branch-main-to-master", "/main/", "/master/"),
		RawContentRule(),
	}
}

// candidates returns the ordered URL list to try: the original first, then
// each applicable rewrite, deduplicated.
func candidates(url string, rules []RewriteRule) []string {
	out := []string{url}
	seen := map[string]bool{url: true}
	for _, r := range rules {
		if alt, ok := r.Apply(url); ok && !seen[alt] {
			out = append(out, alt)
			seen[alt] = true
		}
	}
	return out
}
