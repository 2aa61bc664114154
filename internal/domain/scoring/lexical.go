package scoring

import (
	"regexp"
	"strings"
)

var (
	reNum  = regexp.MustCompile(`\b\d+(?:[\.,]\d+)?\b`)
	reHook = regexp.MustCompile(`(?i)\b(important|key|secret|mistake|never|always|here\s+is\s+why|remember)\b`)
	reHow  = regexp.MustCompile(`(?i)\b(how\s+to|step\s+\d+|first|second|third|do\s+this)\b`)
)

// LexicalDensity is the embedding-free stand-in for the semantic signal:
// a cheap, deterministic heuristic over numbers, how-to phrasing and hook
// wording, normalized to [0,1].
func LexicalDensity(text string) float64 {
	t := strings.TrimSpace(text)
	if t == "" {
		return 0
	}
	lower := strings.ToLower(t)

	score := float64(len(reNum.FindAllStringIndex(t, -1))) * 0.04
	score += float64(len(reHook.FindAllStringIndex(lower, -1))) * 0.09
	if reHow.MatchString(lower) {
		score += 0.12
	}
	score += float64(strings.Count(t, "?")) * 0.07
	score += float64(strings.Count(t, "!")) * 0.03
	// length penalty keeps rambling windows from winning on volume alone
	score -= 0.00006 * float64(len([]rune(t)))

	return clamp01(score + 0.3)
}
