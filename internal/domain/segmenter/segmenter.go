// Package segmenter folds raw transcript tokens into micro-segments:
// speech turns bounded by silence gaps or sentence-terminal punctuation.
package segmenter

import (
	"sort"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

type Options struct {
	// SilenceThreshold closes the running segment when the gap between
	// consecutive tokens exceeds it.
	SilenceThreshold time.Duration
	// MinSegmentLength gates punctuation-driven closes so single short
	// sentences do not produce confetti segments.
	MinSegmentLength time.Duration
}

// Split groups tokens into non-overlapping, start-ordered segments.
// Tokens are sorted by start time first so the result never depends on
// input iteration order; empty or inverted tokens are dropped.
func Split(tokens []types.TranscriptToken, opt Options) []types.Segment {
	clean := make([]types.TranscriptToken, 0, len(tokens))
	for _, t := range tokens {
		if strings.TrimSpace(t.Text) == "" || t.End < t.Start {
			continue
		}
		clean = append(clean, t)
	}
	sort.SliceStable(clean, func(i, j int) bool {
		if clean[i].Start == clean[j].Start {
			return clean[i].End < clean[j].End
		}
		return clean[i].Start < clean[j].Start
	})
	if len(clean) == 0 {
		return nil
	}

	var (
		out      []types.Segment
		parts    []string
		segStart = dur(clean[0].Start)
		segEnd   = dur(clean[0].End)
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			return
		}
		out = append(out, types.Segment{Start: segStart, End: segEnd, Text: text})
	}

	for i, tok := range clean {
		if i > 0 {
			gap := dur(tok.Start) - segEnd
			if gap > opt.SilenceThreshold {
				flush()
				parts = parts[:0]
				segStart = dur(tok.Start)
				segEnd = segStart
			}
		}
		parts = append(parts, strings.TrimSpace(tok.Text))
		if e := dur(tok.End); e > segEnd {
			segEnd = e
		}

		if hasTerminalPunctuation(tok.Text) && segEnd-segStart >= opt.MinSegmentLength {
			flush()
			parts = parts[:0]
			if i+1 < len(clean) {
				segStart = dur(clean[i+1].Start)
				segEnd = segStart
			}
		}
	}
	// Trailing tokens with no closing punctuation still become a segment.
	flush()

	clampOverlaps(out)
	return out
}

// clampOverlaps enforces the non-overlap guarantee against tokens whose
// reported times bleed into each other.
func clampOverlaps(segs []types.Segment) {
	for i := 1; i < len(segs); i++ {
		if segs[i].Start < segs[i-1].End {
			segs[i].Start = segs[i-1].End
		}
		if segs[i].End < segs[i].Start {
			segs[i].End = segs[i].Start
		}
	}
}

func hasTerminalPunctuation(s string) bool {
	s = strings.TrimSpace(s)
	trimTail := `"'` + "`" + ")]}"
	for len(s) > 0 && strings.ContainsRune(trimTail, rune(s[len(s)-1])) {
		s = s[:len(s)-1]
	}
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == '.' || last == '!' || last == '?'
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
