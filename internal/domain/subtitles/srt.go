// Package subtitles builds clip-relative caption cues from transcript
// tokens and renders them as SRT.
package subtitles

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// BuildCues collects the tokens inside [clipStart, clipEnd), re-bases them
// to the clip's zero point and packs them into readable cues. maxChars
// bounds the characters per cue line; cue text is wrapped later at render
// time, never truncated.
func BuildCues(tokens []types.TranscriptToken, clipStart, clipEnd time.Duration, maxChars int) []types.SubtitleCue {
	if maxChars <= 0 {
		maxChars = 42
	}
	words := collectWords(tokens, clipStart, clipEnd)
	if len(words) == 0 {
		return nil
	}

	// Budgets keep cues readable on small screens; one cue holds at most
	// two wrapped lines worth of text.
	charBudget := maxChars * 2
	const wordBudget = 12

	var out []types.SubtitleCue
	cur := types.SubtitleCue{Start: words[0].start}
	var parts []string
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.text))
		nextLen := curLen + wl
		if curLen > 0 {
			nextLen++
		}
		if len(parts) > 0 && (len(parts) >= wordBudget || nextLen > charBudget) {
			cur.Text = strings.Join(parts, " ")
			out = append(out, cur)
			cur = types.SubtitleCue{Start: w.start}
			parts = parts[:0]
			curLen = 0
		}
		parts = append(parts, w.text)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		cur.End = w.end
		if i == len(words)-1 {
			cur.Text = strings.Join(parts, " ")
			out = append(out, cur)
		}
	}
	return out
}

type clipWord struct {
	start time.Duration
	end   time.Duration
	text  string
}

func collectWords(tokens []types.TranscriptToken, clipStart, clipEnd time.Duration) []clipWord {
	var out []clipWord
	for _, t := range tokens {
		ws := dur(t.Start)
		we := dur(t.End)
		if we <= clipStart || ws >= clipEnd {
			continue
		}
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		if ws < clipStart {
			ws = clipStart
		}
		if we > clipEnd {
			we = clipEnd
		}
		// Cue times are clip-relative: the renderer works on per-clip
		// subtitle files, not full-timeline ones.
		out = append(out, clipWord{start: ws - clipStart, end: we - clipStart, text: text})
	}
	// Tokens may arrive unordered; cue timestamps must be monotonic.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end < out[j].end
	})
	return out
}

// RenderSRT writes sequential numbered cues with millisecond timestamps.
// Lines longer than maxChars are wrapped; a single token longer than
// maxChars is split rather than dropped, and the count of such splits is
// returned so callers can log the degradation.
func RenderSRT(cues []types.SubtitleCue, maxChars int) (string, int) {
	if maxChars <= 0 {
		maxChars = 42
	}
	var b strings.Builder
	splits := 0
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTime(c.Start), srtTime(c.End))
		lines, n := wrap(c.Text, maxChars)
		splits += n
		for _, ln := range lines {
			b.WriteString(ln)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String(), splits
}

// wrap splits text into lines of at most maxChars characters, breaking on
// spaces. Oversized single words are hard-split; the second return value
// counts those splits.
func wrap(text string, maxChars int) ([]string, int) {
	words := strings.Fields(text)
	var (
		lines  []string
		cur    []string
		curLen int
		splits int
	)
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, strings.Join(cur, " "))
			cur = cur[:0]
			curLen = 0
		}
	}
	for _, w := range words {
		runes := []rune(w)
		for len(runes) > maxChars {
			flush()
			lines = append(lines, string(runes[:maxChars]))
			runes = runes[maxChars:]
			splits++
		}
		w = string(runes)
		wl := len(runes)
		if curLen > 0 && curLen+1+wl > maxChars {
			flush()
		}
		cur = append(cur, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
	}
	flush()
	return lines, splits
}

func srtTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	ms := int(d / time.Millisecond)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
