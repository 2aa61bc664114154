package candidates

import (
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

func seg(start, end float64, text string) types.Segment {
	return types.Segment{
		Start: time.Duration(start * float64(time.Second)),
		End:   time.Duration(end * float64(time.Second)),
		Text:  text,
	}
}

func TestBuild_RespectsDurationBounds(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		seg(0, 20, "a"),
		seg(20, 45, "b"),
		seg(45, 70, "c"),
		seg(70, 100, "d"),
	}
	minClip, maxClip := 15*time.Second, 60*time.Second
	cands := Build(segs, minClip, maxClip)
	if len(cands) == 0 {
		t.Fatal("expected candidates")
	}
	for _, c := range cands {
		if d := c.Duration(); d < minClip || d > maxClip {
			t.Fatalf("candidate duration %s outside [%s,%s]", d, minClip, maxClip)
		}
	}
}

func TestBuild_EmitsMultipleLengthsPerStart(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		seg(0, 20, "a"),
		seg(20, 40, "b"),
		seg(40, 60, "c"),
	}
	cands := Build(segs, 15*time.Second, 60*time.Second)

	fromZero := 0
	for _, c := range cands {
		if c.Start == 0 {
			fromZero++
		}
	}
	// [0,20], [0,40] and [0,60] should all be emitted from the first segment.
	if fromZero != 3 {
		t.Fatalf("expected 3 windows starting at 0, got %d", fromZero)
	}
}

func TestBuild_DiscardsWindowsBelowMin(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		seg(0, 30, "a"),
		seg(30, 35, "tail"),
	}
	cands := Build(segs, 15*time.Second, 60*time.Second)
	for _, c := range cands {
		if c.Start == 30*time.Second {
			t.Fatalf("tail window can never reach min duration, got %+v", c)
		}
	}
}

func TestBuild_SegmentRefsMatchWindow(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{
		seg(0, 20, "a"),
		seg(20, 40, "b"),
	}
	cands := Build(segs, 30*time.Second, 60*time.Second)
	if len(cands) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(cands))
	}
	c := cands[0]
	if len(c.SegmentRefs) != 2 || c.SegmentRefs[0] != 0 || c.SegmentRefs[1] != 1 {
		t.Fatalf("unexpected segment refs: %v", c.SegmentRefs)
	}
	if c.Text != "a b" {
		t.Fatalf("unexpected text: %q", c.Text)
	}
}

func TestBuild_InvalidBounds(t *testing.T) {
	t.Parallel()

	segs := []types.Segment{seg(0, 30, "a")}
	if got := Build(segs, 20*time.Second, 10*time.Second); got != nil {
		t.Fatalf("expected nil for min > max, got %+v", got)
	}
}
