// Package candidates turns ordered segments into duration-bounded clip
// candidates. The output deliberately overlaps: multiple window lengths are
// emitted from each start point so the selector can trade score against
// length. Overlap resolution is the selector's job, not this package's.
package candidates

import (
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// Build slides a window over the segment sequence. Starting from each
// segment it absorbs subsequent segments while cumulative duration stays
// within maxClip, emitting a candidate each time the window reaches
// minClip. Windows that cannot reach minClip before input runs out are
// discarded. Output order is (start index, end index), which is fully
// determined by the input.
func Build(segs []types.Segment, minClip, maxClip time.Duration) []types.Candidate {
	if minClip <= 0 || maxClip <= 0 || maxClip < minClip {
		return nil
	}

	var out []types.Candidate
	for i := range segs {
		start := segs[i].Start
		var (
			parts []string
			refs  []int
		)
		for j := i; j < len(segs); j++ {
			win := segs[j].End - start
			if win > maxClip {
				break
			}
			if t := strings.TrimSpace(segs[j].Text); t != "" {
				parts = append(parts, t)
			}
			refs = append(refs, j)
			if win < minClip {
				continue
			}
			text := strings.Join(parts, " ")
			if text == "" {
				continue
			}
			out = append(out, types.Candidate{
				Start:       start,
				End:         segs[j].End,
				Text:        text,
				SegmentRefs: append([]int(nil), refs...),
			})
		}
	}
	return out
}
