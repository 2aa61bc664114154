// Package selection picks the final non-overlapping top-N clips. This is
// weighted interval scheduling under a cardinality bound, solved greedily:
// highest composite first, skipping anything that overlaps (or crowds) an
// already-selected interval. Greedy is not guaranteed score-maximal; the
// exact formulation is weighted interval scheduling with a cardinality cap
// via dynamic programming, which is the upgrade path if exactness is ever
// required.
package selection

import (
	"fmt"
	"sort"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

type Options struct {
	TopN int
	// MinGap additionally keeps selected clips apart on the timeline.
	MinGap time.Duration
	// IdealDuration breaks score ties: the candidate closer to it wins.
	IdealDuration time.Duration
}

// Result carries the selection plus the shortfall when fewer than TopN
// non-overlapping candidates were feasible. A shortfall is reported, not
// an error.
type Result struct {
	Clips     []types.SelectedClip
	Shortfall int
}

// Select orders candidates by composite score and greedily takes
// non-overlapping ones until TopN are chosen or none remain. Sort key and
// tie-breaks are explicit so selection never depends on input iteration
// order: composite desc, then distance to ideal duration asc, then start
// asc, then end asc.
func Select(scored []types.ScoredCandidate, sourceID string, opt Options) Result {
	if opt.TopN <= 0 || len(scored) == 0 {
		return Result{Shortfall: opt.TopN}
	}

	ranked := make([]types.ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		da := idealDistance(a.Duration(), opt.IdealDuration)
		db := idealDistance(b.Duration(), opt.IdealDuration)
		if da != db {
			return da < db
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	var clips []types.SelectedClip
	for _, c := range ranked {
		if len(clips) >= opt.TopN {
			break
		}
		if !fits(clips, c, opt.MinGap) {
			continue
		}
		rank := len(clips) + 1
		clips = append(clips, types.SelectedClip{
			ScoredCandidate: c,
			Rank:            rank,
			ID:              fmt.Sprintf("%s-%03d", sourceID, rank),
		})
	}
	return Result{Clips: clips, Shortfall: opt.TopN - len(clips)}
}

func fits(selected []types.SelectedClip, c types.ScoredCandidate, minGap time.Duration) bool {
	for _, s := range selected {
		if c.Start < s.End+minGap && c.End > s.Start-minGap {
			return false
		}
	}
	return true
}

func idealDistance(d, ideal time.Duration) time.Duration {
	if ideal <= 0 {
		return 0
	}
	if d < ideal {
		return ideal - d
	}
	return d - ideal
}
