package selection

import (
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

func scored(start, end float64, score float64) types.ScoredCandidate {
	return types.ScoredCandidate{
		Candidate: types.Candidate{
			Start: time.Duration(start * float64(time.Second)),
			End:   time.Duration(end * float64(time.Second)),
		},
		CompositeScore: score,
	}
}

func TestSelect_NonOverlappingTopN(t *testing.T) {
	t.Parallel()

	cands := []types.ScoredCandidate{
		scored(0, 30, 0.9),
		scored(10, 40, 0.8), // overlaps the winner, must be skipped
		scored(40, 70, 0.7),
		scored(80, 110, 0.6),
	}
	res := Select(cands, "src", Options{TopN: 3})
	if len(res.Clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(res.Clips))
	}
	for i, a := range res.Clips {
		for _, b := range res.Clips[i+1:] {
			if a.Start < b.End && a.End > b.Start {
				t.Fatalf("selected clips overlap: %+v and %+v", a, b)
			}
		}
	}
	if res.Clips[0].Start != 0 || res.Clips[1].Start != 40*time.Second {
		t.Fatalf("unexpected selection order: %+v", res.Clips)
	}
}

func TestSelect_ShortfallWhenInfeasible(t *testing.T) {
	t.Parallel()

	// Only 3 mutually non-overlapping intervals exist.
	cands := []types.ScoredCandidate{
		scored(0, 30, 0.9),
		scored(5, 35, 0.8),
		scored(10, 40, 0.7),
		scored(50, 80, 0.6),
		scored(55, 85, 0.5),
		scored(100, 130, 0.4),
	}
	res := Select(cands, "src", Options{TopN: 5})
	if len(res.Clips) != 3 {
		t.Fatalf("expected exactly 3 feasible clips, got %d", len(res.Clips))
	}
	if res.Shortfall != 2 {
		t.Fatalf("expected shortfall 2, got %d", res.Shortfall)
	}
}

func TestSelect_RanksAndIDsFollowScoreOrder(t *testing.T) {
	t.Parallel()

	cands := []types.ScoredCandidate{
		scored(100, 130, 0.5),
		scored(0, 30, 0.9),
	}
	res := Select(cands, "abc12345", Options{TopN: 2})
	if res.Clips[0].Rank != 1 || res.Clips[0].Start != 0 {
		t.Fatalf("highest score must get rank 1: %+v", res.Clips[0])
	}
	if res.Clips[0].ID != "abc12345-001" || res.Clips[1].ID != "abc12345-002" {
		t.Fatalf("unexpected clip IDs: %q, %q", res.Clips[0].ID, res.Clips[1].ID)
	}
}

func TestSelect_TieBreakPrefersIdealDuration(t *testing.T) {
	t.Parallel()

	// Equal scores; the second candidate is exactly the ideal duration,
	// the first is far from it.
	ideal := 30 * time.Second
	cands := []types.ScoredCandidate{
		scored(0, 55, 0.8),
		scored(100, 130, 0.8),
	}
	res := Select(cands, "src", Options{TopN: 1, IdealDuration: ideal})
	if len(res.Clips) != 1 || res.Clips[0].Start != 100*time.Second {
		t.Fatalf("expected ideal-duration candidate to win the tie: %+v", res.Clips)
	}
}

func TestSelect_TieBreakPrefersEarlierStart(t *testing.T) {
	t.Parallel()

	cands := []types.ScoredCandidate{
		scored(100, 130, 0.8),
		scored(0, 30, 0.8),
	}
	res := Select(cands, "src", Options{TopN: 1, IdealDuration: 30 * time.Second})
	if res.Clips[0].Start != 0 {
		t.Fatalf("expected earlier start to win the tie: %+v", res.Clips[0])
	}
}

func TestSelect_MinGapKeepsClipsApart(t *testing.T) {
	t.Parallel()

	cands := []types.ScoredCandidate{
		scored(0, 30, 0.9),
		scored(32, 62, 0.8), // only 2s after the winner
		scored(50, 80, 0.7), // 20s after the winner
	}
	res := Select(cands, "src", Options{TopN: 2, MinGap: 10 * time.Second})
	if len(res.Clips) != 2 {
		t.Fatalf("expected 2 clips, got %d", len(res.Clips))
	}
	if res.Clips[1].Start != 50*time.Second {
		t.Fatalf("expected the spaced candidate, got %+v", res.Clips[1])
	}
}

func TestSelect_DeterministicAcrossRuns(t *testing.T) {
	t.Parallel()

	cands := []types.ScoredCandidate{
		scored(40, 70, 0.7),
		scored(0, 30, 0.7),
		scored(80, 110, 0.7),
		scored(120, 150, 0.9),
	}
	first := Select(cands, "src", Options{TopN: 3, IdealDuration: 30 * time.Second})
	for i := 0; i < 10; i++ {
		again := Select(cands, "src", Options{TopN: 3, IdealDuration: 30 * time.Second})
		if len(again.Clips) != len(first.Clips) {
			t.Fatalf("selection count changed between runs")
		}
		for j := range first.Clips {
			if first.Clips[j].Start != again.Clips[j].Start || first.Clips[j].ID != again.Clips[j].ID {
				t.Fatalf("selection not deterministic at %d: %+v vs %+v", j, first.Clips[j], again.Clips[j])
			}
		}
	}
}
