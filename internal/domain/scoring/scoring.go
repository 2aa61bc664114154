// Package scoring fuses the semantic-embedding signal and the external
// model judgment into one composite engagement score per candidate.
package scoring

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/types"
)

type Weights struct {
	Semantic      float64
	Judgment      float64
	DurationBonus float64
	// IdealDuration anchors the duration bonus curve.
	IdealDuration time.Duration
}

type Scorer struct {
	embed ports.Embedder
	judge ports.Judge
	w     Weights
	log   *slog.Logger
}

// New builds a scorer. Both clients may be nil: a nil embedder falls back
// to the lexical density heuristic, a nil judge degrades every candidate
// to its semantic score. Neither absence aborts a run.
func New(embed ports.Embedder, judge ports.Judge, w Weights, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{embed: embed, judge: judge, w: w, log: log}
}

// Score computes a ScoredCandidate for every candidate, in input order.
// Failures of either external signal are contained per candidate.
func (s *Scorer) Score(ctx context.Context, segs []types.Segment, cands []types.Candidate) []types.ScoredCandidate {
	semantic := s.semanticScores(ctx, segs, cands)

	out := make([]types.ScoredCandidate, 0, len(cands))
	for i, c := range cands {
		sc := types.ScoredCandidate{Candidate: c, SemanticScore: semantic[i]}

		if s.judge == nil {
			sc.Degraded = true
			sc.DegradedReason = "judge unavailable"
		} else if j, err := s.judge.Judge(ctx, c.Text); err != nil {
			sc.Degraded = true
			sc.DegradedReason = err.Error()
			s.log.Warn("judgment signal unavailable, scoring degraded",
				"start", c.Start, "end", c.End, "err", err)
		} else {
			sc.JudgmentScore = clamp01(j.Score())
		}

		sc.CompositeScore = s.composite(sc)
		out = append(out, sc)
	}
	return out
}

// composite combines the available signals with the configured weights,
// then pulls toward the duration bonus curve. A degraded candidate uses
// the semantic signal alone, so with a zero duration bonus its composite
// equals its semantic score exactly.
func (s *Scorer) composite(sc types.ScoredCandidate) float64 {
	base := sc.SemanticScore
	if !sc.Degraded {
		total := s.w.Semantic + s.w.Judgment
		if total > 0 {
			base = (s.w.Semantic*sc.SemanticScore + s.w.Judgment*sc.JudgmentScore) / total
		}
	}
	wd := s.w.DurationBonus
	if wd <= 0 || s.w.IdealDuration <= 0 {
		return clamp01(base)
	}
	return clamp01(base*(1-wd) + wd*durationProximity(sc.Duration(), s.w.IdealDuration))
}

// durationProximity is 1 at the ideal duration and falls off linearly to 0
// at zero and at twice the ideal.
func durationProximity(d, ideal time.Duration) float64 {
	delta := (d - ideal).Seconds()
	if delta < 0 {
		delta = -delta
	}
	p := 1 - delta/ideal.Seconds()
	if p < 0 {
		p = 0
	}
	return p
}

// semanticScores embeds the candidate texts and measures each against
// topical centroids detected over the full transcript. When the embedding
// client is missing or fails, the lexical density heuristic stands in so
// scoring stays deterministic and the run keeps going.
func (s *Scorer) semanticScores(ctx context.Context, segs []types.Segment, cands []types.Candidate) []float64 {
	out := make([]float64, len(cands))
	lexical := func() {
		for i, c := range cands {
			out[i] = LexicalDensity(c.Text)
		}
	}
	if s.embed == nil {
		lexical()
		return out
	}

	segTexts := make([]string, len(segs))
	for i, sg := range segs {
		segTexts[i] = sg.Text
	}
	segVecs, err := s.embed.Embed(ctx, segTexts)
	if err != nil {
		s.log.Warn("transcript embedding unavailable, using lexical fallback", "err", err)
		lexical()
		return out
	}
	centroids := topicCentroids(segVecs, 0.6)

	candTexts := make([]string, len(cands))
	for i, c := range cands {
		candTexts[i] = c.Text
	}
	candVecs, err := s.embed.Embed(ctx, candTexts)
	if err != nil || len(candVecs) != len(cands) {
		s.log.Warn("candidate embedding unavailable, using lexical fallback", "err", err)
		lexical()
		return out
	}

	for i, v := range candVecs {
		if len(centroids) == 0 {
			out[i] = LexicalDensity(cands[i].Text)
			continue
		}
		best := -1.0
		for _, c := range centroids {
			if sim := cosine(v, c); sim > best {
				best = sim
			}
		}
		// Cosine lands in [-1,1]; normalize to the score contract.
		out[i] = clamp01((best + 1) / 2)
	}
	return out
}

// topicCentroids greedily clusters segment vectors: a vector joins the
// first centroid it is at least minSim similar to, otherwise it seeds a
// new cluster. Greedy in input order keeps the result deterministic.
func topicCentroids(vecs [][]float64, minSim float64) [][]float64 {
	var centroids [][]float64
	var counts []int
	for _, v := range vecs {
		if len(v) == 0 {
			continue
		}
		placed := false
		for i, c := range centroids {
			if cosine(v, c) >= minSim {
				merge(centroids[i], v, counts[i])
				counts[i]++
				placed = true
				break
			}
		}
		if !placed {
			centroids = append(centroids, append([]float64(nil), v...))
			counts = append(counts, 1)
		}
	}
	return centroids
}

// merge folds v into centroid c as a running mean over n prior members.
func merge(c, v []float64, n int) {
	for i := range c {
		if i >= len(v) {
			break
		}
		c[i] = (c[i]*float64(n) + v[i]) / float64(n+1)
	}
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
