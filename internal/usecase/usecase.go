package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/domain/candidates"
	"github.com/clipforge/clipforge/internal/domain/scoring"
	"github.com/clipforge/clipforge/internal/domain/segmenter"
	"github.com/clipforge/clipforge/internal/domain/selection"
	"github.com/clipforge/clipforge/internal/domain/subtitles"
	"github.com/clipforge/clipforge/internal/export"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/types"
)

type Deps struct {
	Video ports.VideoTool
	Embed ports.Embedder
	Judge ports.Judge
	Log   *slog.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return Usecase{d: d}
}

type Input struct {
	SourcePath     string
	TranscriptPath string
	Transcript     types.Transcript
	Config         config.Config

	// CacheDir holds intermediate render artifacts, OutDir the final
	// clips/, subtitles/ and manifest layout.
	CacheDir string
	OutDir   string
}

type Result struct {
	Manifest types.Manifest
}

// Run executes the full selection pass (single-threaded, cheap) and then
// the export pipeline (bounded worker pool). Per-clip failures end up in
// the manifest, not in the returned error; the error is reserved for fatal
// input conditions.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	cfg := in.Config
	log := u.d.Log

	if len(in.Transcript.Tokens) == 0 {
		return Result{}, &types.InputError{Reason: "transcript has no tokens"}
	}

	segs := segmenter.Split(in.Transcript.Tokens, segmenter.Options{
		SilenceThreshold: cfg.Segmenter.SilenceThreshold(),
		MinSegmentLength: cfg.Segmenter.MinSegment(),
	})
	if len(segs) == 0 {
		return Result{}, &types.InputError{Reason: "transcript has no usable speech"}
	}
	log.Info("transcript segmented", "tokens", len(in.Transcript.Tokens), "segments", len(segs))

	cands := candidates.Build(segs, cfg.Clip.Min(), cfg.Clip.Max())
	log.Info("candidates generated", "count", len(cands),
		"min", cfg.Clip.Min(), "max", cfg.Clip.Max())

	scorer := scoring.New(u.d.Embed, u.d.Judge, scoring.Weights{
		Semantic:      cfg.Scoring.SemanticWeight,
		Judgment:      cfg.Scoring.JudgmentWeight,
		DurationBonus: cfg.Scoring.DurationBonusWeight,
		IdealDuration: cfg.IdealClipDuration(),
	}, log)
	scored := scorer.Score(ctx, segs, cands)

	sel := selection.Select(scored, sourceID(in.SourcePath), selection.Options{
		TopN:          cfg.Selection.TopNClips,
		MinGap:        cfg.Selection.MinGap(),
		IdealDuration: cfg.IdealClipDuration(),
	})
	if sel.Shortfall > 0 {
		log.Warn("fewer feasible clips than requested",
			"requested", cfg.Selection.TopNClips, "selected", len(sel.Clips))
	}

	m := types.Manifest{
		Input:      in.SourcePath,
		Transcript: in.TranscriptPath,
		Shortfall:  sel.Shortfall,
	}
	if len(sel.Clips) == 0 {
		return Result{Manifest: m}, nil
	}

	subtitlesDir := filepath.Join(in.OutDir, "subtitles")
	clipsDir := filepath.Join(in.OutDir, "clips")
	for _, dir := range []string{subtitlesDir, clipsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Result{}, err
		}
	}

	jobs := make([]*export.Job, 0, len(sel.Clips))
	for _, clip := range sel.Clips {
		srtPath := filepath.Join(subtitlesDir, clip.ID+".srt")
		cues := subtitles.BuildCues(in.Transcript.Tokens, clip.Start, clip.End, cfg.Captions.MaxCharsPerLine)
		rendered, splits := subtitles.RenderSRT(cues, cfg.Captions.MaxCharsPerLine)
		if splits > 0 {
			log.Warn("subtitle cue wrapped mid-word", "clip", clip.ID, "splits", splits)
		}
		if err := os.WriteFile(srtPath, []byte(rendered), 0o644); err != nil {
			return Result{}, err
		}
		jobs = append(jobs, export.NewJob(clip, cfg.Formats, srtPath))
	}

	runner := export.NewRunner(u.d.Video, cfg.Export.Workers, cfg.Export.VerifyTolerance(),
		cfg.Captions, cfg.Export.KeepIntermediates, log)
	runner.Run(ctx, in.SourcePath, in.CacheDir, clipsDir, jobs)

	// Manifest order is job (rank) order, independent of completion order.
	for _, job := range jobs {
		m.Clips = append(m.Clips, manifestClip(in.OutDir, job))
	}
	return Result{Manifest: m}, nil
}

func manifestClip(outDir string, job *export.Job) types.ManifestClip {
	clip := job.Clip
	mc := types.ManifestClip{
		ID:             clip.ID,
		Rank:           clip.Rank,
		StartSec:       clip.Start.Seconds(),
		EndSec:         clip.End.Seconds(),
		SemanticScore:  clip.SemanticScore,
		JudgmentScore:  clip.JudgmentScore,
		CompositeScore: clip.CompositeScore,
		Degraded:       clip.Degraded,
		DegradedReason: clip.DegradedReason,
		Text:           clip.Text,
		Subtitles:      relPath(outDir, job.SubtitlePath),
	}
	for _, v := range job.Variants {
		art := types.ManifestArtifact{Format: v.Format.Name}
		if v.Stage == export.StageVerified {
			art.File = relPath(outDir, v.File)
		} else if v.Failure != nil {
			art.FailedStage = string(v.Failure.Stage)
			art.Reason = v.Failure.Reason
		}
		mc.Formats = append(mc.Formats, art)
	}
	return mc
}

func relPath(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// sourceID gives clips a stable identity derived from the source video, so
// reruns over the same input produce the same clip IDs.
func sourceID(sourcePath string) string {
	sum := sha256.Sum256([]byte(filepath.Base(sourcePath)))
	return hex.EncodeToString(sum[:])[:8]
}
