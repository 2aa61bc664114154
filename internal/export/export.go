// Package export renders each selected clip into publish-ready artifacts
// through a strictly sequential per-job state machine:
//
//	Pending → Extracted → Reframed → Captioned → Encoded → Verified
//
// with Failed as the terminal state after any stage error. Extraction runs
// once per clip; reframe, caption, encode and verify run per target format,
// and a format variant failing isolates to that variant only. Jobs run on a
// bounded worker pool, and the encode stage additionally holds a serialized
// permit because the underlying encoder is a shared resource.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/types"
)

type Stage string

const (
	StagePending   Stage = "pending"
	StageExtracted Stage = "extracted"
	StageReframed  Stage = "reframed"
	StageCaptioned Stage = "captioned"
	StageEncoded   Stage = "encoded"
	StageVerified  Stage = "verified"
	StageFailed    Stage = "failed"
)

const (
	ReasonVerificationMismatch = "verification_mismatch"
	ReasonCancelled            = "cancelled"
)

// StageFailure records which stage broke and why. It isolates to one
// format variant (or, for extraction, one clip) and never aborts siblings.
type StageFailure struct {
	Stage  Stage
	Reason string
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Reason)
}

// Variant tracks one target format of one clip through the pipeline.
type Variant struct {
	Format  types.Format
	Stage   Stage
	File    string
	Failure *StageFailure
}

// Job is the mutable per-clip render task. It is owned exclusively by the
// Runner while Run executes and is terminal afterwards: every variant ends
// at StageVerified with a file or at StageFailed with a failure.
type Job struct {
	ID           string
	Clip         types.SelectedClip
	SubtitlePath string
	Stage        Stage
	Variants     []Variant
}

func NewJob(clip types.SelectedClip, formats []types.Format, subtitlePath string) *Job {
	vars := make([]Variant, len(formats))
	for i, f := range formats {
		vars[i] = Variant{Format: f, Stage: StagePending}
	}
	return &Job{
		ID:           uuid.NewString(),
		Clip:         clip,
		SubtitlePath: subtitlePath,
		Stage:        StagePending,
		Variants:     vars,
	}
}

type Runner struct {
	video             ports.VideoTool
	workers           int
	verifyTolerance   time.Duration
	style             types.CaptionStyle
	keepIntermediates bool
	encodePermit      *semaphore.Weighted
	log               *slog.Logger
}

func NewRunner(video ports.VideoTool, workers int, verifyTolerance time.Duration, style types.CaptionStyle, keepIntermediates bool, log *slog.Logger) *Runner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if verifyTolerance <= 0 {
		verifyTolerance = 250 * time.Millisecond
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		video:             video,
		workers:           workers,
		verifyTolerance:   verifyTolerance,
		style:             style,
		keepIntermediates: keepIntermediates,
		// The media encoder is a serialized resource: one encode at a
		// time no matter how wide the worker pool is.
		encodePermit: semaphore.NewWeighted(1),
		log:          log,
	}
}

// Run processes all jobs on the worker pool and returns when every job is
// terminal. Job failures are recorded on the jobs, never returned: one
// clip failing must not block its siblings. The jobs slice keeps its input
// (rank) order regardless of completion order.
func (r *Runner) Run(ctx context.Context, source, workDir, clipsDir string, jobs []*Job) {
	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			r.runJob(ctx, source, workDir, clipsDir, job)
			return nil
		})
	}
	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()
}

func (r *Runner) runJob(ctx context.Context, source, workDir, clipsDir string, job *Job) {
	log := r.log.With("clip", job.Clip.ID, "rank", job.Clip.Rank, "job", job.ID)

	if err := ctx.Err(); err != nil {
		r.failJob(job, &StageFailure{Stage: StagePending, Reason: ReasonCancelled})
		log.Warn("render job cancelled before start")
		return
	}

	extractPath := filepath.Join(workDir, job.Clip.ID+"-extract.mp4")
	if err := r.video.ExtractClip(ctx, source, job.Clip.Start, job.Clip.End, extractPath); err != nil {
		r.failJob(job, extractFailure(ctx, err))
		log.Error("extract stage failed", "err", err)
		return
	}
	job.Stage = StageExtracted
	log.Info("clip extracted", "start", job.Clip.Start, "end", job.Clip.End)

	for i := range job.Variants {
		r.runVariant(ctx, extractPath, workDir, clipsDir, job, &job.Variants[i])
	}
	if !r.keepIntermediates {
		_ = os.Remove(extractPath)
	}

	job.Stage = StageFailed
	for _, v := range job.Variants {
		if v.Stage == StageVerified {
			job.Stage = StageVerified
			break
		}
	}
}

func (r *Runner) runVariant(ctx context.Context, extractPath, workDir, clipsDir string, job *Job, v *Variant) {
	log := r.log.With("clip", job.Clip.ID, "format", v.Format.Name)
	base := fmt.Sprintf("%s_%s", job.Clip.ID, v.Format.Name)
	reframed := filepath.Join(workDir, base+"-reframed.mp4")
	captioned := filepath.Join(workDir, base+"-captioned.mp4")
	final := filepath.Join(clipsDir, base+".mp4")

	fail := func(stage Stage, err error) {
		reason := err.Error()
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			reason = ReasonCancelled
		}
		v.Stage = StageFailed
		v.Failure = &StageFailure{Stage: stage, Reason: reason}
		// A half-written artifact must not look publishable.
		_ = os.Remove(final)
		log.Error("variant failed", "stage", stage, "reason", reason)
	}
	defer func() {
		if !r.keepIntermediates {
			_ = os.Remove(reframed)
			_ = os.Remove(captioned)
		}
	}()

	if err := r.video.Reframe(ctx, extractPath, v.Format.Width, v.Format.Height, reframed); err != nil {
		fail(StageReframed, err)
		return
	}
	v.Stage = StageReframed

	if err := r.video.BurnSubtitles(ctx, reframed, job.SubtitlePath, r.style, captioned); err != nil {
		fail(StageCaptioned, err)
		return
	}
	v.Stage = StageCaptioned

	if err := r.encodePermit.Acquire(ctx, 1); err != nil {
		fail(StageEncoded, err)
		return
	}
	err := r.video.Encode(ctx, captioned, v.Format, final)
	r.encodePermit.Release(1)
	if err != nil {
		fail(StageEncoded, err)
		return
	}
	v.Stage = StageEncoded

	if err := r.verify(ctx, final, job.Clip.End-job.Clip.Start); err != nil {
		fail(StageVerified, err)
		return
	}
	v.Stage = StageVerified
	v.File = final
	log.Info("variant verified", "file", final)
}

// verify checks the output is non-empty and its duration matches the
// source interval within the tolerance, so a corrupt artifact fails loudly
// instead of being published.
func (r *Runner) verify(ctx context.Context, path string, want time.Duration) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%s: stat output: %v", ReasonVerificationMismatch, err)
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s: output is empty", ReasonVerificationMismatch)
	}
	got, err := r.video.ProbeDuration(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: probe: %v", ReasonVerificationMismatch, err)
	}
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > r.verifyTolerance {
		return fmt.Errorf("%s: duration %s vs interval %s exceeds tolerance %s",
			ReasonVerificationMismatch, got, want, r.verifyTolerance)
	}
	return nil
}

func (r *Runner) failJob(job *Job, f *StageFailure) {
	job.Stage = StageFailed
	for i := range job.Variants {
		job.Variants[i].Stage = StageFailed
		job.Variants[i].Failure = f
	}
}

func extractFailure(ctx context.Context, err error) *StageFailure {
	reason := err.Error()
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		reason = ReasonCancelled
	}
	return &StageFailure{Stage: StageExtracted, Reason: reason}
}
