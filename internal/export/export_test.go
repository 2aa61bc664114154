package export

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// fakeVideo writes non-empty placeholder files so the verification stage
// has something to stat, and reports the configured probe duration.
type fakeVideo struct {
	extractErr  error
	reframeErr  func(width, height int) error
	encodeErr   error
	probeDur    time.Duration
	probeErr    error
	encodeDelay time.Duration

	encoding    atomic.Int32
	maxEncoding atomic.Int32
}

func (f *fakeVideo) touch(path string) error {
	return os.WriteFile(path, []byte("video"), 0o644)
}

func (f *fakeVideo) ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	return f.touch(out)
}

func (f *fakeVideo) Reframe(ctx context.Context, in string, width, height int, out string) error {
	if f.reframeErr != nil {
		if err := f.reframeErr(width, height); err != nil {
			return err
		}
	}
	return f.touch(out)
}

func (f *fakeVideo) BurnSubtitles(ctx context.Context, in, srtPath string, style types.CaptionStyle, out string) error {
	return f.touch(out)
}

func (f *fakeVideo) Encode(ctx context.Context, in string, format types.Format, out string) error {
	n := f.encoding.Add(1)
	for {
		max := f.maxEncoding.Load()
		if n <= max || f.maxEncoding.CompareAndSwap(max, n) {
			break
		}
	}
	if f.encodeDelay > 0 {
		time.Sleep(f.encodeDelay)
	}
	f.encoding.Add(-1)
	if f.encodeErr != nil {
		return f.encodeErr
	}
	return f.touch(out)
}

func (f *fakeVideo) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.probeDur, nil
}

func clipAt(rank int, start, end time.Duration) types.SelectedClip {
	return types.SelectedClip{
		ScoredCandidate: types.ScoredCandidate{
			Candidate: types.Candidate{Start: start, End: end},
		},
		Rank: rank,
		ID:   "src-00" + string(rune('0'+rank)),
	}
}

func formats() []types.Format {
	return []types.Format{
		{Name: "vertical", Width: 1080, Height: 1920},
		{Name: "horizontal", Width: 1920, Height: 1080},
	}
}

func TestRun_AllVariantsVerified(t *testing.T) {
	t.Parallel()

	video := &fakeVideo{probeDur: 30 * time.Second}
	r := NewRunner(video, 2, 250*time.Millisecond, types.CaptionStyle{}, false, nil)

	job := NewJob(clipAt(1, 0, 30*time.Second), formats(), "clip.srt")
	r.Run(context.Background(), "source.mp4", t.TempDir(), t.TempDir(), []*Job{job})

	if job.Stage != StageVerified {
		t.Fatalf("expected job verified, got %s", job.Stage)
	}
	for _, v := range job.Variants {
		if v.Stage != StageVerified {
			t.Fatalf("variant %s not verified: %s (%v)", v.Format.Name, v.Stage, v.Failure)
		}
		if v.File == "" {
			t.Fatalf("verified variant %s has no file", v.Format.Name)
		}
		if _, err := os.Stat(v.File); err != nil {
			t.Fatalf("variant file missing: %v", err)
		}
	}
}

func TestRun_VariantFailureIsolatesToOneFormat(t *testing.T) {
	t.Parallel()

	video := &fakeVideo{
		probeDur: 30 * time.Second,
		reframeErr: func(width, height int) error {
			if width == 1080 {
				return errors.New("filter graph error")
			}
			return nil
		},
	}
	r := NewRunner(video, 2, 250*time.Millisecond, types.CaptionStyle{}, false, nil)

	job := NewJob(clipAt(1, 0, 30*time.Second), formats(), "clip.srt")
	r.Run(context.Background(), "source.mp4", t.TempDir(), t.TempDir(), []*Job{job})

	vertical, horizontal := job.Variants[0], job.Variants[1]
	if vertical.Stage != StageFailed {
		t.Fatalf("expected vertical variant failed, got %s", vertical.Stage)
	}
	if vertical.Failure == nil || vertical.Failure.Stage != StageReframed {
		t.Fatalf("expected reframe failure, got %+v", vertical.Failure)
	}
	if horizontal.Stage != StageVerified {
		t.Fatalf("sibling format must still verify, got %s (%v)", horizontal.Stage, horizontal.Failure)
	}
	if job.Stage != StageVerified {
		t.Fatalf("job with one verified variant must be verified, got %s", job.Stage)
	}
}

func TestRun_VerificationMismatchFailsVariant(t *testing.T) {
	t.Parallel()

	// Probe reports a duration well outside the tolerance.
	video := &fakeVideo{probeDur: 10 * time.Second}
	r := NewRunner(video, 1, 250*time.Millisecond, types.CaptionStyle{}, false, nil)

	job := NewJob(clipAt(1, 0, 30*time.Second), formats()[:1], "clip.srt")
	clipsDir := t.TempDir()
	r.Run(context.Background(), "source.mp4", t.TempDir(), clipsDir, []*Job{job})

	v := job.Variants[0]
	if v.Stage != StageFailed || v.Failure == nil {
		t.Fatalf("expected failed variant, got %s (%v)", v.Stage, v.Failure)
	}
	if v.Failure.Stage != StageVerified {
		t.Fatalf("expected failure at verify stage, got %s", v.Failure.Stage)
	}
	if !strings.Contains(v.Failure.Reason, ReasonVerificationMismatch) {
		t.Fatalf("expected %q in reason, got %q", ReasonVerificationMismatch, v.Failure.Reason)
	}
	// The unverifiable artifact must not be left in the publish directory.
	entries, err := os.ReadDir(clipsDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed artifact left behind: %v", entries)
	}
}

func TestRun_ExtractFailureFailsWholeJob(t *testing.T) {
	t.Parallel()

	video := &fakeVideo{extractErr: errors.New("moov atom not found")}
	r := NewRunner(video, 1, 250*time.Millisecond, types.CaptionStyle{}, false, nil)

	job := NewJob(clipAt(1, 0, 30*time.Second), formats(), "clip.srt")
	r.Run(context.Background(), "source.mp4", t.TempDir(), t.TempDir(), []*Job{job})

	if job.Stage != StageFailed {
		t.Fatalf("expected failed job, got %s", job.Stage)
	}
	for _, v := range job.Variants {
		if v.Failure == nil || v.Failure.Stage != StageExtracted {
			t.Fatalf("expected extract failure on every variant, got %+v", v.Failure)
		}
	}
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	video := &fakeVideo{probeDur: 30 * time.Second}
	r := NewRunner(video, 2, 250*time.Millisecond, types.CaptionStyle{}, false, nil)

	job := NewJob(clipAt(1, 0, 30*time.Second), formats(), "clip.srt")
	r.Run(ctx, "source.mp4", t.TempDir(), t.TempDir(), []*Job{job})

	if job.Stage != StageFailed {
		t.Fatalf("expected failed job, got %s", job.Stage)
	}
	for _, v := range job.Variants {
		if v.Failure == nil || v.Failure.Reason != ReasonCancelled {
			t.Fatalf("expected cancelled reason, got %+v", v.Failure)
		}
	}
}

func TestRun_EncodeIsSerialized(t *testing.T) {
	t.Parallel()

	video := &fakeVideo{probeDur: 30 * time.Second, encodeDelay: 10 * time.Millisecond}
	r := NewRunner(video, 4, 250*time.Millisecond, types.CaptionStyle{}, false, nil)

	jobs := make([]*Job, 4)
	for i := range jobs {
		jobs[i] = NewJob(clipAt(i+1, 0, 30*time.Second), formats(), "clip.srt")
	}
	r.Run(context.Background(), "source.mp4", t.TempDir(), t.TempDir(), jobs)

	if max := video.maxEncoding.Load(); max != 1 {
		t.Fatalf("encode stage must hold the single permit, saw %d concurrent encodes", max)
	}
	for i, job := range jobs {
		if job.Clip.Rank != i+1 {
			t.Fatalf("jobs slice must keep rank order, got rank %d at %d", job.Clip.Rank, i)
		}
		if job.Stage != StageVerified {
			t.Fatalf("job %d not verified: %s", i, job.Stage)
		}
	}
}
