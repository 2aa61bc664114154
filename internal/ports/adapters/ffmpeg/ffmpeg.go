package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", in,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Reframe(ctx context.Context, in string, width, height int, out string) error {
	// force_original_aspect_ratio=increase + crop gives a centered
	// crop-to-fill for any input aspect without probing dimensions first.
	vf := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		width, height, width, height)
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg reframe %dx%d: %w\n%s", width, height, err, string(b))
	}
	return nil
}

func (a *Adapter) BurnSubtitles(ctx context.Context, in, srtPath string, style types.CaptionStyle, out string) error {
	vf := "subtitles=" + escapeFilterPath(srtPath) + ":force_style='" + forceStyle(style) + "'"
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vf", vf,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "copy",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg burn subtitles: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) Encode(ctx context.Context, in string, f types.Format, out string) error {
	args := []string{
		"-y",
		"-i", in,
		"-c:v", "libx264",
		"-preset", "veryfast",
	}
	if f.Bitrate != "" {
		args = append(args, "-b:v", f.Bitrate)
	} else {
		args = append(args, "-crf", "20")
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		out,
	)
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w\n%s", f.Name, err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func forceStyle(s types.CaptionStyle) string {
	parts := []string{
		"FontName=" + s.Font,
		"FontSize=" + strconv.Itoa(s.FontSize),
		"PrimaryColour=&H" + colorHex(s.PrimaryColor),
		"OutlineColour=&H" + colorHex(s.OutlineColor),
		"BorderStyle=1",
		"Outline=" + strconv.Itoa(s.OutlineWidth),
		"Alignment=2", // bottom center
	}
	return strings.Join(parts, ",")
}

// colorHex maps the config color names onto libass BGR hex. Unknown names
// fall back to white.
func colorHex(name string) string {
	switch strings.ToLower(name) {
	case "black":
		return "000000"
	case "yellow":
		return "00FFFF"
	case "red":
		return "0000FF"
	case "blue":
		return "FF0000"
	default:
		return "FFFFFF"
	}
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}
