// Package ports declares the external capabilities the core depends on.
// Implementations live under adapters/ and are constructed once at startup
// and passed in; nothing here is a singleton.
package ports

import (
	"context"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// VideoTool is the media transform capability, one method per export
// pipeline stage.
type VideoTool interface {
	// ExtractClip cuts [start, end) out of the source without re-encoding
	// beyond container requirements.
	ExtractClip(ctx context.Context, in string, start, end time.Duration, out string) error
	// Reframe produces a center crop-to-fill spatial transform for one
	// target resolution.
	Reframe(ctx context.Context, in string, width, height int, out string) error
	// BurnSubtitles renders the SRT file into the video frames using the
	// given visual style.
	BurnSubtitles(ctx context.Context, in, srtPath string, style types.CaptionStyle, out string) error
	// Encode performs the final container/codec encode for one format.
	Encode(ctx context.Context, in string, f types.Format, out string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

// Embedder produces semantic vectors for texts. Calls are time-boxed by
// the implementation; expiry is a recoverable failure, never an abort.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Judge asks an external model for a structured engagement judgment of one
// candidate text. Same timeout contract as Embedder.
type Judge interface {
	Judge(ctx context.Context, text string) (types.Judgment, error)
}
