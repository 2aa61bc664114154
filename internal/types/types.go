package types

import "time"

// TranscriptToken is one timestamped entry produced by the external
// speech-to-text step. Times are float seconds on the wire, matching what
// whisper-style tools emit.
type TranscriptToken struct {
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence,omitempty"`
}

type Transcript struct {
	Tokens []TranscriptToken `json:"tokens"`
}

// Segment is a silence/punctuation-bounded group of consecutive tokens.
// Segments within one transcript never overlap and are ordered by Start.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Candidate is a duration-bounded window over consecutive segments.
// SegmentRefs are indices into the segment slice it was built from;
// they are lookup references only, the candidate owns no segment data.
type Candidate struct {
	Start       time.Duration
	End         time.Duration
	Text        string
	SegmentRefs []int
}

func (c Candidate) Duration() time.Duration { return c.End - c.Start }

// Judgment is the structured verdict an external model returns about a
// candidate. All fields are normalized to [0,1] by the adapter.
type Judgment struct {
	Hook      float64
	Coherence float64
	Payoff    float64
}

// Score collapses the judgment into a single [0,1] value.
func (j Judgment) Score() float64 {
	return (j.Hook + j.Coherence + j.Payoff) / 3
}

type ScoredCandidate struct {
	Candidate

	SemanticScore  float64
	JudgmentScore  float64
	CompositeScore float64

	// Degraded marks candidates whose judgment signal was unavailable;
	// their composite is computed from the semantic signal alone.
	Degraded       bool
	DegradedReason string
}

// SelectedClip is a scored candidate promoted by the selector. Rank is the
// 1-based selection order; ID is derived from rank and source identity and
// stays stable across runs with identical inputs.
type SelectedClip struct {
	ScoredCandidate

	Rank int
	ID   string
}

// SubtitleCue is one caption cue, timed relative to the clip's own zero
// point (re-based from absolute transcript time at extraction).
type SubtitleCue struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Format is one export target (aspect/resolution profile).
type Format struct {
	Name    string `yaml:"name" json:"name"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Bitrate string `yaml:"bitrate,omitempty" json:"bitrate,omitempty"`
}

// CaptionStyle is the fixed visual profile for burned-in captions.
type CaptionStyle struct {
	Font            string `yaml:"font" json:"font"`
	FontSize        int    `yaml:"font_size" json:"font_size"`
	PrimaryColor    string `yaml:"primary_color" json:"primary_color"`
	OutlineColor    string `yaml:"outline_color" json:"outline_color"`
	OutlineWidth    int    `yaml:"outline_width" json:"outline_width"`
	MaxCharsPerLine int    `yaml:"max_chars_per_line" json:"max_chars_per_line"`
}

type Manifest struct {
	Input      string `json:"input"`
	Transcript string `json:"transcript"`
	// Shortfall is how many requested clips had no feasible non-overlapping
	// candidate left. A reported condition, not an error.
	Shortfall int            `json:"shortfall,omitempty"`
	Clips     []ManifestClip `json:"clips"`
}

type ManifestClip struct {
	ID             string             `json:"id"`
	Rank           int                `json:"rank"`
	StartSec       float64            `json:"start_sec"`
	EndSec         float64            `json:"end_sec"`
	SemanticScore  float64            `json:"semantic_score"`
	JudgmentScore  float64            `json:"judgment_score"`
	CompositeScore float64            `json:"composite_score"`
	Degraded       bool               `json:"degraded,omitempty"`
	DegradedReason string             `json:"degraded_reason,omitempty"`
	Text           string             `json:"text"`
	Subtitles      string             `json:"subtitles"`
	Formats        []ManifestArtifact `json:"formats"`
}

// ManifestArtifact is one format variant of one clip: either a produced
// file or an explicit stage-tagged failure, never a silent gap.
type ManifestArtifact struct {
	Format      string `json:"format"`
	File        string `json:"file,omitempty"`
	FailedStage string `json:"failed_stage,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
