// Package config holds the typed run configuration. Every recognized option
// is enumerated here and validated at load time; unknown keys in the YAML
// file are rejected before any pipeline stage runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clipforge/clipforge/internal/types"
)

type Config struct {
	// ModelSize is informational only: it records which speech model
	// produced the transcript, it changes no behavior here.
	ModelSize string `yaml:"model_size"`

	Clip      ClipConfig      `yaml:"clip"`
	Segmenter SegmenterConfig `yaml:"segmenter"`
	Selection SelectionConfig `yaml:"selection"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Export    ExportConfig    `yaml:"export"`

	Formats  []types.Format     `yaml:"formats"`
	Captions types.CaptionStyle `yaml:"captions"`

	Judge JudgeConfig `yaml:"judge"`
	Embed EmbedConfig `yaml:"embed"`
}

type ClipConfig struct {
	MinDurationSeconds float64 `yaml:"min_duration_seconds"`
	MaxDurationSeconds float64 `yaml:"max_duration_seconds"`
}

func (c ClipConfig) Min() time.Duration { return dur(c.MinDurationSeconds) }
func (c ClipConfig) Max() time.Duration { return dur(c.MaxDurationSeconds) }

type SegmenterConfig struct {
	SilenceThresholdSeconds float64 `yaml:"silence_threshold_seconds"`
	MinSegmentSeconds       float64 `yaml:"min_segment_seconds"`
}

func (c SegmenterConfig) SilenceThreshold() time.Duration { return dur(c.SilenceThresholdSeconds) }
func (c SegmenterConfig) MinSegment() time.Duration       { return dur(c.MinSegmentSeconds) }

type SelectionConfig struct {
	TopNClips int `yaml:"top_n_clips"`
	// MinGapSeconds keeps selected clips apart on the timeline; 0 only
	// forbids overlap.
	MinGapSeconds float64 `yaml:"min_gap_seconds"`
}

func (c SelectionConfig) MinGap() time.Duration { return dur(c.MinGapSeconds) }

type ScoringConfig struct {
	SemanticWeight      float64 `yaml:"semantic_weight"`
	JudgmentWeight      float64 `yaml:"judgment_weight"`
	DurationBonusWeight float64 `yaml:"duration_bonus_weight"`
	// IdealDurationSeconds anchors the duration bonus curve; 0 means the
	// midpoint of the clip duration bounds.
	IdealDurationSeconds float64 `yaml:"ideal_duration_seconds"`
}

type ExportConfig struct {
	// Workers bounds parallel render jobs; 0 means GOMAXPROCS.
	Workers           int  `yaml:"workers"`
	VerifyToleranceMS int  `yaml:"verify_tolerance_ms"`
	KeepIntermediates bool `yaml:"keep_intermediates"`
}

func (c ExportConfig) VerifyTolerance() time.Duration {
	return time.Duration(c.VerifyToleranceMS) * time.Millisecond
}

type JudgeConfig struct {
	Model          string   `yaml:"model"`
	BaseURL        string   `yaml:"base_url"`
	AllowedHosts   []string `yaml:"allowed_hosts"`
	TimeoutSeconds float64  `yaml:"timeout_seconds"`
}

func (c JudgeConfig) Timeout() time.Duration { return dur(c.TimeoutSeconds) }

type EmbedConfig struct {
	Model          string  `yaml:"model"`
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds float64 `yaml:"timeout_seconds"`
}

func (c EmbedConfig) Timeout() time.Duration { return dur(c.TimeoutSeconds) }

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ModelSize: "base",
		Clip: ClipConfig{
			MinDurationSeconds: 15,
			MaxDurationSeconds: 60,
		},
		Segmenter: SegmenterConfig{
			SilenceThresholdSeconds: 1.5,
			MinSegmentSeconds:       2,
		},
		Selection: SelectionConfig{
			TopNClips:     5,
			MinGapSeconds: 0,
		},
		Scoring: ScoringConfig{
			SemanticWeight:      0.5,
			JudgmentWeight:      0.5,
			DurationBonusWeight: 0.1,
		},
		Export: ExportConfig{
			Workers:           4,
			VerifyToleranceMS: 250,
		},
		Formats: []types.Format{
			{Name: "vertical", Width: 1080, Height: 1920},
			{Name: "horizontal", Width: 1920, Height: 1080},
		},
		Captions: types.CaptionStyle{
			Font:            "Inter",
			FontSize:        24,
			PrimaryColor:    "white",
			OutlineColor:    "black",
			OutlineWidth:    2,
			MaxCharsPerLine: 42,
		},
		Judge: JudgeConfig{
			Model:          "z-ai/glm-4.5-air:free",
			BaseURL:        "https://openrouter.ai",
			TimeoutSeconds: 30,
		},
		Embed: EmbedConfig{
			Model:          "text-embedding-3-small",
			TimeoutSeconds: 30,
		},
	}
}

// Load reads a YAML config file over the defaults. Unknown keys are an
// error so typos fail loudly instead of silently running with defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Clip.MinDurationSeconds <= 0 {
		return errors.New("clip.min_duration_seconds must be > 0")
	}
	if c.Clip.MaxDurationSeconds <= 0 {
		return errors.New("clip.max_duration_seconds must be > 0")
	}
	if c.Clip.Min() > c.Clip.Max() {
		return fmt.Errorf("clip.min_duration_seconds (%v) must be <= clip.max_duration_seconds (%v)",
			c.Clip.Min(), c.Clip.Max())
	}
	if c.Segmenter.SilenceThresholdSeconds <= 0 {
		return errors.New("segmenter.silence_threshold_seconds must be > 0")
	}
	if c.Segmenter.MinSegmentSeconds < 0 {
		return errors.New("segmenter.min_segment_seconds must be >= 0")
	}
	if c.Selection.TopNClips <= 0 {
		return errors.New("selection.top_n_clips must be > 0")
	}
	if c.Selection.MinGapSeconds < 0 {
		return errors.New("selection.min_gap_seconds must be >= 0")
	}
	if c.Scoring.SemanticWeight < 0 || c.Scoring.JudgmentWeight < 0 || c.Scoring.DurationBonusWeight < 0 {
		return errors.New("scoring weights must be >= 0")
	}
	if c.Scoring.SemanticWeight+c.Scoring.JudgmentWeight == 0 {
		return errors.New("scoring.semantic_weight and scoring.judgment_weight must not both be 0")
	}
	if c.Scoring.DurationBonusWeight > 1 {
		return errors.New("scoring.duration_bonus_weight must be <= 1")
	}
	if c.Scoring.IdealDurationSeconds < 0 {
		return errors.New("scoring.ideal_duration_seconds must be >= 0")
	}
	if c.Export.Workers < 0 {
		return errors.New("export.workers must be >= 0")
	}
	if c.Export.VerifyToleranceMS <= 0 {
		return errors.New("export.verify_tolerance_ms must be > 0")
	}
	if len(c.Formats) == 0 {
		return errors.New("at least one export format is required")
	}
	seen := make(map[string]struct{}, len(c.Formats))
	for i, f := range c.Formats {
		if f.Name == "" {
			return fmt.Errorf("formats[%d]: name is required", i)
		}
		if f.Width <= 0 || f.Height <= 0 {
			return fmt.Errorf("formats[%d] %q: width and height must be > 0", i, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("formats[%d]: duplicate name %q", i, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	if c.Captions.MaxCharsPerLine <= 0 {
		return errors.New("captions.max_chars_per_line must be > 0")
	}
	if c.Judge.TimeoutSeconds <= 0 {
		return errors.New("judge.timeout_seconds must be > 0")
	}
	if c.Embed.TimeoutSeconds <= 0 {
		return errors.New("embed.timeout_seconds must be > 0")
	}
	return nil
}

// IdealClipDuration resolves the duration-bonus anchor: explicit config or
// the midpoint of the clip bounds.
func (c Config) IdealClipDuration() time.Duration {
	if c.Scoring.IdealDurationSeconds > 0 {
		return dur(c.Scoring.IdealDurationSeconds)
	}
	return (c.Clip.Min() + c.Clip.Max()) / 2
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
