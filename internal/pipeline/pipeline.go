package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/ports"
	"github.com/clipforge/clipforge/internal/ports/adapters/ffmpeg"
	"github.com/clipforge/clipforge/internal/ports/adapters/openaiembed"
	"github.com/clipforge/clipforge/internal/ports/adapters/openrouter"
	"github.com/clipforge/clipforge/internal/types"
	"github.com/clipforge/clipforge/internal/usecase"
)

type Config struct {
	InputPath      string
	TranscriptPath string
	OutDir         string
	// CacheDir is the base directory for intermediate render artifacts.
	// If empty, defaults to ".cache".
	CacheDir string

	Run config.Config

	FFmpegPath  string
	FFprobePath string

	OpenRouterAPIKey string
	OpenAIAPIKey     string

	Log *slog.Logger
}

// Validate runs every fatal pre-flight check before any expensive work:
// paths, run configuration and the judge endpoint allow list.
func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputPath); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.TranscriptPath == "" {
		return errors.New("transcript path is required")
	}
	if _, err := os.Stat(c.TranscriptPath); err != nil {
		return fmt.Errorf("stat transcript: %w", err)
	}
	if err := c.Run.Validate(); err != nil {
		return err
	}
	return openrouter.ValidateBaseURL(c.Run.Judge.BaseURL, c.Run.Judge.AllowedHosts)
}

func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	tr, err := loadTranscript(cfg.TranscriptPath)
	if err != nil {
		return err
	}

	video := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	var embed ports.Embedder
	if cfg.OpenAIAPIKey != "" {
		embed = openaiembed.New(cfg.OpenAIAPIKey, cfg.Run.Embed.BaseURL,
			cfg.Run.Embed.Model, cfg.Run.Embed.Timeout())
	} else {
		log.Warn("no embedding API key, semantic scoring uses lexical fallback")
	}
	var judge ports.Judge
	if cfg.OpenRouterAPIKey != "" {
		judge = openrouter.New(cfg.OpenRouterAPIKey, cfg.Run.Judge.Model,
			cfg.Run.Judge.BaseURL, cfg.Run.Judge.Timeout())
	} else {
		log.Warn("no judge API key, all candidates will be scored degraded")
	}

	uc := usecase.New(usecase.Deps{Video: video, Embed: embed, Judge: judge, Log: log})

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", hash(cfg.InputPath))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	outRoot := cfg.OutDir
	if outRoot == "" {
		outRoot = "out"
	}
	runOutDir := buildRunOutDir(outRoot, cfg.InputPath, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}
	log.Info("run directories prepared", "out", runOutDir, "cache", cacheDir)

	res, err := uc.Run(ctx, usecase.Input{
		SourcePath:     cfg.InputPath,
		TranscriptPath: cfg.TranscriptPath,
		Transcript:     tr,
		Config:         cfg.Run,
		CacheDir:       cacheDir,
		OutDir:         runOutDir,
	})
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return err
	}
	log.Info("manifest written", "clips", len(res.Manifest.Clips),
		"shortfall", res.Manifest.Shortfall, "path", manifestPath)
	return nil
}

// loadTranscript reads the token JSON the external speech-to-text step
// produced. Malformed or empty input is fatal before any selection work.
func loadTranscript(path string) (types.Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var tr types.Transcript
	if err := json.Unmarshal(b, &tr); err != nil {
		// Tolerate a bare token array, the other shape whisper exporters emit.
		var tokens []types.TranscriptToken
		if err2 := json.Unmarshal(b, &tokens); err2 != nil {
			return types.Transcript{}, &types.InputError{Reason: fmt.Sprintf("parse transcript %s: %v", path, err)}
		}
		tr.Tokens = tokens
	}
	if len(tr.Tokens) == 0 {
		return types.Transcript{}, &types.InputError{Reason: "transcript is empty"}
	}
	for i, t := range tr.Tokens {
		if t.End < t.Start {
			return types.Transcript{}, &types.InputError{
				Reason: fmt.Sprintf("token %d has end %.3f before start %.3f", i, t.End, t.Start),
			}
		}
	}
	return tr, nil
}

func buildRunOutDir(outRoot, inputPath string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputPath, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.Embedder = (*openaiembed.Adapter)(nil)
var _ ports.Judge = (*openrouter.Adapter)(nil)
