package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	transcript, _ := cmd.Flags().GetString("transcript")
	configPath, _ := cmd.Flags().GetString("config")
	outDir, _ := cmd.Flags().GetString("out")
	clipsN, _ := cmd.Flags().GetInt("clips")

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	if transcript == "" {
		transcript = strings.TrimSuffix(absIn, filepath.Ext(absIn)) + ".transcript.json"
	}

	runCfg := config.Default()
	if configPath != "" {
		runCfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if clipsN > 0 {
		runCfg.Selection.TopNClips = clipsN
	}

	// Ctrl-C cancels the run; in-flight render jobs reach a terminal
	// cancelled state instead of leaving partial files behind.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := pipeline.Config{
		InputPath:      absIn,
		TranscriptPath: transcript,
		OutDir:         outDir,
		Run:            runCfg,

		FFmpegPath:  getenvDefault("CLIPFORGE_FFMPEG", "ffmpeg"),
		FFprobePath: getenvDefault("CLIPFORGE_FFPROBE", "ffprobe"),

		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),

		Log: slog.Default(),
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, cfg)
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
