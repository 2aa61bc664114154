package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present
	configureLogger()

	root := &cobra.Command{
		Use:          "clipforge <input>",
		Short:        "Turn a long-form video and its transcript into ranked, publish-ready clips",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.Flags().String("transcript", "", "Transcript token JSON (default: <input>.transcript.json)")
	root.Flags().String("config", "", "YAML config file (defaults apply when omitted)")
	root.Flags().String("out", "out", "Output directory")
	root.Flags().Int("clips", 0, "Override selection.top_n_clips")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
