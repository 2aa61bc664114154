package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/types"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTranscript_ObjectShape(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "t.json", `{"tokens":[{"text":"hi","start":0,"end":0.5}]}`)
	tr, err := loadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Tokens) != 1 || tr.Tokens[0].Text != "hi" {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestLoadTranscript_BareArrayShape(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "t.json", `[{"text":"hi","start":0,"end":0.5}]`)
	tr, err := loadTranscript(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(tr.Tokens) != 1 {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
}

func TestLoadTranscript_FatalInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", "not json at all"},
		{"empty tokens", `{"tokens":[]}`},
		{"inverted token", `{"tokens":[{"text":"x","start":2,"end":1}]}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, "t.json", tt.body)
			_, err := loadTranscript(path)
			var ie *types.InputError
			if !errors.As(err, &ie) {
				t.Fatalf("expected InputError, got %v", err)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	input := writeFile(t, "talk.mp4", "video")
	transcript := writeFile(t, "talk.transcript.json", `{"tokens":[]}`)

	valid := Config{
		InputPath:      input,
		TranscriptPath: transcript,
		Run:            config.Default(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	missing := valid
	missing.InputPath = filepath.Join(t.TempDir(), "nope.mp4")
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for missing input")
	}

	badJudge := valid
	badJudge.Run.Judge.BaseURL = "http://openrouter.ai"
	if err := badJudge.Validate(); err == nil {
		t.Fatal("expected error for plain-http judge endpoint")
	}

	badRun := valid
	badRun.Run.Selection.TopNClips = 0
	if err := badRun.Validate(); err == nil {
		t.Fatal("expected run config error to surface")
	}
}

func TestBuildRunOutDir(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	dir := buildRunOutDir("out", "/videos/My Talk (final).mp4", now)

	base := filepath.Base(dir)
	if !strings.HasPrefix(base, "my-talk-final-20260314-150926Z-") {
		t.Fatalf("unexpected run dir name: %q", base)
	}
	if filepath.Dir(dir) != "out" {
		t.Fatalf("run dir not under out root: %q", dir)
	}

	// A different timestamp yields a different directory for the same input.
	other := buildRunOutDir("out", "/videos/My Talk (final).mp4", now.Add(time.Second))
	if other == dir {
		t.Fatal("run dirs must not collide across runs")
	}
}

func TestNormalizePathSegment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"My Talk (final)", "my-talk-final"},
		{"___", ""},
		{"  Spaced  Out  ", "spaced-out"},
		{"Already-clean", "already-clean"},
	}
	for _, tt := range tests {
		if got := normalizePathSegment(tt.in); got != tt.want {
			t.Fatalf("normalizePathSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
