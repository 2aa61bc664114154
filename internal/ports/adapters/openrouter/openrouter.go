// Package openrouter implements the Judge port against the OpenRouter
// chat-completions API. The adapter owns the prompt-to-score parsing
// contract: whatever the model returns must map into a Judgment with every
// field in [0,1], otherwise the call fails with ErrMalformed. Failures are
// per-candidate and recoverable; the scorer degrades instead of aborting.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/clipforge/clipforge/internal/types"
)

// ErrMalformed marks a response that could not be mapped to a valid
// judgment. Wrapped in every parse-contract failure.
var ErrMalformed = errors.New("openrouter: malformed judgment response")

type Adapter struct {
	key     string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

func New(apiKey, model, baseURL string, timeout time.Duration) *Adapter {
	if model == "" {
		model = "z-ai/glm-4.5-air:free"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		timeout: timeout,
		client:  &http.Client{Timeout: 2 * timeout},
	}
}

func (a *Adapter) Judge(ctx context.Context, text string) (types.Judgment, error) {
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": judgePrompt(text)},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name": "clip_judgment",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"hook":      map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"coherence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
						"payoff":    map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
					},
					"required": []string{"hook", "coherence", "payoff"},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return types.Judgment{}, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return types.Judgment{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return types.Judgment{}, fmt.Errorf("openrouter timeout after %s (model=%s)", a.timeout, a.model)
		}
		return types.Judgment{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return types.Judgment{}, fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		return types.Judgment{}, fmt.Errorf("openrouter status %d: %s",
			resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return types.Judgment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(raw.Choices) == 0 {
		return types.Judgment{}, fmt.Errorf("%w: no choices", ErrMalformed)
	}

	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return types.Judgment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.Judgment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var verdict struct {
		Hook      *float64 `json:"hook"`
		Coherence *float64 `json:"coherence"`
		Payoff    *float64 `json:"payoff"`
	}
	if err := json.Unmarshal([]byte(clean), &verdict); err != nil {
		return types.Judgment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	j := types.Judgment{}
	for _, f := range []struct {
		name string
		src  *float64
		dst  *float64
	}{
		{"hook", verdict.Hook, &j.Hook},
		{"coherence", verdict.Coherence, &j.Coherence},
		{"payoff", verdict.Payoff, &j.Payoff},
	} {
		if f.src == nil {
			return types.Judgment{}, fmt.Errorf("%w: missing %s", ErrMalformed, f.name)
		}
		if *f.src < 0 || *f.src > 100 {
			return types.Judgment{}, fmt.Errorf("%w: %s=%v out of [0,100]", ErrMalformed, f.name, *f.src)
		}
		*f.dst = *f.src / 100
	}
	return j, nil
}

func judgePrompt(text string) string {
	return "Rate this video clip transcript for short-form publishing. " +
		"Return strictly valid JSON (no markdown, no code fences) with integer fields " +
		"hook, coherence and payoff, each 0-100. " +
		"hook: how strongly the first seconds grab attention. " +
		"coherence: whether the clip stands alone as a complete thought. " +
		"payoff: whether it ends on a satisfying conclusion or insight." +
		"\n\nTranscript:\n" + text
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
