// Package llm implements the single-shot language-model capability spec
// §6 describes: one prompt in, one string out, never a hard dependency.
// Grounded on the teacher's ai/client.go (OpenAIClient.GenerateResponse):
// same HTTP construction, same core.AIClient-shaped contract, narrowed to
// the one method this spec actually calls.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aviantrail/tripplanner/internal/core"
)

// Client is the capability every LLM-dependent stage depends on. A single
// method keeps the contract narrow enough that stages degrade cleanly
// when it's absent (spec §9 "LLM dependency as optional capability").
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Sanitizer is the injected prompt-sanitization filter spec §1/§6 places
// out of scope ("treat as an injected filter... regex set is out of scope
// here"). DefaultSanitizer below is a conservative stand-in, not the
// production filter.
type Sanitizer interface {
	Sanitize(prompt string) string
}

// DefaultSanitizer strips control characters and caps prompt length. It
// is intentionally minimal — the real inject-pattern regex set is a
// collaborator this spec does not define.
type DefaultSanitizer struct {
	MaxLength int
}

// NewDefaultSanitizer returns a sanitizer capping prompts at maxLength
// characters (0 means "use spec's 8000-char default").
func NewDefaultSanitizer(maxLength int) *DefaultSanitizer {
	if maxLength <= 0 {
		maxLength = 8000
	}
	return &DefaultSanitizer{MaxLength: maxLength}
}

func (s *DefaultSanitizer) Sanitize(prompt string) string {
	out := make([]rune, 0, len(prompt))
	for _, r := range prompt {
		if r == '\n' || r == '\t' || (r >= 0x20 && r != 0x7f) {
			out = append(out, r)
		}
	}
	if len(out) > s.MaxLength {
		out = out[:s.MaxLength]
	}
	return string(out)
}

// HTTPClient is the production Client backed by a chat-completions style
// HTTP endpoint, grounded on ai/client.go.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
	sanitizer  Sanitizer
	model      string
}

// NewHTTPClient creates an HTTP-backed Client. baseURL defaults to
// OpenAI-compatible "/chat/completions" semantics.
func NewHTTPClient(apiKey, baseURL string, timeout time.Duration, logger core.Logger) *HTTPClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		logger:    logger,
		sanitizer: NewDefaultSanitizer(0),
		model:     "gpt-4",
	}
}

// Complete sends prompt (after sanitization) and returns the model's text.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", core.NewLanguageModelError("llm.Complete", fmt.Errorf("no API key configured"))
	}

	sanitized := c.sanitizer.Sanitize(prompt)

	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": sanitized},
		},
		"temperature": 0.7,
		"max_tokens":  1000,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", core.NewLanguageModelError("llm.Complete", fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", core.NewLanguageModelError("llm.Complete", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("llm request failed", map[string]interface{}{"error": err.Error()})
		return "", core.NewLanguageModelError("llm.Complete", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", core.NewLanguageModelError("llm.Complete", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", core.NewLanguageModelError("llm.Complete", fmt.Errorf("unmarshal response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", core.NewLanguageModelError("llm.Complete", fmt.Errorf("no choices in response"))
	}
	return parsed.Choices[0].Message.Content, nil
}
