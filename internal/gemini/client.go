// Package gemini is a small REST client for the Gemini generateContent API.
// It covers the three call shapes the logbook needs: plain text, structured
// JSON, and text-to-speech audio.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	DefaultBaseURL     = "https://generativelanguage.googleapis.com"
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultSpeechModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice       = "Kore"
)

var (
	// ErrNotConfigured is returned by every call when no API key is set.
	ErrNotConfigured = errors.New("gemini: api key not configured")

	// ErrEmptyResponse is returned when the model produced no usable part.
	ErrEmptyResponse = errors.New("gemini: empty response")
)

// Config holds client settings. Zero values fall back to the defaults above.
type Config struct {
	APIKey      string
	BaseURL     string
	TextModel   string
	SpeechModel string
	Voice       string
	MaxRetries  uint64
	HTTPClient  *http.Client
}

// Client calls the Gemini REST API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a Client. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.TextModel == "" {
		cfg.TextModel = DefaultTextModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

// Image is inline binary input.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerateText sends prompt, plus any images, to the text model and returns
// the concatenated text parts.
func (c *Client) GenerateText(ctx context.Context, prompt string, images ...Image) (string, error) {
	resp, err := c.generate(ctx, c.cfg.TextModel, request{Contents: []content{userContent(prompt, images)}})
	if err != nil {
		return "", fmt.Errorf("gemini.Client.GenerateText: %w", err)
	}
	text := resp.text()
	if text == "" {
		return "", fmt.Errorf("gemini.Client.GenerateText: %w", ErrEmptyResponse)
	}
	return text, nil
}

// GenerateJSON asks for a JSON response matching schema and decodes it into out.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema Schema, out any, images ...Image) error {
	req := request{
		Contents: []content{userContent(prompt, images)},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   &schema,
		},
	}
	resp, err := c.generate(ctx, c.cfg.TextModel, req)
	if err != nil {
		return fmt.Errorf("gemini.Client.GenerateJSON: %w", err)
	}
	text := strings.TrimSpace(resp.text())
	if text == "" {
		return fmt.Errorf("gemini.Client.GenerateJSON: %w", ErrEmptyResponse)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("gemini.Client.GenerateJSON: decode model output: %w", err)
	}
	return nil
}

// Synthesize converts text to speech and returns the raw audio bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := request{
		Contents: []content{userContent(text, nil)},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: c.cfg.Voice}},
			},
		},
	}
	resp, err := c.generate(ctx, c.cfg.SpeechModel, req)
	if err != nil {
		return nil, fmt.Errorf("gemini.Client.Synthesize: %w", err)
	}
	data := resp.inlineData()
	if data == "" {
		return nil, fmt.Errorf("gemini.Client.Synthesize: %w", ErrEmptyResponse)
	}
	audio, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("gemini.Client.Synthesize: decode audio: %w", err)
	}
	return audio, nil
}

// StatusError is a non-2xx reply from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.Code, e.Body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (c *Client) generate(ctx context.Context, model string, req request) (*response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, url.PathEscape(model))

	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(200*time.Millisecond))

	var out response
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

		httpResp, err := c.http.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		defer httpResp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 32<<20))
		if err != nil {
			return retry.RetryableError(err)
		}
		if httpResp.StatusCode/100 != 2 {
			serr := &StatusError{Code: httpResp.StatusCode, Body: truncate(string(raw), 512)}
			if retryable(httpResp.StatusCode) {
				c.logger.Warn("gemini request failed, retrying", "model", model, "status", httpResp.StatusCode)
				return retry.RetryableError(serr)
			}
			return serr
		}
		out = response{}
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
