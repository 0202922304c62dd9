// Package openai is a small HTTP client for the OpenAI chat completion and
// audio transcription endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/klesify/klesify-backend/pkg/core"
)

// Defaults.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 60 * time.Second

	// PlaceholderKey is the value shipped in .env.example.
	PlaceholderKey = "your_openai_api_key_here"

	maxRetries = 3
)

// Config holds the client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the OpenAI REST API. Requests are retried on 429 and on
// transport errors with exponential backoff.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *slog.Logger
	backoff func(attempt int) time.Duration
}

// New creates a client. A missing key is only reported when a request is made.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
		backoff: func(attempt int) time.Duration { return time.Duration(1<<uint(attempt-1)) * time.Second },
	}
}

// Configured reports whether a usable API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != PlaceholderKey
}

// Message is a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects structured output.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the chat completions request body.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends a chat completion and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is not set", core.ErrNotConfigured)
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	body, err := c.do(ctx, "chat", func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", "application/json")
		return r, nil
	})
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.logger.Debug("chat completed", "model", req.Model, "duration", time.Since(start), "response_len", len(content))
	return content, nil
}

// TranscriptionRequest is the audio transcription form.
type TranscriptionRequest struct {
	Audio          []byte
	Filename       string
	Model          string
	Language       string
	ResponseFormat string
}

// Transcribe uploads audio and returns the raw response body, plain text or
// JSON depending on ResponseFormat.
func (c *Client) Transcribe(ctx context.Context, req TranscriptionRequest) ([]byte, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", core.ErrNotConfigured)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	for k, v := range map[string]string{
		"model":           req.Model,
		"language":        req.Language,
		"response_format": req.ResponseFormat,
	} {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to build form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	form := buf.Bytes()
	contentType := mw.FormDataContentType()

	return c.do(ctx, "transcription", func() (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", bytes.NewReader(form))
		if err != nil {
			return nil, err
		}
		r.Header.Set("Content-Type", contentType)
		return r, nil
	})
}

// do runs build+send with retries and returns the body of a 200 answer.
func (c *Client) do(ctx context.Context, op string, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(i)):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warn("openai request failed, retrying", "op", op, "attempt", i+1, "error", err)
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = &core.UpstreamError{Service: "openai", StatusCode: resp.StatusCode, Body: string(body)}
			c.logger.Warn("openai rate limited, retrying", "op", op, "attempt", i+1)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			c.logger.Error("openai request rejected", "op", op, "status", resp.StatusCode)
			return nil, &core.UpstreamError{Service: "openai", StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
