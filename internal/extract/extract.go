// Package extract pulls caller claims out of call transcripts with an LLM.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/klesify/klesify-backend/internal/openai"
	"github.com/klesify/klesify-backend/pkg/core"
)

// DefaultModel is the chat model used for extraction.
const DefaultModel = "gpt-4o-mini"

// Extractor turns free text into structured caller claims.
type Extractor interface {
	Extract(ctx context.Context, text string) (core.CallerInfo, error)
}

// Chatter is the part of the OpenAI client the extractor needs.
type Chatter interface {
	Chat(ctx context.Context, req openai.ChatRequest) (string, error)
}

// LLM extracts caller information with an OpenAI chat model.
type LLM struct {
	chat   Chatter
	model  string
	logger *slog.Logger
}

var _ Extractor = (*LLM)(nil)

// New creates an LLM extractor. An empty model selects DefaultModel.
func New(chat Chatter, model string, logger *slog.Logger) *LLM {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LLM{chat: chat, model: model, logger: logger}
}

// Extract asks the model for the caller's claims in text.
func (e *LLM) Extract(ctx context.Context, text string) (core.CallerInfo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return core.CallerInfo{}, core.InvalidArgument("text is required")
	}

	content, err := e.chat.Chat(ctx, openai.ChatRequest{
		Model: e.model,
		Messages: []openai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Extract user information from this text:\n\n" + text},
		},
		Temperature:    0.1,
		ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		e.logger.Error("extraction failed", "error", err)
		return core.CallerInfo{}, fmt.Errorf("extract caller info: %w", err)
	}

	var info core.CallerInfo
	if err := json.Unmarshal([]byte(content), &info); err != nil {
		e.logger.Error("extraction returned invalid JSON", "error", err, "content", content)
		return core.CallerInfo{}, fmt.Errorf("extract caller info: invalid model output: %w", err)
	}
	e.logger.Debug("caller info extracted", "name", info.Name, "city", info.City(), "company", info.Company())
	return info, nil
}
