// Package transcribe converts call recordings to text with Whisper.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klesify/klesify-backend/internal/openai"
	"github.com/klesify/klesify-backend/pkg/core"
)

// Defaults.
const (
	DefaultModel    = "whisper-1"
	DefaultLanguage = "ro"
	DefaultFormat   = "mp3"
)

// Audio is a recording to transcribe. Empty Format and Language fall back
// to the transcriber's defaults.
type Audio struct {
	Data     io.Reader
	Format   string
	Language string
}

// FromBytes wraps an in-memory recording.
func FromBytes(data []byte, format string) Audio {
	return Audio{Data: bytes.NewReader(data), Format: format}
}

// FromFile opens a recording from disk. The format is taken from the file
// extension. The caller closes the returned file.
func FromFile(path string) (Audio, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Audio{}, nil, fmt.Errorf("open audio: %w", err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Audio{Data: f, Format: format}, f, nil
}

// Segment is a timed piece of a detailed transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Detailed is a transcript with timestamps.
type Detailed struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Duration float64   `json:"duration"`
	Language string    `json:"language"`
}

// Uploader is the part of the OpenAI client the transcriber needs.
type Uploader interface {
	Transcribe(ctx context.Context, req openai.TranscriptionRequest) ([]byte, error)
}

// Transcriber turns audio into text.
type Transcriber struct {
	client   Uploader
	model    string
	language string
	logger   *slog.Logger
}

// Config holds transcriber defaults.
type Config struct {
	Model    string
	Language string
}

// New creates a transcriber.
func New(client Uploader, cfg Config, logger *slog.Logger) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transcriber{client: client, model: cfg.Model, language: cfg.Language, logger: logger}
}

// Transcribe returns the plain text of the recording.
func (t *Transcriber) Transcribe(ctx context.Context, audio Audio) (string, error) {
	body, err := t.upload(ctx, audio, "text")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// TranscribeDetailed returns the transcript with segment timestamps.
func (t *Transcriber) TranscribeDetailed(ctx context.Context, audio Audio) (Detailed, error) {
	body, err := t.upload(ctx, audio, "verbose_json")
	if err != nil {
		return Detailed{}, err
	}
	var out Detailed
	if err := json.Unmarshal(body, &out); err != nil {
		return Detailed{}, fmt.Errorf("transcribe: failed to parse response: %w", err)
	}
	if out.Language == "" {
		out.Language = t.languageOf(audio)
	}
	if out.Segments == nil {
		out.Segments = []Segment{}
	}
	return out, nil
}

func (t *Transcriber) languageOf(audio Audio) string {
	if audio.Language != "" {
		return audio.Language
	}
	return t.language
}

func (t *Transcriber) upload(ctx context.Context, audio Audio, responseFormat string) ([]byte, error) {
	if audio.Data == nil {
		return nil, core.InvalidArgument("audio is required")
	}
	data, err := io.ReadAll(audio.Data)
	if err != nil {
		return nil, fmt.Errorf("transcribe: read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, core.InvalidArgument("audio is empty")
	}
	format := audio.Format
	if format == "" {
		format = DefaultFormat
	}

	body, err := t.client.Transcribe(ctx, openai.TranscriptionRequest{
		Audio:          data,
		Filename:       "audio." + format,
		Model:          t.model,
		Language:       t.languageOf(audio),
		ResponseFormat: responseFormat,
	})
	if err != nil {
		t.logger.Error("transcription failed", "error", err)
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	t.logger.Debug("audio transcribed", "bytes", len(data), "format", format, "response_format", responseFormat)
	return body, nil
}

// SaveAudio writes a recording to path, creating parent directories.
func SaveAudio(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save audio: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save audio: %w", err)
	}
	return nil
}
