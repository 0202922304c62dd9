// Package analysis runs the call analysis pipeline: transcribe, extract,
// score, store and publish.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/klesify/klesify-backend/internal/extract"
	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/klesify/klesify-backend/pkg/core"
)

// Scorer scores extracted claims.
type Scorer interface {
	Detect(ctx context.Context, info core.CallerInfo, phone string) (core.FraudReport, error)
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio transcribe.Audio) (string, error)
}

// Broadcaster publishes stored analyses.
type Broadcaster interface {
	Broadcast(s core.AnalysisSummary)
}

// Deps are the pipeline stages. Extractor, Transcriber, Store and
// Notifier may be nil; the operations needing them then fail or skip.
type Deps struct {
	Extractor   extract.Extractor
	Transcriber Transcriber
	Scorer      Scorer
	Store       core.Store
	Notifier    Broadcaster
	Logger      *slog.Logger
}

// Service runs analyses.
type Service struct {
	deps  Deps
	newID func() string
	now   func() time.Time
}

// New creates a Service.
func New(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		deps:  deps,
		newID: func() string { return uuid.New().String() },
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// AnalyzeText extracts claims from a transcript and scores them.
func (s *Service) AnalyzeText(ctx context.Context, text, phone string) (*core.FraudReport, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return nil, err
	}
	info, err := s.extract(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, info, phone, text)
}

// AnalyzeExtracted scores claims that were extracted elsewhere.
func (s *Service) AnalyzeExtracted(ctx context.Context, info core.CallerInfo, phone string) (*core.FraudReport, error) {
	return s.score(ctx, info, phone, "")
}

// AnalyzeAudio transcribes a recording, then analyses the transcript. The
// transcript is kept on the report.
func (s *Service) AnalyzeAudio(ctx context.Context, audio transcribe.Audio, phone string) (*core.FraudReport, error) {
	if err := network.ValidatePhone(phone); err != nil {
		return nil, err
	}
	if s.deps.Transcriber == nil {
		return nil, fmt.Errorf("%w: transcription is not available", core.ErrNotConfigured)
	}
	text, err := s.deps.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, core.InvalidArgument("transcription is empty")
	}
	s.deps.Logger.Debug("audio transcribed", "phone", phone, "chars", len(text))

	info, err := s.extract(ctx, text)
	if err != nil {
		return nil, err
	}
	return s.score(ctx, info, phone, text)
}

func (s *Service) extract(ctx context.Context, text string) (core.CallerInfo, error) {
	if s.deps.Extractor == nil {
		return core.CallerInfo{}, fmt.Errorf("%w: extraction is not available", core.ErrNotConfigured)
	}
	return s.deps.Extractor.Extract(ctx, text)
}

func (s *Service) score(ctx context.Context, info core.CallerInfo, phone, transcript string) (*core.FraudReport, error) {
	report, err := s.deps.Scorer.Detect(ctx, info, phone)
	if err != nil {
		return nil, err
	}
	report.ID = s.newID()
	report.CreatedAt = s.now()
	report.Transcript = transcript

	if s.deps.Store != nil {
		if err := s.deps.Store.SaveReport(ctx, &report); err != nil {
			s.deps.Logger.Error("failed to store analysis", "id", report.ID, "error", err)
		}
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.Broadcast(report.Summary())
	}
	s.deps.Logger.Info("analysis completed",
		"id", report.ID,
		"phone", phone,
		"score", report.OverallScamScore,
		"risk_level", report.RiskLevel,
	)
	return &report, nil
}
