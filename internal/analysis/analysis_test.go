package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/klesify/klesify-backend/internal/server/notifier"
	"github.com/klesify/klesify-backend/internal/testutil"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	info core.CallerInfo
	err  error
	got  string
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (core.CallerInfo, error) {
	f.got = text
	return f.info, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, transcribe.Audio) (string, error) {
	return f.text, f.err
}

type fakeScorer struct {
	got core.CallerInfo
}

func (f *fakeScorer) Detect(_ context.Context, info core.CallerInfo, phone string) (core.FraudReport, error) {
	f.got = info
	return core.FraudReport{CallerPhone: phone, OverallScamScore: 62, RiskLevel: core.RiskHigh, Extracted: info}, nil
}

type memStore struct {
	saved []*core.FraudReport
	err   error
}

func (m *memStore) SaveReport(_ context.Context, r *core.FraudReport) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, r)
	return nil
}

func (m *memStore) GetReport(context.Context, string) (*core.FraudReport, error) {
	return nil, core.ErrNotFound
}

func (m *memStore) ListReports(context.Context, core.ListOptions) ([]core.AnalysisSummary, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func newTestService(t *testing.T, deps Deps) *Service {
	t.Helper()
	if deps.Scorer == nil {
		deps.Scorer = &fakeScorer{}
	}
	deps.Logger = testutil.NewTestLogger(t)
	s := New(deps)
	s.newID = func() string { return "id-1" }
	s.now = func() time.Time { return time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestAnalyzeText(t *testing.T) {
	ext := &fakeExtractor{info: core.CallerInfo{Name: "Ion", CompanyName: "BCR"}}
	st := &memStore{}
	n := notifier.New()
	sub := n.Subscribe()
	defer n.Unsubscribe(sub)

	s := newTestService(t, Deps{Extractor: ext, Store: st, Notifier: n})
	report, err := s.AnalyzeText(context.Background(), "Sunt Ion de la BCR", "+40712345678")
	require.NoError(t, err)

	assert.Equal(t, "Sunt Ion de la BCR", ext.got)
	assert.Equal(t, "id-1", report.ID)
	assert.Equal(t, "Sunt Ion de la BCR", report.Transcript)
	assert.Equal(t, "BCR", report.Extracted.CompanyName)
	assert.Equal(t, 2025, report.CreatedAt.Year())

	require.Len(t, st.saved, 1)
	assert.Equal(t, "id-1", st.saved[0].ID)

	select {
	case got := <-sub:
		assert.Equal(t, core.AnalysisSummary{ID: "id-1", CallerPhone: "+40712345678", Score: 62, RiskLevel: core.RiskHigh, CreatedAt: report.CreatedAt}, got)
	case <-time.After(time.Second):
		t.Fatal("no broadcast")
	}
}

func TestAnalyzeText_Errors(t *testing.T) {
	s := newTestService(t, Deps{Extractor: &fakeExtractor{err: core.ErrNotConfigured}})

	_, err := s.AnalyzeText(context.Background(), "x", "")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = s.AnalyzeText(context.Background(), "x", "+40712345678")
	assert.ErrorIs(t, err, core.ErrNotConfigured)

	_, err = newTestService(t, Deps{}).AnalyzeText(context.Background(), "x", "+40712345678")
	assert.ErrorIs(t, err, core.ErrNotConfigured)
}

func TestAnalyzeExtracted_StoreFailureStillReturns(t *testing.T) {
	logger, logs := testutil.NewCapturingLogger()
	scorer := &fakeScorer{}
	s := New(Deps{Scorer: scorer, Store: &memStore{err: errors.New("db down")}, Logger: logger})

	report, err := s.AnalyzeExtracted(context.Background(), core.CallerInfo{Locality: "Sibiu"}, "+40712345678")
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Empty(t, report.Transcript)
	assert.Equal(t, "Sibiu", scorer.got.Locality)
	assert.True(t, strings.Contains(logs.String(), "failed to store analysis"))
}

func TestAnalyzeAudio(t *testing.T) {
	ext := &fakeExtractor{info: core.CallerInfo{Name: "Ana"}}
	s := newTestService(t, Deps{Extractor: ext, Transcriber: fakeTranscriber{text: "Bună, sunt Ana."}})

	report, err := s.AnalyzeAudio(context.Background(), transcribe.FromBytes([]byte("ID3"), "mp3"), "+40712345678")
	require.NoError(t, err)
	assert.Equal(t, "Bună, sunt Ana.", ext.got)
	assert.Equal(t, "Bună, sunt Ana.", report.Transcript)
}

func TestAnalyzeAudio_Errors(t *testing.T) {
	audio := transcribe.FromBytes([]byte("ID3"), "mp3")

	_, err := newTestService(t, Deps{}).AnalyzeAudio(context.Background(), audio, "+40712345678")
	assert.ErrorIs(t, err, core.ErrNotConfigured)

	s := newTestService(t, Deps{Extractor: &fakeExtractor{}, Transcriber: fakeTranscriber{}})
	_, err = s.AnalyzeAudio(context.Background(), audio, "+40712345678")
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	s = newTestService(t, Deps{Extractor: &fakeExtractor{}, Transcriber: fakeTranscriber{err: core.ErrUpstream}})
	_, err = s.AnalyzeAudio(context.Background(), audio, "+40712345678")
	assert.ErrorIs(t, err, core.ErrUpstream)
}
