package server

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

type extractRequest struct {
	Text string `json:"text"`
}

type analyzeRequest struct {
	CallerPhone string           `json:"callerPhone"`
	Text        string           `json:"text,omitempty"`
	Extracted   *core.CallerInfo `json:"extracted,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Extractor == nil {
		s.writeError(w, r, notConfigured("extraction"))
		return
	}
	var req extractRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	info, err := s.cfg.Extractor.Extract(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// readAudio pulls the "audio" file part out of a multipart form. The
// format comes from the "format" field or the file extension.
func readAudio(w http.ResponseWriter, r *http.Request) (transcribe.Audio, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		return transcribe.Audio{}, core.InvalidArgument("invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return transcribe.Audio{}, core.InvalidArgument("audio file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return transcribe.Audio{}, core.InvalidArgument("failed to read audio: %v", err)
	}
	if len(data) == 0 {
		return transcribe.Audio{}, core.InvalidArgument("audio file is empty")
	}

	format := r.FormValue("format")
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(header.Filename)), ".")
	}
	return transcribe.Audio{
		Data:     bytes.NewReader(data),
		Format:   format,
		Language: r.FormValue("language"),
	}, nil
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Transcriber == nil {
		s.writeError(w, r, notConfigured("transcription"))
		return
	}
	audio, err := readAudio(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if detailed, _ := strconv.ParseBool(r.FormValue("detailed")); detailed {
		out, err := s.cfg.Transcriber.TranscribeDetailed(r.Context(), audio)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	text, err := s.cfg.Transcriber.Transcribe(r.Context(), audio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Analysis == nil {
		s.writeError(w, r, notConfigured("fraud analysis"))
		return
	}
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		report *core.FraudReport
		err    error
	)
	switch {
	case req.Extracted != nil:
		report, err = s.cfg.Analysis.AnalyzeExtracted(r.Context(), *req.Extracted, req.CallerPhone)
	case strings.TrimSpace(req.Text) != "":
		report, err = s.cfg.Analysis.AnalyzeText(r.Context(), req.Text, req.CallerPhone)
	default:
		err = core.InvalidArgument("either text or extracted is required")
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAnalyzeAudio(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Analysis == nil {
		s.writeError(w, r, notConfigured("fraud analysis"))
		return
	}
	audio, err := readAudio(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.cfg.Analysis.AnalyzeAudio(r.Context(), audio, r.FormValue("callerPhone"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, r, notConfigured("analysis history"))
		return
	}
	opts := core.ListOptions{Phone: r.URL.Query().Get("phone")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			s.writeError(w, r, core.InvalidArgument("limit must be a positive integer"))
			return
		}
		opts.Limit = limit
	}
	out, err := s.cfg.Store.ListReports(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Store == nil {
		s.writeError(w, r, notConfigured("analysis history"))
		return
	}
	report, err := s.cfg.Store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAnalysesStream pushes every completed analysis as a datastar
// signal patch until the client goes away.
func (s *Server) handleAnalysesStream(w http.ResponseWriter, r *http.Request) {
	updates := s.cfg.Notifier.Subscribe()
	defer s.cfg.Notifier.Unsubscribe(updates)

	sse := datastar.NewSSE(w, r)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case summary, ok := <-updates:
			if !ok {
				return
			}
			err := sse.MarshalAndPatchSignals(map[string]any{"lastAnalysis": summary})
			if err != nil {
				s.logger.Debug("analysis stream closed", "error", err)
				return
			}
		}
	}
}
