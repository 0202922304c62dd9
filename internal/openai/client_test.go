package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klesify/klesify-backend/internal/testutil"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(Config{APIKey: key, BaseURL: srv.URL}, testutil.NewTestLogger(t))
	c.backoff = func(int) time.Duration { return 0 }
	return c
}

func TestConfigured(t *testing.T) {
	assert.False(t, New(Config{}, nil).Configured())
	assert.False(t, New(Config{APIKey: PlaceholderKey}, nil).Configured())
	assert.True(t, New(Config{APIKey: "sk-test"}, nil).Configured())
}

func TestChat(t *testing.T) {
	var got ChatRequest
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"name\":\"Ion\"} "}}]}`))
	})

	out, err := c.Chat(context.Background(), ChatRequest{
		Model:          "gpt-4o-mini",
		Messages:       []Message{{Role: "user", Content: "hi"}},
		Temperature:    0.1,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Ion"}`, out)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestChat_NotConfigured(t *testing.T) {
	c := New(Config{APIKey: PlaceholderKey}, nil)
	_, err := c.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, core.ErrNotConfigured)
}

func TestChat_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	out, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestChat_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}

func TestChat_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	var upErr *core.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusUnauthorized, upErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestChat_NoChoices(t *testing.T) {
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	assert.EqualError(t, err, "no completion returned")
}

func TestTranscribe_SendsMultipart(t *testing.T) {
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ro", r.FormValue("language"))
		assert.Equal(t, "text", r.FormValue("response_format"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "audio.mp3", hdr.Filename)
		assert.Equal(t, "ID3data", string(data))
		_, _ = w.Write([]byte("Bună ziua\n"))
	})

	body, err := c.Transcribe(context.Background(), TranscriptionRequest{
		Audio:          []byte("ID3data"),
		Filename:       "audio.mp3",
		Model:          "whisper-1",
		Language:       "ro",
		ResponseFormat: "text",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bună ziua\n", string(body))
}

func TestDo_ContextCanceled(t *testing.T) {
	c := newTestClient(t, "sk-test", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	c.backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := c.Chat(ctx, ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, context.Canceled)
}
