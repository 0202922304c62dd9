package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klesify/klesify-backend/internal/openai"
	"github.com/klesify/klesify-backend/internal/testutil"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	reply []byte
	err   error
	got   openai.TranscriptionRequest
}

func (f *fakeUploader) Transcribe(_ context.Context, req openai.TranscriptionRequest) ([]byte, error) {
	f.got = req
	return f.reply, f.err
}

func TestTranscribe_Defaults(t *testing.T) {
	up := &fakeUploader{reply: []byte("Bună ziua, sunt de la bancă.\n")}
	tr := New(up, Config{}, testutil.NewTestLogger(t))

	text, err := tr.Transcribe(context.Background(), FromBytes([]byte("ID3"), ""))
	require.NoError(t, err)
	assert.Equal(t, "Bună ziua, sunt de la bancă.", text)

	assert.Equal(t, "audio.mp3", up.got.Filename)
	assert.Equal(t, DefaultModel, up.got.Model)
	assert.Equal(t, "ro", up.got.Language)
	assert.Equal(t, "text", up.got.ResponseFormat)
	assert.Equal(t, []byte("ID3"), up.got.Audio)
}

func TestTranscribe_Overrides(t *testing.T) {
	up := &fakeUploader{reply: []byte("hello")}
	tr := New(up, Config{Language: "en"}, nil)

	_, err := tr.Transcribe(context.Background(), Audio{Data: FromBytes([]byte("RIFF"), "").Data, Format: "wav", Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, "audio.wav", up.got.Filename)
	assert.Equal(t, "de", up.got.Language)
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	tr := New(&fakeUploader{}, Config{}, nil)

	_, err := tr.Transcribe(context.Background(), FromBytes(nil, "mp3"))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	_, err = tr.Transcribe(context.Background(), Audio{})
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
}

func TestTranscribe_UploadError(t *testing.T) {
	tr := New(&fakeUploader{err: core.ErrNotConfigured}, Config{}, nil)
	_, err := tr.Transcribe(context.Background(), FromBytes([]byte("x"), ""))
	assert.ErrorIs(t, err, core.ErrNotConfigured)
}

func TestTranscribeDetailed(t *testing.T) {
	up := &fakeUploader{reply: []byte(`{
		"text": "Bună ziua. Sunt Andrei.",
		"duration": 4.2,
		"segments": [
			{"id": 0, "start": 0.0, "end": 1.8, "text": "Bună ziua."},
			{"id": 1, "start": 1.8, "end": 4.2, "text": "Sunt Andrei."}
		]
	}`)}
	tr := New(up, Config{}, nil)

	got, err := tr.TranscribeDetailed(context.Background(), FromBytes([]byte("x"), "m4a"))
	require.NoError(t, err)
	assert.Equal(t, "verbose_json", up.got.ResponseFormat)
	assert.Equal(t, "audio.m4a", up.got.Filename)
	assert.Equal(t, "Bună ziua. Sunt Andrei.", got.Text)
	assert.InDelta(t, 4.2, got.Duration, 1e-9)
	assert.Equal(t, "ro", got.Language)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, Segment{Start: 1.8, End: 4.2, Text: "Sunt Andrei."}, got.Segments[1])
}

func TestFromFileAndSaveAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls", "call.WAV")
	require.NoError(t, SaveAudio(path, []byte("RIFF")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), data)

	audio, f, err := FromFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "wav", audio.Format)

	_, _, err = FromFile(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
