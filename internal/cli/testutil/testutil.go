// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/klesify/klesify-backend/internal/cli/output"
)

// Subscribers is the mock dataset written by SetupTestProject, keyed by
// file name.
var Subscribers = map[string]string{
	"marcel.json": `{
  "phoneNumber": "+40712345678",
  "data": {
    "kyc": {"name": "Marcel Barosanu", "address": "Strada Nicolae Iancu 12", "locality": "Sibiu", "country": "RO"},
    "location": {"available": true, "latitude": 45.7983, "longitude": 24.1256, "radius": 500},
    "simSwap": {"latestSimChange": "2020-01-01T00:00:00Z"}
  }
}`,
	"ana.json": `{
  "phoneNumber": "+40722000111",
  "data": {
    "kyc": {"name": "Ana Popescu", "locality": "Cluj-Napoca", "country": "RO"},
    "location": {"available": false},
    "simSwap": {"latestSimChange": "2099-01-01T00:00:00Z"}
  }
}`,
	"companies.json": `{"companies": [{"name": "Orange Romania", "company_phone": "+40210000000",
  "employees": [{"name": "Marcel Barosanu", "phone": "+40712345678"}]}]}`,
}

// SetupTestProject creates a temporary working directory holding a
// mock_client_data dataset and returns its path.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "mock_client_data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", dataDir, err)
	}
	for name, content := range Subscribers {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a test renderer with the given mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
