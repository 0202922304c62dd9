package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/spf13/cobra"
)

// AnalyzeOptions holds options for the analyze command.
type AnalyzeOptions struct {
	Phone     string
	Text      string
	File      string
	Audio     string
	Extracted string
	JSON      bool
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score a call for scam risk",
		Long: `Analyze a call and print its scam score.

The call can be given as a transcript (--text or --file), as a recording
(--audio, transcribed first) or as claims already extracted to JSON
(--extracted). Transcripts and recordings need an OpenAI API key.

The caller's claims are checked against the network (location, KYC) and
the company directory. The report is stored in the analysis history.`,
		Example: `  # Analyze a transcript
  klesify analyze --phone +40712345678 --text "Buna ziua, sunt de la banca..."

  # Analyze a recording and print JSON
  klesify analyze --phone +40712345678 --audio call.mp3 --json

  # Score claims without calling OpenAI
  klesify analyze --phone +40712345678 --extracted claims.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Phone, "phone", "p", "", "Caller phone number (E.164)")
	cmd.Flags().StringVar(&opts.Text, "text", "", "Call transcript")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "File containing the call transcript")
	cmd.Flags().StringVarP(&opts.Audio, "audio", "a", "", "Call recording to transcribe")
	cmd.Flags().StringVar(&opts.Extracted, "extracted", "", "JSON file with extracted caller claims")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the report as JSON")

	_ = cmd.MarkFlagRequired("phone")
	cmd.MarkFlagsMutuallyExclusive("text", "file", "audio", "extracted")
	cmd.MarkFlagsOneRequired("text", "file", "audio", "extracted")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *AnalyzeOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	app, cleanup, err := newApp(cmd, cc, AppOptions{Store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var report *core.FraudReport
	switch {
	case opts.Text != "":
		report, err = app.Analysis.AnalyzeText(ctx, opts.Text, opts.Phone)
	case opts.File != "":
		text, readErr := os.ReadFile(opts.File)
		if readErr != nil {
			return fmt.Errorf("failed to read transcript: %w", readErr)
		}
		report, err = app.Analysis.AnalyzeText(ctx, string(text), opts.Phone)
	case opts.Audio != "":
		audio, f, openErr := transcribe.FromFile(opts.Audio)
		if openErr != nil {
			return openErr
		}
		defer f.Close()
		report, err = app.Analysis.AnalyzeAudio(ctx, audio, opts.Phone)
	case opts.Extracted != "":
		info, readErr := readClaims(opts.Extracted)
		if readErr != nil {
			return readErr
		}
		report, err = app.Analysis.AnalyzeExtracted(ctx, info, opts.Phone)
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	r := cc.Renderer
	if opts.JSON {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ModeJSON)
	}
	return renderReport(r, report)
}

func readClaims(path string) (core.CallerInfo, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return core.CallerInfo{}, fmt.Errorf("failed to read claims: %w", err)
	}
	var info core.CallerInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return core.CallerInfo{}, fmt.Errorf("invalid claims file %s: %w", path, err)
	}
	return info, nil
}
