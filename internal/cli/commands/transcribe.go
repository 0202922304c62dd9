package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/spf13/cobra"
)

// TranscribeOptions holds options for the transcribe command.
type TranscribeOptions struct {
	Language string
	Detailed bool
	Save     string
}

// NewTranscribeCommand creates the transcribe command.
func NewTranscribeCommand() *cobra.Command {
	opts := &TranscribeOptions{}
	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe a call recording",
		Long: `Transcribe a call recording with the OpenAI speech-to-text API.

The format is taken from the file extension (mp3, wav, m4a, ...). The
language defaults to the configured openai.language (ro).`,
		Example: `  # Plain transcript
  klesify transcribe call.mp3

  # Timed segments in English
  klesify transcribe call.wav --language en --detailed

  # Keep a copy of the recording
  klesify transcribe call.mp3 --save recordings/call.mp3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Language, "language", "l", "", "Spoken language (ISO 639-1)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "Include timed segments")
	cmd.Flags().StringVar(&opts.Save, "save", "", "Also write the recording to this path")

	return cmd
}

func runTranscribe(cmd *cobra.Command, path string, opts *TranscribeOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	app, cleanup, err := newApp(cmd, cc, AppOptions{})
	if err != nil {
		return err
	}
	defer cleanup()

	audio, f, err := transcribe.FromFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if opts.Save != "" {
		data, err := io.ReadAll(audio.Data)
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}
		if err := transcribe.SaveAudio(opts.Save, data); err != nil {
			return err
		}
		cc.Logger.Debug("recording saved", "path", opts.Save, "bytes", len(data))
		audio = transcribe.FromBytes(data, audio.Format)
	}
	audio.Language = opts.Language

	r := cc.Renderer
	if !opts.Detailed {
		text, err := app.Transcriber.Transcribe(cmd.Context(), audio)
		if err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		if r.EffectiveMode() == output.ModeJSON {
			return r.JSON(map[string]string{"text": text})
		}
		r.Println(text)
		return nil
	}

	detailed, err := app.Transcriber.TranscribeDetailed(cmd.Context(), audio)
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(detailed)
	}

	r.Header("Transcript")
	r.Println(detailed.Text)
	r.Println()
	rows := make([]table.Row, 0, len(detailed.Segments))
	for _, s := range detailed.Segments {
		rows = append(rows, table.Row{fmt.Sprintf("%.1f", s.Start), fmt.Sprintf("%.1f", s.End), s.Text})
	}
	r.Table(table.Row{"Start", "End", "Text"}, rows)
	r.Println(r.Muted(fmt.Sprintf("language %s, %.1fs", detailed.Language, detailed.Duration)))
	return nil
}
