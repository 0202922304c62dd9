package commands

import (
	"fmt"

	"github.com/klesify/klesify-backend/internal/cli/config"
	"github.com/klesify/klesify-backend/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Klesify API server",
		Long: `Start the HTTP API used by the Klesify apps.

The server exposes the network checks (SIM swap, KYC match, location),
call extraction and transcription, fraud analysis, the analysis history and
a live stream of completed analyses.

With the mock backend the dataset directory is watched and reloaded on
change unless --reload=false is given.`,
		Example: `  # Start on the default port (8000)
  klesify serve

  # Bind to localhost on another port without hot reload
  klesify serve --host 127.0.0.1 --port 9000 --reload=false

  # Use the Orange CAMARA playground
  klesify serve --backend orange`,
		RunE: runServe,
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on")
	cmd.Flags().String("host", config.DefaultHost, "Address to bind")
	cmd.Flags().Bool("reload", true, "Reload the mock dataset when files change")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	app, cleanup, err := newApp(cmd, cc, AppOptions{Store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cc.Cfg
	srv := server.New(server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		Watch:       cfg.Dataset.Watch && cfg.Network.Backend == config.BackendMock,
		Network:     app.Network,
		Geocoder:    app.Geocoder,
		Extractor:   app.Extractor,
		Transcriber: app.Transcriber,
		Analysis:    app.Analysis,
		Store:       app.Store,
		Notifier:    app.Notifier,
		Dataset:     app.Dataset,
		Logger:      cc.Logger,
	})

	r := cc.Renderer
	r.Printf("Klesify API listening on http://%s:%d (%s backend)\n", displayHost(cfg.Server.Host), cfg.Server.Port, cfg.Network.Backend)
	r.Println(r.Muted("Press Ctrl+C to stop"))

	if err := srv.Serve(cmd.Context()); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" {
		return "localhost"
	}
	return host
}
