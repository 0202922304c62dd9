package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/klesify/klesify-backend/internal/analysis"
	"github.com/klesify/klesify-backend/internal/cli/config"
	"github.com/klesify/klesify-backend/internal/cli/output"
	"github.com/klesify/klesify-backend/internal/dataset"
	"github.com/klesify/klesify-backend/internal/extract"
	"github.com/klesify/klesify-backend/internal/fraud"
	"github.com/klesify/klesify-backend/internal/geocode"
	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/network/mock"
	"github.com/klesify/klesify-backend/internal/network/orange"
	"github.com/klesify/klesify-backend/internal/openai"
	"github.com/klesify/klesify-backend/internal/server/notifier"
	"github.com/klesify/klesify-backend/internal/store"
	"github.com/klesify/klesify-backend/internal/transcribe"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg, err := getConfig()
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// getConfig returns the configuration loaded by the root command, or the
// defaults when a command runs standalone.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfigWithEnvFile("", "", nil)
}

// App is the wired backend: network, AI clients, scoring, storage.
type App struct {
	Cfg         *config.Config
	Logger      *slog.Logger
	Dataset     *dataset.Dataset
	Network     network.Network
	Geocoder    *geocode.Client
	OpenAI      *openai.Client
	Extractor   *extract.LLM
	Transcriber *transcribe.Transcriber
	Detector    *fraud.Detector
	Store       *store.SQLStore
	Notifier    *notifier.Notifier
	Analysis    *analysis.Service
}

// AppOptions selects the optional parts of the App.
type AppOptions struct {
	// Store opens and migrates the analysis store. Commands that never
	// persist reports leave it off so no database is created.
	Store bool
}

// NewApp wires every component from cfg. Close releases the store.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts AppOptions) (*App, error) {
	data, err := dataset.Open(cfg.Dataset.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	geo := geocode.New(geocode.Config{
		BaseURL:   cfg.Geocode.BaseURL,
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   cfg.Geocode.Timeout,
	}, logger)

	backend, err := newNetwork(cfg, data, geo, logger)
	if err != nil {
		return nil, err
	}

	ai := openai.New(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	}, logger)
	if !ai.Configured() {
		logger.Warn("OPENAI_API_KEY not set, extraction and transcription are unavailable")
	}

	var (
		st      *store.SQLStore
		reports core.Store
	)
	if opts.Store {
		st, err = store.Open(ctx, store.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		reports = st
	}

	app := &App{
		Cfg:         cfg,
		Logger:      logger,
		Dataset:     data,
		Network:     backend,
		Geocoder:    geo,
		OpenAI:      ai,
		Extractor:   extract.New(ai, cfg.OpenAI.Model, logger),
		Transcriber: transcribe.New(ai, transcribe.Config{Model: cfg.OpenAI.TranscriptionModel, Language: cfg.OpenAI.Language}, logger),
		Store:       st,
		Notifier:    notifier.New(),
	}
	app.Detector = fraud.NewDetector(backend, fraud.DatasetDirectory{Data: data}, fraud.Config{
		Weights:       cfg.ScoringWeights(),
		SimSwapMaxAge: cfg.Fraud.SimSwapMaxAge,
		CityRadius:    cfg.Fraud.CityRadius,
	}, logger)
	app.Analysis = analysis.New(analysis.Deps{
		Extractor:   app.Extractor,
		Transcriber: app.Transcriber,
		Scorer:      app.Detector,
		Store:       reports,
		Notifier:    app.Notifier,
		Logger:      logger,
	})

	logger.Debug("backend ready",
		"network", cfg.Network.Backend,
		"subscribers", len(data.PhoneNumbers()),
		"store", opts.Store,
	)
	return app, nil
}

func newNetwork(cfg *config.Config, data *dataset.Dataset, geo orange.Geocoder, logger *slog.Logger) (network.Network, error) {
	switch cfg.Network.Backend {
	case config.BackendOrange:
		tokens, err := orange.NewTokenSource(orange.Credentials{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			ServerURL:    cfg.OAuth.ServerURL,
		}, &http.Client{Timeout: cfg.Network.Timeout}, logger)
		if err != nil {
			return nil, err
		}
		return orange.New(orange.Config{BaseURL: cfg.Network.CamaraBaseURL, Timeout: cfg.Network.Timeout}, tokens, geo, logger), nil
	case config.BackendMock, "":
		return mock.New(data), nil
	default:
		return nil, fmt.Errorf("unknown network backend %q", cfg.Network.Backend)
	}
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// newApp builds the App for a command and returns a cleanup function.
func newApp(cmd *cobra.Command, cc *CommandContext, opts AppOptions) (*App, func(), error) {
	app, err := NewApp(cmd.Context(), cc.Cfg, cc.Logger, opts)
	if err != nil {
		return nil, nil, err
	}
	return app, func() {
		if err := app.Close(); err != nil {
			cc.Logger.Warn("failed to close store", "error", err)
		}
	}, nil
}
