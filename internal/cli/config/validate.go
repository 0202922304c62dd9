package config

import (
	"fmt"

	"github.com/klesify/klesify-backend/internal/network"
	"github.com/klesify/klesify-backend/internal/store"
	"github.com/klesify/klesify-backend/pkg/core"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Network.Backend {
	case BackendMock:
	case BackendOrange:
		if c.OAuth.ClientID == "" || c.OAuth.ClientSecret == "" || c.OAuth.ServerURL == "" {
			return fmt.Errorf("%w: the orange backend needs CLIENT_ID, CLIENT_SECRET and OAUTH_SERVER_URL", core.ErrNotConfigured)
		}
	default:
		return fmt.Errorf("network.backend must be %q or %q, got %q", BackendMock, BackendOrange, c.Network.Backend)
	}

	if _, err := store.ParseDialect(c.Store.Driver); err != nil {
		return err
	}

	maxAge := c.Fraud.SimSwapMaxAge
	if err := network.ValidateMaxAge(&maxAge); err != nil {
		return fmt.Errorf("fraud.sim_swap_max_age: %w", err)
	}
	if r := c.Fraud.CityRadius; r < network.MinRadius || r > network.MaxRadius {
		return fmt.Errorf("fraud.city_radius must be between %d and %d meters", network.MinRadius, network.MaxRadius)
	}
	w := c.Fraud.Weights
	if w.Location < 0 || w.Company < 0 || w.KYC < 0 || w.Location+w.Company+w.KYC == 0 {
		return fmt.Errorf("fraud.weights must be non-negative with a positive sum")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	switch c.OutputFormat {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("output must be auto, text, markdown or json, got %q", c.OutputFormat)
	}
	return nil
}

// ScoringWeights returns the configured weights.
func (c *Config) ScoringWeights() core.ScoringWeights {
	return core.ScoringWeights{
		Location: c.Fraud.Weights.Location,
		Company:  c.Fraud.Weights.Company,
		KYC:      c.Fraud.Weights.KYC,
	}
}
