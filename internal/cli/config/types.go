// Package config loads the Klesify CLI and server configuration.
package config

import "time"

// Config holds all configuration options.
type Config struct {
	Server       ServerConfig  `koanf:"server"`
	Network      NetworkConfig `koanf:"network"`
	OAuth        OAuthConfig   `koanf:"oauth"`
	Dataset      DatasetConfig `koanf:"dataset"`
	Geocode      GeocodeConfig `koanf:"geocode"`
	OpenAI       OpenAIConfig  `koanf:"openai"`
	Fraud        FraudConfig   `koanf:"fraud"`
	Store        StoreConfig   `koanf:"store"`
	Log          LogConfig     `koanf:"log"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host        string   `koanf:"host"`
	Port        int      `koanf:"port"`
	CORSOrigins []string `koanf:"cors_origins"`
}

// NetworkConfig selects the telecom backend.
type NetworkConfig struct {
	Backend       string        `koanf:"backend"`
	CamaraBaseURL string        `koanf:"camara_base_url"`
	Timeout       time.Duration `koanf:"timeout"`
}

// OAuthConfig holds the operator client credentials.
type OAuthConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	ServerURL    string `koanf:"server_url"`
}

// DatasetConfig locates the mock subscriber data.
type DatasetConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

// GeocodeConfig configures the Nominatim client.
type GeocodeConfig struct {
	BaseURL   string        `koanf:"base_url"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`
}

// OpenAIConfig configures extraction and transcription.
type OpenAIConfig struct {
	APIKey             string        `koanf:"api_key"`
	BaseURL            string        `koanf:"base_url"`
	Model              string        `koanf:"model"`
	TranscriptionModel string        `koanf:"transcription_model"`
	Language           string        `koanf:"language"`
	Timeout            time.Duration `koanf:"timeout"`
}

// FraudConfig tunes the scam score.
type FraudConfig struct {
	SimSwapMaxAge int           `koanf:"sim_swap_max_age"`
	CityRadius    int           `koanf:"city_radius"`
	Weights       WeightsConfig `koanf:"weights"`
}

// WeightsConfig are the component weights of the overall score.
type WeightsConfig struct {
	Location float64 `koanf:"location"`
	Company  float64 `koanf:"company"`
	KYC      float64 `koanf:"kyc"`
}

// StoreConfig selects the analysis database.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Network backends.
const (
	BackendMock   = "mock"
	BackendOrange = "orange"
)

// Default configuration values.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8000
	DefaultDatasetDir = "mock_client_data"
	DefaultStoreDSN   = ".klesify/klesify.db"
	DefaultEnvFile    = ".env"
	DefaultOutput     = "auto"
)
