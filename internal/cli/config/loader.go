package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// envPrefix namespaces environment overrides. A double underscore nests:
// KLESIFY_SERVER__PORT -> server.port.
const envPrefix = "KLESIFY_"

// bareEnv maps the unprefixed variable names operators already use.
var bareEnv = map[string]string{
	"CLIENT_ID":        "oauth.client_id",
	"CLIENT_SECRET":    "oauth.client_secret",
	"OAUTH_SERVER_URL": "oauth.server_url",
	"OPENAI_API_KEY":   "openai.api_key",
}

// flagKeys maps CLI flag names to config keys. Flags not listed here are
// command options and never reach the config.
var flagKeys = map[string]string{
	"port":       "server.port",
	"host":       "server.host",
	"reload":     "dataset.watch",
	"data-dir":   "dataset.dir",
	"backend":    "network.backend",
	"db":         "store.dsn",
	"db-driver":  "store.driver",
	"log-level":  "log.level",
	"log-format": "log.format",
	"verbose":    "verbose",
	"output":     "output",
}

var (
	k              = koanf.New(".")
	configFileUsed string
	envFileUsed    string
	currentConfig  *Config
)

func defaults() map[string]any {
	return map[string]any{
		"server.host":                DefaultHost,
		"server.port":                DefaultPort,
		"server.cors_origins":        []string{"*"},
		"network.backend":            BackendMock,
		"network.camara_base_url":    "https://api.orange.com/camara/playground/api",
		"network.timeout":            30 * time.Second,
		"oauth.server_url":           "https://api.orange.com",
		"dataset.dir":                DefaultDatasetDir,
		"dataset.watch":              true,
		"geocode.base_url":           "https://nominatim.openstreetmap.org",
		"geocode.user_agent":         "Klesify-Backend/1.0",
		"geocode.timeout":            10 * time.Second,
		"openai.base_url":            "https://api.openai.com/v1",
		"openai.model":               "gpt-4o-mini",
		"openai.transcription_model": "whisper-1",
		"openai.language":            "ro",
		"openai.timeout":             60 * time.Second,
		"fraud.sim_swap_max_age":     240,
		"fraud.city_radius":          2000,
		"fraud.weights.location":     0.3,
		"fraud.weights.company":      0.4,
		"fraud.weights.kyc":          0.3,
		"store.driver":               "sqlite",
		"store.dsn":                  DefaultStoreDSN,
		"log.level":                  "info",
		"log.format":                 "text",
		"verbose":                    false,
		"output":                     DefaultOutput,
	}
}

// findConfigFile returns the explicit path or the first of klesify.yaml,
// klesify.yml found in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"klesify.yaml", "klesify.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func prefixedEnvKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "__", "."))
}

func bareEnvKey(s string) string {
	return bareEnv[s]
}

// skipEmpty drops variables that are set but empty so they never mask a
// lower-precedence value.
func skipEmpty(keyFn func(string) string) func(string, string) (string, any) {
	return func(name, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return keyFn(name), value
	}
}

// dotenvKey maps a .env entry to a config key, or "" to drop it.
func dotenvKey(s string) string {
	if key := bareEnvKey(s); key != "" {
		return key
	}
	if strings.HasPrefix(s, envPrefix) {
		return prefixedEnvKey(s)
	}
	return ""
}

func loadDotenv(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	parsed, err := dotenv.Parser().Unmarshal(raw)
	if err != nil {
		return err
	}
	values := make(map[string]any, len(parsed))
	for name, v := range parsed {
		if key := dotenvKey(name); key != "" && v != "" {
			values[key] = v
		}
	}
	envFileUsed = path
	return k.Load(confmap.Provider(values, "."), nil)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	envFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from defaults, the config file, the .env
// file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > .env > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	return LoadConfigWithEnvFile(cfgFile, DefaultEnvFile, flags)
}

// LoadConfigWithEnvFile is LoadConfig with an explicit .env path. An empty
// path skips the .env file.
func LoadConfigWithEnvFile(cfgFile, envFile string, flags *pflag.FlagSet) (*Config, error) {
	ResetConfig()

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. .env file
	if envFile != "" {
		if err := loadDotenv(envFile); err != nil {
			return nil, fmt.Errorf("error reading env file %s: %w", envFile, err)
		}
	}

	// 4. Environment variables, bare names first so KLESIFY_ wins
	if err := k.Load(env.ProviderWithValue("", ".", skipEmpty(bareEnvKey)), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", skipEmpty(prefixedEnvKey)), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// normalize lowercases enum values and trims list entries.
func (c *Config) normalize() {
	c.Network.Backend = strings.ToLower(strings.TrimSpace(c.Network.Backend))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.OutputFormat = strings.ToLower(strings.TrimSpace(c.OutputFormat))

	origins := c.Server.CORSOrigins[:0]
	for _, o := range c.Server.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.Server.CORSOrigins = origins
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetEnvFileUsed returns the .env file that was read, if any.
func GetEnvFileUsed() string {
	return envFileUsed
}

// GetCurrentConfig returns the configuration loaded last.
func GetCurrentConfig() *Config {
	return currentConfig
}

// NewLogger builds the process logger described by cfg. Verbose forces
// debug level.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.DiscardHandler)
}
