// Package config assembles the process configuration from environment variables,
// an optional .env file, an optional config file and command line flags.
// It is the only place that reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvCatalogURL = "RHDH_API_URL"
	EnvCatalogKey = "RHDH_API_KEY"
	EnvModelURL   = "GRANITE_API_URL"
	EnvModelKey   = "GRANITE_API_KEY"

	DefaultModel      = "granite3-dense:8b"
	DefaultOllamaHost = "http://localhost:11434"
)

// ErrMissingEnv is matched by every *MissingEnvError.
var ErrMissingEnv = errors.New("missing environment configuration")

// MissingEnvError names the required environment variables that were absent or blank.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variable(s): %s", strings.Join(e.Vars, ", "))
}

func (e *MissingEnvError) Unwrap() error { return ErrMissingEnv }

// Config is the immutable configuration value built once at start-up.
type Config struct {
	Server  ServerConfig  `mapstructure:",squash"`
	Catalog CatalogConfig `mapstructure:",squash"`
	Model   ModelConfig   `mapstructure:",squash"`
	Ollama  OllamaConfig  `mapstructure:",squash"`
	Log     LogConfig     `mapstructure:",squash"`
}

// ServerConfig controls the tool server process.
type ServerConfig struct {
	Transport       string        `mapstructure:"transport"` // stdio or sse
	Port            int           `mapstructure:"port"`
	Token           string        `mapstructure:"mcp_token"`
	Toolsets        []string      `mapstructure:"toolsets"`
	UpstreamTimeout time.Duration `mapstructure:"upstream_timeout"`
	TLSCertFile     string        `mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `mapstructure:"tls_key_file"`
}

// CatalogConfig holds the Developer Hub catalog endpoint and credentials.
type CatalogConfig struct {
	URL    string `mapstructure:"rhdh_api_url"`
	APIKey string `mapstructure:"rhdh_api_key"`
}

// ModelConfig holds the remote chat-completion endpoint and credentials.
type ModelConfig struct {
	URL         string `mapstructure:"granite_api_url"`
	APIKey      string `mapstructure:"granite_api_key"`
	Name        string `mapstructure:"granite_model"`
	InsecureTLS bool   `mapstructure:"granite_insecure_tls"`
}

// OllamaConfig points at a locally running Ollama server.
type OllamaConfig struct {
	Host  string `mapstructure:"ollama_host"`
	Model string `mapstructure:"ollama_model"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// keys maps every config key to the environment variable that feeds it.
var keys = map[string]string{
	"transport":            "MCP_TRANSPORT",
	"port":                 "PORT",
	"mcp_token":            "MCP_TOKEN",
	"toolsets":             "MCP_TOOLSETS",
	"upstream_timeout":     "UPSTREAM_TIMEOUT",
	"tls_cert_file":        "TLS_CERT_FILE",
	"tls_key_file":         "TLS_KEY_FILE",
	"rhdh_api_url":         EnvCatalogURL,
	"rhdh_api_key":         EnvCatalogKey,
	"granite_api_url":      EnvModelURL,
	"granite_api_key":      EnvModelKey,
	"granite_model":        "GRANITE_MODEL",
	"granite_insecure_tls": "GRANITE_INSECURE_TLS",
	"ollama_host":          "OLLAMA_HOST",
	"ollama_model":         "OLLAMA_MODEL",
	"log_level":            "LOG_LEVEL",
	"log_format":           "LOG_FORMAT",
}

// Load reads configuration. file may be empty. Flags in fs whose names match a
// config key (dashes read as underscores) override every other source.
// A .env file in the working directory is loaded first without overriding the
// real environment.
func Load(file string, fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("transport", "stdio")
	v.SetDefault("port", 8000)
	v.SetDefault("toolsets", []string{"fetch", "catalog", "model"})
	v.SetDefault("upstream_timeout", 30*time.Second)
	v.SetDefault("granite_model", DefaultModel)
	v.SetDefault("granite_insecure_tls", false)
	v.SetDefault("ollama_host", DefaultOllamaHost)
	v.SetDefault("ollama_model", DefaultModel)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")

	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := keys[key]; !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.Toolsets = normalizeList(cfg.Server.Toolsets)
	return &cfg, nil
}

// RequireCatalog fails unless both catalog variables are set.
func (c *Config) RequireCatalog() error {
	return requireVars(map[string]string{
		EnvCatalogURL: c.Catalog.URL,
		EnvCatalogKey: c.Catalog.APIKey,
	}, EnvCatalogURL, EnvCatalogKey)
}

// RequireModel fails unless both model variables are set.
func (c *Config) RequireModel() error {
	return requireVars(map[string]string{
		EnvModelURL: c.Model.URL,
		EnvModelKey: c.Model.APIKey,
	}, EnvModelURL, EnvModelKey)
}

func requireVars(values map[string]string, order ...string) error {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingEnvError{Vars: missing}
	}
	return nil
}

// normalizeList splits comma separated entries and drops blanks.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, p := range strings.Split(item, ",") {
			p = strings.ToLower(strings.TrimSpace(p))
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
