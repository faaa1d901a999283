package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type GenerationConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type ConsulConfig struct {
	Address     string `mapstructure:"address"`
	ServiceHost string `mapstructure:"service_host"`
}

type Config struct {
	HTTPPort      int              `mapstructure:"http_port"`
	GRPCPort      int              `mapstructure:"grpc_port"` // 0 disables the gRPC health server
	LogLevel      string           `mapstructure:"log_level"`
	ServiceName   string           `mapstructure:"service_name"`
	DatabaseURL   string           `mapstructure:"database_url"`
	DatabaseName  string           `mapstructure:"database_name"`
	SessionSecret string           `mapstructure:"session_secret"`
	CookieSecure  bool             `mapstructure:"cookie_secure"`
	CORSOrigins   []string         `mapstructure:"cors_origins"`
	Generation    GenerationConfig `mapstructure:"generation"`
	Consul        ConsulConfig     `mapstructure:"consul"`
}

// ErrNoSessionSecret is returned by Validate when no session secret is set.
var ErrNoSessionSecret = errors.New("session_secret is required")

// Load reads config.yaml from the given directories (default "." and
// "./config"), then applies environment overrides. A missing file is fine.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix("LORECRAFTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The unprefixed names are the ones deployments of the API already use.
	_ = v.BindEnv("database_url", "LORECRAFTER_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("session_secret", "LORECRAFTER_SESSION_SECRET", "SESSION_SECRET")
	_ = v.BindEnv("generation.api_key", "LORECRAFTER_GENERATION_API_KEY", "OPENROUTER_API_KEY")

	v.SetDefault("http_port", 5001)
	v.SetDefault("grpc_port", 50051)
	v.SetDefault("log_level", "info")
	v.SetDefault("service_name", "lorecrafter-api")
	v.SetDefault("database_url", "")
	v.SetDefault("database_name", "lorecrafter")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "https://openrouter.ai/api/v1/")
	v.SetDefault("generation.model", "openai/gpt-3.5-turbo")
	v.SetDefault("consul.address", "")
	v.SetDefault("consul.service_host", "localhost")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports configuration the server cannot start without.
func (c *Config) Validate() error {
	if c.SessionSecret == "" {
		return ErrNoSessionSecret
	}
	if c.HTTPPort <= 0 {
		return fmt.Errorf("invalid http_port %d", c.HTTPPort)
	}
	return nil
}

// Warnings lists settings that are missing but not fatal.
func (c *Config) Warnings() []string {
	var w []string
	if c.DatabaseURL == "" {
		w = append(w, "database_url is not set; data routes will report the database as not connected")
	}
	if c.Generation.APIKey == "" {
		w = append(w, "generation.api_key is not set; generation requests will be rejected upstream")
	}
	return w
}
