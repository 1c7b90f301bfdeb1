package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aushadhi/client/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Inference InferenceConfig `mapstructure:"inference"`
	Params    ParamsConfig    `mapstructure:"params"`
	Image     ImageConfig     `mapstructure:"image"`
	Preview   PreviewConfig   `mapstructure:"preview"`
}

// ServerConfig holds front-end server configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// InferenceConfig holds the inference backend configuration
type InferenceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// ParamsConfig holds the default inference parameters
type ParamsConfig struct {
	TopK         int     `mapstructure:"top_k"`
	Threshold    float64 `mapstructure:"threshold"`
	OCRBackend   string  `mapstructure:"ocr_backend"`
	EnableVision bool    `mapstructure:"enable_vision"`
}

// ImageConfig holds normalization settings
type ImageConfig struct {
	MaxDimension int `mapstructure:"max_dimension"`
}

// PreviewConfig holds preview retention settings
type PreviewConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// InferenceParams converts the configured defaults to request parameters
func (c *Config) InferenceParams() domain.InferenceParams {
	topK := c.Params.TopK
	threshold := c.Params.Threshold
	return domain.InferenceParams{
		TopK:         &topK,
		Threshold:    &threshold,
		OCRBackend:   domain.OCRBackend(c.Params.OCRBackend),
		EnableVision: c.Params.EnableVision,
	}
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// FlagKeys maps command-line flag names to config keys
var FlagKeys = map[string]string{
	"base-url":      "inference.base_url",
	"top-k":         "params.top_k",
	"threshold":     "params.threshold",
	"ocr-backend":   "params.ocr_backend",
	"enable-vision": "params.enable_vision",
	"max-dimension": "image.max_dimension",
	"environment":   "server.environment",
	"port":          "server.port",
}

// LoadWithFlags is Load with explicitly set command-line flags taking
// precedence. Only flags named in FlagKeys are bound.
func LoadWithFlags(flags *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/aushadhi/")

	// Environment variable settings
	v.SetEnvPrefix("AUSHADHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The dev-server variable of the web front end selects the same backend
	if err := v.BindEnv("inference.base_url", "AUSHADHI_INFERENCE_BASE_URL", "VITE_API_BASE_URL"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	// Set default values
	setDefaults(v)

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("error binding flag %s: %w", name, err)
			}
		}
	}

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5173")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	// Inference defaults
	v.SetDefault("inference.base_url", "http://localhost:8000")
	v.SetDefault("inference.timeout", "60s")
	v.SetDefault("inference.rate_limit", 2.0)
	v.SetDefault("inference.rate_burst", 4)

	// Request parameter defaults
	v.SetDefault("params.top_k", domain.DefaultTopK)
	v.SetDefault("params.threshold", domain.DefaultThreshold)
	v.SetDefault("params.ocr_backend", string(domain.DefaultOCRBackend))
	v.SetDefault("params.enable_vision", false)

	// Image defaults
	v.SetDefault("image.max_dimension", 1280)

	// Preview defaults
	v.SetDefault("preview.ttl", "30m")
}

// validate validates the configuration
func validate(config *Config) error {
	u, err := url.Parse(config.Inference.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("inference base URL must be an absolute http(s) URL, got: %q", config.Inference.BaseURL)
	}

	if err := config.InferenceParams().Validate(); err != nil {
		return err
	}

	if config.Image.MaxDimension <= 0 {
		return fmt.Errorf("image max dimension must be positive, got: %d", config.Image.MaxDimension)
	}

	if config.Preview.TTL <= 0 {
		return fmt.Errorf("preview TTL must be positive, got: %s", config.Preview.TTL)
	}

	return nil
}
