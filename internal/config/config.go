// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server     ServerConfig
	S3         S3Config
	TwelveLabs TwelveLabsConfig
	OpenAI     OpenAIConfig
	Pipeline   PipelineConfig
	Redis      RedisConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// S3Config contains object storage configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type S3Config struct {
	Bucket              string
	Region              string
	BasePath            string
	UploadURLExpiration time.Duration
}

// TwelveLabsConfig contains the media-analysis API configuration.
// Creator videos and ad videos are indexed into separate indexes.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TwelveLabsConfig struct {
	APIKey          string
	BaseURL         string
	CreatorsIndexID string
	AdsIndexID      string
	Timeout         time.Duration
}

// OpenAIConfig contains the LLM client configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// PipelineConfig contains analysis pipeline tuning.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type PipelineConfig struct {
	PollInterval  time.Duration
	PollTimeout   time.Duration
	AgentMaxTurns int
	PromptsDir    string
}

// RedisConfig contains the task queue connection configuration.
type RedisConfig struct {
	URL string
}

// DatabaseConfig contains the pipeline-run status store configuration.
// The URL is optional; without it the service runs with status tracking
// disabled.
type DatabaseConfig struct {
	URL string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set defaults
	setDefaults()

	// Read environment variables: nested keys map to APP_SECTION_KEY
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Try to read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	bindEnvKeys()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required (APP_S3_BUCKET)")
	}
	if c.TwelveLabs.APIKey == "" {
		return fmt.Errorf("twelvelabs.apikey is required (APP_TWELVELABS_APIKEY)")
	}
	if c.TwelveLabs.CreatorsIndexID == "" {
		return fmt.Errorf("twelvelabs.creatorsindexid is required (APP_TWELVELABS_CREATORSINDEXID)")
	}
	if c.TwelveLabs.AdsIndexID == "" {
		return fmt.Errorf("twelvelabs.adsindexid is required (APP_TWELVELABS_ADSINDEXID)")
	}
	return nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// S3
	viper.SetDefault("s3.bucket", "")
	viper.SetDefault("s3.region", "us-east-1")
	viper.SetDefault("s3.basepath", "upload")
	viper.SetDefault("s3.uploadurlexpiration", 1800*time.Second)

	// TwelveLabs
	viper.SetDefault("twelvelabs.apikey", "")
	viper.SetDefault("twelvelabs.baseurl", "https://api.twelvelabs.io/v1.3")
	viper.SetDefault("twelvelabs.creatorsindexid", "")
	viper.SetDefault("twelvelabs.adsindexid", "")
	viper.SetDefault("twelvelabs.timeout", 120*time.Second)

	// OpenAI
	viper.SetDefault("openai.apikey", "")
	viper.SetDefault("openai.baseurl", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-5-mini")
	viper.SetDefault("openai.timeout", 120*time.Second)

	// Pipeline
	viper.SetDefault("pipeline.pollinterval", 1*time.Second)
	viper.SetDefault("pipeline.polltimeout", 30*time.Minute)
	viper.SetDefault("pipeline.agentmaxturns", 8)
	viper.SetDefault("pipeline.promptsdir", "prompts")

	// Redis
	viper.SetDefault("redis.url", "")

	// Database
	viper.SetDefault("database.url", "")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

// bindEnvKeys binds nested keys explicitly; AutomaticEnv alone does not
// resolve nested struct keys from env vars.
func bindEnvKeys() {
	for _, key := range []string{
		"server.port",
		"server.shutdowntimeout",
		"s3.bucket",
		"s3.region",
		"s3.basepath",
		"s3.uploadurlexpiration",
		"twelvelabs.apikey",
		"twelvelabs.baseurl",
		"twelvelabs.creatorsindexid",
		"twelvelabs.adsindexid",
		"twelvelabs.timeout",
		"openai.apikey",
		"openai.baseurl",
		"openai.model",
		"openai.timeout",
		"pipeline.pollinterval",
		"pipeline.polltimeout",
		"pipeline.agentmaxturns",
		"pipeline.promptsdir",
		"redis.url",
		"database.url",
		"logging.level",
		"logging.file",
	} {
		_ = viper.BindEnv(key)
	}
}
