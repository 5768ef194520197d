package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_S3_BUCKET", "test-bucket")
	t.Setenv("APP_TWELVELABS_APIKEY", "tlk_test")
	t.Setenv("APP_TWELVELABS_CREATORSINDEXID", "idx_creators")
	t.Setenv("APP_TWELVELABS_ADSINDEXID", "idx_ads")
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "defaults with required env set",
			setup: func(t *testing.T) {
				viper.Reset()
				setRequiredEnv(t)
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 8080 {
					t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
				}
				if cfg.S3.Region != "us-east-1" {
					t.Errorf("S3.Region = %s, want us-east-1", cfg.S3.Region)
				}
				if cfg.S3.BasePath != "upload" {
					t.Errorf("S3.BasePath = %s, want upload", cfg.S3.BasePath)
				}
				if cfg.S3.UploadURLExpiration != 1800*time.Second {
					t.Errorf("S3.UploadURLExpiration = %s, want 30m", cfg.S3.UploadURLExpiration)
				}
				if cfg.Pipeline.PollInterval != time.Second {
					t.Errorf("Pipeline.PollInterval = %s, want 1s", cfg.Pipeline.PollInterval)
				}
				if cfg.Pipeline.AgentMaxTurns != 8 {
					t.Errorf("Pipeline.AgentMaxTurns = %d, want 8", cfg.Pipeline.AgentMaxTurns)
				}
				if cfg.OpenAI.Model != "gpt-5-mini" {
					t.Errorf("OpenAI.Model = %s, want gpt-5-mini", cfg.OpenAI.Model)
				}
				if cfg.Logging.Level != "info" {
					t.Errorf("Logging.Level = %s, want info", cfg.Logging.Level)
				}
			},
		},
		{
			name: "environment overrides",
			setup: func(t *testing.T) {
				viper.Reset()
				setRequiredEnv(t)
				t.Setenv("APP_SERVER_PORT", "9090")
				t.Setenv("APP_S3_REGION", "eu-west-1")
				t.Setenv("APP_PIPELINE_AGENTMAXTURNS", "3")
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Server.Port != 9090 {
					t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
				}
				if cfg.S3.Region != "eu-west-1" {
					t.Errorf("S3.Region = %s, want eu-west-1", cfg.S3.Region)
				}
				if cfg.Pipeline.AgentMaxTurns != 3 {
					t.Errorf("Pipeline.AgentMaxTurns = %d, want 3", cfg.Pipeline.AgentMaxTurns)
				}
			},
		},
		{
			name: "missing bucket fails",
			setup: func(t *testing.T) {
				viper.Reset()
				setRequiredEnv(t)
				t.Setenv("APP_S3_BUCKET", "")
			},
			wantErr: true,
		},
		{
			name: "missing twelvelabs api key fails",
			setup: func(t *testing.T) {
				viper.Reset()
				setRequiredEnv(t)
				t.Setenv("APP_TWELVELABS_APIKEY", "")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			defer viper.Reset()

			cfg, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadIgnoresMissingConfigFile(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	setRequiredEnv(t)

	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if _, err := Load(); err != nil {
		t.Errorf("Load() without config file failed: %v", err)
	}
}
