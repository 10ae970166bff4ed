package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Chargebee ChargebeeConfig `yaml:"chargebee"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AuthConfig struct {
	PIN              string `yaml:"pin"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type StorageConfig struct {
	UploadDir    string `yaml:"upload_dir"`
	ExtractDir   string `yaml:"extract_dir"`
	MaxUploadMB  int64  `yaml:"max_upload_mb"`
	RawTextChars int    `yaml:"raw_text_chars"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ChargebeeConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Site           string `yaml:"site"`
	APIKey         string `yaml:"api_key"`
	APIBase        string `yaml:"api_base"` // overrides the site-derived URL, mainly for tests
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Load reads configuration from the given YAML file. A missing file is not an
// error: defaults plus environment overrides are enough to run.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Auth.PIN == "" {
		cfg.Auth.PIN = "12345"
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "storage/uploads"
	}
	if cfg.Storage.ExtractDir == "" {
		cfg.Storage.ExtractDir = "storage/extracted"
	}
	if cfg.Storage.MaxUploadMB == 0 {
		cfg.Storage.MaxUploadMB = 16
	}
	if cfg.Storage.RawTextChars == 0 {
		cfg.Storage.RawTextChars = 5000
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-1.5-pro"
	}
	if cfg.Gemini.TimeoutSeconds == 0 {
		cfg.Gemini.TimeoutSeconds = 60
	}
	if cfg.Chargebee.TimeoutSeconds == 0 {
		cfg.Chargebee.TimeoutSeconds = 30
	}
	if cfg.Archive.Bucket == "" {
		cfg.Archive.Bucket = "contracts"
	}

	// Secrets may come from the environment instead of the file
	if v := os.Getenv("APP_AUTH_PIN"); v != "" {
		cfg.Auth.PIN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = v
	}
	if v := os.Getenv("CHARGEBEE_SITE"); v != "" {
		cfg.Chargebee.Site = v
	}
	if v := os.Getenv("CHARGEBEE_API_KEY"); v != "" {
		cfg.Chargebee.APIKey = v
	}
	if v := os.Getenv("CHARGEBEE_ENABLED"); v != "" {
		cfg.Chargebee.Enabled = v == "1" || v == "true"
	}

	return &cfg, nil
}
