package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort           = "8080"
	defaultDatabaseURL    = "doomdeck.db"
	defaultModel          = "gpt-4o"
	defaultBaseURL        = "http://localhost:3000"
	defaultVideoDir       = "public"
	defaultQuotaLimit     = 5
	defaultPDFChunkSize   = 12000
	defaultAllowedOrigins = "http://localhost:3000"
)

// Environment holds everything the service reads from its surroundings.
// Values come from an optional YAML file first and are then overridden by
// process environment variables.
type Environment struct {
	IsDevelopment bool `yaml:"development"`

	Port           string   `yaml:"port"`
	DatabaseURL    string   `yaml:"database_url"`
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AnalyticsID    string   `yaml:"analytics_id"`
	VideoDir       string   `yaml:"video_dir"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	Stripe struct {
		SecretKey     string `yaml:"secret_key"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"stripe"`

	Auth struct {
		Domain    string `yaml:"domain"`
		Audience  string `yaml:"audience"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`

	Quota struct {
		Enabled    bool `yaml:"enabled"`
		DailyLimit int  `yaml:"daily_limit"`
	} `yaml:"quota"`

	PDFChunkSize int `yaml:"pdf_chunk_size"`
}

// Load reads the optional YAML file at path (skipped when empty) and then
// applies environment variable overrides and defaults.
func Load(path string) (*Environment, error) {
	var env Environment
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	setString(&env.Port, "PORT")
	setString(&env.DatabaseURL, "DB_URL")
	setString(&env.BaseURL, "BASE_URL")
	setString(&env.AnalyticsID, "GA_MEASUREMENT_ID")
	setString(&env.VideoDir, "VIDEO_DIR")
	setString(&env.LogLevel, "LOG_LEVEL")
	setString(&env.LogFormat, "LOG_FORMAT")
	setString(&env.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&env.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&env.OpenAI.Model, "OPENAI_MODEL")
	setString(&env.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&env.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&env.Auth.Domain, "AUTH0_DOMAIN")
	setString(&env.Auth.Audience, "AUTH0_AUDIENCE")
	setString(&env.Auth.JWTSecret, "JWT_SECRET_KEY")

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		env.AllowedOrigins = splitList(origins)
	}
	if err := setBool(&env.Quota.Enabled, "QUOTA_ENABLED"); err != nil {
		return nil, err
	}
	if err := setInt(&env.Quota.DailyLimit, "QUOTA_DAILY_LIMIT"); err != nil {
		return nil, err
	}
	if err := setInt(&env.PDFChunkSize, "PDF_CHUNK_SIZE"); err != nil {
		return nil, err
	}

	// No production marker means we're running locally
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") == "" {
		env.IsDevelopment = true
	}

	env.applyDefaults()
	return &env, nil
}

func (e *Environment) applyDefaults() {
	if e.Port == "" {
		e.Port = defaultPort
	}
	if e.DatabaseURL == "" {
		e.DatabaseURL = defaultDatabaseURL
	}
	if e.BaseURL == "" {
		e.BaseURL = defaultBaseURL
	}
	e.BaseURL = strings.TrimRight(e.BaseURL, "/")
	if len(e.AllowedOrigins) == 0 {
		e.AllowedOrigins = splitList(defaultAllowedOrigins)
	}
	if e.VideoDir == "" {
		e.VideoDir = defaultVideoDir
	}
	if e.OpenAI.Model == "" {
		e.OpenAI.Model = defaultModel
	}
	if e.Quota.DailyLimit <= 0 {
		e.Quota.DailyLimit = defaultQuotaLimit
	}
	if e.PDFChunkSize <= 0 {
		e.PDFChunkSize = defaultPDFChunkSize
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = parsed
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
