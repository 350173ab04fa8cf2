// Package config loads server settings: built-in defaults, then an optional
// YAML file, then the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTable    = "Notes"
	DefaultJobQueue = "NotesJobQueue"
	DefaultHostPort = "8080"
)

type OAuthClient struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

type Config struct {
	DevMode          bool   `yaml:"dev_mode"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	SQSEndpoint      string `yaml:"sqs_endpoint"`
	JobQueue         string `yaml:"job_queue"`
	RedisEndpoint    string `yaml:"redis_endpoint"`

	// JWTSecret is base64 encoded.
	JWTSecret string `yaml:"jwt_secret"`

	GitHub           OAuthClient `yaml:"github"`
	Google           OAuthClient `yaml:"google"`
	OAuthRedirectURL string      `yaml:"oauth_redirect_url"`

	HostPort      string `yaml:"host_port"`
	AllowedOrigin string `yaml:"allowed_origin"`
	PublicURL     string `yaml:"public_url"`
	LogLevel      string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		DynamoDBTable: DefaultTable,
		JobQueue:      DefaultJobQueue,
		HostPort:      DefaultHostPort,
		PublicURL:     "http://localhost:" + DefaultHostPort,
		LogLevel:      "info",
	}
}

// Load reads path when it is not empty. A missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, name string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("DEV_MODE"); ok {
		c.DevMode = v == "true"
	}
	set(&c.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	set(&c.DynamoDBTable, "DYNAMODB_TABLE")
	set(&c.SQSEndpoint, "SQS_ENDPOINT")
	set(&c.JobQueue, "SQS_JOB_QUEUE")
	set(&c.RedisEndpoint, "REDIS_ENDPOINT")
	set(&c.JWTSecret, "JWT_SECRET")
	set(&c.GitHub.ClientID, "GITHUB_CLIENT_ID")
	set(&c.GitHub.ClientSecret, "GITHUB_CLIENT_SECRET")
	set(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	set(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	set(&c.OAuthRedirectURL, "OAUTH_REDIRECT_URL")
	set(&c.HostPort, "HOST_PORT")
	set(&c.AllowedOrigin, "ALLOWED_ORIGIN")
	set(&c.PublicURL, "PUBLIC_URL")
	set(&c.LogLevel, "LOG_LEVEL")
}

var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Secret decodes the JWT signing secret.
func (c Config) Secret() ([]byte, error) {
	if c.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	secret, err := base64.StdEncoding.DecodeString(c.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("decode base64 jwt secret: %w", err)
	}
	return secret, nil
}

// OAuthProviders lists the providers with a configured client.
func (c Config) OAuthProviders() map[string]OAuthClient {
	providers := make(map[string]OAuthClient, 2)
	if c.GitHub.ClientID != "" {
		providers["github"] = c.GitHub
	}
	if c.Google.ClientID != "" {
		providers["google"] = c.Google
	}
	return providers
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.HostPort, ":")
}
