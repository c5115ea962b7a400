package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
// Precedence: defaults < YAML file < environment < command-line flags.
type Config struct {
	Port  string `yaml:"port"`
	Debug bool   `yaml:"debug"`

	// Profile store
	AWSRegion        string `yaml:"aws_region"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`

	// Admin sessions; an empty DatabaseURL keeps sessions in memory
	DatabaseURL   string        `yaml:"database_url"`
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	CookieSecure  bool          `yaml:"cookie_secure"`

	// Identity provider
	SalesforceClientID     string        `yaml:"salesforce_client_id"`
	SalesforceClientSecret string        `yaml:"salesforce_client_secret"`
	SalesforceAuthURL      string        `yaml:"salesforce_auth_url"`
	AuthTimeout            time.Duration `yaml:"auth_timeout"`
}

func defaults() *Config {
	return &Config{
		Port:              "8080",
		AWSRegion:         "us-east-1",
		DynamoDBTable:     "Users",
		SessionTTL:        8 * time.Hour,
		SalesforceAuthURL: "https://login.salesforce.com/services/oauth2/token",
		AuthTimeout:       10 * time.Second,
	}
}

// Load reads configuration from an optional YAML file, environment variables and args
func Load(args []string) (*Config, error) {
	cfg := defaults()

	fs := pflag.NewFlagSet("api", pflag.ContinueOnError)
	configFile := fs.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	port := fs.String("port", "", "HTTP listen port")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if *configFile != "" {
		if err := loadFile(cfg, *configFile); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if fs.Changed("port") {
		cfg.Port = *port
	}
	if fs.Changed("debug") {
		cfg.Debug = *debug
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.AWSRegion, "AWS_REGION")
	setString(&cfg.DynamoDBTable, "DYNAMODB_TABLE")
	setString(&cfg.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.SessionSecret, "SESSION_SECRET")
	setString(&cfg.SalesforceClientID, "SALESFORCE_CLIENT_ID")
	setString(&cfg.SalesforceClientSecret, "SALESFORCE_CLIENT_SECRET")
	setString(&cfg.SalesforceAuthURL, "SALESFORCE_AUTH_URL")

	if err := setBool(&cfg.Debug, "DEBUG"); err != nil {
		return err
	}
	if err := setBool(&cfg.CookieSecure, "COOKIE_SECURE"); err != nil {
		return err
	}
	if err := setDuration(&cfg.SessionTTL, "SESSION_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.AuthTimeout, "AUTH_TIMEOUT"); err != nil {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	var missing []string
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.SalesforceClientID == "" {
		missing = append(missing, "SALESFORCE_CLIENT_ID")
	}
	if c.SalesforceClientSecret == "" {
		missing = append(missing, "SALESFORCE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required settings are not set: %s", strings.Join(missing, ", "))
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("AUTH_TIMEOUT must be positive, got %s", c.AuthTimeout)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}
