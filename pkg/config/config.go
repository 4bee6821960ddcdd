package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/saint0x/gitautomator/pkg/log"
	"github.com/saint0x/gitautomator/pkg/openai"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: GITAUTOMATOR_GITHUB_TOKEN
// sets github.token.
const EnvPrefix = "GITAUTOMATOR"

// Config holds validated configuration
type Config struct {
	Port       string `mapstructure:"port"`
	Debug      bool   `mapstructure:"debug"`
	Production bool   `mapstructure:"production"`
	// BaseURL is the public address of the server, used for the OAuth
	// callback.
	BaseURL string `mapstructure:"base_url"`

	GitHub    GitHubConfig    `mapstructure:"github"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	AI        AIConfig        `mapstructure:"ai"`
	Bookmarks BookmarksConfig `mapstructure:"bookmarks"`
}

type GitHubConfig struct {
	ClientID          string        `mapstructure:"client_id"`
	ClientSecret      string        `mapstructure:"client_secret"`
	APIURL            string        `mapstructure:"api_url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IgnorePaths       []string      `mapstructure:"ignore_paths"`
}

type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type AIConfig struct {
	// PromptsFile is a YAML or JSON file overriding the prompt templates
	PromptsFile string `mapstructure:"prompts_file"`
}

type BookmarksConfig struct {
	// Dir holds one file per signed-in user; empty keeps bookmarks in memory
	Dir string `mapstructure:"dir"`
	// File is used by the command line
	File string `mapstructure:"file"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Port: "8080",
		GitHub: GitHubConfig{
			APIURL:      github.DefaultAPIURL,
			Timeout:     30 * time.Second,
			Burst:       1,
			IgnorePaths: append([]string(nil), github.DefaultIgnorePaths...),
		},
		OpenAI: OpenAIConfig{
			BaseURL: openai.DefaultBaseURL,
			Model:   openai.GPT4oMini,
			Timeout: 60 * time.Second,
		},
		Bookmarks: BookmarksConfig{
			File: ".gitautomator-bookmarks.json",
		},
	}
}

// bareEnv lists the unprefixed variable names that are also honored
var bareEnv = map[string]string{
	"port":                 "PORT",
	"debug":                "DEBUG",
	"github.client_id":     "GITHUB_CLIENT_ID",
	"github.client_secret": "GITHUB_CLIENT_SECRET",
	"github.token":         "GITHUB_TOKEN",
	"openai.api_key":       "OPENAI_API_KEY",
}

// Load reads configuration from defaults, the optional YAML file at path
// and the environment, in increasing precedence.
func Load(path string) (*Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("port", def.Port)
	v.SetDefault("debug", def.Debug)
	v.SetDefault("production", def.Production)
	v.SetDefault("base_url", def.BaseURL)
	v.SetDefault("github.client_id", def.GitHub.ClientID)
	v.SetDefault("github.client_secret", def.GitHub.ClientSecret)
	v.SetDefault("github.api_url", def.GitHub.APIURL)
	v.SetDefault("github.token", def.GitHub.Token)
	v.SetDefault("github.timeout", def.GitHub.Timeout)
	v.SetDefault("github.requests_per_second", def.GitHub.RequestsPerSecond)
	v.SetDefault("github.burst", def.GitHub.Burst)
	v.SetDefault("github.ignore_paths", def.GitHub.IgnorePaths)
	v.SetDefault("openai.api_key", def.OpenAI.APIKey)
	v.SetDefault("openai.base_url", def.OpenAI.BaseURL)
	v.SetDefault("openai.model", def.OpenAI.Model)
	v.SetDefault("openai.timeout", def.OpenAI.Timeout)
	v.SetDefault("ai.prompts_file", def.AI.PromptsFile)
	v.SetDefault("bookmarks.dir", def.Bookmarks.Dir)
	v.SetDefault("bookmarks.file", def.Bookmarks.File)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, bare := range bareEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", bare, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check rejects values no command can work with
func (c *Config) check() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be a number, got %q", c.Port)
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("base_url must include scheme and host (e.g. https://example.com)")
		}
	}
	if c.GitHub.RequestsPerSecond < 0 {
		return fmt.Errorf("github.requests_per_second must not be negative")
	}
	return nil
}

// Validate checks what the server needs to run
func (c *Config) Validate(logger *log.Logger) error {
	if c.GitHub.ClientID == "" || c.GitHub.ClientSecret == "" {
		return fmt.Errorf("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET not configured")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not configured")
	}
	if c.BaseURL == "" {
		logger.Warning("base_url not set; GitHub will redirect to the callback URL registered with the OAuth app")
	}
	if c.Bookmarks.Dir == "" {
		logger.Debug("bookmarks.dir not set; bookmarks are kept in memory")
	}
	return nil
}

// ValidateToken checks what the command line needs to act as a user
func (c *Config) ValidateToken() error {
	if c.GitHub.Token == "" {
		return fmt.Errorf("GITHUB_TOKEN not configured")
	}
	return nil
}

// Probe checks the OpenAI key with a minimal completion
func (c *Config) Probe(ctx context.Context, logger *log.Logger) error {
	client := openai.NewClient(c.OpenAI.APIKey, openai.WithBaseURL(c.OpenAI.BaseURL))
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	logger.Debug("Probing OpenAI at %s", c.OpenAI.BaseURL)
	_, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.OpenAI.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: "system", Content: "Validate token"},
		},
		MaxTokens: 5,
	})
	if err != nil {
		return fmt.Errorf("invalid OPENAI_API_KEY: %w", err)
	}
	return nil
}

// Addr is the listen address
func (c *Config) Addr() string {
	return ":" + c.Port
}

// CallbackURL is the OAuth redirect target, or "" when BaseURL is unset
func (c *Config) CallbackURL() string {
	if c.BaseURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.BaseURL, "/") + "/auth/callback/github"
}
