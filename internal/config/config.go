package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Reddit  Reddit  `yaml:"reddit"`
	Reports Reports `yaml:"reports"`
	Signups Signups `yaml:"signups"`
	Members Members `yaml:"members"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

type Reddit struct {
	Subreddit       string `yaml:"subreddit"`
	Mode            string `yaml:"mode"`
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`
	UserAgent       string `yaml:"user_agent"`
	APIBaseURL      string `yaml:"api_base_url"`
	AuthURL         string `yaml:"auth_url"`
	FeedBaseURL     string `yaml:"feed_base_url"`
}

type Reports struct {
	Query  string `yaml:"query"`
	Marker string `yaml:"marker"`
}

type Signups struct {
	Query   string `yaml:"query"`
	Flair   string `yaml:"flair"`
	MinRows int    `yaml:"min_rows"`
}

type Members struct {
	AliasesFile string   `yaml:"aliases_file"`
	Excluded    []string `yaml:"excluded"`
}

type Output struct {
	DataDir   string `yaml:"data_dir"`
	StateFile string `yaml:"state_file"`
}

type Server struct {
	Port  int    `yaml:"port"`
	About string `yaml:"about"`
}

type Logging struct {
	Level string `yaml:"level"`
}

const (
	ModeAPI  = "api"
	ModeFeed = "feed"
)

// ConfigDir returns the XDG config directory for misfitcrawler.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "misfitcrawler")
}

// DataDir returns the XDG data directory for misfitcrawler.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "misfitcrawler")
}

// LoadEnv reads a .env file from the working directory, if present, without
// overriding variables already set.
func LoadEnv() {
	_ = godotenv.Load()
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/misfitcrawler/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'misfitcrawler init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Reddit: Reddit{
			Mode:            ModeAPI,
			ClientIDEnv:     "REDDIT_CLIENT_ID",
			ClientSecretEnv: "REDDIT_CLIENT_SECRET",
			UserAgent:       "MisfitCrawler/1.0",
			APIBaseURL:      "https://oauth.reddit.com",
			AuthURL:         "https://www.reddit.com/api/v1/access_token",
			FeedBaseURL:     "https://www.reddit.com",
		},
		Reports: Reports{
			Query:  "AAR",
			Marker: "AAR",
		},
		Signups: Signups{
			Query:   `flair:"Event"`,
			Flair:   "Event",
			MinRows: 10,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Reddit.Mode = strings.ToLower(strings.TrimSpace(cfg.Reddit.Mode))
	if cfg.Reddit.Mode != ModeAPI && cfg.Reddit.Mode != ModeFeed {
		return nil, fmt.Errorf("parsing config: reddit.mode must be %q or %q, got %q", ModeAPI, ModeFeed, cfg.Reddit.Mode)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetStateFile returns the crawl state file path. Relative paths are taken
// from the data directory.
func (c *Config) GetStateFile() string {
	name := c.Output.StateFile
	if name == "" {
		name = "data.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.GetDataDir(), name)
}

// ClientID returns the reddit app id from the configured environment variable.
func (c *Config) ClientID() string {
	return os.Getenv(c.Reddit.ClientIDEnv)
}

// ClientSecret returns the reddit app secret from the configured environment variable.
func (c *Config) ClientSecret() string {
	return os.Getenv(c.Reddit.ClientSecretEnv)
}

// IsDebug reports whether debug logging is configured.
func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.Logging.Level, "DEBUG")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
