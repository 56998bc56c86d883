package config

import (
	"os"
	"strings"

	"github.com/jinzhu/configor"
	"github.com/pkg/errors"

	"github.com/tdh8316/usercheck/internal/httpx"
)

const EnvPrefix = "USERCHECK"

// Config holds run defaults. Values come from struct defaults, then an
// optional YAML/JSON/TOML file, then USERCHECK_* environment variables.
// Command-line flags override all of them.
type Config struct {
	// Catalog is a sherlock-style data.json; empty selects the built-in catalog.
	Catalog    string `yaml:"catalog" json:"catalog" toml:"catalog" env:"USERCHECK_CATALOG"`
	CatalogURL string `yaml:"catalog_url" json:"catalog_url" toml:"catalog_url" env:"USERCHECK_CATALOG_URL"`

	// Seconds.
	Timeout  int `yaml:"timeout" json:"timeout" toml:"timeout" env:"USERCHECK_TIMEOUT" default:"10"`
	Deadline int `yaml:"deadline" json:"deadline" toml:"deadline" env:"USERCHECK_DEADLINE"`

	Concurrency int     `yaml:"concurrency" json:"concurrency" toml:"concurrency" env:"USERCHECK_CONCURRENCY" default:"32"`
	Rate        float64 `yaml:"rate" json:"rate" toml:"rate" env:"USERCHECK_RATE"`

	// MaxConnsPerHost caps connections to a single host; 0 means no cap.
	MaxConnsPerHost int `yaml:"max_conns_per_host" json:"max_conns_per_host" toml:"max_conns_per_host" env:"USERCHECK_MAX_CONNS_PER_HOST"`

	UserAgent string `yaml:"user_agent" json:"user_agent" toml:"user_agent" env:"USERCHECK_USER_AGENT"`

	Tor      bool   `yaml:"tor" json:"tor" toml:"tor" env:"USERCHECK_TOR"`
	TorProxy string `yaml:"tor_proxy" json:"tor_proxy" toml:"tor_proxy" env:"USERCHECK_TOR_PROXY"`

	Formats    []string `yaml:"formats" json:"formats" toml:"formats"`
	ResultsDir string   `yaml:"results" json:"results" toml:"results" env:"USERCHECK_RESULTS" default:"results"`
	NoOutput   bool     `yaml:"no_output" json:"no_output" toml:"no_output" env:"USERCHECK_NO_OUTPUT"`
}

// Load reads path when it is non-empty and applies defaults and environment.
func Load(path string) (Config, error) {
	var files []string
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, errors.Wrap(err, "config file")
		}
		files = append(files, path)
	}

	var cfg Config
	loader := configor.New(&configor.Config{
		ENVPrefix: EnvPrefix,
		Silent:    true,
	})
	if err := loader.Load(&cfg, files...); err != nil {
		return Config{}, errors.Wrapf(err, "load config %s", path)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.UserAgent == "" {
		c.UserAgent = httpx.DefaultUserAgent
	}
	if c.TorProxy == "" {
		c.TorProxy = httpx.DefaultTorProxyURL
	}
	if len(c.Formats) == 0 {
		c.Formats = []string{"csv"}
	}
	if c.Timeout <= 0 {
		c.Timeout = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 32
	}
	if c.MaxConnsPerHost < 0 {
		c.MaxConnsPerHost = 0
	}
}

// PathFromArgs finds a -config/--config value without parsing other flags.
func PathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if name == a {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
