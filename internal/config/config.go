// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort     = 3000
	DefaultEndpoint = "https://api.strem.io"
	DefaultLocale   = "en"
	DefaultTimeout  = 30 * time.Second
)

// Config holds the server configuration.
type Config struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	ProxyURL string        `yaml:"proxy_url"`
	Endpoint string        `yaml:"endpoint"`
	Locale   string        `yaml:"locale"`
	Timeout  time.Duration `yaml:"timeout"`
	Debug    bool          `yaml:"debug"`

	// Cross-site form post protection.
	OriginCheck   bool     `yaml:"origin_check"`
	PublicOrigins []string `yaml:"public_origins"`
	TrustProxy    bool     `yaml:"trust_proxy"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:     DefaultPort,
		Endpoint: DefaultEndpoint,
		Locale:   DefaultLocale,
		Timeout:  DefaultTimeout,

		OriginCheck: true,
	}
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := strings.TrimSpace(os.Getenv("HOST")); v != "" {
		c.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("PROXY_URL")); v != "" {
		c.ProxyURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STREMIO_API")); v != "" {
		c.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("SORT_LOCALE")); v != "" {
		c.Locale = v
	}
	if v := strings.TrimSpace(os.Getenv("API_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid API_TIMEOUT %q: %w", v, err)
		}
		c.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv("DEBUG")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG %q: %w", v, err)
		}
		c.Debug = b
	}
	if v := strings.TrimSpace(os.Getenv("ORIGIN_CHECK")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ORIGIN_CHECK %q: %w", v, err)
		}
		c.OriginCheck = b
	}
	if v := strings.TrimSpace(os.Getenv("PUBLIC_ORIGINS")); v != "" {
		c.PublicOrigins = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("TRUST_PROXY")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		c.TrustProxy = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (must be 1..65535)", c.Port)
	}

	if c.ProxyURL != "" {
		u, err := url.Parse(c.ProxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		switch u.Scheme {
		case "http", "https", "socks5":
		default:
			return fmt.Errorf("unsupported proxy scheme %q (valid: http, https, socks5)", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("proxy URL %q has no host", c.ProxyURL)
		}
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint %q must be an absolute http(s) URL", c.Endpoint)
	}

	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}

	for _, origin := range c.PublicOrigins {
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || (u.Path != "" && u.Path != "/") {
			return fmt.Errorf("public origin %q must look like https://host[:port]", origin)
		}
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// LanguageTag returns the parsed sort locale, falling back to English.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
