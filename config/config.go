package config

import (
	"errors"
	"fmt"
	"newsbot/db"
	"newsbot/feeds"
	"newsbot/models"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"
)

const (
	DefaultExpireDelay     = 604800
	DefaultCleanupInterval = 3600
	DefaultDBHost          = "localhost"
	DefaultDBPort          = 6379
	DefaultDatabase        = "newsbot.db"
)

// SiteConfig represents one watched feed
type SiteConfig struct {
	Id  string `toml:"id" yaml:"id"`
	Url string `toml:"url" yaml:"url"`
	// Seconds a delivered item stays suppressed. Negative never expires.
	ExpireDelay  *int    `toml:"expire_delay" yaml:"expire_delay"`
	MessageLimit int     `toml:"message_limit" yaml:"message_limit"`
	Chats        []int64 `toml:"chats" yaml:"chats"`
}

// StoreConfig selects the dedup backend
type StoreConfig struct {
	Backend  string `toml:"backend" yaml:"backend"`
	Key      string `toml:"key" yaml:"key"`
	Database string `toml:"database" yaml:"database"`
	DSN      string `toml:"dsn" yaml:"dsn"`
}

// LogConfig controls log level and the optional rotating log file
type LogConfig struct {
	Level      string `toml:"level" yaml:"level"`
	File       string `toml:"file" yaml:"file"`
	MaxSize    int    `toml:"max_size" yaml:"max_size"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAge     int    `toml:"max_age" yaml:"max_age"`
}

// Config represents the top-level configuration. Intervals, delays and
// timeouts are in seconds.
type Config struct {
	Sites           []SiteConfig `toml:"sites" yaml:"sites"`
	NewsInterval    int          `toml:"news_interval" yaml:"news_interval"`
	CleanupInterval int          `toml:"cleanup_interval" yaml:"cleanup_interval"`
	MessageLimit    int          `toml:"message_limit" yaml:"message_limit"`
	FetchRetries    *int         `toml:"fetch_retries" yaml:"fetch_retries"`
	FetchRetryDelay int          `toml:"fetch_retry_delay" yaml:"fetch_retry_delay"`
	FetchTimeout    int          `toml:"fetch_timeout" yaml:"fetch_timeout"`
	DBHost          string       `toml:"db_host" yaml:"db_host"`
	DBPort          int          `toml:"db_port" yaml:"db_port"`
	Store           StoreConfig  `toml:"store" yaml:"store"`
	Listen          string       `toml:"listen" yaml:"listen"`
	Log             LogConfig    `toml:"log" yaml:"log"`
}

// LoadConfig reads a TOML or YAML file, chosen by extension. ${VAR}
// references are expanded from the environment before decoding; a bare $
// is left alone.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	expanded := expandEnv(string(data))

	var config Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(expanded), &config)
	case ".toml", "":
		err = toml.Unmarshal([]byte(expanded), &config)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	config.setDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return envReference.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envReference.FindStringSubmatch(ref)[1])
	})
}

func (c *Config) setDefaults() {
	for i := range c.Sites {
		if c.Sites[i].ExpireDelay == nil {
			delay := DefaultExpireDelay
			c.Sites[i].ExpireDelay = &delay
		}
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.MessageLimit <= 0 {
		c.MessageLimit = feeds.DefaultMessageLimit
	}
	if c.FetchRetries == nil {
		retries := feeds.DefaultRetries
		c.FetchRetries = &retries
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = int(feeds.DefaultFetchTimeout / time.Second)
	}
	if c.DBHost == "" {
		c.DBHost = DefaultDBHost
	}
	if c.DBPort == 0 {
		c.DBPort = DefaultDBPort
	}
	if c.Store.Backend == "" {
		c.Store.Backend = db.BackendRedis
	}
	if c.Store.Key == "" {
		c.Store.Key = db.DefaultKey
	}
	if c.Store.Database == "" {
		c.Store.Database = DefaultDatabase
	}
}

// Validate reports every problem found in the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.NewsInterval <= 0 {
		errs = append(errs, errors.New("news_interval must be positive"))
	}

	seen := make(map[string]bool)
	for i, site := range c.Sites {
		if site.Id == "" {
			errs = append(errs, fmt.Errorf("site %d: missing id", i))
		} else if seen[site.Id] {
			errs = append(errs, fmt.Errorf("site %s: duplicate id", site.Id))
		}
		seen[site.Id] = true

		if site.Url == "" {
			errs = append(errs, fmt.Errorf("site %s: missing url", site.Id))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SiteList returns the configured sites with defaults applied
func (c *Config) SiteList() []models.Site {
	sites := make([]models.Site, 0, len(c.Sites))
	for _, s := range c.Sites {
		delay := DefaultExpireDelay
		if s.ExpireDelay != nil {
			delay = *s.ExpireDelay
		}
		sites = append(sites, models.Site{
			Id:           s.Id,
			Url:          s.Url,
			ExpireDelay:  delay,
			MessageLimit: s.MessageLimit,
			Chats:        s.Chats,
		})
	}
	return sites
}

// StoreOptions returns the connection settings of the dedup backend
func (c *Config) StoreOptions() db.Options {
	return db.Options{
		Backend:  c.Store.Backend,
		Host:     c.DBHost,
		Port:     c.DBPort,
		Key:      c.Store.Key,
		Database: c.Store.Database,
		DSN:      c.Store.DSN,
	}
}

// FetcherConfig returns the retry policy for feed fetches
func (c *Config) FetcherConfig(userAgent string) feeds.FetcherConfig {
	retries := feeds.DefaultRetries
	if c.FetchRetries != nil {
		retries = *c.FetchRetries
	}

	config := feeds.FetcherConfig{
		Retries:   retries,
		Timeout:   time.Duration(c.FetchTimeout) * time.Second,
		UserAgent: userAgent,
	}
	if c.FetchRetryDelay > 0 {
		delay := time.Duration(c.FetchRetryDelay) * time.Second
		config.BackOff = func() backoff.BackOff {
			return backoff.NewConstantBackOff(delay)
		}
	}
	return config
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.NewsInterval) * time.Second
}

func (c *Config) Cleanup() time.Duration {
	return time.Duration(c.CleanupInterval) * time.Second
}
