package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"dashfeed/internal/logging"
	"dashfeed/internal/sources"
	"dashfeed/internal/storage"
	"dashfeed/internal/types"
)

const (
	appDir = "dashboard-feeds"

	DefaultLimit    = 20
	DefaultCacheTTL = 7 * 24 * time.Hour

	OutputText = "text"
	OutputRSS  = "rss"
	OutputAtom = "atom"
	OutputJSON = "json"
)

var outputs = []string{OutputText, OutputRSS, OutputAtom, OutputJSON}

type Config struct {
	Limit       *int        `toml:"limit" yaml:"limit"`
	LogLevel    string      `toml:"log_level" yaml:"log_level"`
	Concurrency int         `toml:"concurrency" yaml:"concurrency"`
	ShowAge     bool        `toml:"show_age" yaml:"show_age"`
	Output      string      `toml:"output" yaml:"output"`
	HTTP        HTTPConfig  `toml:"http" yaml:"http"`
	Cache       CacheConfig `toml:"cache" yaml:"cache"`
	Feeds       []FeedEntry `toml:"feeds" yaml:"feeds"`

	path string
}

type HTTPConfig struct {
	Timeout      string `toml:"timeout" yaml:"timeout"`
	MaxBodyBytes int64  `toml:"max_body_bytes" yaml:"max_body_bytes"`
}

type CacheConfig struct {
	Type      string `toml:"type" yaml:"type"`
	Path      string `toml:"path" yaml:"path"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"`
	TTL       string `toml:"ttl" yaml:"ttl"`
}

// FeedEntry is one [[feeds]] table. Exactly one of URL, OPML and OPMLURL
// must be set.
type FeedEntry struct {
	Name    string `toml:"name" yaml:"name"`
	URL     string `toml:"url" yaml:"url"`
	OPML    string `toml:"opml" yaml:"opml"`
	OPMLURL string `toml:"opml_url" yaml:"opml_url"`
}

// ConfigError is fatal for the run. Entry names the offending part of the
// file, such as "feeds[2]" or "cache.ttl", when there is one.
type ConfigError struct {
	Path   string
	Entry  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("config")
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Entry != "" {
		b.WriteString(": " + e.Entry)
	}
	b.WriteString(": " + e.Reason)
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DefaultPath is config.toml in the per-user configuration directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, appDir, "config.toml"), nil
}

// DefaultCachePath is where the sqlite response cache lives unless
// cache.path says otherwise.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate cache directory: %w", err)
	}
	return filepath.Join(dir, appDir, "http.db"), nil
}

// Load reads and validates the file at path. The format follows the
// extension: .yaml and .yml are YAML, anything else is TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Path: path, Reason: "config file not found", Err: err}
		}
		return nil, &ConfigError{Path: path, Reason: "failed to read config file", Err: err}
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = decodeYAML(data, &cfg)
	default:
		err = decodeTOML(data, &cfg)
	}
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
			return nil, ce
		}
		return nil, &ConfigError{Path: path, Reason: "failed to parse config", Err: err}
	}

	cfg.path = path
	if err := validateConfig(&cfg); err != nil {
		err.Path = path
		return nil, err
	}

	return &cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	if err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return &ConfigError{Reason: "syntax error", Err: syntaxError{perr}}
		}
		return err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return &ConfigError{Entry: undecoded[0].String(), Reason: "unknown key"}
	}
	return nil
}

// syntaxError prints the TOML error with the offending line quoted.
type syntaxError struct {
	toml.ParseError
}

func (e syntaxError) Error() string {
	return e.ErrorWithPosition()
}

func (e syntaxError) Unwrap() error {
	return e.ParseError
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func validateConfig(cfg *Config) *ConfigError {
	if cfg.Limit == nil {
		limit := DefaultLimit
		cfg.Limit = &limit
	}
	if *cfg.Limit < 0 {
		return &ConfigError{Entry: "limit", Reason: "must not be negative"}
	}

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return &ConfigError{Entry: "log_level", Reason: "invalid level", Err: err}
	}

	if cfg.Concurrency < 0 {
		return &ConfigError{Entry: "concurrency", Reason: "must not be negative"}
	}

	if cfg.Output == "" {
		cfg.Output = OutputText
	}
	if !slices.Contains(outputs, cfg.Output) {
		return &ConfigError{Entry: "output", Reason: fmt.Sprintf("must be one of %s", strings.Join(outputs, ", "))}
	}

	if cfg.HTTP.Timeout != "" {
		if d, err := time.ParseDuration(cfg.HTTP.Timeout); err != nil || d <= 0 {
			return &ConfigError{Entry: "http.timeout", Reason: "invalid duration", Err: err}
		}
	}
	if cfg.HTTP.MaxBodyBytes < 0 {
		return &ConfigError{Entry: "http.max_body_bytes", Reason: "must not be negative"}
	}

	if cfg.Cache.Type == "" {
		cfg.Cache.Type = storage.TypeSQLite
	}
	switch cfg.Cache.Type {
	case storage.TypeSQLite:
		if cfg.Cache.Path == "" {
			path, err := DefaultCachePath()
			if err != nil {
				return &ConfigError{Entry: "cache.path", Reason: "no default location", Err: err}
			}
			cfg.Cache.Path = path
		}
		cfg.Cache.Path = cfg.resolvePath(cfg.Cache.Path)
	case storage.TypeRedis:
		if cfg.Cache.RedisAddr == "" {
			cfg.Cache.RedisAddr = "localhost:6379"
		}
	case storage.TypeMemory, storage.TypeNone:
	default:
		return &ConfigError{Entry: "cache.type", Reason: fmt.Sprintf("unsupported cache type %q", cfg.Cache.Type)}
	}
	if cfg.Cache.TTL != "" {
		if d, err := time.ParseDuration(cfg.Cache.TTL); err != nil || d <= 0 {
			return &ConfigError{Entry: "cache.ttl", Reason: "invalid duration", Err: err}
		}
	}

	if len(cfg.Feeds) == 0 {
		return &ConfigError{Entry: "feeds", Reason: "no feeds configured", Err: types.ErrNoSources}
	}

	for i, feed := range cfg.Feeds {
		entry := fmt.Sprintf("feeds[%d]", i)

		set := 0
		for _, v := range []string{feed.URL, feed.OPML, feed.OPMLURL} {
			if strings.TrimSpace(v) != "" {
				set++
			}
		}
		if set != 1 {
			return &ConfigError{Entry: entry, Reason: "exactly one of url, opml or opml_url is required"}
		}

		switch {
		case feed.URL != "":
			if err := sources.ValidateURL(feed.URL); err != nil {
				return &ConfigError{Entry: entry, Reason: "invalid url", Err: err}
			}
		case feed.OPMLURL != "":
			if err := sources.ValidateURL(feed.OPMLURL); err != nil {
				return &ConfigError{Entry: entry, Reason: "invalid opml_url", Err: err}
			}
		}
	}

	return nil
}

// FetchTimeout returns http.timeout, or zero for the fetcher default.
func (c *Config) FetchTimeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTP.Timeout)
	return d
}

func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL == "" {
		return DefaultCacheTTL
	}
	d, _ := time.ParseDuration(c.Cache.TTL)
	return d
}

func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Type:      c.Cache.Type,
		Path:      c.Cache.Path,
		RedisAddr: c.Cache.RedisAddr,
		TTL:       c.CacheTTL(),
	}
}

// Sources expands every feed entry, loading OPML lists, into the ordered
// source list for a run. It never returns an empty list without an error.
func (c *Config) Sources(ctx context.Context) ([]types.Source, error) {
	var all []types.Source

	for i, feed := range c.Feeds {
		spec := sources.Spec{Name: feed.Name}
		switch {
		case feed.URL != "":
			spec.Kind, spec.Value = sources.KindURL, feed.URL
		case feed.OPML != "":
			spec.Kind, spec.Value = sources.KindOPMLFile, c.resolvePath(feed.OPML)
		default:
			spec.Kind, spec.Value = sources.KindOPMLURL, feed.OPMLURL
		}

		srcs, err := sources.Load(ctx, spec)
		if err != nil {
			return nil, &ConfigError{Path: c.path, Entry: fmt.Sprintf("feeds[%d]", i), Reason: "failed to load feeds", Err: err}
		}
		all = append(all, srcs...)
	}

	if len(all) == 0 {
		return nil, &ConfigError{Path: c.path, Entry: "feeds", Reason: "no feeds configured", Err: types.ErrNoSources}
	}

	return all, nil
}

// resolvePath expands a leading ~ and makes relative paths relative to the
// directory of the config file.
func (c *Config) resolvePath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) && c.path != "" {
		p = filepath.Join(filepath.Dir(c.path), p)
	}
	return p
}
