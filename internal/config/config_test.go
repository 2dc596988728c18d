package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dashfeed/internal/storage"
	"dashfeed/internal/types"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func requireConfigError(t *testing.T, err error, entry string) *ConfigError {
	t.Helper()

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, entry, ce.Entry)
	return ce
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", `
limit = 5
log_level = "info"
concurrency = 4
output = "atom"

[http]
timeout = "3s"

[cache]
type = "memory"
ttl = "1h"

[[feeds]]
url = "https://blog.rust-lang.org/feed.xml"

[[feeds]]
name = "Go"
url = "https://go.dev/blog/feed.atom"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5, *cfg.Limit)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, OutputAtom, cfg.Output)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout())
	assert.Equal(t, storage.Config{Type: storage.TypeMemory, TTL: time.Hour}, cfg.StorageConfig())

	srcs, err := cfg.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Source{
		{URL: "https://blog.rust-lang.org/feed.xml"},
		{URL: "https://go.dev/blog/feed.atom", Name: "Go"},
	}, srcs)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", `
[cache]
type = "none"

[[feeds]]
url = "https://lwn.net/headlines/rss"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultLimit, *cfg.Limit)
	assert.Equal(t, OutputText, cfg.Output)
	assert.Zero(t, cfg.FetchTimeout())
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL())
}

func TestLoadKeepsExplicitZeroLimit(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", "limit = 0\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n[cache]\ntype = \"none\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, *cfg.Limit)
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.yaml", `
limit: 3
cache:
  type: redis
feeds:
  - url: https://go.dev/blog/feed.atom
    name: Go
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, *cfg.Limit)
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Go", cfg.Feeds[0].Name)
}

func TestLoadSQLiteCachePathIsRelativeToConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", "[cache]\npath = \"cache/http.db\"\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, storage.TypeSQLite, cfg.Cache.Type)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "cache", "http.db"), cfg.Cache.Path)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		content string
		entry   string
		reason  string
	}{
		{
			name:    "no feeds",
			content: "limit = 3\n",
			entry:   "feeds",
			reason:  "no feeds configured",
		},
		{
			name:    "entry without url",
			content: "[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n[[feeds]]\nname = \"nothing\"\n",
			entry:   "feeds[1]",
			reason:  "exactly one of url, opml or opml_url is required",
		},
		{
			name:    "entry with two kinds",
			content: "[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\nopml = \"subs.opml\"\n",
			entry:   "feeds[0]",
			reason:  "exactly one of url, opml or opml_url is required",
		},
		{
			name:    "relative url",
			content: "[[feeds]]\nurl = \"lwn.net/headlines/rss\"\n",
			entry:   "feeds[0]",
			reason:  "invalid url",
		},
		{
			name:    "bad opml url",
			content: "[[feeds]]\nopml_url = \"file:///etc/passwd\"\n",
			entry:   "feeds[0]",
			reason:  "invalid opml_url",
		},
		{
			name:    "negative limit",
			content: "limit = -1\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n",
			entry:   "limit",
			reason:  "must not be negative",
		},
		{
			name:    "bad timeout",
			content: "[http]\ntimeout = \"soon\"\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n",
			entry:   "http.timeout",
			reason:  "invalid duration",
		},
		{
			name:    "bad cache type",
			content: "[cache]\ntype = \"etcd\"\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n",
			entry:   "cache.type",
			reason:  "unsupported cache type \"etcd\"",
		},
		{
			name:    "bad output",
			content: "output = \"html\"\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n",
			entry:   "output",
			reason:  "must be one of text, rss, atom, json",
		},
		{
			name:    "bad log level",
			content: "log_level = \"loud\"\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n",
			entry:   "log_level",
			reason:  "invalid level",
		},
		{
			name:    "unknown key",
			content: "[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\nttl = 5\n",
			entry:   "feeds.ttl",
			reason:  "unknown key",
		},
		{
			name:    "toml syntax",
			content: "[[feeds]\nurl = 1\n",
			reason:  "syntax error",
		},
		{
			name:    "empty yaml",
			file:    "config.yml",
			content: "",
			entry:   "feeds",
			reason:  "no feeds configured",
		},
		{
			name:    "yaml unknown field",
			file:    "config.yaml",
			content: "feeds:\n  - link: https://lwn.net/headlines/rss\n",
			reason:  "failed to parse config",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			file := tt.file
			if file == "" {
				file = "config.toml"
			}
			path := writeConfig(t, file, tt.content)

			_, err := Load(path)
			ce := requireConfigError(t, err, tt.entry)
			assert.Equal(t, tt.reason, ce.Reason)
			assert.Equal(t, path, ce.Path)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestLoadSyntaxErrorReportsLine(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", "limit = 3\n\nlog_level = @\n[[feeds]]\nurl = \"https://lwn.net/headlines/rss\"\n")

	_, err := Load(path)
	requireConfigError(t, err, "")

	var perr toml.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Position.Line)
	assert.Contains(t, err.Error(), "At line 3")
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "absent.toml")

	_, err := Load(path)
	ce := requireConfigError(t, err, "")
	assert.Equal(t, "config file not found", ce.Reason)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNoSourcesIsConfigError(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "config.toml", "feeds = []\n[cache]\ntype = \"none\"\n")

	_, err := Load(path)
	requireConfigError(t, err, "feeds")
	assert.ErrorIs(t, err, types.ErrNoSources)
}

func TestSourcesLoadsOPMLRelativeToConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subs.opml"), []byte(`<opml version="2.0"><body>
<outline text="LWN" xmlUrl="https://lwn.net/headlines/rss"/>
<outline text="Go" xmlUrl="https://go.dev/blog/feed.atom"/>
</body></opml>`), 0o644))
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cache]\ntype = \"none\"\n[[feeds]]\nopml = \"subs.opml\"\n[[feeds]]\nopml = \"missing.opml\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = cfg.Sources(context.Background())
	requireConfigError(t, err, "feeds[1]")

	cfg.Feeds = cfg.Feeds[:1]
	srcs, err := cfg.Sources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Source{
		{URL: "https://lwn.net/headlines/rss", Name: "LWN"},
		{URL: "https://go.dev/blog/feed.atom", Name: "Go"},
	}, srcs)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "dashboard-feeds", filepath.Base(filepath.Dir(path)))
	assert.Equal(t, "config.toml", filepath.Base(path))
}
