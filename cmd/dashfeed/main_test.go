package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dashfeed/internal/config"
	"dashfeed/internal/fetch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rustFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Rust Blog</title>
<item><title>Rust 1.75</title><link>https://blog.rust-lang.org/1.75</link><pubDate>Thu, 28 Dec 2023 00:00:00 +0000</pubDate></item>
<item><title>Rust 1.76</title><link>https://blog.rust-lang.org/1.76</link><pubDate>Thu, 08 Feb 2024 00:00:00 +0000</pubDate></item>
</channel></rss>`

const goFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>The Go Blog</title><id>go</id><updated>2024-02-06T00:00:00Z</updated>
<entry><title>Go 1.22 is released!</title><id>1</id><link href="https://go.dev/blog/go1.22"/><updated>2024-02-06T00:00:00Z</updated></entry>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rust.xml":
			_, _ = w.Write([]byte(rustFeed))
		case "/go.atom":
			_, _ = w.Write([]byte(goFeed))
		case "/broken.xml":
			_, _ = w.Write([]byte("<html>moved</html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunPrintsMergedEntries(t *testing.T) {
	srv := newFeedServer(t)
	t.Setenv("COLUMNS", "100")

	path := writeConfig(t, fmt.Sprintf(`
[cache]
type = "memory"

[[feeds]]
url = "%[1]s/rust.xml"

[[feeds]]
url = "%[1]s/go.atom"

[[feeds]]
url = "%[1]s/broken.xml"

[[feeds]]
url = "%[1]s/missing.xml"
`, srv.URL))

	stdout, stderr, err := runCLI(t, "--config", path, "-n", "2")
	require.NoError(t, err)

	assert.Equal(t, "- Rust Blog: Rust 1.76\n- The Go Blog: Go 1.22 is released!\n", stdout)
	assert.Empty(t, stderr)
}

func TestRunVerboseLogsSkippedFeeds(t *testing.T) {
	srv := newFeedServer(t)

	path := writeConfig(t, fmt.Sprintf("[[feeds]]\nurl = \"%[1]s/missing.xml\"\n[[feeds]]\nurl = \"%[1]s/broken.xml\"\n", srv.URL))

	stdout, stderr, err := runCLI(t, "-c", path, "-v", "--no-cache")
	require.NoError(t, err)

	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Feed skipped")
	assert.Contains(t, stderr, `parse_error="unknown format"`)
	assert.Equal(t, 1, strings.Count(stderr, "parse_error="))
	assert.Contains(t, stderr, "run_id=")
}

func TestRunExportsAtom(t *testing.T) {
	srv := newFeedServer(t)

	path := writeConfig(t, fmt.Sprintf("[cache]\ntype = \"none\"\n[[feeds]]\nurl = \"%s/go.atom\"\n", srv.URL))

	stdout, _, err := runCLI(t, "-c", path, "-o", "atom")
	require.NoError(t, err)
	assert.Contains(t, stdout, "<title>Go 1.22 is released!</title>")
}

func TestRunConfigErrorsAreFatal(t *testing.T) {
	path := writeConfig(t, "[[feeds]]\nname = \"nothing\"\n")

	stdout, _, err := runCLI(t, "-c", path)
	require.Error(t, err)
	assert.Empty(t, stdout)

	var ce *config.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "feeds[0]", ce.Entry)
	assert.True(t, strings.Contains(err.Error(), path))
}

func TestRunRejectsBadFlags(t *testing.T) {
	srv := newFeedServer(t)
	path := writeConfig(t, fmt.Sprintf("[cache]\ntype = \"none\"\n[[feeds]]\nurl = \"%s/go.atom\"\n", srv.URL))

	_, _, err := runCLI(t, "-c", path, "-o", "html")
	require.Error(t, err)

	_, _, err = runCLI(t, "-c", path, "-n", "-3")
	require.Error(t, err)

	_, _, err = runCLI(t, "--bogus")
	require.Error(t, err)
}

func TestRunVersion(t *testing.T) {
	stdout, _, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, fetch.UserAgent()+"\n", stdout)
}
