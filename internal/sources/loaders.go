package sources

import (
	"context"
	"fmt"
	"net/url"

	"dashfeed/internal/fetch"
	"dashfeed/internal/types"
)

// Fetcher is the subset of fetch.Fetcher the OPML URL loader needs.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type URLLoader struct{}

func (u *URLLoader) Load(ctx context.Context, value string) ([]types.Source, error) {
	if err := ValidateURL(value); err != nil {
		return nil, err
	}
	return []types.Source{{URL: value}}, nil
}

type OPMLFileLoader struct{}

func (o *OPMLFileLoader) Load(ctx context.Context, path string) ([]types.Source, error) {
	data, err := LoadOPMLFile(path)
	if err != nil {
		return nil, err
	}

	return ParseOPML(data)
}

type OPMLURLLoader struct {
	Fetcher Fetcher
}

func (o *OPMLURLLoader) Load(ctx context.Context, value string) ([]types.Source, error) {
	if err := ValidateURL(value); err != nil {
		return nil, err
	}

	data, err := o.Fetcher.Fetch(ctx, value)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OPML: %w", err)
	}

	return ParseOPML(data)
}

// UseFetcher makes remote OPML lists load through f, typically the same
// cached fetcher the feeds use.
func UseFetcher(f Fetcher) {
	RegisterLoader(KindOPMLURL, &OPMLURLLoader{Fetcher: f})
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}

func init() {
	RegisterLoader(KindURL, &URLLoader{})
	RegisterLoader(KindOPMLFile, &OPMLFileLoader{})
	RegisterLoader(KindOPMLURL, &OPMLURLLoader{Fetcher: fetch.New(fetch.Config{})})
}
