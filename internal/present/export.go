package present

import (
	"fmt"
	"io"
	"time"

	"github.com/gorilla/feeds"

	"dashfeed/internal/types"
)

const (
	FormatRSS  = "rss"
	FormatAtom = "atom"
	FormatJSON = "json"
)

// ExportOptions describe the synthetic feed wrapping the aggregate.
type ExportOptions struct {
	Title       string
	Link        string
	Description string
	// Updated defaults to the newest item, or now for an empty aggregate.
	Updated time.Time
}

// Export writes items as a single RSS, Atom or JSON Feed document.
func Export(w io.Writer, format string, items []types.FeedItem, opts ExportOptions) error {
	feed := buildFeed(items, opts)

	var (
		doc string
		err error
	)
	switch format {
	case FormatRSS:
		doc, err = feed.ToRss()
	case FormatAtom:
		doc, err = feed.ToAtom()
	case FormatJSON:
		doc, err = feed.ToJSON()
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if _, err := fmt.Fprintln(w, doc); err != nil {
		return fmt.Errorf("failed to write %s: %w", format, err)
	}
	return nil
}

func buildFeed(items []types.FeedItem, opts ExportOptions) *feeds.Feed {
	if opts.Title == "" {
		opts.Title = "dashfeed"
	}

	updated := opts.Updated
	if updated.IsZero() {
		updated = time.Now()
		if len(items) > 0 {
			updated = items[0].PubDate
		}
	}

	entries := make([]*feeds.Item, 0, len(items))
	for _, item := range items {
		entry := &feeds.Item{
			Id:      item.Link,
			Title:   CleanTitle(item.Title),
			Author:  &feeds.Author{Name: CleanTitle(item.FeedTitle)},
			Created: item.PubDate,
			Updated: item.PubDate,
		}
		if item.Link != "" {
			entry.Link = &feeds.Link{Href: item.Link}
		}
		entries = append(entries, entry)
	}

	return &feeds.Feed{
		Title:       opts.Title,
		Link:        &feeds.Link{Href: opts.Link},
		Description: opts.Description,
		Updated:     updated,
		Items:       entries,
	}
}
