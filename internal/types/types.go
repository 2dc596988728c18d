package types

import (
	"time"
)

// Source is one configured feed endpoint.
type Source struct {
	URL  string
	Name string
}

// Label is the name shown for the source when the feed itself has no title.
func (s Source) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.URL
}

// FeedItem is a normalized RSS item or Atom entry. PubDate keeps the
// offset the feed published it with.
type FeedItem struct {
	FeedTitle string
	Title     string
	Link      string
	PubDate   time.Time
}

// SourceBatch holds the newest items of one source, sorted by PubDate
// descending and already cut to the run limit.
type SourceBatch struct {
	Source Source
	Items  []FeedItem
}

type SourceFailure struct {
	Source Source
	Err    error
}

// AggregateResult is the merged output of a run. Failures are kept for
// diagnostics and never affect Items.
type AggregateResult struct {
	Items    []FeedItem
	Failures []SourceFailure
}
