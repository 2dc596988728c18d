package feed

import (
	"bytes"
	"errors"
	"net/mail"
	"strings"
	"time"

	"dashfeed/internal/types"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

// Parse decodes an RSS or Atom document into feed items. The format is
// detected from the document root. label names the source in errors and
// stands in for the feed title when the document has none.
//
// An item without a parseable date rejects the whole document.
func Parse(data []byte, label string) ([]types.FeedItem, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(data)) {
	case gofeed.FeedTypeRSS:
		return parseRSS(data, label)
	case gofeed.FeedTypeAtom:
		return parseAtom(data, label)
	default:
		return nil, &types.ParseError{Kind: types.UnknownFormat, Label: label, Index: -1}
	}
}

func parseRSS(data []byte, label string) ([]types.FeedItem, error) {
	parser := &rss.Parser{}
	doc, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &types.ParseError{Kind: types.Malformed, Label: label, Index: -1, Err: err}
	}

	feedTitle := titleOr(doc.Title, label)
	items := make([]types.FeedItem, 0, len(doc.Items))

	for i, it := range doc.Items {
		pubDate, err := parseRFC2822(it.PubDate)
		if err != nil {
			return nil, &types.ParseError{Kind: types.MissingOrInvalidDate, Label: label, Index: i, Value: it.PubDate, Err: err}
		}

		items = append(items, types.FeedItem{
			FeedTitle: feedTitle,
			Title:     it.Title,
			Link:      it.Link,
			PubDate:   pubDate,
		})
	}

	return items, nil
}

func parseAtom(data []byte, label string) ([]types.FeedItem, error) {
	parser := &atom.Parser{}
	doc, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &types.ParseError{Kind: types.Malformed, Label: label, Index: -1, Err: err}
	}

	feedTitle := titleOr(doc.Title, label)
	items := make([]types.FeedItem, 0, len(doc.Entries))

	for i, entry := range doc.Entries {
		updated, err := parseRFC3339(entry.Updated)
		if err != nil {
			return nil, &types.ParseError{Kind: types.MissingOrInvalidDate, Label: label, Index: i, Value: entry.Updated, Err: err}
		}

		link := ""
		if len(entry.Links) > 0 && entry.Links[0] != nil {
			link = entry.Links[0].Href
		}

		items = append(items, types.FeedItem{
			FeedTitle: feedTitle,
			Title:     entry.Title,
			Link:      link,
			PubDate:   updated,
		})
	}

	return items, nil
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

var errNoDate = errors.New("date is empty")

// obsoleteZones are the RFC 2822 obsolete zone names. time.Parse only
// knows an abbreviation when the local zone uses it and gives it offset 0
// otherwise, so they are rewritten as numeric offsets before parsing.
var obsoleteZones = map[string]string{
	"UT":  "+0000",
	"GMT": "+0000",
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

// parseRFC2822 accepts the RFC 5322 date-time grammar including the
// obsolete zone names. Military single-letter zones mean -0000.
func parseRFC2822(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errNoDate
	}
	return mail.ParseDate(numericZone(value))
}

func numericZone(value string) string {
	if strings.HasSuffix(value, ")") {
		if i := strings.LastIndexByte(value, '('); i > 0 {
			value = strings.TrimSpace(value[:i])
		}
	}

	i := strings.LastIndexByte(value, ' ')
	if i < 0 {
		return value
	}

	zone := strings.ToUpper(value[i+1:])
	if offset, ok := obsoleteZones[zone]; ok {
		return value[:i+1] + offset
	}
	if len(zone) == 1 && zone[0] >= 'A' && zone[0] <= 'Z' && zone != "J" {
		return value[:i+1] + "-0000"
	}
	return value
}

func parseRFC3339(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errNoDate
	}
	return time.Parse(time.RFC3339, value)
}
