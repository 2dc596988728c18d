package present

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"dashfeed/internal/types"
)

type TextOptions struct {
	// Width is the terminal width in cells. Zero disables wrapping.
	Width      int
	Hyperlinks bool
	ShowAge    bool
	// Now is the reference time for ages. Defaults to time.Now().
	Now time.Time
}

// TextRenderer prints one wrapped entry per item:
//
//	- <feed title>: <item title>
//	    <continued>
//
// The feed title is dimmed and, when hyperlinks are enabled, the whole
// entry links to the item.
type TextRenderer struct {
	out  *termenv.Output
	opts TextOptions
}

func NewTextRenderer(out *termenv.Output, opts TextOptions) *TextRenderer {
	return &TextRenderer{out: out, opts: opts}
}

func (r *TextRenderer) Render(items []types.FeedItem) error {
	now := r.opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	for _, item := range items {
		if _, err := io.WriteString(r.out, r.entry(item, now)+"\n"); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}
	return nil
}

func (r *TextRenderer) entry(item types.FeedItem, now time.Time) string {
	var words []string

	feedWords := strings.Fields(CleanTitle(item.FeedTitle) + ":")
	for _, w := range feedWords[:len(feedWords)-1] {
		words = append(words, r.dim(w))
	}
	// The colon stays plain, like the rest of the line.
	last := feedWords[len(feedWords)-1]
	words = append(words, r.dim(strings.TrimSuffix(last, ":"))+":")

	words = append(words, strings.Fields(CleanTitle(item.Title))...)

	if r.opts.ShowAge {
		age := humanize.RelTime(item.PubDate, now, "ago", "from now")
		words = append(words, strings.Fields("("+age+")")...)
	}

	text := wrapWords(words, r.opts.Width)

	if r.opts.Hyperlinks && item.Link != "" {
		return r.out.Hyperlink(item.Link, text)
	}
	return text
}

func (r *TextRenderer) dim(s string) string {
	if s == "" {
		return s
	}
	return r.out.Profile.String(s).Faint().String()
}
