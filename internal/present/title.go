package present

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var htmlStripper = bluemonday.StrictPolicy()

// CleanTitle turns a feed title into a single line of plain text: markup
// is dropped, entities are decoded, runs of whitespace collapse to one
// space and the result is NFC normalized.
func CleanTitle(s string) string {
	s = htmlStripper.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFC.String(s)
}
