package present

import (
	"strings"

	"github.com/muesli/reflow/ansi"
)

const (
	firstIndent = "- "
	restIndent  = "    "
)

// wrapWords fills words greedily into lines no wider than width, measured
// in printable cells so styled words count only their visible text. The
// first line starts with "- " and later lines with four spaces. A word
// wider than the room left on an empty line gets a line of its own. A
// width of zero or less disables wrapping.
func wrapWords(words []string, width int) string {
	var b strings.Builder
	b.WriteString(firstIndent)

	lineWidth := len(firstIndent)
	lineEmpty := true

	for _, w := range words {
		ww := ansi.PrintableRuneWidth(w)

		if !lineEmpty && width > 0 && lineWidth+1+ww > width {
			b.WriteString("\n")
			b.WriteString(restIndent)
			lineWidth = len(restIndent)
			lineEmpty = true
		}

		if !lineEmpty {
			b.WriteString(" ")
			lineWidth++
		}
		b.WriteString(w)
		lineWidth += ww
		lineEmpty = false
	}

	return b.String()
}
