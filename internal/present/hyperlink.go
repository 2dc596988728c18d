package present

import (
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

// SupportsHyperlinks reports whether the terminal on f renders OSC 8
// hyperlinks.
func SupportsHyperlinks(f *os.File) bool {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return hyperlinksFromEnv(os.Getenv, tty)
}

// hyperlinksFromEnv decides from the environment alone. FORCE_HYPERLINK
// wins over everything else; otherwise only known terminals qualify.
func hyperlinksFromEnv(getenv func(string) string, tty bool) bool {
	if force, ok := lookup(getenv, "FORCE_HYPERLINK"); ok {
		return force != "0"
	}

	if !tty || getenv("CI") != "" {
		return false
	}

	if getenv("DOMTERM") != "" || getenv("WT_SESSION") != "" || getenv("KONSOLE_VERSION") != "" {
		return true
	}

	if v, err := strconv.Atoi(getenv("VTE_VERSION")); err == nil && v >= 5000 {
		return true
	}

	switch getenv("TERM_PROGRAM") {
	case "Hyper", "iTerm.app", "terminology", "WezTerm", "vscode", "ghostty":
		return true
	}

	switch getenv("TERM") {
	case "xterm-kitty", "alacritty", "alacritty-direct", "foot", "xterm-ghostty":
		return true
	}

	return strings.EqualFold(getenv("COLORTERM"), "xfce4-terminal")
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	return v, v != ""
}
