package sources

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"dashfeed/internal/types"
)

type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Body    OPMLBody `xml:"body"`
}

type OPMLBody struct {
	Outlines []OPMLOutline `xml:"outline"`
}

type OPMLOutline struct {
	Title    string        `xml:"title,attr"`
	Text     string        `xml:"text,attr"`
	Type     string        `xml:"type,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Outlines []OPMLOutline `xml:"outline"`
}

// ParseOPML returns every outline with an xmlUrl, depth first, in document
// order. Outlines whose URL is not absolute http(s) are skipped.
func ParseOPML(data []byte) ([]types.Source, error) {
	var opml OPML
	if err := xml.Unmarshal(data, &opml); err != nil {
		return nil, fmt.Errorf("failed to parse OPML: %w", err)
	}

	var srcs []types.Source
	extractSources(&srcs, opml.Body.Outlines)

	return srcs, nil
}

func extractSources(result *[]types.Source, outlines []OPMLOutline) {
	for _, outline := range outlines {
		if feedURL := strings.TrimSpace(outline.XMLURL); feedURL != "" && ValidateURL(feedURL) == nil {
			name := strings.TrimSpace(outline.Title)
			if name == "" {
				name = strings.TrimSpace(outline.Text)
			}

			*result = append(*result, types.Source{
				URL:  feedURL,
				Name: name,
			})
		}

		if len(outline.Outlines) > 0 {
			extractSources(result, outline.Outlines)
		}
	}
}

func LoadOPMLFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OPML file: %w", err)
	}
	return data, nil
}
