package parser

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
)

// FindPriceLink runs the configured anchor patterns against the document in
// order and returns the first matching anchor's href. Patterns are XPath
// expressions such as //a[contains(text(), '小売価格')]. An empty result
// with a nil error means no pattern matched.
func FindPriceLink(html string, patterns []string) (string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, pattern := range patterns {
		nodes, err := htmlquery.QueryAll(doc, pattern)
		if err != nil {
			return "", fmt.Errorf("invalid link pattern %q: %w", pattern, err)
		}
		for _, node := range nodes {
			if href := htmlquery.SelectAttr(node, "href"); href != "" {
				return href, nil
			}
		}
	}

	return "", nil
}
