package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// GoldExtractor locates the per-gram gold price in a rendered retail page.
// It scans price tables first and falls back to pattern matching over the
// whole document text when the table markup has drifted.
type GoldExtractor struct {
	opts         Options
	textPatterns []*regexp.Regexp
}

func NewGoldExtractor(opts Options) *GoldExtractor {
	return &GoldExtractor{
		opts: opts.normalized(),
		textPatterns: []*regexp.Regexp{
			regexp.MustCompile(`\d{1,2},\d{3}`),
			regexp.MustCompile(`\d{2,3},\d{3}`),
			regexp.MustCompile(`\d{1,3},\d{3}`),
		},
	}
}

// ExtractPrice returns the gold price in yen per gram, or nil when the
// document holds no plausible value. The error is reserved for input the
// HTML parser itself rejects.
func (e *GoldExtractor) ExtractPrice(html string) (*int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	if price := e.extractFromTables(doc); price != nil {
		return price, nil
	}

	return e.extractFromText(doc), nil
}

func (e *GoldExtractor) extractFromTables(doc *goquery.Document) *int {
	var found *int

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td, th")
			if cells.Length() < 3 {
				return true
			}

			if !e.isGoldRow(strings.TrimSpace(cells.Eq(0).Text())) {
				return true
			}

			price := e.validPrice(ParsePriceText(strings.TrimSpace(cells.Eq(1).Text())))
			if price == nil {
				price = e.validPrice(ParsePriceText(strings.TrimSpace(cells.Eq(2).Text())))
			}
			if price != nil {
				found = price
				return false
			}
			return true
		})
		return found == nil
	})

	return found
}

// extractFromText is the drift fallback: any comma-grouped numeral in the
// page text is accepted if it passes the validity range. Patterns run in
// declared order and the first passing match wins.
func (e *GoldExtractor) extractFromText(doc *goquery.Document) *int {
	allText := doc.Text()

	for _, pattern := range e.textPatterns {
		for _, match := range pattern.FindAllString(allText, -1) {
			if price := e.validPrice(ParsePriceText(match)); price != nil {
				return price
			}
		}
	}

	return nil
}

// isGoldRow qualifies a first cell as the gold row. The cell must name the
// product and either carry the unit marker ("金(g)") or be short enough to
// be a bare label, which keeps long descriptive text that merely mentions
// gold from matching.
func (e *GoldExtractor) isGoldRow(text string) bool {
	if !strings.Contains(text, e.opts.GoldMarker) {
		return false
	}
	return strings.Contains(text, e.opts.UnitMarker) ||
		utf8.RuneCountInString(text) <= e.opts.ShortLabelMax
}

func (e *GoldExtractor) validPrice(price *int) *int {
	if price == nil {
		return nil
	}
	if *price < e.opts.MinValidPrice || *price > e.opts.MaxValidPrice {
		return nil
	}
	return price
}
