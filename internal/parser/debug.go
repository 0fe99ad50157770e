package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DocumentSummary is a compact description of a page, logged when an
// extraction comes back empty so the markup drift is visible in one place.
type DocumentSummary struct {
	Title      string     `json:"title"`
	TableCount int        `json:"table_count"`
	SampleRows [][]string `json:"sample_rows"`
}

// Summarize collects the page title, the table count, and up to three rows
// (three cells each) from the first table.
func Summarize(html string) (*DocumentSummary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	summary := &DocumentSummary{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}

	tables := doc.Find("table")
	summary.TableCount = tables.Length()

	tables.First().Find("tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		if i >= 3 {
			return false
		}
		cells := make([]string, 0, 3)
		row.Find("td, th").EachWithBreak(func(j int, cell *goquery.Selection) bool {
			if j >= 3 {
				return false
			}
			cells = append(cells, strings.TrimSpace(cell.Text()))
			return true
		})
		summary.SampleRows = append(summary.SampleRows, cells)
		return true
	})

	return summary, nil
}
