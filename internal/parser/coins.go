package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/kanedev/gold-price-scraper/internal/models"
)

// Bullion coin rows name one of two product families; either keyword marks
// a row (or row context) as belonging to the coin section.
const (
	familyMaple  = "メイプル"
	familyVienna = "ウィーン"
)

// Marker classes of the aggregated layout, where one row carries several
// size/price pairs as nested blocks.
const (
	classPriceBlock = "price-table-v2__price"
	classOunceLabel = "price-table-v2__price__ounce"
	classYenPrice   = "price-table-v2__price__yen1"
)

// sizeEntry couples one canonical coin size with the spellings observed in
// the wild. Declaration order is both the match priority and the output
// order.
type sizeEntry struct {
	key      string
	suffix   string
	patterns []*regexp.Regexp
}

var coinSizes = []sizeEntry{
	{
		key:    "1オンス",
		suffix: "(1oz)",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`1\s*オンス`),
			regexp.MustCompile(`(?i)1\s*oz`),
		},
	},
	{
		key:    "1/2オンス",
		suffix: "(1/2oz)",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`1/2\s*オンス`),
			regexp.MustCompile(`(?i)1/2\s*oz`),
		},
	},
	{
		key:    "1/4オンス",
		suffix: "(1/4oz)",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`1/4\s*オンス`),
			regexp.MustCompile(`(?i)1/4\s*oz`),
		},
	},
	{
		key:    "1/10オンス",
		suffix: "(1/10oz)",
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`1/10\s*オンス`),
			regexp.MustCompile(`(?i)1/10\s*oz`),
		},
	},
}

// MultiProductExtractor extends the gold extraction with the bullion coin
// line-up. Extract always yields one entry for gold plus one per known coin
// size, in that order, with nil prices for anything the document lacks.
type MultiProductExtractor struct {
	opts   Options
	gold   *GoldExtractor
	logger *slog.Logger
}

func NewMultiProductExtractor(opts Options, logger *slog.Logger) *MultiProductExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiProductExtractor{
		opts:   opts.normalized(),
		gold:   NewGoldExtractor(opts),
		logger: logger.With("component", "multi_product_extractor"),
	}
}

func (m *MultiProductExtractor) Extract(html string) ([]models.ProductPrice, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	goldPrice, err := m.gold.ExtractPrice(html)
	if err != nil {
		return nil, err
	}

	results := make([]models.ProductPrice, 0, len(coinSizes)+1)
	results = append(results, models.NewProductPrice(models.ProductGold, goldPrice))
	recorded := make(map[string]bool)

	// Once a heading row names the coin family, later rows may carry a bare
	// size label without restating the brand. The flag never resets within
	// one document scan.
	sectionActive := false

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() == 0 {
				return
			}

			if m.isAggregatedRow(cells) {
				sectionActive = true
				results = m.appendAggregated(cells.Eq(1), results, recorded)
				return
			}

			texts := cellTexts(cells)
			first := NormalizeText(texts[0])
			joined := NormalizeText(strings.Join(texts, " / "))

			if hasFamilyKeyword(first) && !containsSizeKey(first) {
				sectionActive = true
			}

			sizeIdx := matchSize(first)
			if sizeIdx < 0 {
				sizeIdx = matchSize(joined)
			}
			if sizeIdx < 0 && sectionActive {
				sizeIdx = matchSizeOnly(first)
				if sizeIdx < 0 {
					sizeIdx = matchSizeOnly(joined)
				}
			}
			if sizeIdx < 0 {
				return
			}

			label := coinLabel(sizeIdx)
			if recorded[label] {
				return
			}

			price := m.findCoinPrice(cells, sizeIdx)
			m.logger.Debug("coin row matched",
				"size", coinSizes[sizeIdx].key,
				"first", first,
				"price", price,
			)
			recorded[label] = true
			results = append(results, models.NewProductPrice(label, price))
		})
	})

	// Every known size appears in the output exactly once, found or not.
	for i := range coinSizes {
		label := coinLabel(i)
		if !recorded[label] {
			results = append(results, models.NewProductPrice(label, nil))
			recorded[label] = true
		}
	}

	rank := make(map[string]int, len(coinSizes)+1)
	rank[models.ProductGold] = 0
	for i := range coinSizes {
		rank[coinLabel(i)] = i + 1
	}
	sort.SliceStable(results, func(i, j int) bool {
		return rankOf(rank, results[i].ProductName) < rankOf(rank, results[j].ProductName)
	})

	return results, nil
}

// isAggregatedRow detects the layout where the second cell packs every size
// as a nested block. Such rows are handled block by block and skipped by the
// generic row handling.
func (m *MultiProductExtractor) isAggregatedRow(cells *goquery.Selection) bool {
	if cells.Length() < 2 {
		return false
	}
	first := cells.Eq(0).Text()
	if !strings.Contains(first, familyMaple) && !strings.Contains(first, familyVienna) {
		return false
	}
	return cells.Eq(1).Find("."+classOunceLabel).Length() > 0
}

func (m *MultiProductExtractor) appendAggregated(cell *goquery.Selection, results []models.ProductPrice, recorded map[string]bool) []models.ProductPrice {
	cell.Find("." + classPriceBlock).Each(func(_ int, block *goquery.Selection) {
		ounce := block.Find("." + classOunceLabel)
		yen := block.Find("." + classYenPrice)
		if ounce.Length() == 0 || yen.Length() == 0 {
			return
		}

		sizeRaw := NormalizeText(strings.TrimSpace(ounce.First().Text()))
		sizeIdx := matchSizeOnly(sizeRaw)
		if sizeIdx < 0 {
			for i, s := range coinSizes {
				if strings.Contains(sizeRaw, s.key) {
					sizeIdx = i
					break
				}
			}
		}

		price := ParsePriceText(strings.TrimSpace(yen.First().Text()))
		if price != nil && !m.validCoinPrice(*price) {
			m.logger.Debug("aggregated coin price outside valid range",
				"size", sizeRaw,
				"price", *price,
			)
			price = nil
		}

		if sizeIdx < 0 {
			return
		}

		label := coinLabel(sizeIdx)
		if recorded[label] {
			return
		}
		m.logger.Debug("aggregated coin block matched",
			"size", coinSizes[sizeIdx].key,
			"price", price,
		)
		recorded[label] = true
		results = append(results, models.NewProductPrice(label, price))
	})

	return results
}

// findCoinPrice scans cells 1 through 5 and returns the first value inside
// the coin validity range. Out-of-range candidates are skipped, not
// accepted.
func (m *MultiProductExtractor) findCoinPrice(cells *goquery.Selection, sizeIdx int) *int {
	limit := cells.Length()
	if limit > 6 {
		limit = 6
	}

	for idx := 1; idx < limit; idx++ {
		text := strings.TrimSpace(cells.Eq(idx).Text())
		extracted := ParsePriceText(text)
		if extracted == nil {
			continue
		}
		if !m.validCoinPrice(*extracted) {
			m.logger.Debug("coin price outside valid range",
				"size", coinSizes[sizeIdx].key,
				"text", text,
				"price", *extracted,
			)
			continue
		}
		return extracted
	}

	return nil
}

func (m *MultiProductExtractor) validCoinPrice(price int) bool {
	return price >= m.opts.CoinMinValidPrice && price <= m.opts.CoinMaxValidPrice
}

func cellTexts(cells *goquery.Selection) []string {
	texts := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(c.Text()))
	})
	return texts
}

func coinLabel(idx int) string {
	return models.CoinLabelBase + coinSizes[idx].suffix
}

func hasFamilyKeyword(text string) bool {
	return strings.Contains(text, familyMaple) || strings.Contains(text, familyVienna)
}

// containsSizeKey checks for a literal size key, which distinguishes a pure
// family heading row from a row that already names a size.
func containsSizeKey(text string) bool {
	for _, s := range coinSizes {
		if strings.Contains(text, s.key) {
			return true
		}
	}
	return false
}

// matchSize requires a family keyword in the text before trying the size
// patterns; matchSizeOnly matches the bare size and is applied inside an
// active coin section.
func matchSize(text string) int {
	if !hasFamilyKeyword(text) {
		return -1
	}
	return matchSizeOnly(text)
}

func matchSizeOnly(text string) int {
	if text == "" {
		return -1
	}
	for i, s := range coinSizes {
		for _, p := range s.patterns {
			if p.MatchString(text) {
				return i
			}
		}
	}
	return -1
}

func rankOf(rank map[string]int, name string) int {
	if r, ok := rank[name]; ok {
		return r
	}
	return len(rank) + 1
}
