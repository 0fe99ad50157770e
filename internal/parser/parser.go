package parser

import (
	"github.com/kanedev/gold-price-scraper/internal/models"
)

// PriceExtractor finds one product's price in a rendered document. A nil
// price means the document was searched and no plausible value was found;
// the error is reserved for documents the HTML parser cannot process.
type PriceExtractor interface {
	ExtractPrice(html string) (*int, error)
}

// ProductExtractor finds the whole product line-up in one pass.
type ProductExtractor interface {
	Extract(html string) ([]models.ProductPrice, error)
}

// Options tune the locator heuristics. Zero fields fall back to the
// defaults tuned for the production page.
type Options struct {
	GoldMarker        string
	UnitMarker        string
	ShortLabelMax     int
	MinValidPrice     int
	MaxValidPrice     int
	CoinMinValidPrice int
	CoinMaxValidPrice int
}

func DefaultOptions() Options {
	return Options{
		GoldMarker:        "金",
		UnitMarker:        "g",
		ShortLabelMax:     5,
		MinValidPrice:     10000,
		MaxValidPrice:     30000,
		CoinMinValidPrice: 20000,
		CoinMaxValidPrice: 2000000,
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.GoldMarker == "" {
		o.GoldMarker = def.GoldMarker
	}
	if o.UnitMarker == "" {
		o.UnitMarker = def.UnitMarker
	}
	if o.ShortLabelMax == 0 {
		o.ShortLabelMax = def.ShortLabelMax
	}
	if o.MinValidPrice == 0 && o.MaxValidPrice == 0 {
		o.MinValidPrice = def.MinValidPrice
		o.MaxValidPrice = def.MaxValidPrice
	}
	if o.CoinMinValidPrice == 0 && o.CoinMaxValidPrice == 0 {
		o.CoinMinValidPrice = def.CoinMinValidPrice
		o.CoinMaxValidPrice = def.CoinMaxValidPrice
	}
	return o
}
