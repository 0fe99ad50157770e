package models

import (
	"time"

	"github.com/kanedev/gold-price-scraper/internal/timeutil"
)

// Product names exactly as they appear on the retail price page. Downstream
// consumers (CSV, history rows, events) key on these strings.
const (
	ProductGold   = "金"
	CoinLabelBase = "メイプルリーフ金貨・ウィーン金貨ハーモニー"
)

type ProductPrice struct {
	ProductName string `json:"product_name"`
	Price       *int   `json:"price"`
}

func NewProductPrice(name string, price *int) ProductPrice {
	return ProductPrice{ProductName: name, Price: price}
}

func (p ProductPrice) Found() bool {
	return p.Price != nil
}

// HistoryEntry is one persisted product price row, the shape shared by the
// CSV result files and the database history query.
type HistoryEntry struct {
	Date        string `json:"date"`
	ProductName string `json:"product_name"`
	Price       *int   `json:"price"`
	Timestamp   string `json:"timestamp"`
}

// PriceRecord is one dated extraction result, ready for storage.
type PriceRecord struct {
	Date      string         `json:"date"`
	FileDate  string         `json:"file_date"`
	Timestamp string         `json:"timestamp"`
	Products  []ProductPrice `json:"products"`
}

func NewPriceRecord(at time.Time, products []ProductPrice) *PriceRecord {
	s := timeutil.StampAt(at)
	return &PriceRecord{
		Date:      s.Date,
		FileDate:  s.FileDate,
		Timestamp: s.DateTime,
		Products:  products,
	}
}

// GoldPrice returns the primary product's price, nil when it was not found
// or the record carries no gold entry.
func (r *PriceRecord) GoldPrice() *int {
	for _, p := range r.Products {
		if p.ProductName == ProductGold {
			return p.Price
		}
	}
	return nil
}

func (r *PriceRecord) HasAnyPrice() bool {
	for _, p := range r.Products {
		if p.Price != nil {
			return true
		}
	}
	return false
}

func (r *PriceRecord) Validate() []string {
	var errors []string

	if r.Date == "" {
		errors = append(errors, "Date is required")
	}

	if r.FileDate == "" {
		errors = append(errors, "FileDate is required")
	}

	if len(r.Products) == 0 {
		errors = append(errors, "At least one product is required")
	}

	return errors
}
