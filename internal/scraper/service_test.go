package scraper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanedev/gold-price-scraper/internal/config"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/parser"
)

const priceTableHTML = `<html><body>
<table>
<tr><td>金(g)</td><td>17,530(+117)</td><td>17,434</td></tr>
</table>
<table>
<tr><td>メイプルリーフ金貨 1オンス</td><td>350,000円</td></tr>
</table>
</body></html>`

const noPriceHTML = `<html><head><title>本日休業</title></head><body><p>閉店しました</p></body></html>`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	saved      *models.PriceRecord
	savedEmpty bool
	saveErr    error
}

func (f *fakeStore) Save(ctx context.Context, record *models.PriceRecord) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = record
	return "/data/gold-price-20250715.csv", nil
}

func (f *fakeStore) SaveEmpty(ctx context.Context, at time.Time) (string, error) {
	f.savedEmpty = true
	return "/data/gold-price-20250715.csv", nil
}

type fakeCache struct {
	record *models.PriceRecord
	getErr error
	setErr error
	sets   int
}

func (f *fakeCache) Get(ctx context.Context) (*models.PriceRecord, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	if f.record != nil {
		return f.record, true, nil
	}
	return nil, false, nil
}

func (f *fakeCache) Set(ctx context.Context, record *models.PriceRecord) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.record = record
	f.sets++
	return nil
}

type fakePublisher struct {
	published []*models.PriceRecord
	err       error
}

func (f *fakePublisher) PublishPriceRecorded(ctx context.Context, record *models.PriceRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, record)
	return nil
}

type fakeExtractor struct {
	products []models.ProductPrice
	err      error
}

func (f *fakeExtractor) Extract(html string) ([]models.ProductPrice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func newTestService(store *fakeStore, c *fakeCache, pub *fakePublisher) *Service {
	extractor := parser.NewMultiProductExtractor(parser.DefaultOptions(), testLogger())
	opts := ServiceOptions{}
	if pub != nil {
		opts.Publisher = pub
	}
	return NewService(extractor, store, c, testLogger(), opts)
}

func TestService_Run_ExtractsAndStores(t *testing.T) {
	store := &fakeStore{}
	c := &fakeCache{}
	pub := &fakePublisher{}
	svc := newTestService(store, c, pub)

	result, err := svc.Run(context.Background(), StringSource(priceTableHTML))
	require.NoError(t, err)

	assert.False(t, result.FromCache)
	assert.Equal(t, "/data/gold-price-20250715.csv", result.Path)
	require.NotNil(t, result.Record.GoldPrice())
	assert.Equal(t, 17530, *result.Record.GoldPrice())
	assert.Len(t, result.Record.Products, 5)

	assert.Equal(t, result.Record, store.saved)
	assert.Equal(t, 1, c.sets)
	require.Len(t, pub.published, 1)
	assert.Equal(t, result.Record, pub.published[0])
}

func TestService_Run_CacheHit(t *testing.T) {
	price := 17428
	cached := models.NewPriceRecord(
		time.Date(2025, 7, 15, 9, 30, 0, 0, time.UTC),
		[]models.ProductPrice{models.NewProductPrice(models.ProductGold, &price)},
	)
	store := &fakeStore{}
	c := &fakeCache{record: cached}

	extractor := &fakeExtractor{err: errors.New("must not be called")}
	svc := NewService(extractor, store, c, testLogger(), ServiceOptions{})

	result, err := svc.Run(context.Background(), StringSource(priceTableHTML))
	require.NoError(t, err)

	assert.True(t, result.FromCache)
	assert.Equal(t, cached, result.Record)
	assert.Nil(t, store.saved)
}

func TestService_Run_NoGoldPrice(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeCache{}, nil)

	result, err := svc.Run(context.Background(), StringSource(noPriceHTML))

	assert.ErrorIs(t, err, ErrPriceNotFound)
	assert.Nil(t, result)
	assert.True(t, store.savedEmpty)
	assert.Nil(t, store.saved)
}

func TestService_Run_SourceError(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeCache{}, nil)

	_, err := svc.Run(context.Background(), FileSource{Path: "/nonexistent/page.html"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load document")
}

func TestService_Run_ExtractError(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("bad markup")}
	svc := NewService(extractor, &fakeStore{}, &fakeCache{}, testLogger(), ServiceOptions{})

	_, err := svc.Run(context.Background(), StringSource(priceTableHTML))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to extract products")
}

func TestService_Run_SaveError(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	svc := newTestService(store, &fakeCache{}, nil)

	_, err := svc.Run(context.Background(), StringSource(priceTableHTML))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save record")
}

func TestService_Run_PublishFailureIsSoft(t *testing.T) {
	pub := &fakePublisher{err: errors.New("database down")}
	store := &fakeStore{}
	svc := newTestService(store, &fakeCache{}, pub)

	result, err := svc.Run(context.Background(), StringSource(priceTableHTML))

	require.NoError(t, err)
	assert.NotNil(t, store.saved)
	assert.NotNil(t, result.Record)
}

func TestService_Run_CacheFailuresAreSoft(t *testing.T) {
	c := &fakeCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	store := &fakeStore{}
	svc := newTestService(store, c, nil)

	result, err := svc.Run(context.Background(), StringSource(priceTableHTML))

	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.NotNil(t, store.saved)
}

func TestService_ExtractRecord_NoPrices(t *testing.T) {
	svc := newTestService(&fakeStore{}, &fakeCache{}, nil)

	record, err := svc.ExtractRecord(noPriceHTML)
	require.NoError(t, err)

	assert.Nil(t, record.GoldPrice())
	assert.False(t, record.HasAnyPrice())
	assert.Len(t, record.Products, 5)
	assert.NotEmpty(t, record.Date)
}

func TestService_DiscoverPriceLink(t *testing.T) {
	html := `<html><body><a href="/retail_price">本日の小売価格</a></body></html>`

	extractor := parser.NewMultiProductExtractor(parser.DefaultOptions(), testLogger())
	svc := NewService(extractor, &fakeStore{}, &fakeCache{}, testLogger(), ServiceOptions{
		LinkPatterns: []string{"//a[contains(text(), '本日の小売価格')]"},
	})

	link, err := svc.DiscoverPriceLink(html)
	require.NoError(t, err)
	assert.Equal(t, "/retail_price", link)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.ScrapingConfig{
		GoldMarker:        "銀",
		UnitMarker:        "kg",
		ShortLabelMax:     7,
		MinValidPrice:     100,
		MaxValidPrice:     500,
		CoinMinValidPrice: 1000,
		CoinMaxValidPrice: 5000,
	}

	opts := OptionsFromConfig(cfg)

	assert.Equal(t, "銀", opts.GoldMarker)
	assert.Equal(t, "kg", opts.UnitMarker)
	assert.Equal(t, 7, opts.ShortLabelMax)
	assert.Equal(t, 100, opts.MinValidPrice)
	assert.Equal(t, 500, opts.MaxValidPrice)
	assert.Equal(t, 1000, opts.CoinMinValidPrice)
	assert.Equal(t, 5000, opts.CoinMaxValidPrice)
}
