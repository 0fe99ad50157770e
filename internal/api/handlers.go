package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kanedev/gold-price-scraper/internal/database"
	"github.com/kanedev/gold-price-scraper/internal/models"
	"github.com/kanedev/gold-price-scraper/internal/parser"
	"github.com/kanedev/gold-price-scraper/internal/scraper"
	"github.com/kanedev/gold-price-scraper/internal/timeutil"
)

// HistoryProvider returns recent price history, newest first. Both the CSV
// store and the database repository satisfy it.
type HistoryProvider interface {
	History(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

// OutboxStats reports the relay's backlog sizes for health reporting.
type OutboxStats interface {
	GetPendingCount(ctx context.Context) (int64, error)
	GetDeadLetterCount(ctx context.Context) (int64, error)
}

type Handlers struct {
	svc     *scraper.Service
	gold    parser.PriceExtractor
	history HistoryProvider
	db      *database.DB
	outbox  OutboxStats
	logger  *slog.Logger
}

// NewHandlers wires the API surface. db and outbox may be nil when the
// database is disabled; the health endpoint then skips those checks.
func NewHandlers(svc *scraper.Service, gold parser.PriceExtractor, history HistoryProvider, db *database.DB, outbox OutboxStats, logger *slog.Logger) *Handlers {
	return &Handlers{
		svc:     svc,
		gold:    gold,
		history: history,
		db:      db,
		outbox:  outbox,
		logger:  logger,
	}
}

// ExtractRequest carries a rendered document to parse.
type ExtractRequest struct {
	HTML string `json:"html"`
}

// ExtractResponse is the gold extraction result.
type ExtractResponse struct {
	Date      string `json:"date"`
	GoldPrice *int   `json:"gold_price"`
	Found     bool   `json:"found"`
	Error     string `json:"error,omitempty"`
}

// ExtractGoldPrice handles gold price extraction requests
func (h *Handlers) ExtractGoldPrice(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.HTML == "" {
		h.respondError(w, http.StatusBadRequest, "html is required")
		return
	}

	price, err := h.gold.ExtractPrice(req.HTML)
	if err != nil {
		h.logger.Error("failed to extract gold price", "error", err)
		h.respondJSON(w, http.StatusOK, ExtractResponse{Error: err.Error()})
		return
	}

	h.respondJSON(w, http.StatusOK, ExtractResponse{
		Date:      timeutil.NowStamp().Date,
		GoldPrice: price,
		Found:     price != nil,
	})
}

// ExtractProductsResponse is the full line-up result.
type ExtractProductsResponse struct {
	Record *models.PriceRecord `json:"record,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// ExtractProducts handles full product line-up extraction requests
func (h *Handlers) ExtractProducts(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.HTML == "" {
		h.respondError(w, http.StatusBadRequest, "html is required")
		return
	}

	record, err := h.svc.ExtractRecord(req.HTML)
	if err != nil {
		h.logger.Error("failed to extract products", "error", err)
		h.respondJSON(w, http.StatusOK, ExtractProductsResponse{Error: err.Error()})
		return
	}

	h.respondJSON(w, http.StatusOK, ExtractProductsResponse{Record: record})
}

// PriceLinkResponse is the price page discovery result.
type PriceLinkResponse struct {
	Link  string `json:"link"`
	Found bool   `json:"found"`
}

// FindPriceLink handles price page link discovery on a top page document
func (h *Handlers) FindPriceLink(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.HTML == "" {
		h.respondError(w, http.StatusBadRequest, "html is required")
		return
	}

	link, err := h.svc.DiscoverPriceLink(req.HTML)
	if err != nil {
		h.logger.Error("failed to search for price link", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to search for price link")
		return
	}

	h.respondJSON(w, http.StatusOK, PriceLinkResponse{
		Link:  link,
		Found: link != "",
	})
}

// GetHistory handles price history retrieval
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusNotImplemented, "history is not available")
		return
	}

	limit := 30
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = n
	}

	entries, err := h.history.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to load history", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	if product := r.URL.Query().Get("product"); product != "" {
		filtered := make([]models.HistoryEntry, 0, len(entries))
		for _, e := range entries {
			if e.ProductName == product {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	h.respondJSON(w, http.StatusOK, entries)
}

// HealthResponse reports service and dependency status.
type HealthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database,omitempty"`
	OutboxPending    *int64 `json:"outbox_pending,omitempty"`
	OutboxDeadLetter *int64 `json:"outbox_dead_letter,omitempty"`
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Pool().Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	if h.outbox != nil {
		if pending, err := h.outbox.GetPendingCount(r.Context()); err == nil {
			resp.OutboxPending = &pending
		}
		if dead, err := h.outbox.GetDeadLetterCount(r.Context()); err == nil {
			resp.OutboxDeadLetter = &dead
		}
	}

	h.respondJSON(w, status, resp)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
