package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/scraper"
)

// CrawlerFactory returns a fresh crawler, one per request, so every request
// gets its own run id.
type CrawlerFactory func() *scraper.Crawler

type Handlers struct {
	newCrawler CrawlerFactory
	cache      *lru.Cache[string, models.ScrapeResult]
	logger     *slog.Logger
}

func NewHandlers(newCrawler CrawlerFactory, cacheSize int, logger *slog.Logger) (*Handlers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, models.ScrapeResult](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Handlers{
		newCrawler: newCrawler,
		cache:      cache,
		logger:     logger.With("component", "api"),
	}, nil
}

// DetailsRequest lists the product pages to scrape
type DetailsRequest struct {
	URLs    []string `json:"urls"`
	Refresh bool     `json:"refresh"`
}

// DetailsResponse holds one result per distinct URL, in request order
type DetailsResponse struct {
	RunID   string                `json:"run_id"`
	Results []models.ScrapeResult `json:"results"`
	Cached  int                   `json:"cached"`
}

// ProductsResponse is the full grid of one crawl
type ProductsResponse struct {
	RunID    string                  `json:"run_id"`
	Count    int                     `json:"count"`
	Products []models.SummaryProduct `json:"products"`
}

// ScrapeDetails scrapes product pages. Successful results are cached by URL
// and served from the cache until evicted or refresh is set.
func (h *Handlers) ScrapeDetails(w http.ResponseWriter, r *http.Request) {
	var req DetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		h.respondError(w, http.StatusBadRequest, "urls is required")
		return
	}

	crawler := h.newCrawler()
	cached := make(map[string]models.ScrapeResult)
	var pending []string
	for _, u := range req.URLs {
		if _, ok := cached[u]; ok {
			continue
		}
		if !req.Refresh {
			if res, ok := h.cache.Get(u); ok {
				cached[u] = res
				continue
			}
		}
		pending = append(pending, u)
	}

	scraped, err := crawler.ScrapeDetails(r.Context(), pending, nil)
	if err != nil {
		h.logger.Error("failed to scrape product details", "error", err)
		h.respondScrapeError(w, err)
		return
	}

	byURL := make(map[string]models.ScrapeResult, len(scraped))
	for _, res := range scraped {
		byURL[res.URL] = res
		if res.Success {
			h.cache.Add(res.URL, res)
		}
	}

	resp := DetailsResponse{RunID: crawler.RunID(), Results: []models.ScrapeResult{}, Cached: len(cached)}
	seen := make(map[string]bool, len(req.URLs))
	for _, u := range req.URLs {
		if seen[u] {
			continue
		}
		seen[u] = true
		if res, ok := cached[u]; ok {
			resp.Results = append(resp.Results, res)
		} else if res, ok := byURL[u]; ok {
			resp.Results = append(resp.Results, res)
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// ScrapeProducts runs a full grid crawl of the configured site.
func (h *Handlers) ScrapeProducts(w http.ResponseWriter, r *http.Request) {
	crawler := h.newCrawler()
	products, err := crawler.ScrapeProducts(r.Context())
	if err != nil {
		h.logger.Error("failed to scrape products", "error", err)
		h.respondScrapeError(w, err)
		return
	}
	if products == nil {
		products = []models.SummaryProduct{}
	}

	h.respondJSON(w, http.StatusOK, ProductsResponse{
		RunID:    crawler.RunID(),
		Count:    len(products),
		Products: products,
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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

func (h *Handlers) respondScrapeError(w http.ResponseWriter, err error) {
	h.respondJSON(w, statusFor(err), map[string]string{
		"error": err.Error(),
		"class": errs.ClassOf(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNavigation):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
