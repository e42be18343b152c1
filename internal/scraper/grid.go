package scraper

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/dom"
	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/models"
)

var totalCountPattern = regexp.MustCompile(`of\s+(\d+)`)

// ExtractTotalCount reads N out of pagination text like "Showing 1-24 of N".
func ExtractTotalCount(text string) (int, error) {
	m := totalCountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, errs.Extraction(fmt.Sprintf("couldn't extract total product count from %q", text), nil)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errs.Extraction(fmt.Sprintf("total product count %q out of range", m[1]), err)
	}
	return n, nil
}

// GridExtractor reads summary records off a product listing page.
type GridExtractor struct {
	locators config.ProductLocators
	fields   fieldReader
	logger   *slog.Logger
}

func NewGridExtractor(locators config.ProductLocators, logger *slog.Logger, m *metrics.Metrics) *GridExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "grid_extractor")
	return &GridExtractor{
		locators: locators,
		fields:   fieldReader{logger: logger, metrics: m},
		logger:   logger,
	}
}

// ExtractPage is GridExtractor.ExtractPage without logging or metrics.
func ExtractPage(page dom.Element, locators config.ProductLocators) ([]models.SummaryProduct, error) {
	return NewGridExtractor(locators, slog.New(slog.NewTextHandler(io.Discard, nil)), nil).ExtractPage(page)
}

// TotalCount reads the total number of products from the pagination info.
func (g *GridExtractor) TotalCount(page dom.Element) (int, error) {
	text, err := firstText(page, g.locators.PaginationInfo)
	if err != nil {
		return 0, errs.Extraction("failed to read pagination info", err)
	}
	if text == nil {
		return 0, errs.Extraction(fmt.Sprintf("pagination info %q not found", g.locators.PaginationInfo), nil)
	}
	return ExtractTotalCount(*text)
}

// ExtractPage returns one record per ITEM match in render order. Every field
// is read independently and is nil when its selector matches nothing.
func (g *GridExtractor) ExtractPage(page dom.Element) ([]models.SummaryProduct, error) {
	items, err := page.QueryAll(g.locators.Item)
	if err != nil {
		return nil, errs.Extraction("failed to query product items", err)
	}
	if len(items) == 0 {
		g.logger.Warn("no products found on page", "selector", g.locators.Item)
		return nil, nil
	}

	products := make([]models.SummaryProduct, 0, len(items))
	for _, item := range items {
		product := models.SummaryProduct{
			Title:     g.fields.text(item, "title", g.locators.Title),
			Price:     g.fields.text(item, "price", g.locators.Price),
			URL:       g.itemURL(item),
			Brand:     g.fields.text(item, "brand", g.locators.Brand),
			Badges:    g.fields.texts(item, "badges", g.locators.Badges),
			SalePrice: g.fields.text(item, "sale_price", g.locators.SalePrice),
			Image:     g.fields.attr(item, "image", g.locators.Image, "src"),
		}

		g.logger.Debug("scraped product", "title", deref(product.Title))
		products = append(products, product)
	}

	return products, nil
}

func (g *GridExtractor) itemURL(item dom.Element) *string {
	if g.locators.URL != "" {
		return g.fields.attr(item, "url", g.locators.URL, "href")
	}
	v, err := attr(item, "href")
	return g.fields.record("url", v, err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
