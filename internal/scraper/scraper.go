package scraper

import (
	"context"
	"time"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	kindGrid    = "grid"
	kindDetail  = "detail"
	kindSummary = "summary"
)

// Sink receives records as they are scraped. Sinks are best-effort: a sink
// error is logged and never fails the crawl.
type Sink interface {
	SaveProducts(ctx context.Context, runID string, products []models.SummaryProduct) error
	SaveDetail(ctx context.Context, runID string, product *models.DetailProduct) error
}

type Options struct {
	DetailWorkers int
	QAWaitTimeout time.Duration
	// DedupeSize bounds the set of product URLs remembered for
	// de-duplication before detail scraping.
	DedupeSize int
	Sinks      []Sink
}

func DefaultOptions() Options {
	return Options{
		DetailWorkers: 2,
		QAWaitTimeout: 6 * time.Second,
		DedupeSize:    10000,
	}
}
