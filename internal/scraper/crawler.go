package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/dom"
	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/models"
	"github.com/maltedev/storefront-scraper/internal/pagination"
)

// Crawler drives the grid and detail extractors over a storefront.
type Crawler struct {
	site    *config.Site
	opener  dom.Opener
	grid    *GridExtractor
	details *DetailExtractor
	opts    Options
	metrics *metrics.Metrics
	logger  *slog.Logger
	runID   string
}

func NewCrawler(site *config.Site, opener dom.Opener, opts Options, logger *slog.Logger, m *metrics.Metrics) *Crawler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DetailWorkers < 1 {
		opts.DetailWorkers = 1
	}
	if opts.DedupeSize < 1 {
		opts.DedupeSize = DefaultOptions().DedupeSize
	}

	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	return &Crawler{
		site:    site,
		opener:  opener,
		grid:    NewGridExtractor(site.Products, logger, m),
		details: NewDetailExtractor(site.Details, opts.QAWaitTimeout, logger, m),
		opts:    opts,
		metrics: m,
		logger:  logger.With("component", "crawler"),
		runID:   runID,
	}
}

func (c *Crawler) RunID() string {
	return c.runID
}

// ScrapeProducts walks every listing page sequentially on a single page
// handle. The first page decides the total; failing to load or parse it
// aborts the crawl. A later page that fails to load is logged and skipped.
func (c *Crawler) ScrapeProducts(ctx context.Context) ([]models.SummaryProduct, error) {
	params := pagination.Params{Size: c.site.Site.PageSizeParam, Offset: c.site.Site.OffsetParam}
	pageSize := c.site.Site.ProductsPerPage

	firstURL, err := pagination.FirstPageURL(c.site.Site.BaseURL, pageSize, params)
	if err != nil {
		return nil, err
	}

	page, err := c.opener.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	if err := c.navigate(ctx, page, firstURL, kindGrid); err != nil {
		return nil, err
	}

	total, err := c.grid.TotalCount(page)
	if err != nil {
		c.metrics.IncError(errs.ClassOf(err))
		return nil, err
	}
	c.logger.Info("discovered total products", "total", total, "page_size", pageSize)

	all, err := c.grid.ExtractPage(page)
	if err != nil {
		c.metrics.IncError(errs.ClassOf(err))
		c.logger.Error("failed to extract page", "url", firstURL, "error", err)
	}
	c.metrics.AddItems(kindSummary, len(all))

	remaining, err := pagination.RemainingURLs(c.site.Site.BaseURL, pageSize, total, params)
	if err != nil {
		return nil, err
	}

	for i, pageURL := range remaining {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		if err := c.navigate(ctx, page, pageURL, kindGrid); err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			c.logger.Error("skipping page", "url", pageURL, "error", err)
			continue
		}

		products, err := c.grid.ExtractPage(page)
		if err != nil {
			c.metrics.IncError(errs.ClassOf(err))
			c.logger.Error("failed to extract page", "url", pageURL, "error", err)
			continue
		}
		c.metrics.AddItems(kindSummary, len(products))
		all = append(all, products...)

		c.logger.Info("scraped page", "page", i+2, "pages", len(remaining)+1, "products", len(products))
	}

	c.logger.Info("finished product grid", "products", len(all))

	for _, sink := range c.opts.Sinks {
		if err := sink.SaveProducts(ctx, c.runID, all); err != nil {
			c.logger.Warn("failed to save products", "error", err)
		}
	}

	return all, nil
}

// ScrapeDetail loads url on page and extracts it.
func (c *Crawler) ScrapeDetail(ctx context.Context, page dom.Page, productURL string) (*models.DetailProduct, error) {
	if err := c.navigate(ctx, page, productURL, kindDetail); err != nil {
		return nil, err
	}

	product, err := c.details.Extract(ctx, page)
	if err != nil {
		return nil, err
	}
	product.URL = productURL
	c.metrics.AddItems(kindDetail, 1)

	for _, sink := range c.opts.Sinks {
		if err := sink.SaveDetail(ctx, c.runID, product); err != nil {
			c.logger.Warn("failed to save product details", "url", productURL, "error", err)
		}
	}

	return product, nil
}

// ScrapeDetails scrapes every distinct URL on a pool of DetailWorkers pages.
// Results come back in input order; a URL that fails is reported in its
// result and does not stop the others. onResult, when set, is called as each
// URL finishes and must be safe for concurrent use.
func (c *Crawler) ScrapeDetails(ctx context.Context, urls []string, onResult func(models.ScrapeResult)) ([]models.ScrapeResult, error) {
	urls = c.dedupe(urls)
	results := make([]models.ScrapeResult, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	workers := min(c.opts.DetailWorkers, len(urls))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range urls {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			page, err := c.opener.NewPage()
			if err != nil {
				return fmt.Errorf("failed to create page: %w", err)
			}
			defer page.Close()

			for i := range jobs {
				result := c.scrapeOne(gctx, page, urls[i])
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i] = result
				if onResult != nil {
					onResult(result)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}

	c.logger.Info("finished product details", "urls", len(urls))
	return results, nil
}

func (c *Crawler) scrapeOne(ctx context.Context, page dom.Page, productURL string) models.ScrapeResult {
	product, err := c.ScrapeDetail(ctx, page, productURL)
	if err != nil {
		c.logger.Error("failed to scrape product", "url", productURL, "error", err)
		return models.ScrapeResult{
			URL: productURL,
			Error: &models.Error{
				Class:   errs.ClassOf(err),
				Message: err.Error(),
				Time:    time.Now(),
				URL:     productURL,
			},
		}
	}
	return models.ScrapeResult{URL: productURL, Product: product, Success: true}
}

// Crawl scrapes the grid and then the details of every product it found.
func (c *Crawler) Crawl(ctx context.Context, onResult func(models.ScrapeResult)) ([]models.SummaryProduct, []models.ScrapeResult, error) {
	products, err := c.ScrapeProducts(ctx)
	if err != nil {
		return products, nil, err
	}

	results, err := c.ScrapeDetails(ctx, c.ProductURLs(products), onResult)
	return products, results, err
}

// ProductURLs resolves the grid URLs against the site base URL, dropping
// records without one.
func (c *Crawler) ProductURLs(products []models.SummaryProduct) []string {
	base, err := url.Parse(c.site.Site.BaseURL)
	if err != nil {
		base = nil
	}

	urls := make([]string, 0, len(products))
	for _, p := range products {
		if p.URL == nil || *p.URL == "" {
			continue
		}
		ref, err := url.Parse(*p.URL)
		if err != nil {
			c.logger.Warn("skipping malformed product url", "url", *p.URL, "error", err)
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		urls = append(urls, ref.String())
	}
	return urls
}

func (c *Crawler) dedupe(urls []string) []string {
	seen, err := lru.New[string, struct{}](c.opts.DedupeSize)
	if err != nil {
		return urls
	}

	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if ok, _ := seen.ContainsOrAdd(u, struct{}{}); ok {
			c.logger.Debug("skipping duplicate url", "url", u)
			continue
		}
		out = append(out, u)
	}
	return out
}

func (c *Crawler) navigate(ctx context.Context, page dom.Page, pageURL, kind string) error {
	start := time.Now()
	err := page.Goto(ctx, pageURL)
	c.metrics.ObserveNavigation(time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		navErr := errs.Navigation(fmt.Sprintf("failed to load %s", pageURL), err)
		c.metrics.IncError(navErr.Class())
		return navErr
	}

	c.metrics.IncPage(kind)
	title, err := page.Title()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("failed to read page title", "url", pageURL, "error", err)
	}
	c.logger.Info("loaded page", "title", title, "url", pageURL)
	return nil
}
