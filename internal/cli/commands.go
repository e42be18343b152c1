package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/maltedev/storefront-scraper/internal/api"
	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/internal/export"
	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	productsFile = "products.csv"
	detailsFile  = "product_details.csv"
)

func newProductsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "Scrape every page of the product grid into products.csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			defer app.Close()

			products, err := app.NewCrawler().ScrapeProducts(cmd.Context())
			if err != nil {
				return err
			}
			return app.writeProducts(products)
		},
	}
}

func newDetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <url>...",
		Short: "Scrape product pages into product_details.csv",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			defer app.Close()

			crawler := app.NewCrawler()
			bar := newBar(len(args), "product pages")
			results, err := crawler.ScrapeDetails(cmd.Context(), args, func(models.ScrapeResult) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}
			return app.writeDetails(results)
		},
	}
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Scrape the product grid and then every product page it links to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			defer app.Close()

			crawler := app.NewCrawler()
			products, err := crawler.ScrapeProducts(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.writeProducts(products); err != nil {
				return err
			}

			urls := crawler.ProductURLs(products)
			bar := newBar(len(urls), "product pages")
			results, err := crawler.ScrapeDetails(cmd.Context(), urls, func(models.ScrapeResult) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}
			return app.writeDetails(results)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the scraping HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appFrom(cmd)
			defer app.Close()
			cfg := app.Config.Server

			handlers, err := api.NewHandlers(app.NewCrawler, cfg.CacheSize, app.Logger)
			if err != nil {
				return fmt.Errorf("failed to create handlers: %w", err)
			}

			server := &http.Server{
				Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
				Handler:      api.NewRouter(handlers, app.Metrics, cfg.WriteTimeout),
				ReadTimeout:  cfg.ReadTimeout,
				WriteTimeout: cfg.WriteTimeout,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("starting server", "addr", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-cmd.Context().Done():
			}

			app.Logger.Info("shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			app.Logger.Info("server stopped")
			return nil
		},
	}
}

func newBar(n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (a *App) outputPath(name string) (string, error) {
	dir := a.Config.Scraper.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, name), nil
}

func (a *App) writeProducts(products []models.SummaryProduct) error {
	path, err := a.outputPath(productsFile)
	if err != nil {
		return err
	}
	if err := export.ProductsToTable(products).WriteFile(path); err != nil {
		return err
	}
	a.Logger.Info("saved products", "path", path, "count", len(products))
	return nil
}

// writeDetails saves the successful results. It fails only when every URL
// failed, with the class of the first failure.
func (a *App) writeDetails(results []models.ScrapeResult) error {
	details := make([]models.DetailProduct, 0, len(results))
	var firstErr *models.Error
	for _, r := range results {
		if r.Success && r.Product != nil {
			details = append(details, *r.Product)
		} else if firstErr == nil {
			firstErr = r.Error
		}
	}

	path, err := a.outputPath(detailsFile)
	if err != nil {
		return err
	}
	if err := export.DetailsToTable(details).WriteFile(path); err != nil {
		return err
	}
	a.Logger.Info("saved product details", "path", path, "count", len(details), "failed", len(results)-len(details))

	if len(details) == 0 && firstErr != nil {
		msg := fmt.Sprintf("all %d product pages failed, first: %s", len(results), firstErr.Message)
		return errs.New(classCode(firstErr.Class), msg, nil)
	}
	return nil
}

func classCode(class string) errs.Code {
	switch class {
	case "ConfigurationError":
		return errs.CodeConfiguration
	case "ExtractionError":
		return errs.CodeExtraction
	case "TimeoutError":
		return errs.CodeTimeout
	default:
		return errs.CodeNavigation
	}
}
