// Package cli implements the scraper command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/pkg/logger"
)

type appKey struct{}

// flags mirrors the persistent flags; only flags the user set override the
// environment.
type flags struct {
	configPath string
	outputDir  string
	driver     string
	headless   bool
	workers    int
	noProxy    bool
	envFile    string
}

// NewRootCmd builds the command tree. Logs go to logOut.
func NewRootCmd(logOut io.Writer) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Scrape product grids and product pages of a storefront",
		Long:          `scraper walks a paginated product listing and the product pages it links to, driven by the locators of a site file, and writes the results as CSV.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Commands own the app from here on and close it when they return.
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		cfg, err := config.Load(f.envFile)
		if err != nil {
			return err
		}
		f.apply(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := logger.NewWithWriter(logOut, cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(log)

		app, err := newApp(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
		return nil
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "config.json", "site file with the locators (JSON or YAML)")
	pf.StringVarP(&f.outputDir, "output", "o", ".", "directory for products.csv and product_details.csv")
	pf.StringVar(&f.driver, "driver", config.DriverPlaywright, "page driver: playwright or static")
	pf.BoolVar(&f.headless, "headless", true, "run the browser headless")
	pf.IntVarP(&f.workers, "workers", "w", 2, "product pages scraped concurrently")
	pf.BoolVar(&f.noProxy, "no-proxy", false, "ignore USE_PROXY in the site file")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file loaded before the environment")

	root.AddCommand(
		newProductsCmd(),
		newDetailsCmd(),
		newCrawlCmd(),
		newServeCmd(),
	)
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("config") {
		cfg.Scraper.ConfigPath = f.configPath
	}
	if changed("output") {
		cfg.Scraper.OutputDir = f.outputDir
	}
	if changed("driver") {
		cfg.Scraper.Driver = f.driver
	}
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if changed("workers") {
		cfg.Scraper.DetailWorkers = f.workers
	}
	if changed("no-proxy") {
		cfg.Scraper.NoProxy = f.noProxy
	}
}

func appFrom(cmd *cobra.Command) *App {
	if cmd.Context() == nil {
		return nil
	}
	app, _ := cmd.Context().Value(appKey{}).(*App)
	return app
}

// Execute runs the command line and returns the process exit code. Errors
// are printed to errOut as "<Class>: <message>".
func Execute(ctx context.Context, args []string, errOut io.Writer) int {
	root := NewRootCmd(errOut)
	root.SetArgs(args)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintln(errOut, FormatError(err))
	return errs.ExitCode(err)
}

// FormatError renders err as "<Class>: <message>".
func FormatError(err error) string {
	var e *errs.Error
	if errors.As(err, &e) && e == err {
		return e.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "Error: interrupted"
	}
	return fmt.Sprintf("%s: %s", errs.ClassOf(err), err.Error())
}
