package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/storefront-scraper/internal/browser"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/dom"
	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/internal/events"
	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/scraper"
)

// App holds everything a command needs: the site, a page opener and the
// optional sinks. Close releases them in reverse order.
type App struct {
	Config  *config.Config
	Site    *config.Site
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	opener  dom.Opener
	sinks   []scraper.Sink
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	site, err := config.LoadSite(cfg.Scraper.ConfigPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:  cfg,
		Site:    site,
		Logger:  logger,
		Metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	headers, proxy, err := requestSettings(cfg, site)
	if err != nil {
		return nil, err
	}

	if err := app.openDriver(cfg, headers, proxy); err != nil {
		return nil, err
	}
	if err := app.openSinks(ctx, cfg); err != nil {
		return nil, err
	}
	return app, nil
}

// requestSettings builds request headers when a user agent pool is
// configured, and parses PROXY when the site asks for one.
func requestSettings(cfg *config.Config, site *config.Site) (map[string]string, *config.Proxy, error) {
	var headers map[string]string
	if site.Proxy.UserAgentsPath != "" {
		agents, err := config.LoadUserAgents(site.Proxy.UserAgentsPath)
		if err != nil {
			return nil, nil, err
		}
		headers, err = config.RequestHeaders(site.Proxy, agents)
		if err != nil {
			return nil, nil, err
		}
	}

	if !site.Site.UseProxy || cfg.Scraper.NoProxy {
		return headers, nil, nil
	}
	proxy, err := config.ParseProxy(cfg.Proxy)
	if err != nil {
		return nil, nil, err
	}
	return headers, proxy, nil
}

func (a *App) openDriver(cfg *config.Config, headers map[string]string, proxy *config.Proxy) error {
	if cfg.Scraper.Driver == config.DriverStatic {
		client := &http.Client{Timeout: cfg.Browser.Timeout}
		if proxy != nil {
			proxyURL, err := url.Parse(proxy.URL)
			if err != nil {
				return errs.Configuration("failed to parse PROXY", config.ErrInvalidProxyFormat)
			}
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
		a.opener = &dom.StaticOpener{Client: client, Headers: headers}
		return nil
	}

	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.NavigationRetries = cfg.Browser.NavigationRetries
	opts.Logger = a.Logger
	if headers != nil {
		opts.UserAgent = headers["User-Agent"]
		for k, v := range headers {
			if k != "User-Agent" {
				opts.ExtraHeaders[k] = v
			}
		}
	}
	if proxy != nil {
		opts.ProxyServer = proxy.Server
		opts.ProxyUsername = proxy.Username
		opts.ProxyPassword = proxy.Password
	}

	b, err := browser.New(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	a.opener = b
	a.closers = append(a.closers, b.Close)
	return nil
}

func (a *App) openSinks(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseEnabled() {
		db, err := database.New(ctx, database.DefaultConfig(cfg.Database.DSN()))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		a.sinks = append(a.sinks, db)
		a.Logger.Info("storing results in postgres")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		a.sinks = append(a.sinks, events.NewPublisher(client, cfg.Redis.Stream, a.Logger))
		a.Logger.Info("publishing results to redis", "stream", cfg.Redis.Stream)
	}
	return nil
}

// NewCrawler returns a crawler with a fresh run id over the shared opener.
func (a *App) NewCrawler() *scraper.Crawler {
	opts := scraper.DefaultOptions()
	opts.DetailWorkers = a.Config.Scraper.DetailWorkers
	opts.QAWaitTimeout = a.Config.Scraper.QAWaitTimeout
	opts.DedupeSize = a.Config.Scraper.DedupeSize
	opts.Sinks = a.sinks
	return scraper.NewCrawler(a.Site, a.opener, opts, a.Logger, a.Metrics)
}

// Close is safe on a nil or already closed App.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}
