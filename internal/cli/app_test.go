package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/errs"
)

func TestNewAppInvalidProxy(t *testing.T) {
	e := newEnv(t)
	cfg := &config.Config{
		Scraper: config.ScraperConfig{ConfigPath: e.sitePath, Driver: config.DriverStatic},
		Proxy:   "not-a-proxy",
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		app *App
		err error
	)
	require.NotPanics(t, func() {
		app, err = newApp(context.Background(), cfg, log)
	})
	require.Error(t, err)
	assert.Nil(t, app)
	assert.ErrorIs(t, err, config.ErrInvalidProxyFormat)
	assert.Equal(t, 2, errs.ExitCode(err))
}

func TestNewAppNoProxySkipsParsing(t *testing.T) {
	e := newEnv(t)
	cfg := &config.Config{
		Scraper: config.ScraperConfig{ConfigPath: e.sitePath, Driver: config.DriverStatic, NoProxy: true},
		Proxy:   "not-a-proxy",
	}

	app, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NotNil(t, app)
	app.Close()
	app.Close()
}

func TestCloseNilApp(t *testing.T) {
	var app *App
	assert.NotPanics(t, app.Close)
}
