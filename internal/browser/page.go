package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/storefront-scraper/internal/dom"
)

// Page adapts a playwright page to dom.Page.
type Page struct {
	page    playwright.Page
	retries int
	timeout time.Duration
	logger  *slog.Logger
}

// Goto navigates to url, retrying up to the configured number of attempts
// with a linear backoff.
func (p *Page) Goto(ctx context.Context, url string) error {
	var lastErr error

	for i := 0; i < p.retries; i++ {
		if i > 0 {
			p.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			select {
			case <-time.After(time.Duration(i) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		resp, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(p.timeout.Milliseconds())),
		})
		if err == nil && resp != nil && resp.Status() >= 400 {
			err = fmt.Errorf("status %d", resp.Status())
		}
		if err == nil {
			return nil
		}

		lastErr = err
		p.logger.Error("navigation failed", "error", err, "attempt", i+1, "url", url)
	}

	return fmt.Errorf("failed after %d attempts: %w", p.retries, lastErr)
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s", dom.ErrWaitTimeout, selector)
	}
	return err
}

func (p *Page) Title() (string, error) {
	return p.page.Title()
}

func (p *Page) URL() string {
	return p.page.URL()
}

func (p *Page) Close() error {
	return p.page.Close()
}

func (p *Page) QueryAll(selector string) ([]dom.Element, error) {
	return queryAll(p.page.Locator(selector))
}

func (p *Page) TextContent() (string, error) {
	return p.page.Locator("body").TextContent()
}

func (p *Page) InnerText() (string, error) {
	return p.page.Locator("body").InnerText()
}

func (p *Page) Attribute(name string) (string, bool, error) {
	return (&element{loc: p.page.Locator("html")}).Attribute(name)
}

func (p *Page) Click() error {
	return p.page.Locator("body").Click()
}

func (p *Page) IsVisible() (bool, error) {
	return true, nil
}

// element is a single resolved locator match.
type element struct {
	loc playwright.Locator
}

func queryAll(loc playwright.Locator) ([]dom.Element, error) {
	matches, err := loc.All()
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	out := make([]dom.Element, len(matches))
	for i, m := range matches {
		out[i] = &element{loc: m}
	}
	return out, nil
}

func (e *element) QueryAll(selector string) ([]dom.Element, error) {
	return queryAll(e.loc.Locator(selector))
}

func (e *element) TextContent() (string, error) {
	return e.loc.TextContent()
}

func (e *element) InnerText() (string, error) {
	return e.loc.InnerText()
}

// Attribute distinguishes an absent attribute from an empty one, which
// Locator.GetAttribute does not.
func (e *element) Attribute(name string) (string, bool, error) {
	v, err := e.loc.Evaluate("(el, name) => el.getAttribute(name)", name)
	if err != nil {
		return "", false, fmt.Errorf("failed to read attribute %s: %w", name, err)
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (e *element) Click() error {
	return e.loc.Click()
}

func (e *element) IsVisible() (bool, error) {
	return e.loc.IsVisible()
}
