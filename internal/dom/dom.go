// Package dom is the capability boundary between the extractors and whatever
// renders the storefront. The extractors only ever query elements, read
// their text and attributes, click and wait; a browser (see internal/browser)
// and the static goquery Document in this package both satisfy it.
package dom

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned by Page.WaitVisible when the element did not
// become visible in time.
var ErrWaitTimeout = errors.New("timed out waiting for element to become visible")

// Element is a single node of a rendered page.
type Element interface {
	// QueryAll returns every descendant matching selector, in document order.
	// No match is not an error.
	QueryAll(selector string) ([]Element, error)
	TextContent() (string, error)
	InnerText() (string, error)
	// Attribute reports ok=false when the attribute is absent.
	Attribute(name string) (value string, ok bool, err error)
	Click() error
	IsVisible() (bool, error)
}

// Page is a navigable document. Its Element methods are scoped to the whole
// document.
type Page interface {
	Element
	Goto(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Title() (string, error)
	URL() string
	Close() error
}

// Opener hands out fresh pages. Each worker of a detail crawl owns one.
type Opener interface {
	NewPage() (Page, error)
}
