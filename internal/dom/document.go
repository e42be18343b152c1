package dom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Node wraps a single goquery node.
type Node struct {
	sel *goquery.Selection
}

func (n *Node) QueryAll(selector string) ([]Element, error) {
	if n.sel == nil {
		return nil, nil
	}
	var out []Element
	n.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Node{sel: s})
	})
	return out, nil
}

func (n *Node) TextContent() (string, error) {
	if n.sel == nil {
		return "", nil
	}
	return n.sel.Text(), nil
}

// InnerText approximates the rendered text; a static document has no layout
// so it only drops script and style content.
func (n *Node) InnerText() (string, error) {
	if n.sel == nil {
		return "", nil
	}
	clone := n.sel.Clone()
	clone.Find("script, style").Remove()
	return clone.Text(), nil
}

func (n *Node) Attribute(name string) (string, bool, error) {
	if n.sel == nil {
		return "", false, nil
	}
	v, ok := n.sel.Attr(name)
	return v, ok, nil
}

// Click is a no-op: nothing in a static document reacts to it.
func (n *Node) Click() error {
	return nil
}

// IsVisible reports false when the node or one of its ancestors is hidden
// through the hidden attribute or an inline display/visibility style.
func (n *Node) IsVisible() (bool, error) {
	if n.sel == nil || n.sel.Length() == 0 {
		return false, nil
	}
	for s := n.sel.First(); s.Length() > 0; s = s.Parent() {
		if hidden(s) {
			return false, nil
		}
	}
	return true, nil
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	style, ok := s.Attr("style")
	if !ok {
		return false
	}
	style = strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

// Document is a Page backed by static HTML. Goto fetches over HTTP, so it
// can crawl storefronts that render server-side without a browser.
type Document struct {
	Node
	client  *http.Client
	headers map[string]string
	url     string
}

// NewDocument parses html into a Document with no HTTP client attached.
func NewDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{Node: Node{sel: doc.Selection}}, nil
}

// ParseHTML is NewDocument for a string.
func ParseHTML(html string) (*Document, error) {
	return NewDocument(strings.NewReader(html))
}

// NewFetcher returns an empty Document that loads pages through client,
// sending headers with every request.
func NewFetcher(client *http.Client, headers map[string]string) *Document {
	if client == nil {
		client = http.DefaultClient
	}
	return &Document{client: client, headers: headers}
}

func (d *Document) Goto(ctx context.Context, url string) error {
	if d.client == nil {
		return fmt.Errorf("document has no HTTP client")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}
	d.sel = doc.Selection
	d.url = url
	return nil
}

// WaitVisible checks once: a static document never changes after loading.
func (d *Document) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	matches, _ := d.QueryAll(selector)
	for _, m := range matches {
		if ok, _ := m.IsVisible(); ok {
			return nil
		}
	}
	return ErrWaitTimeout
}

func (d *Document) Title() (string, error) {
	if d.sel == nil {
		return "", nil
	}
	return strings.TrimSpace(d.sel.Find("title").First().Text()), nil
}

func (d *Document) URL() string {
	return d.url
}

func (d *Document) Close() error {
	return nil
}

// StaticOpener hands out fetcher Documents sharing one HTTP client.
type StaticOpener struct {
	Client  *http.Client
	Headers map[string]string
}

func (o *StaticOpener) NewPage() (Page, error) {
	return NewFetcher(o.Client, o.Headers), nil
}
