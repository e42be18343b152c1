package scraper

import (
	"log/slog"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/dom"
	"github.com/maltedev/storefront-scraper/internal/metrics"
)

// firstText returns the trimmed text content of the first match of selector
// inside scope, or nil when nothing matches.
func firstText(scope dom.Element, selector string) (*string, error) {
	matches, err := scope.QueryAll(selector)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	text, err := matches[0].TextContent()
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	return &text, nil
}

// firstAttr returns attribute name of the first match of selector, or nil
// when nothing matches or the attribute is absent.
func firstAttr(scope dom.Element, selector, name string) (*string, error) {
	matches, err := scope.QueryAll(selector)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return attr(matches[0], name)
}

func attr(el dom.Element, name string) (*string, error) {
	v, ok, err := el.Attribute(name)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// allTexts returns the trimmed text of every match, in document order.
func allTexts(scope dom.Element, selector string) ([]string, error) {
	matches, err := scope.QueryAll(selector)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		text, err := m.TextContent()
		if err != nil {
			return nil, err
		}
		texts = append(texts, strings.TrimSpace(text))
	}
	return texts, nil
}

func innerText(el dom.Element) string {
	text, err := el.InnerText()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// fieldReader turns driver errors on best-effort fields into misses.
type fieldReader struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func (r fieldReader) text(scope dom.Element, field, selector string) *string {
	v, err := firstText(scope, selector)
	return r.record(field, v, err)
}

func (r fieldReader) attr(scope dom.Element, field, selector, name string) *string {
	v, err := firstAttr(scope, selector, name)
	return r.record(field, v, err)
}

func (r fieldReader) texts(scope dom.Element, field, selector string) []string {
	v, err := allTexts(scope, selector)
	if err != nil {
		r.logger.Warn("failed to read field", "field", field, "error", err)
	}
	if v == nil {
		v = []string{}
	}
	return v
}

func (r fieldReader) record(field string, v *string, err error) *string {
	if err != nil {
		r.logger.Warn("failed to read field", "field", field, "error", err)
	}
	if v == nil {
		r.metrics.IncFieldMiss(field)
	}
	return v
}
