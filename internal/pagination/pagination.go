// Package pagination builds the offset-paginated listing URLs of a storefront.
package pagination

import (
	"fmt"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/errs"
)

const (
	DefaultSizeParam   = "products.size"
	DefaultOffsetParam = "products.from"
)

// Params names the query parameters carrying the page size and the offset.
type Params struct {
	Size   string
	Offset string
}

// DefaultParams returns products.size / products.from.
func DefaultParams() Params {
	return Params{Size: DefaultSizeParam, Offset: DefaultOffsetParam}
}

func (p Params) withDefaults() Params {
	if p.Size == "" {
		p.Size = DefaultSizeParam
	}
	if p.Offset == "" {
		p.Offset = DefaultOffsetParam
	}
	return p
}

// FirstPageURL is the offset-0 listing URL, which only carries the size.
func FirstPageURL(baseURL string, pageSize int, params Params) (string, error) {
	if pageSize <= 0 {
		return "", errs.Configuration(fmt.Sprintf("page size must be positive, got %d", pageSize), nil)
	}
	params = params.withDefaults()
	return fmt.Sprintf("%s%s%s=%d", baseURL, separator(baseURL), params.Size, pageSize), nil
}

// RemainingURLs returns one URL per offset pageSize, 2*pageSize, ... strictly
// below totalItems. The first page (offset 0) is never included, so the
// result is empty when totalItems <= pageSize.
func RemainingURLs(baseURL string, pageSize, totalItems int, params Params) ([]string, error) {
	if pageSize <= 0 {
		return nil, errs.Configuration(fmt.Sprintf("page size must be positive, got %d", pageSize), nil)
	}
	if totalItems < 0 {
		return nil, errs.Configuration(fmt.Sprintf("total items must not be negative, got %d", totalItems), nil)
	}
	params = params.withDefaults()
	sep := separator(baseURL)

	var urls []string
	for offset := pageSize; offset < totalItems; offset += pageSize {
		urls = append(urls, fmt.Sprintf("%s%s%s=%d&%s=%d",
			baseURL, sep, params.Size, pageSize, params.Offset, offset))
	}
	return urls, nil
}

func separator(baseURL string) string {
	switch {
	case !strings.Contains(baseURL, "?"):
		return "?"
	case strings.HasSuffix(baseURL, "?"), strings.HasSuffix(baseURL, "&"):
		return ""
	default:
		return "&"
	}
}
