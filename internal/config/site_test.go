package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/errs"
)

const siteJSON = `{
  "SITE": {"BASE_URL": "https://shop.test/coffee", "PRODUCTS_PER_PAGE": 24, "USE_PROXY": false},
  "PROXY": {"USER_AGENTS_PATH": "user_agents.csv", "ACCEPT_LANGUAGE": "en-US,en;q=0.9", "ACCEPT": "text/html"},
  "PRODUCTS_LOCATORS": {
    "ITEM": "a.product", "TITLE": "h4.card-title", "PRICE": ".price--main",
    "BRAND": ".card-text--brand", "BADGES": ".badge", "SALE_PRICE": ".rrp", "IMAGE": "img"
  },
  "PRODUCT_DETAILS_LOCATORS": {
    "IMAGES": {"ITEM": ".gallery a"},
    "PRODUCT_INFO": {"BRAND": ".brand", "TITLE": "h1", "PRICE": ".price", "DETAILS_DT": "dl dt", "DETAILS_DD": "dl dd"},
    "STOCK": {"QUANTITY": ".stock"},
    "DESCRIPTION": {"CONTAINER": "#description", "TAGS": ["p", "li"]},
    "SPECIFICATIONS": {"TABLE": "table.specs"},
    "REVIEWS": {"SECTION": "#reviews", "SCORE": ".score", "TEXT": ".count"},
    "QUESTIONS": {"TAB": "#qa-tab", "CONTAINER": "#qa", "ITEM": ".question", "NAME": ".name",
      "DATE": ".date", "QUESTION": ".text", "ANSWERS": ".answer"}
  }
}`

func TestParseSiteJSON(t *testing.T) {
	site, err := ParseSite([]byte(siteJSON))
	require.NoError(t, err)

	assert.Equal(t, "https://shop.test/coffee", site.Site.BaseURL)
	assert.Equal(t, 24, site.Site.ProductsPerPage)
	assert.Equal(t, "a.product", site.Products.Item)
	assert.Equal(t, ".pagination-info", site.Products.PaginationInfo)
	assert.Equal(t, []string{"p", "li"}, site.Details.Description.Tags)
	assert.Equal(t, "#qa-tab", site.Details.Questions.Tab)
	assert.Equal(t, "en-US,en;q=0.9", site.Proxy.AcceptLanguage)
}

func TestParseSiteYAML(t *testing.T) {
	doc := `
SITE:
  BASE_URL: https://shop.test/coffee
  PRODUCTS_PER_PAGE: 10
  PAGE_SIZE_PARAM: limit
  OFFSET_PARAM: start
PRODUCTS_LOCATORS:
  ITEM: a.product
  TITLE: h4
  PRICE: .price
  BRAND: .brand
  BADGES: .badge
  SALE_PRICE: .rrp
  IMAGE: img
  PAGINATION_INFO: .results
PRODUCT_DETAILS_LOCATORS:
  IMAGES: {ITEM: .gallery a}
  PRODUCT_INFO: {BRAND: .brand, TITLE: h1, PRICE: .price, DETAILS_DT: dt, DETAILS_DD: dd}
  STOCK: {QUANTITY: .stock}
  DESCRIPTION: {CONTAINER: "#description", TAGS: [p]}
  SPECIFICATIONS: {TABLE: table}
  REVIEWS: {SECTION: "#reviews", SCORE: .score, TEXT: .count}
  QUESTIONS: {CONTAINER: "#qa", ITEM: .q, NAME: .n, DATE: .d, QUESTION: .t, ANSWERS: .a}
`
	site, err := ParseSite([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "limit", site.Site.PageSizeParam)
	assert.Equal(t, "start", site.Site.OffsetParam)
	assert.Equal(t, ".results", site.Products.PaginationInfo)
	assert.Empty(t, site.Details.Questions.Tab)
}

func TestParseSiteMissingLocators(t *testing.T) {
	doc := strings.Replace(siteJSON, `"TITLE": "h4.card-title", `, "", 1)
	doc = strings.Replace(doc, `"STOCK": {"QUANTITY": ".stock"},`, "", 1)

	_, err := ParseSite([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrConfiguration)
	assert.ErrorIs(t, err, ErrMissingLocator)
	assert.Contains(t, err.Error(), "PRODUCTS_LOCATORS.TITLE")
	assert.Contains(t, err.Error(), "PRODUCT_DETAILS_LOCATORS.STOCK.QUANTITY")
}

func TestParseSiteInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		replace []string
	}{
		{"missing base url", []string{`"BASE_URL": "https://shop.test/coffee", `, ""}},
		{"zero page size", []string{`"PRODUCTS_PER_PAGE": 24`, `"PRODUCTS_PER_PAGE": 0`}},
		{"proxy without user agents", []string{
			`"USE_PROXY": false`, `"USE_PROXY": true`,
			`"USER_AGENTS_PATH": "user_agents.csv", `, "",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.NewReplacer(tt.replace...).Replace(siteJSON)
			_, err := ParseSite([]byte(doc))
			assert.ErrorIs(t, err, errs.ErrConfiguration)
		})
	}
}

func TestLoadSite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(siteJSON), 0o600))

	site, err := LoadSite(path)
	require.NoError(t, err)
	assert.Equal(t, 24, site.Site.ProductsPerPage)

	_, err = LoadSite(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, errs.ErrConfiguration)
}
