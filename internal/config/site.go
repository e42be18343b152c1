package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/maltedev/storefront-scraper/internal/errs"
)

// ErrMissingLocator is wrapped by the configuration error LoadSite returns
// when a required locator key is absent.
var ErrMissingLocator = errors.New("missing locator")

const defaultPaginationInfo = ".pagination-info"

// Site is the site file. JSON is valid YAML, so config.json and config.yaml
// are both accepted.
type Site struct {
	Site     SiteSettings    `yaml:"SITE"`
	Proxy    ProxySettings   `yaml:"PROXY"`
	Products ProductLocators `yaml:"PRODUCTS_LOCATORS"`
	Details  DetailLocators  `yaml:"PRODUCT_DETAILS_LOCATORS"`
}

type SiteSettings struct {
	BaseURL         string `yaml:"BASE_URL"`
	ProductsPerPage int    `yaml:"PRODUCTS_PER_PAGE"`
	UseProxy        bool   `yaml:"USE_PROXY"`
	PageSizeParam   string `yaml:"PAGE_SIZE_PARAM"`
	OffsetParam     string `yaml:"OFFSET_PARAM"`
}

type ProxySettings struct {
	UserAgentsPath string `yaml:"USER_AGENTS_PATH"`
	AcceptLanguage string `yaml:"ACCEPT_LANGUAGE"`
	Accept         string `yaml:"ACCEPT"`
}

// ProductLocators are the selectors of the product grid. Every field selector
// is evaluated inside an ITEM match. URL is optional: without it the item's
// own href is used.
type ProductLocators struct {
	Item           string `yaml:"ITEM"`
	Title          string `yaml:"TITLE"`
	Price          string `yaml:"PRICE"`
	Brand          string `yaml:"BRAND"`
	Badges         string `yaml:"BADGES"`
	SalePrice      string `yaml:"SALE_PRICE"`
	Image          string `yaml:"IMAGE"`
	URL            string `yaml:"URL"`
	PaginationInfo string `yaml:"PAGINATION_INFO"`
}

type DetailLocators struct {
	Images         ImageLocators         `yaml:"IMAGES"`
	ProductInfo    ProductInfoLocators   `yaml:"PRODUCT_INFO"`
	Stock          StockLocators         `yaml:"STOCK"`
	Description    DescriptionLocators   `yaml:"DESCRIPTION"`
	Specifications SpecificationLocators `yaml:"SPECIFICATIONS"`
	Reviews        ReviewLocators        `yaml:"REVIEWS"`
	Questions      QuestionLocators      `yaml:"QUESTIONS"`
}

type ImageLocators struct {
	Item string `yaml:"ITEM"`
}

type ProductInfoLocators struct {
	Brand     string `yaml:"BRAND"`
	Title     string `yaml:"TITLE"`
	Price     string `yaml:"PRICE"`
	DetailsDT string `yaml:"DETAILS_DT"`
	DetailsDD string `yaml:"DETAILS_DD"`
}

type StockLocators struct {
	Quantity string `yaml:"QUANTITY"`
}

type DescriptionLocators struct {
	Container string   `yaml:"CONTAINER"`
	Tags      []string `yaml:"TAGS"`
}

type SpecificationLocators struct {
	Table string `yaml:"TABLE"`
}

type ReviewLocators struct {
	Section string `yaml:"SECTION"`
	Score   string `yaml:"SCORE"`
	Text    string `yaml:"TEXT"`
}

// QuestionLocators; TAB is optional, some sites render Q&A without a tab.
type QuestionLocators struct {
	Tab       string `yaml:"TAB"`
	Container string `yaml:"CONTAINER"`
	Item      string `yaml:"ITEM"`
	Name      string `yaml:"NAME"`
	Date      string `yaml:"DATE"`
	Question  string `yaml:"QUESTION"`
	Answers   string `yaml:"ANSWERS"`
}

// LoadSite reads, defaults and validates the site file at path.
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configuration(fmt.Sprintf("failed to read site config %s", path), err)
	}
	return ParseSite(data)
}

// ParseSite is LoadSite for an in-memory document.
func ParseSite(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, errs.Configuration("failed to parse site config", err)
	}
	site.applyDefaults()
	if err := site.Validate(); err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *Site) applyDefaults() {
	if s.Products.PaginationInfo == "" {
		s.Products.PaginationInfo = defaultPaginationInfo
	}
}

func (s *Site) Validate() error {
	if s.Site.BaseURL == "" {
		return errs.Configuration("SITE.BASE_URL is required", nil)
	}
	if s.Site.ProductsPerPage <= 0 {
		return errs.Configuration(fmt.Sprintf("SITE.PRODUCTS_PER_PAGE must be positive, got %d", s.Site.ProductsPerPage), nil)
	}
	if s.Site.UseProxy && s.Proxy.UserAgentsPath == "" {
		return errs.Configuration("PROXY.USER_AGENTS_PATH is required when SITE.USE_PROXY is set", nil)
	}

	var missing []string
	check := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	p := s.Products
	check("PRODUCTS_LOCATORS.ITEM", p.Item)
	check("PRODUCTS_LOCATORS.TITLE", p.Title)
	check("PRODUCTS_LOCATORS.PRICE", p.Price)
	check("PRODUCTS_LOCATORS.BRAND", p.Brand)
	check("PRODUCTS_LOCATORS.BADGES", p.Badges)
	check("PRODUCTS_LOCATORS.SALE_PRICE", p.SalePrice)
	check("PRODUCTS_LOCATORS.IMAGE", p.Image)

	d := s.Details
	check("PRODUCT_DETAILS_LOCATORS.IMAGES.ITEM", d.Images.Item)
	check("PRODUCT_DETAILS_LOCATORS.PRODUCT_INFO.BRAND", d.ProductInfo.Brand)
	check("PRODUCT_DETAILS_LOCATORS.PRODUCT_INFO.TITLE", d.ProductInfo.Title)
	check("PRODUCT_DETAILS_LOCATORS.PRODUCT_INFO.PRICE", d.ProductInfo.Price)
	check("PRODUCT_DETAILS_LOCATORS.PRODUCT_INFO.DETAILS_DT", d.ProductInfo.DetailsDT)
	check("PRODUCT_DETAILS_LOCATORS.PRODUCT_INFO.DETAILS_DD", d.ProductInfo.DetailsDD)
	check("PRODUCT_DETAILS_LOCATORS.STOCK.QUANTITY", d.Stock.Quantity)
	check("PRODUCT_DETAILS_LOCATORS.DESCRIPTION.CONTAINER", d.Description.Container)
	if len(d.Description.Tags) == 0 {
		missing = append(missing, "PRODUCT_DETAILS_LOCATORS.DESCRIPTION.TAGS")
	}
	check("PRODUCT_DETAILS_LOCATORS.SPECIFICATIONS.TABLE", d.Specifications.Table)
	check("PRODUCT_DETAILS_LOCATORS.REVIEWS.SECTION", d.Reviews.Section)
	check("PRODUCT_DETAILS_LOCATORS.REVIEWS.SCORE", d.Reviews.Score)
	check("PRODUCT_DETAILS_LOCATORS.REVIEWS.TEXT", d.Reviews.Text)
	check("PRODUCT_DETAILS_LOCATORS.QUESTIONS.CONTAINER", d.Questions.Container)
	check("PRODUCT_DETAILS_LOCATORS.QUESTIONS.ITEM", d.Questions.Item)
	check("PRODUCT_DETAILS_LOCATORS.QUESTIONS.NAME", d.Questions.Name)
	check("PRODUCT_DETAILS_LOCATORS.QUESTIONS.DATE", d.Questions.Date)
	check("PRODUCT_DETAILS_LOCATORS.QUESTIONS.QUESTION", d.Questions.Question)
	check("PRODUCT_DETAILS_LOCATORS.QUESTIONS.ANSWERS", d.Questions.Answers)

	if len(missing) > 0 {
		return errs.Configuration("required locators not set: "+strings.Join(missing, ", "), ErrMissingLocator)
	}
	return nil
}
