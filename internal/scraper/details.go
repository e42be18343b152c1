package scraper

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/dom"
	"github.com/maltedev/storefront-scraper/internal/errs"
	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/models"
)

var firstNumber = regexp.MustCompile(`\d+`)

// DetailExtractor reads a full record off a product page. Each section is
// extracted independently and a missing section never fails the others.
type DetailExtractor struct {
	locators config.DetailLocators
	qaWait   time.Duration
	fields   fieldReader
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewDetailExtractor(locators config.DetailLocators, qaWait time.Duration, logger *slog.Logger, m *metrics.Metrics) *DetailExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if qaWait <= 0 {
		qaWait = DefaultOptions().QAWaitTimeout
	}
	logger = logger.With("component", "detail_extractor")
	return &DetailExtractor{
		locators: locators,
		qaWait:   qaWait,
		fields:   fieldReader{logger: logger, metrics: m},
		metrics:  m,
		logger:   logger,
	}
}

// Extract reads the page the caller already navigated to. It only fails when
// ctx is done.
func (e *DetailExtractor) Extract(ctx context.Context, page dom.Page) (*models.DetailProduct, error) {
	product := &models.DetailProduct{URL: page.URL()}

	product.Images = e.extractImages(page)
	e.extractProductInfo(page, product)
	product.Stock = e.fields.text(page, "stock", e.locators.Stock.Quantity)
	product.Description = e.extractDescription(page)
	product.Specifications = e.extractSpecifications(page)
	product.Reviews = e.extractReviews(page)

	questions, err := e.extractQuestions(ctx, page)
	if err != nil {
		return nil, err
	}
	product.Questions = questions

	return product, nil
}

func (e *DetailExtractor) extractImages(page dom.Element) []string {
	images := []string{}
	links, err := page.QueryAll(e.locators.Images.Item)
	if err != nil {
		e.logger.Warn("failed to query images", "error", err)
		return images
	}
	for _, link := range links {
		href, ok, err := link.Attribute("href")
		if err != nil || !ok {
			continue
		}
		images = append(images, href)
	}
	return images
}

func (e *DetailExtractor) extractProductInfo(page dom.Element, product *models.DetailProduct) {
	loc := e.locators.ProductInfo
	product.Brand = nonEmpty(e.fields.text(page, "brand", loc.Brand))
	product.Title = nonEmpty(e.fields.text(page, "title", loc.Title))
	product.Price = nonEmpty(e.fields.text(page, "price", loc.Price))

	product.Details = models.Fields{}
	terms, err := page.QueryAll(loc.DetailsDT)
	if err != nil {
		e.logger.Warn("failed to query detail terms", "error", err)
		return
	}
	definitions, err := page.QueryAll(loc.DetailsDD)
	if err != nil {
		e.logger.Warn("failed to query detail definitions", "error", err)
		return
	}

	for i := 0; i < len(terms) && i < len(definitions); i++ {
		key, err := terms[i].TextContent()
		if err != nil {
			continue
		}
		value, err := definitions[i].TextContent()
		if err != nil {
			continue
		}
		product.Details.Set(strings.TrimRight(strings.TrimSpace(key), ":"), strings.TrimSpace(value))
	}
}

func (e *DetailExtractor) extractDescription(page dom.Element) string {
	containers, err := page.QueryAll(e.locators.Description.Container)
	if err != nil || len(containers) == 0 {
		return ""
	}

	var parts []string
	for _, tag := range e.locators.Description.Tags {
		prefix := ""
		if isListItem(tag) {
			prefix = "- "
		}
		for _, container := range containers {
			elements, err := container.QueryAll(tag)
			if err != nil {
				continue
			}
			for _, el := range elements {
				if text := innerText(el); text != "" {
					parts = append(parts, prefix+text)
				}
			}
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// isListItem reports whether the last compound of selector targets li.
func isListItem(selector string) bool {
	tokens := strings.FieldsFunc(selector, func(r rune) bool {
		return r == ' ' || r == '>' || r == '+' || r == '~'
	})
	if len(tokens) == 0 {
		return false
	}
	last := tokens[len(tokens)-1]
	if i := strings.IndexAny(last, ".#[:"); i >= 0 {
		last = last[:i]
	}
	return strings.EqualFold(last, "li")
}

func (e *DetailExtractor) extractSpecifications(page dom.Element) models.Fields {
	tables, err := page.QueryAll(e.locators.Specifications.Table)
	if err != nil {
		e.logger.Warn("failed to query specification tables", "error", err)
		return models.Fields{}
	}

	for _, table := range tables {
		rows, err := table.QueryAll("tr")
		if err != nil {
			continue
		}
		specs := models.Fields{}
		for _, row := range rows {
			cells, err := row.QueryAll("th, td")
			if err != nil || len(cells) < 2 {
				continue
			}
			key := strings.TrimRight(innerText(cells[0]), ":")
			if key == "" {
				continue
			}
			specs.Set(key, innerText(cells[1]))
		}
		if len(specs) > 0 {
			return specs
		}
	}

	return models.Fields{}
}

func (e *DetailExtractor) extractReviews(page dom.Element) models.Reviews {
	loc := e.locators.Reviews
	sections, err := page.QueryAll(loc.Section)
	if err != nil || len(sections) == 0 {
		return models.Reviews{}
	}
	section := sections[0]

	var reviews models.Reviews
	if score := e.fields.text(section, "review_score", loc.Score); score != nil && isDecimal(*score) {
		if v, err := strconv.ParseFloat(*score, 64); err == nil {
			reviews.Score = &v
		}
	}
	if text := e.fields.text(section, "review_count", loc.Text); text != nil {
		if digits := firstNumber.FindString(*text); digits != "" {
			if n, err := strconv.Atoi(digits); err == nil {
				reviews.ReviewsCount = &n
			}
		}
	}
	return reviews
}

// isDecimal accepts digits with at most one dot, e.g. "4" or "4.5".
func isDecimal(s string) bool {
	s = strings.Replace(s, ".", "", 1)
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (e *DetailExtractor) extractQuestions(ctx context.Context, page dom.Page) ([]models.Question, error) {
	loc := e.locators.Questions
	questions := []models.Question{}

	if loc.Tab != "" {
		tabs, err := page.QueryAll(loc.Tab)
		if err == nil && len(tabs) > 0 {
			if err := tabs[0].Click(); err != nil {
				e.logger.Warn("failed to open questions tab", "error", err)
			}
			if err := page.WaitVisible(ctx, loc.Container, e.qaWait); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				timeout := errs.Timeout("questions did not become visible", err)
				e.metrics.IncError(timeout.Class())
				e.logger.Warn("skipping questions", "url", page.URL(), "timeout", e.qaWait, "error", timeout)
				return questions, nil
			}
		}
	}

	containers, err := page.QueryAll(loc.Container)
	if err != nil || len(containers) == 0 {
		return questions, nil
	}

	// Hidden containers are skipped one by one, matching WaitVisible which
	// passes as soon as any of them is visible.
	for _, container := range containers {
		if visible, err := container.IsVisible(); err != nil || !visible {
			continue
		}
		items, err := container.QueryAll(loc.Item)
		if err != nil {
			continue
		}
		for _, item := range items {
			questions = append(questions, models.Question{
				Name:     deref(e.fields.text(item, "question_name", loc.Name)),
				Date:     deref(e.fields.text(item, "question_date", loc.Date)),
				Question: deref(e.fields.text(item, "question_text", loc.Question)),
				Answers:  nonEmptyTexts(e.fields.texts(item, "answers", loc.Answers)),
			})
		}
	}

	return questions, nil
}

func nonEmptyTexts(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
