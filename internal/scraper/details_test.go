package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/storefront-scraper/internal/dom"
	"github.com/maltedev/storefront-scraper/internal/metrics"
	"github.com/maltedev/storefront-scraper/internal/models"
)

func extract(t *testing.T, html string, m *metrics.Metrics) *models.DetailProduct {
	t.Helper()
	page, err := dom.ParseHTML(html)
	require.NoError(t, err)

	e := NewDetailExtractor(testSite("https://shop.test").Details, time.Second, nil, m)
	product, err := e.Extract(context.Background(), page)
	require.NoError(t, err)
	return product
}

func TestDetailExtractorFullPage(t *testing.T) {
	product := extract(t, detailPage, nil)

	assert.Equal(t, []string{"/img/1.jpg", "/img/2.jpg"}, product.Images)
	assert.Equal(t, "Hario", *product.Brand)
	assert.Equal(t, "Buono Kettle", *product.Title)
	assert.Equal(t, "$45.00", *product.Price)
	assert.Equal(t, models.Fields{{Key: "SKU", Value: "VKB-120"}, {Key: "Weight", Value: "1kg"}}, product.Details)
	assert.Equal(t, "12 in stock", *product.Stock)
	assert.Equal(t, "Pour-over kettle.\nMade in Japan.\n- Steel\n- 1.2L", product.Description)

	require.NotNil(t, product.Reviews.Score)
	assert.Equal(t, 4.5, *product.Reviews.Score)
	require.NotNil(t, product.Reviews.ReviewsCount)
	assert.Equal(t, 12, *product.Reviews.ReviewsCount)

	require.Len(t, product.Questions, 2)
	assert.Equal(t, models.Question{
		Name: "Ann", Date: "2024-01-01", Question: "Works on induction?", Answers: []string{"Yes", "Works well"},
	}, product.Questions[0])
	assert.Equal(t, "Dishwasher safe?", product.Questions[1].Question)
	assert.Empty(t, product.Questions[1].Answers)
	assert.NotNil(t, product.Questions[1].Answers)
}

func TestDetailExtractorSkipsTableWithoutRows(t *testing.T) {
	product := extract(t, detailPage, nil)

	assert.Equal(t, models.Fields{
		{Key: "Volume", Value: "1.2L"},
		{Key: "Material", Value: "Steel"},
	}, product.Specifications)
}

func TestDetailExtractorMissingSections(t *testing.T) {
	product := extract(t, sparseDetailPage, nil)

	assert.Empty(t, product.Images)
	assert.Nil(t, product.Brand)
	assert.Equal(t, "Bare product", *product.Title)
	assert.Nil(t, product.Price)
	assert.Empty(t, product.Details)
	assert.Nil(t, product.Stock)
	assert.Equal(t, "", product.Description)
	assert.Empty(t, product.Specifications)
	assert.Nil(t, product.Reviews.Score)
	assert.Nil(t, product.Reviews.ReviewsCount)
	assert.NotNil(t, product.Questions)
	assert.Empty(t, product.Questions)
}

func TestDetailExtractorQuestionsTimeout(t *testing.T) {
	m := metrics.New()
	product := extract(t, hiddenQuestionsPage, m)

	assert.Empty(t, product.Questions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("TimeoutError")))
}

func TestDetailExtractorQuestionsFromVisibleContainerOnly(t *testing.T) {
	m := metrics.New()
	product := extract(t, secondQuestionsVisiblePage, m)

	require.Len(t, product.Questions, 1)
	assert.Equal(t, "Cy", product.Questions[0].Name)
	assert.Equal(t, "Keeps heat?", product.Questions[0].Question)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("TimeoutError")))
}

func TestDetailExtractorCancelledDuringQuestions(t *testing.T) {
	page, err := dom.ParseHTML(hiddenQuestionsPage)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewDetailExtractor(testSite("https://shop.test").Details, time.Second, nil, nil)
	_, err = e.Extract(ctx, page)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetailExtractorReviewScore(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantScore *float64
		wantCount *int
	}{
		{
			name:      "non numeric score",
			html:      `<div id="reviews"><span class="score">N/A</span><span class="count">no reviews yet</span></div>`,
			wantScore: nil,
			wantCount: nil,
		},
		{
			name:      "integer score",
			html:      `<div id="reviews"><span class="score"> 5 </span><span class="count">3 reviews, 2 photos</span></div>`,
			wantScore: ptr(5.0),
			wantCount: ptr(3),
		},
		{
			name:      "two dots",
			html:      `<div id="reviews"><span class="score">4.5.1</span></div>`,
			wantScore: nil,
			wantCount: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := extract(t, "<html><body>"+tt.html+"</body></html>", nil)
			assert.Equal(t, tt.wantScore, product.Reviews.Score)
			assert.Equal(t, tt.wantCount, product.Reviews.ReviewsCount)
		})
	}
}

func TestIsListItem(t *testing.T) {
	tests := map[string]bool{
		"li":          true,
		"ul > li":     true,
		"ul li.point": true,
		"LI":          true,
		"p":           false,
		"li > span":   false,
		"link":        false,
		"":            false,
	}

	for selector, want := range tests {
		t.Run(selector, func(t *testing.T) {
			assert.Equal(t, want, isListItem(selector))
		})
	}
}

func TestIsDecimal(t *testing.T) {
	assert.True(t, isDecimal("4.5"))
	assert.True(t, isDecimal("10"))
	assert.True(t, isDecimal(".5"))
	assert.False(t, isDecimal("."))
	assert.False(t, isDecimal("4.5.1"))
	assert.False(t, isDecimal("-1"))
	assert.False(t, isDecimal(""))
}

func ptr[T any](v T) *T {
	return &v
}
