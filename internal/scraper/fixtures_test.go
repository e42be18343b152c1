package scraper

import (
	"github.com/maltedev/storefront-scraper/internal/config"
)

const gridPage = `<html><head><title>Kettles</title></head><body>
<div class="pagination-info">Showing 1-3 of 3 results</div>
<div class="grid">
  <a class="product" href="/p/kettle">
    <div class="card-title"> Buono Kettle </div>
    <span class="price">$45.00</span>
    <span class="brand">Hario</span>
    <span class="badge">New</span><span class="badge"> Sale </span>
    <span class="rrp">$50.00</span>
    <img src="/img/kettle.jpg">
  </a>
  <a class="product" href="/p/papers">
    <div class="card-title">Filter Papers</div>
    <span class="brand">Hario</span>
  </a>
  <a class="product" href="/p/grinder">
    <div class="card-title">Grinder</div>
    <span class="price">$1,120.00</span>
    <img src="/img/grinder.jpg">
  </a>
</div>
</body></html>`

const detailPage = `<html><head><title>Buono Kettle</title></head><body>
<div class="gallery"><a href="/img/1.jpg">1</a><a href="/img/2.jpg">2</a><a>no href</a></div>
<div class="brand"> Hario </div>
<h1> Buono Kettle </h1>
<div class="price">$45.00</div>
<dl><dt>SKU:</dt><dd> VKB-120 </dd><dt> Weight: </dt><dd>1kg</dd><dt>Orphan</dt></dl>
<div class="stock"> 12 in stock </div>
<div id="description">
  <p>Pour-over kettle.</p>
  <ul><li>Steel</li><li> </li><li>1.2L</li></ul>
  <p>Made in Japan.</p>
</div>
<table class="specs"><tr><td>only one cell</td></tr><tr><th></th><td>no key</td></tr></table>
<table class="specs"><tr><th>Volume:</th><td>1.2L</td></tr><tr><th>Material</th><td> Steel </td></tr></table>
<div id="reviews"><span class="score">4.5</span><span class="count">Based on 12 reviews</span></div>
<a id="qa-tab">Questions</a>
<div id="qa">
  <div class="question">
    <span class="name"> Ann </span><span class="date">2024-01-01</span>
    <p class="text">Works on induction?</p>
    <div class="answer">Yes</div><div class="answer"> </div><div class="answer">Works well</div>
  </div>
  <div class="question">
    <span class="name">Bob</span><span class="date">2024-02-02</span>
    <p class="text">Dishwasher safe?</p>
  </div>
</div>
</body></html>`

const hiddenQuestionsPage = `<html><body>
<h1>Kettle</h1>
<a id="qa-tab">Questions</a>
<div id="qa" style="display: none"><div class="question"><p class="text">hidden</p></div></div>
</body></html>`

const secondQuestionsVisiblePage = `<html><body>
<h1>Kettle</h1>
<a id="qa-tab">Questions</a>
<div id="qa" hidden><div class="question"><p class="text">stale</p></div></div>
<div id="qa"><div class="question"><span class="name">Cy</span><p class="text">Keeps heat?</p></div></div>
</body></html>`

const sparseDetailPage = `<html><body><h1>Bare product</h1></body></html>`

func testSite(baseURL string) *config.Site {
	return &config.Site{
		Site: config.SiteSettings{BaseURL: baseURL, ProductsPerPage: 2},
		Products: config.ProductLocators{
			Item:           "a.product",
			Title:          ".card-title",
			Price:          ".price",
			Brand:          ".brand",
			Badges:         ".badge",
			SalePrice:      ".rrp",
			Image:          "img",
			PaginationInfo: ".pagination-info",
		},
		Details: config.DetailLocators{
			Images: config.ImageLocators{Item: ".gallery a"},
			ProductInfo: config.ProductInfoLocators{
				Brand: ".brand", Title: "h1", Price: ".price", DetailsDT: "dl dt", DetailsDD: "dl dd",
			},
			Stock:          config.StockLocators{Quantity: ".stock"},
			Description:    config.DescriptionLocators{Container: "#description", Tags: []string{"p", "li"}},
			Specifications: config.SpecificationLocators{Table: "table.specs"},
			Reviews:        config.ReviewLocators{Section: "#reviews", Score: ".score", Text: ".count"},
			Questions: config.QuestionLocators{
				Tab: "#qa-tab", Container: "#qa", Item: ".question", Name: ".name",
				Date: ".date", Question: ".text", Answers: ".answer",
			},
		},
	}
}
