// Package export turns scraped records into delimited tables.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maltedev/storefront-scraper/internal/models"
)

const (
	ProductsDelimiter = ','
	DetailsDelimiter  = ';'
)

var (
	priceNoise  = regexp.MustCompile(`[\p{Sc},\s]`)
	plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// ParsePrice normalises a price string such as "$1,234.50" to 1234.5. Nil,
// empty and non-numeric input yield 0.
func ParsePrice(price *string) float64 {
	if price == nil {
		return 0
	}
	cleaned := priceNoise.ReplaceAllString(*price, "")
	// ParseFloat also takes hex floats, underscores and Inf.
	if !plainNumber.MatchString(cleaned) {
		return 0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Table is a header plus rows, written with Delimiter.
type Table struct {
	Delimiter rune
	Header    []string
	Rows      [][]string
}

func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = t.Delimiter
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var productColumns = []string{
	"title", "brand", "price", "sale_price", "price_value", "sale_price_value", "url", "image", "badges",
}

// ProductsToTable builds the comma-delimited grid table, stably sorted
// ascending by the normalised price.
func ProductsToTable(products []models.SummaryProduct) *Table {
	type row struct {
		price float64
		cells []string
	}

	rows := make([]row, 0, len(products))
	for _, p := range products {
		price := ParsePrice(p.Price)
		sale := ParsePrice(p.SalePrice)
		rows = append(rows, row{
			price: price,
			cells: []string{
				deref(p.Title),
				deref(p.Brand),
				deref(p.Price),
				deref(p.SalePrice),
				formatFloat(price),
				formatFloat(sale),
				deref(p.URL),
				deref(p.Image),
				jsonCell(nonNil(p.Badges)),
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].price < rows[j].price })

	table := &Table{Delimiter: ProductsDelimiter, Header: productColumns}
	for _, r := range rows {
		table.Rows = append(table.Rows, r.cells)
	}
	return table
}

// DetailsToTable builds the semicolon-delimited detail table. Every details
// key becomes its own details_<key> column, in first-appearance order across
// the records; nested values are embedded as JSON. Keys that differ only in
// case share a column, and the first value in a record wins.
func DetailsToTable(details []models.DetailProduct) *Table {
	var detailKeys []string
	seen := make(map[string]bool)
	for _, d := range details {
		for _, key := range d.Details.Keys() {
			col := "details_" + strings.ToLower(key)
			if !seen[col] {
				seen[col] = true
				detailKeys = append(detailKeys, key)
			}
		}
	}

	header := []string{"url", "brand", "title", "price"}
	columnOf := make(map[string]int)
	for _, key := range detailKeys {
		columnOf[strings.ToLower(key)] = len(header)
		header = append(header, "details_"+strings.ToLower(key))
	}
	header = append(header, "images", "stock", "description", "specifications", "reviews", "questions", "questions_count")

	table := &Table{Delimiter: DetailsDelimiter, Header: header}
	for _, d := range details {
		cells := make([]string, len(header))
		cells[0] = d.URL
		cells[1] = deref(d.Brand)
		cells[2] = deref(d.Title)
		cells[3] = deref(d.Price)
		filled := make(map[int]bool, len(d.Details))
		for _, field := range d.Details {
			col := columnOf[strings.ToLower(field.Key)]
			if filled[col] {
				continue
			}
			filled[col] = true
			cells[col] = field.Value
		}

		tail := len(header) - 7
		cells[tail] = jsonCell(nonNil(d.Images))
		cells[tail+1] = deref(d.Stock)
		cells[tail+2] = d.Description
		cells[tail+3] = jsonCell(d.Specifications)
		cells[tail+4] = jsonCell(d.Reviews)
		cells[tail+5] = jsonCell(nonNilQuestions(d.Questions))
		cells[tail+6] = strconv.Itoa(len(d.Questions))

		table.Rows = append(table.Rows, cells)
	}
	return table
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilQuestions(q []models.Question) []models.Question {
	if q == nil {
		return []models.Question{}
	}
	out := make([]models.Question, len(q))
	for i, question := range q {
		question.Answers = nonNil(question.Answers)
		out[i] = question
	}
	return out
}

func jsonCell(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
