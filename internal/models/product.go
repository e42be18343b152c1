package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// SummaryProduct is one card of the product grid. Fields the card does not
// render are nil.
type SummaryProduct struct {
	Title     *string  `json:"title"`
	Price     *string  `json:"price"`
	URL       *string  `json:"url"`
	Brand     *string  `json:"brand"`
	Badges    []string `json:"badges"`
	SalePrice *string  `json:"sale_price"`
	Image     *string  `json:"image"`
}

// DetailProduct is everything extracted from one product page.
type DetailProduct struct {
	URL            string     `json:"url"`
	Brand          *string    `json:"brand"`
	Title          *string    `json:"title"`
	Price          *string    `json:"price"`
	Details        Fields     `json:"details"`
	Images         []string   `json:"images"`
	Stock          *string    `json:"stock"`
	Description    string     `json:"description"`
	Specifications Fields     `json:"specifications"`
	Reviews        Reviews    `json:"reviews"`
	Questions      []Question `json:"questions"`
}

type Reviews struct {
	Score        *float64 `json:"score"`
	ReviewsCount *int     `json:"reviews_count"`
}

type Question struct {
	Name     string   `json:"name"`
	Date     string   `json:"date"`
	Question string   `json:"question"`
	Answers  []string `json:"answers"`
}

// ScrapeResult is the outcome of scraping a single product URL.
type ScrapeResult struct {
	URL     string         `json:"url"`
	Product *DetailProduct `json:"product,omitempty"`
	Error   *Error         `json:"error,omitempty"`
	Success bool           `json:"success"`
}

type Error struct {
	Class   string    `json:"class"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	URL     string    `json:"url,omitempty"`
}

// Field is one key/value pair of a Fields map.
type Field struct {
	Key   string
	Value string
}

// Fields is a string map that remembers insertion order. Setting an existing
// key replaces its value in place.
type Fields []Field

func (f *Fields) Set(key, value string) {
	for i := range *f {
		if (*f)[i].Key == key {
			(*f)[i].Value = value
			return
		}
	}
	*f = append(*f, Field{Key: key, Value: value})
}

func (f Fields) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, field := range f {
		keys[i] = field.Key
	}
	return keys
}

// MarshalJSON writes an object in insertion order; nil marshals as {}.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}

	out := Fields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("fields: value of %q: %w", key, err)
		}
		out.Set(key, value)
	}
	*f = out
	return nil
}
