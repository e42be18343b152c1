package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/maltedev/storefront-scraper/internal/export"
	"github.com/maltedev/storefront-scraper/internal/models"
)

const insertSummarySQL = `
	INSERT INTO summary_products (
		id, run_id, position, title, brand, price, sale_price,
		price_value, url, image, badges
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const upsertDetailSQL = `
	INSERT INTO product_details (
		url, run_id, brand, title, price, stock, description,
		details, images, specifications, reviews, questions
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (url) DO UPDATE SET
		run_id = EXCLUDED.run_id,
		brand = EXCLUDED.brand,
		title = EXCLUDED.title,
		price = EXCLUDED.price,
		stock = EXCLUDED.stock,
		description = EXCLUDED.description,
		details = EXCLUDED.details,
		images = EXCLUDED.images,
		specifications = EXCLUDED.specifications,
		reviews = EXCLUDED.reviews,
		questions = EXCLUDED.questions,
		updated_at = CURRENT_TIMESTAMP`

// SaveProducts stores one grid crawl in a single transaction.
func (db *DB) SaveProducts(ctx context.Context, runID string, products []models.SummaryProduct) error {
	if len(products) == 0 {
		return nil
	}
	run, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	batch := &pgx.Batch{}
	for i, p := range products {
		args, err := summaryArgs(run, i, p)
		if err != nil {
			return err
		}
		batch.Queue(insertSummarySQL, args...)
	}

	return db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert products: %w", err)
		}
		return nil
	})
}

// SaveDetail upserts a product page keyed by its URL.
func (db *DB) SaveDetail(ctx context.Context, runID string, product *models.DetailProduct) error {
	run, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}
	args, err := detailArgs(run, product)
	if err != nil {
		return err
	}

	if _, err := db.pool.Exec(ctx, upsertDetailSQL, args...); err != nil {
		return fmt.Errorf("failed to save product details: %w", err)
	}
	return nil
}

// CountProducts returns how many grid records a run stored.
func (db *DB) CountProducts(ctx context.Context, runID string) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx, `SELECT count(*) FROM summary_products WHERE run_id = $1`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// GetDetail loads a stored product page, or nil when url is unknown.
func (db *DB) GetDetail(ctx context.Context, url string) (*models.DetailProduct, error) {
	var (
		p                                                   models.DetailProduct
		details, images, specifications, reviews, questions []byte
	)
	err := db.pool.QueryRow(ctx, `
		SELECT url, brand, title, price, stock, description,
			details, images, specifications, reviews, questions
		FROM product_details WHERE url = $1`, url).Scan(
		&p.URL, &p.Brand, &p.Title, &p.Price, &p.Stock, &p.Description,
		&details, &images, &specifications, &reviews, &questions,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product details: %w", err)
	}

	for _, col := range []struct {
		data []byte
		dst  any
	}{
		{details, &p.Details},
		{images, &p.Images},
		{specifications, &p.Specifications},
		{reviews, &p.Reviews},
		{questions, &p.Questions},
	} {
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("failed to decode product details: %w", err)
		}
	}
	return &p, nil
}

func summaryArgs(run uuid.UUID, position int, p models.SummaryProduct) ([]any, error) {
	badges := p.Badges
	if badges == nil {
		badges = []string{}
	}
	badgesJSON, err := json.Marshal(badges)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal badges: %w", err)
	}
	return []any{
		uuid.New(), run, position, p.Title, p.Brand, p.Price, p.SalePrice,
		export.ParsePrice(p.Price), p.URL, p.Image, badgesJSON,
	}, nil
}

func detailArgs(run uuid.UUID, p *models.DetailProduct) ([]any, error) {
	args := []any{run, p.Brand, p.Title, p.Price, p.Stock, p.Description}

	images := p.Images
	if images == nil {
		images = []string{}
	}
	questions := p.Questions
	if questions == nil {
		questions = []models.Question{}
	}

	for _, v := range []any{p.Details, images, p.Specifications, p.Reviews, questions} {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal product details: %w", err)
		}
		args = append(args, data)
	}
	return append([]any{p.URL}, args...), nil
}
