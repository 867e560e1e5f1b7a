package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

const productColumns = `id, title, price, description, short_description, full_description,
	image_url, gallery, video_url, category, brand, stock, tags, specs, ai_analysis,
	marketing_copy, is_flash_sale, flash_sale_price, flash_sale_ends,
	flash_sale_marketing_text, channel_posted_at, created_at`

// ProductRepository handles data access for products.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns every product, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC`

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product by id, or sql.ErrNoRows.
func (r *ProductRepository) GetByID(ctx context.Context, id int) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id = $1 LIMIT 1`
	stmt, err := r.db.PreparexContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	var p models.Product
	if err := stmt.GetContext(ctx, &p, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// Related returns up to limit products sharing p's category or brand.
func (r *ProductRepository) Related(ctx context.Context, p *models.Product, limit int) ([]models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products
		WHERE id <> $1
		AND (LOWER(category) = LOWER($2) OR ($3::text IS NOT NULL AND LOWER(brand) = LOWER($3)))
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, q, p.ID, p.Category, p.Brand, limit); err != nil {
		return nil, err
	}
	return products, nil
}

// RandomUnposted returns a random product never posted to the channel, or
// sql.ErrNoRows.
func (r *ProductRepository) RandomUnposted(ctx context.Context) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products
		WHERE channel_posted_at IS NULL
		ORDER BY RANDOM() LIMIT 1`

	var p models.Product
	if err := r.db.GetContext(ctx, &p, q); err != nil {
		return nil, err
	}
	return &p, nil
}

// Latest returns the newest product, or sql.ErrNoRows.
func (r *ProductRepository) Latest(ctx context.Context) (*models.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id DESC LIMIT 1`

	var p models.Product
	if err := r.db.GetContext(ctx, &p, q); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts p and fills its id and created_at.
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	const q = `
		INSERT INTO products (
			title, price, description, short_description, full_description, image_url,
			gallery, video_url, category, brand, stock, tags, specs, ai_analysis, marketing_copy
		) VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::text[], '{}'), $8, $9, $10, $11, COALESCE($12::text[], '{}'), $13, $14, $15)
		RETURNING id, created_at`

	return r.db.QueryRowxContext(ctx, q,
		p.Title, p.Price, p.Description, p.ShortDescription, p.FullDescription, p.ImageURL,
		p.Gallery, p.VideoURL, p.Category, p.Brand, p.Stock, p.Tags, p.Specs, p.AIAnalysis, p.MarketingCopy,
	).Scan(&p.ID, &p.CreatedAt)
}

// Update writes the editable catalog fields of p. Flash-sale and channel
// fields have their own single-purpose updates.
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	const q = `
		UPDATE products SET
			title = $2, price = $3, description = $4, short_description = $5,
			full_description = $6, image_url = $7, gallery = COALESCE($8::text[], '{}'), video_url = $9,
			category = $10, brand = $11, stock = $12, tags = COALESCE($13::text[], '{}'), specs = $14
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, q,
		p.ID, p.Title, p.Price, p.Description, p.ShortDescription,
		p.FullDescription, p.ImageURL, p.Gallery, p.VideoURL,
		p.Category, p.Brand, p.Stock, p.Tags, p.Specs,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateFlashSale atomically writes the four flash-sale fields of p.
func (r *ProductRepository) UpdateFlashSale(ctx context.Context, p *models.Product) error {
	const q = `
		UPDATE products SET
			is_flash_sale = $2, flash_sale_price = $3, flash_sale_ends = $4,
			flash_sale_marketing_text = $5
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, q,
		p.ID, p.IsFlashSale, p.FlashSalePrice, p.FlashSaleEnds, p.FlashSaleMarketingText,
	)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateMarketingCopy stores generated promotional copy.
func (r *ProductRepository) UpdateMarketingCopy(ctx context.Context, id int, text string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET marketing_copy = $2 WHERE id = $1`, id, text)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// MarkPosted records when the product was published to the channel.
func (r *ProductRepository) MarkPosted(ctx context.Context, id int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET channel_posted_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes a product that no order item references. Referenced
// products yield utils.ErrConflict, unknown ids sql.ErrNoRows.
func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var refs int
	if err := tx.GetContext(ctx, &refs, `SELECT COUNT(1) FROM order_items WHERE product_id = $1`, id); err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("product %d is referenced by %d order items: %w", id, refs, utils.ErrConflict)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		// an order placed between the count and the delete
		if isPQCode(err, pqForeignKeyViolation) {
			return fmt.Errorf("product %d is referenced by orders: %w", id, utils.ErrConflict)
		}
		return err
	}
	if err := expectOneRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
