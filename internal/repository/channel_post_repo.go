package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/lumina_api/internal/models"
)

// ChannelPostRepository logs promotional channel posts.
type ChannelPostRepository struct {
	db *sqlx.DB
}

// NewChannelPostRepository creates a new ChannelPostRepository.
func NewChannelPostRepository(db *sqlx.DB) *ChannelPostRepository {
	return &ChannelPostRepository{db: db}
}

// Create inserts a post attempt.
func (r *ChannelPostRepository) Create(ctx context.Context, post *models.ChannelPost) error {
	const q = `
		INSERT INTO channel_posts (
			product_id, message_id, caption, marketing_variant_a, marketing_variant_b, status, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return r.db.QueryRowxContext(ctx, q,
		post.ProductID, post.MessageID, post.Caption, post.MarketingVariantA,
		post.MarketingVariantB, post.Status, post.Error,
	).Scan(&post.ID, &post.CreatedAt)
}

// ListRecent returns the latest attempts, newest first.
func (r *ChannelPostRepository) ListRecent(ctx context.Context, limit int) ([]models.ChannelPost, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
		SELECT id, product_id, message_id, caption, marketing_variant_a, marketing_variant_b,
			status, error, created_at
		FROM channel_posts
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	posts := []models.ChannelPost{}
	if err := r.db.SelectContext(ctx, &posts, q, limit); err != nil {
		return nil, err
	}
	return posts, nil
}
