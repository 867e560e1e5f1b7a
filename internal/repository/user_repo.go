package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/lumina_api/internal/models"
	"github.com/GTDGit/lumina_api/internal/utils"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByUsername returns the user or sql.ErrNoRows.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE LOWER(username) = LOWER($1)
	`, username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the user or sql.ErrNoRows.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, username, password_hash, is_admin, created_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts user. A taken username yields utils.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, is_admin)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, user.Username, user.PasswordHash, user.IsAdmin).
		Scan(&user.ID, &user.CreatedAt)
	if isPQCode(err, pqUniqueViolation) {
		return fmt.Errorf("username %q: %w", user.Username, utils.ErrConflict)
	}
	return err
}

// PromoteToAdmin grants admin rights to an existing user.
func (r *UserRepository) PromoteToAdmin(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}
