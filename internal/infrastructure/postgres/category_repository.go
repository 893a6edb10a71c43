package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"moneta/internal/domain/category"
)

// pq error code for unique constraint violations.
const pqUniqueViolation = "23505"

type CategoryRepository struct {
	db *DB
}

func NewCategoryRepository(db *DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

var _ category.Repository = (*CategoryRepository)(nil)

func (r *CategoryRepository) Create(ctx context.Context, userID int64, params category.CreateCategoryParams) (*category.Category, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO categories (user_id, name, color, keywords)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, color, keywords, created_at, updated_at
	`
	c, err := r.scanCategory(r.db.QueryRowContext(ctx, query,
		userID, params.Name, params.Color, pq.Array(params.Keywords),
	))
	if isUniqueViolation(err) {
		return nil, category.ErrDuplicateName
	}
	return c, err
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	query := `
		SELECT id, user_id, name, color, keywords, created_at, updated_at
		FROM categories
		WHERE id = $1
	`
	return r.scanCategory(r.db.QueryRowContext(ctx, query, id))
}

func (r *CategoryRepository) ListByUserID(ctx context.Context, userID int64) ([]*category.Category, error) {
	query := `
		SELECT id, user_id, name, color, keywords, created_at, updated_at
		FROM categories
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*category.Category
	for rows.Next() {
		c, err := scanCategoryFields(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, id int64, params category.UpdateCategoryParams) (*category.Category, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var keywords any
	if params.Keywords != nil {
		keywords = pq.Array(*params.Keywords)
	}

	query := `
		UPDATE categories
		SET name = COALESCE($2, name),
		    color = COALESCE($3, color),
		    keywords = COALESCE($4, keywords),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, user_id, name, color, keywords, created_at, updated_at
	`
	c, err := r.scanCategory(r.db.QueryRowContext(ctx, query, id, params.Name, params.Color, keywords))
	if isUniqueViolation(err) {
		return nil, category.ErrDuplicateName
	}
	return c, err
}

// Delete removes the category. Referencing transactions keep their rows with
// category_id cleared; the manual flag is lowered so future syncs may suggest
// a new category for them.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	detach := `
		UPDATE transactions
		SET category_id = NULL, manually_categorized = FALSE, updated_at = NOW()
		WHERE category_id = $1
	`
	if _, err := r.db.ExecContext(ctx, detach, id); err != nil {
		return fmt.Errorf("failed to detach transactions: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return category.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) scanCategory(row rowScanner) (*category.Category, error) {
	c, err := scanCategoryFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, category.ErrCategoryNotFound
	}
	return c, err
}

func scanCategoryFields(row rowScanner) (*category.Category, error) {
	var c category.Category
	var color sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &color, pq.Array(&c.Keywords), &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	c.Color = color.String
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}
