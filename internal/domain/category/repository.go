package category

import "context"

type Repository interface {
	Create(ctx context.Context, userID int64, params CreateCategoryParams) (*Category, error)
	GetByID(ctx context.Context, id int64) (*Category, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Category, error)
	Update(ctx context.Context, id int64, params UpdateCategoryParams) (*Category, error)
	// Delete removes the category; referencing transactions keep their rows
	// with category_id set to null.
	Delete(ctx context.Context, id int64) error
}
