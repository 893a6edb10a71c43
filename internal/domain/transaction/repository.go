package transaction

import (
	"context"
	"time"
)

// ListFilter narrows a paginated listing. Zero values mean no filter.
type ListFilter struct {
	AccountID  string
	BankID     int64
	CategoryID *int64
	Status     string
}

// Repository defines the data access contract for transactions. Remote ids
// are only unique within one user's data, so row-targeting operations carry
// the owning user as part of the key.
type Repository interface {
	// Upsert inserts or refreshes a transaction by its scoped key. On
	// conflict the sync columns are updated; category, manual flag and
	// classification columns are left untouched.
	Upsert(ctx context.Context, params UpsertParams) error
	GetByID(ctx context.Context, userID int64, id string) (*Transaction, error)
	// ListPage returns one page ordered by booking date descending, newest
	// first, together with the total row count for the filter.
	ListPage(ctx context.Context, userID int64, filter ListFilter, offset, limit int) ([]Transaction, int, error)
	// Update applies user edits. When params.CategoryID is set the manual
	// flag is raised; clearing the category (id 0) lowers it.
	Update(ctx context.Context, userID int64, id string, params UpdateParams) (*Transaction, error)
	// SetSuggestedCategory assigns a category only when the transaction has
	// no category and is not manually categorized. Returns true when a row
	// was changed.
	SetSuggestedCategory(ctx context.Context, userID int64, id string, categoryID int64) (bool, error)
	// LatestValueDate returns the most recent value date stored for the
	// account, or nil when the account has no transactions yet. It drives the
	// incremental fetch cursor.
	LatestValueDate(ctx context.Context, accountID string) (*time.Time, error)
	ListUncategorized(ctx context.Context, userID int64, limit int) ([]Transaction, error)
}
