package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneta/internal/domain/transaction"
)

type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

var _ transaction.Repository = (*TransactionRepository)(nil)

const transactionColumns = `
	id, user_id, bank_id, account_id, status, amount, currency,
	booking_date, value_date, creditor_name, debtor_name, description,
	category_id, manually_categorized, spending_type, want_or_need,
	created_at, updated_at
`

// Upsert inserts or refreshes a transaction. The conflict branch only writes
// sync columns; category_id, manually_categorized, spending_type and
// want_or_need are never touched, so re-syncs cannot undo user edits.
func (r *TransactionRepository) Upsert(ctx context.Context, params transaction.UpsertParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			id, user_id, bank_id, account_id, status, amount, currency,
			booking_date, value_date, creditor_name, debtor_name, description
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, bank_id, account_id, id) DO UPDATE SET
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			booking_date = EXCLUDED.booking_date,
			value_date = EXCLUDED.value_date,
			creditor_name = EXCLUDED.creditor_name,
			debtor_name = EXCLUDED.debtor_name,
			description = EXCLUDED.description,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query,
		params.ID, params.UserID, params.BankID, params.AccountID,
		params.Status, params.Amount, params.Currency,
		params.BookingDate, params.ValueDate,
		params.CreditorName, params.DebtorName, params.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, userID int64, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1 AND id = $2`
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, userID, id))
}

// ListPage returns one page ordered by booking date descending (nulls last,
// pending rows without a date sink to the end) plus the total row count.
func (r *TransactionRepository) ListPage(ctx context.Context, userID int64, filter transaction.ListFilter, offset, limit int) ([]transaction.Transaction, int, error) {
	where, args := buildTransactionFilter(userID, filter)

	countQuery := `SELECT COUNT(*) FROM transactions ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions ` + where +
		fmt.Sprintf(` ORDER BY booking_date DESC NULLS LAST, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []transaction.Transaction
	for rows.Next() {
		t, err := scanTransactionFields(rows)
		if err != nil {
			return nil, 0, err
		}
		transactions = append(transactions, *t)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, total, nil
}

// Update applies user edits. Setting a category raises the manual flag;
// clearing it (category id 0) lowers the flag again.
func (r *TransactionRepository) Update(ctx context.Context, userID int64, id string, params transaction.UpdateParams) (*transaction.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.IsEmpty() {
		return r.GetByID(ctx, userID, id)
	}

	var sets []string
	var args []any
	args = append(args, userID, id)

	if params.CategoryID != nil {
		if *params.CategoryID == 0 {
			sets = append(sets, "category_id = NULL", "manually_categorized = FALSE")
		} else {
			args = append(args, *params.CategoryID)
			sets = append(sets, fmt.Sprintf("category_id = $%d", len(args)), "manually_categorized = TRUE")
		}
	}
	if params.SpendingType != nil {
		args = append(args, *params.SpendingType)
		sets = append(sets, fmt.Sprintf("spending_type = $%d", len(args)))
	}
	if params.WantOrNeed != nil {
		args = append(args, *params.WantOrNeed)
		sets = append(sets, fmt.Sprintf("want_or_need = $%d", len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE transactions SET ` + strings.Join(sets, ", ") +
		` WHERE user_id = $1 AND id = $2 RETURNING ` + transactionColumns
	return r.scanTransaction(r.db.QueryRowContext(ctx, query, args...))
}

// SetSuggestedCategory assigns a category only to rows that are still
// uncategorized and were never categorized by hand. The guard lives in the
// WHERE clause so a concurrent manual edit always wins.
func (r *TransactionRepository) SetSuggestedCategory(ctx context.Context, userID int64, id string, categoryID int64) (bool, error) {
	query := `
		UPDATE transactions
		SET category_id = $3, updated_at = NOW()
		WHERE user_id = $1
		  AND id = $2
		  AND category_id IS NULL
		  AND manually_categorized = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, userID, id, categoryID)
	if err != nil {
		return false, fmt.Errorf("failed to set suggested category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TransactionRepository) LatestValueDate(ctx context.Context, accountID string) (*time.Time, error) {
	query := `SELECT MAX(value_date) FROM transactions WHERE account_id = $1`

	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to read latest value date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *TransactionRepository) ListUncategorized(ctx context.Context, userID int64, limit int) ([]transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND category_id IS NULL AND manually_categorized = FALSE
		ORDER BY booking_date DESC NULLS LAST, id
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncategorized transactions: %w", err)
	}
	defer rows.Close()

	var transactions []transaction.Transaction
	for rows.Next() {
		t, err := scanTransactionFields(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func buildTransactionFilter(userID int64, filter transaction.ListFilter) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{userID}

	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		clauses = append(clauses, fmt.Sprintf("account_id = $%d", len(args)))
	}
	if filter.BankID != 0 {
		args = append(args, filter.BankID)
		clauses = append(clauses, fmt.Sprintf("bank_id = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		if *filter.CategoryID == 0 {
			clauses = append(clauses, "category_id IS NULL")
		} else {
			args = append(args, *filter.CategoryID)
			clauses = append(clauses, fmt.Sprintf("category_id = $%d", len(args)))
		}
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r *TransactionRepository) scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	t, err := scanTransactionFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, transaction.ErrTransactionNotFound
	}
	return t, err
}

func scanTransactionFields(row rowScanner) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var bookingDate, valueDate sql.NullTime
	var creditorName, debtorName, spendingType, wantOrNeed sql.NullString
	var categoryID sql.NullInt64

	err := row.Scan(
		&t.ID, &t.UserID, &t.BankID, &t.AccountID, &t.Status, &t.Amount, &t.Currency,
		&bookingDate, &valueDate, &creditorName, &debtorName, &t.Description,
		&categoryID, &t.ManuallyCategorized, &spendingType, &wantOrNeed,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if bookingDate.Valid {
		t.BookingDate = &bookingDate.Time
	}
	if valueDate.Valid {
		t.ValueDate = &valueDate.Time
	}
	t.CreditorName = creditorName.String
	t.DebtorName = debtorName.String
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if spendingType.Valid {
		t.SpendingType = &spendingType.String
	}
	if wantOrNeed.Valid {
		t.WantOrNeed = &wantOrNeed.String
	}
	return &t, nil
}
