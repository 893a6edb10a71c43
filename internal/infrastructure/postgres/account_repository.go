package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"moneta/internal/domain/account"
)

type AccountRepository struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

var _ account.Repository = (*AccountRepository)(nil)

// Upsert inserts or refreshes an account. The balances column holds the full
// snapshot as jsonb and is replaced wholesale on every sync.
func (r *AccountRepository) Upsert(ctx context.Context, params account.UpsertParams) (*account.Account, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	balances, err := json.Marshal(params.Balances)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal balances: %w", err)
	}

	query := `
		INSERT INTO accounts (id, user_id, bank_id, name, owner_name, iban, currency, balances)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner_name = EXCLUDED.owner_name,
			iban = EXCLUDED.iban,
			currency = EXCLUDED.currency,
			balances = EXCLUDED.balances,
			updated_at = NOW()
		RETURNING id, user_id, bank_id, name, owner_name, iban, currency, balances, created_at, updated_at
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query,
		params.ID, params.UserID, params.BankID, params.Name,
		params.OwnerName, params.IBAN, params.Currency, balances,
	))
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	query := `
		SELECT id, user_id, bank_id, name, owner_name, iban, currency, balances, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) ListByBankID(ctx context.Context, bankID int64) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, bank_id, name, owner_name, iban, currency, balances, created_at, updated_at
		FROM accounts
		WHERE bank_id = $1
		ORDER BY name
	`
	return r.list(ctx, query, bankID)
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	query := `
		SELECT id, user_id, bank_id, name, owner_name, iban, currency, balances, created_at, updated_at
		FROM accounts
		WHERE user_id = $1
		ORDER BY name
	`
	return r.list(ctx, query, userID)
}

// Delete removes the account; its transactions cascade.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) list(ctx context.Context, query string, arg any) ([]*account.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccountFields(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) scanAccount(row rowScanner) (*account.Account, error) {
	a, err := scanAccountFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrAccountNotFound
	}
	return a, err
}

func scanAccountFields(row rowScanner) (*account.Account, error) {
	var a account.Account
	var ownerName, iban, currency sql.NullString
	var balances []byte
	err := row.Scan(&a.ID, &a.UserID, &a.BankID, &a.Name, &ownerName, &iban, &currency, &balances, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	a.OwnerName = ownerName.String
	a.IBAN = iban.String
	a.Currency = currency.String
	if len(balances) > 0 {
		if err := json.Unmarshal(balances, &a.Balances); err != nil {
			return nil, fmt.Errorf("failed to unmarshal balances: %w", err)
		}
	}
	return &a, nil
}
