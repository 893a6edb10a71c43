package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moneta/internal/domain/bank"
)

type BankRepository struct {
	db *DB
}

func NewBankRepository(db *DB) *BankRepository {
	return &BankRepository{db: db}
}

var _ bank.Repository = (*BankRepository)(nil)

func (r *BankRepository) Create(ctx context.Context, params bank.CreateBankParams) (*bank.Bank, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO banks (user_id, institution_id, name, logo, bic)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, institution_id, name, logo, bic, requisition_id, created_at, updated_at
	`
	return r.scanBank(r.db.QueryRowContext(ctx, query,
		params.UserID, params.InstitutionID, params.Name, params.Logo, params.BIC,
	))
}

func (r *BankRepository) GetByID(ctx context.Context, id int64) (*bank.Bank, error) {
	query := `
		SELECT id, user_id, institution_id, name, logo, bic, requisition_id, created_at, updated_at
		FROM banks
		WHERE id = $1
	`
	return r.scanBank(r.db.QueryRowContext(ctx, query, id))
}

func (r *BankRepository) GetByInstitution(ctx context.Context, userID int64, institutionID string) (*bank.Bank, error) {
	query := `
		SELECT id, user_id, institution_id, name, logo, bic, requisition_id, created_at, updated_at
		FROM banks
		WHERE user_id = $1 AND institution_id = $2
	`
	return r.scanBank(r.db.QueryRowContext(ctx, query, userID, institutionID))
}

func (r *BankRepository) ListByUserID(ctx context.Context, userID int64) ([]*bank.Bank, error) {
	query := `
		SELECT id, user_id, institution_id, name, logo, bic, requisition_id, created_at, updated_at
		FROM banks
		WHERE user_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	defer rows.Close()

	var banks []*bank.Bank
	for rows.Next() {
		b, err := r.scanBankRow(rows)
		if err != nil {
			return nil, err
		}
		banks = append(banks, b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banks: %w", err)
	}
	return banks, nil
}

func (r *BankRepository) GetByRequisitionRef(ctx context.Context, requisitionID string) (*bank.Bank, error) {
	query := `
		SELECT id, user_id, institution_id, name, logo, bic, requisition_id, created_at, updated_at
		FROM banks
		WHERE requisition_id = $1
	`
	return r.scanBank(r.db.QueryRowContext(ctx, query, requisitionID))
}

func (r *BankRepository) SetRequisitionID(ctx context.Context, id int64, requisitionID string) error {
	query := `
		UPDATE banks
		SET requisition_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, requisitionID)
	if err != nil {
		return fmt.Errorf("failed to set requisition id: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return bank.ErrBankNotFound
	}
	return nil
}

// Delete removes the bank. The schema cascades to accounts, which in turn
// cascade to transactions.
func (r *BankRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM banks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete bank: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return bank.ErrBankNotFound
	}
	return nil
}

func (r *BankRepository) scanBank(row rowScanner) (*bank.Bank, error) {
	b, err := scanBankFields(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, bank.ErrBankNotFound
	}
	return b, err
}

func (r *BankRepository) scanBankRow(row rowScanner) (*bank.Bank, error) {
	return scanBankFields(row)
}

func scanBankFields(row rowScanner) (*bank.Bank, error) {
	var b bank.Bank
	var logo, bic, requisitionID sql.NullString
	err := row.Scan(&b.ID, &b.UserID, &b.InstitutionID, &b.Name, &logo, &bic, &requisitionID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan bank: %w", err)
	}
	b.Logo = logo.String
	b.BIC = bic.String
	if requisitionID.Valid {
		b.RequisitionID = &requisitionID.String
	}
	return &b, nil
}
