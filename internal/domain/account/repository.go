package account

import "context"

type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Account, error)
	GetByID(ctx context.Context, id string) (*Account, error)
	ListByBankID(ctx context.Context, bankID int64) ([]*Account, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Account, error)
	Delete(ctx context.Context, id string) error
}
