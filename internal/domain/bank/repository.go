package bank

import "context"

type Repository interface {
	Create(ctx context.Context, params CreateBankParams) (*Bank, error)
	GetByID(ctx context.Context, id int64) (*Bank, error)
	GetByInstitution(ctx context.Context, userID int64, institutionID string) (*Bank, error)
	ListByUserID(ctx context.Context, userID int64) ([]*Bank, error)
	GetByRequisitionRef(ctx context.Context, requisitionID string) (*Bank, error)
	SetRequisitionID(ctx context.Context, id int64, requisitionID string) error
	// Delete removes the bank; accounts and their transactions cascade.
	Delete(ctx context.Context, id int64) error
}
