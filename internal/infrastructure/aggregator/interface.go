package aggregator

import "context"

// ClientInterface abstracts the open-banking aggregator API for testing.
type ClientInterface interface {
	ListInstitutions(ctx context.Context, country string) ([]Institution, error)
	GetInstitution(ctx context.Context, id string) (*Institution, error)

	CreateRequisition(ctx context.Context, params RequisitionParams) (*Requisition, error)
	GetRequisition(ctx context.Context, id string) (*Requisition, error)
	DeleteRequisition(ctx context.Context, id string) error

	GetAccountDetails(ctx context.Context, accountID string) (*AccountDetails, error)
	GetAccountBalances(ctx context.Context, accountID string) ([]Balance, error)
	GetAccountTransactions(ctx context.Context, accountID string, fromDate string) (*TransactionPage, error)
}

var _ ClientInterface = (*Client)(nil)
