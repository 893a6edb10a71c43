package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"moneta/internal/domain/account"
	"moneta/internal/domain/bank"
	"moneta/internal/domain/banksync"
	"moneta/internal/domain/category"
	"moneta/internal/domain/notification"
	"moneta/internal/domain/transaction"
	"moneta/internal/infrastructure/aggregator"
	"moneta/internal/shared/messages"
)

type syncBankRepo struct {
	banks []*bank.Bank
}

func (m *syncBankRepo) Create(ctx context.Context, params bank.CreateBankParams) (*bank.Bank, error) {
	return nil, nil
}

func (m *syncBankRepo) GetByID(ctx context.Context, id int64) (*bank.Bank, error) {
	for _, b := range m.banks {
		if b.ID == id {
			found := *b
			return &found, nil
		}
	}
	return nil, bank.ErrBankNotFound
}

func (m *syncBankRepo) GetByInstitution(ctx context.Context, userID int64, institutionID string) (*bank.Bank, error) {
	return nil, bank.ErrBankNotFound
}

func (m *syncBankRepo) ListByUserID(ctx context.Context, userID int64) ([]*bank.Bank, error) {
	return m.banks, nil
}

func (m *syncBankRepo) GetByRequisitionRef(ctx context.Context, requisitionID string) (*bank.Bank, error) {
	return nil, bank.ErrBankNotFound
}

func (m *syncBankRepo) SetRequisitionID(ctx context.Context, id int64, requisitionID string) error {
	return nil
}

func (m *syncBankRepo) Delete(ctx context.Context, id int64) error { return nil }

type syncAggregator struct {
	GetRequisitionFunc func(ctx context.Context, id string) (*aggregator.Requisition, error)
}

func (m *syncAggregator) ListInstitutions(ctx context.Context, country string) ([]aggregator.Institution, error) {
	return nil, nil
}

func (m *syncAggregator) GetInstitution(ctx context.Context, id string) (*aggregator.Institution, error) {
	return nil, aggregator.ErrNotFound
}

func (m *syncAggregator) CreateRequisition(ctx context.Context, params aggregator.RequisitionParams) (*aggregator.Requisition, error) {
	return &aggregator.Requisition{ID: "req-new", Status: aggregator.RequisitionCreated, Link: "https://consent.example/req-new"}, nil
}

func (m *syncAggregator) GetRequisition(ctx context.Context, id string) (*aggregator.Requisition, error) {
	if m.GetRequisitionFunc != nil {
		return m.GetRequisitionFunc(ctx, id)
	}
	return nil, aggregator.ErrNotFound
}

func (m *syncAggregator) DeleteRequisition(ctx context.Context, id string) error { return nil }

func (m *syncAggregator) GetAccountDetails(ctx context.Context, accountID string) (*aggregator.AccountDetails, error) {
	return &aggregator.AccountDetails{ResourceID: accountID, Name: "Current Account", Currency: "GBP"}, nil
}

func (m *syncAggregator) GetAccountBalances(ctx context.Context, accountID string) ([]aggregator.Balance, error) {
	return nil, nil
}

func (m *syncAggregator) GetAccountTransactions(ctx context.Context, accountID string, fromDate string) (*aggregator.TransactionPage, error) {
	return &aggregator.TransactionPage{}, nil
}

type syncAccountRepo struct{}

func (m *syncAccountRepo) Upsert(ctx context.Context, params account.UpsertParams) (*account.Account, error) {
	return &account.Account{ID: params.ID}, nil
}

func (m *syncAccountRepo) GetByID(ctx context.Context, id string) (*account.Account, error) {
	return nil, account.ErrAccountNotFound
}

func (m *syncAccountRepo) ListByBankID(ctx context.Context, bankID int64) ([]*account.Account, error) {
	return nil, nil
}

func (m *syncAccountRepo) ListByUserID(ctx context.Context, userID int64) ([]*account.Account, error) {
	return nil, nil
}

func (m *syncAccountRepo) Delete(ctx context.Context, id string) error { return nil }

type syncTxRepo struct{}

func (m *syncTxRepo) Upsert(ctx context.Context, params transaction.UpsertParams) error { return nil }

func (m *syncTxRepo) GetByID(ctx context.Context, userID int64, id string) (*transaction.Transaction, error) {
	return nil, transaction.ErrTransactionNotFound
}

func (m *syncTxRepo) ListPage(ctx context.Context, userID int64, filter transaction.ListFilter, offset, limit int) ([]transaction.Transaction, int, error) {
	return nil, 0, nil
}

func (m *syncTxRepo) Update(ctx context.Context, userID int64, id string, params transaction.UpdateParams) (*transaction.Transaction, error) {
	return nil, transaction.ErrTransactionNotFound
}

func (m *syncTxRepo) SetSuggestedCategory(ctx context.Context, userID int64, id string, categoryID int64) (bool, error) {
	return false, nil
}

func (m *syncTxRepo) LatestValueDate(ctx context.Context, accountID string) (*time.Time, error) {
	return nil, nil
}

func (m *syncTxRepo) ListUncategorized(ctx context.Context, userID int64, limit int) ([]transaction.Transaction, error) {
	return nil, nil
}

type syncCategoryRepo struct{}

func (m *syncCategoryRepo) Create(ctx context.Context, userID int64, params category.CreateCategoryParams) (*category.Category, error) {
	return nil, nil
}

func (m *syncCategoryRepo) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	return nil, category.ErrCategoryNotFound
}

func (m *syncCategoryRepo) ListByUserID(ctx context.Context, userID int64) ([]*category.Category, error) {
	return nil, nil
}

func (m *syncCategoryRepo) Update(ctx context.Context, id int64, params category.UpdateCategoryParams) (*category.Category, error) {
	return nil, category.ErrCategoryNotFound
}

func (m *syncCategoryRepo) Delete(ctx context.Context, id int64) error { return nil }

type deviceTokenRepo struct{}

func (m *deviceTokenRepo) UpsertDeviceToken(ctx context.Context, params notification.CreateDeviceTokenParams) (*notification.DeviceToken, error) {
	return &notification.DeviceToken{Token: params.Token}, nil
}

func (m *deviceTokenRepo) GetActiveTokensByUserID(ctx context.Context, userID int64) ([]*notification.DeviceToken, error) {
	return []*notification.DeviceToken{{UserID: userID, Token: "device-1", IsActive: true}}, nil
}

func (m *deviceTokenRepo) DeactivateToken(ctx context.Context, token string) error { return nil }

type recordingMessenger struct {
	sent []map[string]string
}

func (m *recordingMessenger) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	m.sent = append(m.sent, data)
	return nil
}

func (m *recordingMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	m.sent = append(m.sent, data)
	return nil
}

func newJobUnderTest(banks []*bank.Bank, agg aggregator.ClientInterface) (*UserSyncJob, *recordingMessenger) {
	bankSvc := bank.NewService(&syncBankRepo{banks: banks}, agg, "https://app.example/callback")
	syncSvc := banksync.NewService(bankSvc, agg, &syncAccountRepo{}, &syncTxRepo{}, &syncCategoryRepo{}, zerolog.Nop())

	messenger := &recordingMessenger{}
	texts := &messages.Messages{
		SyncComplete:   messages.MessageText{Title: "Sync complete", Body: "%s finished syncing."},
		ConsentExpired: messages.MessageText{Title: "Bank access expired", Body: "Access to %s has expired."},
	}
	notifSvc := notification.NewService(&deviceTokenRepo{}, messenger, texts, zerolog.Nop())

	return NewUserSyncJob(42, syncSvc, notifSvc, zerolog.Nop()), messenger
}

func reqID(s string) *string { return &s }

func TestUserSyncJob_ExpiredConsentTriggersPush(t *testing.T) {
	banks := []*bank.Bank{{ID: 1, UserID: 42, Name: "Monzo", RequisitionID: reqID("req-1")}}
	agg := &syncAggregator{
		GetRequisitionFunc: func(ctx context.Context, id string) (*aggregator.Requisition, error) {
			return &aggregator.Requisition{ID: id, Status: aggregator.RequisitionExpired}, nil
		},
	}

	job, messenger := newJobUnderTest(banks, agg)
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(messenger.sent) != 1 {
		t.Fatalf("pushes sent = %d, want 1", len(messenger.sent))
	}
	if got := messenger.sent[0]["type"]; got != "consent_expired" {
		t.Errorf("push type = %q, want consent_expired", got)
	}
}

func TestUserSyncJob_PendingConsentStaysQuiet(t *testing.T) {
	// A bank whose link flow was never finished must not nag the user.
	banks := []*bank.Bank{{ID: 1, UserID: 42, Name: "Monzo", RequisitionID: reqID("req-1")}}
	agg := &syncAggregator{
		GetRequisitionFunc: func(ctx context.Context, id string) (*aggregator.Requisition, error) {
			return &aggregator.Requisition{ID: id, Status: aggregator.RequisitionCreated, Link: "https://consent.example/req-1"}, nil
		},
	}

	job, messenger := newJobUnderTest(banks, agg)
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(messenger.sent) != 0 {
		t.Errorf("pushes sent = %d, want 0", len(messenger.sent))
	}
}

func TestUserSyncJob_GenericFailureSendsNoConsentPush(t *testing.T) {
	banks := []*bank.Bank{{ID: 1, UserID: 42, Name: "Monzo", RequisitionID: reqID("req-1")}}
	agg := &syncAggregator{
		GetRequisitionFunc: func(ctx context.Context, id string) (*aggregator.Requisition, error) {
			return nil, fmt.Errorf("aggregator is down")
		},
	}

	job, messenger := newJobUnderTest(banks, agg)
	err := job.Execute(context.Background())
	if err == nil {
		t.Fatal("expected the job to report the failed bank")
	}
	if len(messenger.sent) != 0 {
		t.Errorf("pushes sent = %d, want 0", len(messenger.sent))
	}
}

func TestUserSyncJob_ReadySyncSendsCompletionPush(t *testing.T) {
	banks := []*bank.Bank{{ID: 1, UserID: 42, Name: "Monzo", RequisitionID: reqID("req-1")}}
	agg := &syncAggregator{
		GetRequisitionFunc: func(ctx context.Context, id string) (*aggregator.Requisition, error) {
			return &aggregator.Requisition{ID: id, Status: aggregator.RequisitionLinked, Accounts: []string{"acc-1"}}, nil
		},
	}

	job, messenger := newJobUnderTest(banks, agg)
	if err := job.Execute(context.Background()); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(messenger.sent) != 1 {
		t.Fatalf("pushes sent = %d, want 1", len(messenger.sent))
	}
	if got := messenger.sent[0]["type"]; got != "sync_complete" {
		t.Errorf("push type = %q, want sync_complete", got)
	}
}
