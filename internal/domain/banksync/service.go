// Package banksync pulls account and transaction data from the aggregator
// into local storage for linked banks.
package banksync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"moneta/internal/domain/account"
	"moneta/internal/domain/bank"
	"moneta/internal/domain/category"
	"moneta/internal/domain/transaction"
	"moneta/internal/infrastructure/aggregator"
)

// upsertConcurrency bounds how many transaction upserts run at once.
const upsertConcurrency = 5

// AccountReport is the outcome of syncing a single remote account. A failed
// account carries its error here; it never aborts the other accounts.
type AccountReport struct {
	AccountID         string `json:"accountId"`
	TransactionsFound int    `json:"transactionsFound"`
	Upserted          int    `json:"upserted"`
	Suggested         int    `json:"suggested"`
	Error             string `json:"error,omitempty"`
}

// Report is the outcome of syncing one bank. When consent is missing or
// expired, State and Link tell the caller what to do and Accounts is empty.
type Report struct {
	BankID   int64           `json:"bankId"`
	BankName string          `json:"bankName"`
	State    bank.SyncState  `json:"state"`
	Link     string          `json:"link,omitempty"`
	Accounts []AccountReport `json:"accounts,omitempty"`
}

// Service orchestrates the sync pipeline for linked banks
type Service struct {
	banks        *bank.Service
	aggregator   aggregator.ClientInterface
	accountRepo  account.Repository
	txRepo       transaction.Repository
	categoryRepo category.Repository
	logger       zerolog.Logger
}

// NewService creates a new sync service
func NewService(
	banks *bank.Service,
	client aggregator.ClientInterface,
	accountRepo account.Repository,
	txRepo transaction.Repository,
	categoryRepo category.Repository,
	logger zerolog.Logger,
) *Service {
	return &Service{
		banks:        banks,
		aggregator:   client,
		accountRepo:  accountRepo,
		txRepo:       txRepo,
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

// SyncBank refreshes accounts and transactions for one bank. When the consent
// is pending or was recreated after expiry, no data is fetched and the report
// carries the authorization link instead.
func (s *Service) SyncBank(ctx context.Context, bankID, userID int64) (*Report, error) {
	b, err := s.banks.GetBank(ctx, bankID, userID)
	if err != nil {
		return nil, err
	}

	status, err := s.banks.EnsureConsent(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("ensuring consent for bank %d: %w", b.ID, err)
	}

	report := &Report{BankID: b.ID, BankName: b.Name, State: status.State, Link: status.Link}
	if status.State != bank.StateReady {
		s.logger.Info().
			Int64("bank_id", b.ID).
			Str("state", string(status.State)).
			Msg("consent not ready, skipping fetch")
		return report, nil
	}

	categories, err := s.categoryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	var g errgroup.Group
	reports := make([]AccountReport, len(status.AccountIDs))
	for i, accountID := range status.AccountIDs {
		g.Go(func() error {
			reports[i] = s.syncAccount(ctx, b, accountID, categories)
			return nil
		})
	}
	// Account failures land in the per-account report, never here.
	_ = g.Wait()

	report.Accounts = reports

	s.logger.Info().
		Int64("bank_id", b.ID).
		Int("accounts", len(reports)).
		Msg("bank sync completed")
	return report, nil
}

// SyncUserBanks syncs every bank linked by the user. A failing bank does not
// stop the others; its report records the failure state.
func (s *Service) SyncUserBanks(ctx context.Context, userID int64) ([]*Report, error) {
	banks, err := s.banks.ListBanks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing banks: %w", err)
	}

	reports := make([]*Report, 0, len(banks))
	for _, b := range banks {
		report, err := s.SyncBank(ctx, b.ID, userID)
		if err != nil {
			s.logger.Error().Err(err).Int64("bank_id", b.ID).Msg("bank sync failed")
			reports = append(reports, &Report{
				BankID:   b.ID,
				BankName: b.Name,
				State:    bank.StateError,
				Accounts: []AccountReport{{Error: err.Error()}},
			})
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// syncAccount fetches details, balances and new transactions for one remote
// account. Details and balances are fetched concurrently; transactions are
// fetched from the last stored value date forward.
func (s *Service) syncAccount(ctx context.Context, b *bank.Bank, accountID string, categories []*category.Category) AccountReport {
	report := AccountReport{AccountID: accountID}

	var (
		details  *aggregator.AccountDetails
		balances []aggregator.Balance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details, err = s.aggregator.GetAccountDetails(gctx, accountID)
		if err != nil {
			return fmt.Errorf("fetching details: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		balances, err = s.aggregator.GetAccountBalances(gctx, accountID)
		if err != nil {
			return fmt.Errorf("fetching balances: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		report.Error = err.Error()
		return report
	}

	if _, err := s.accountRepo.Upsert(ctx, account.UpsertParams{
		ID:        accountID,
		UserID:    b.UserID,
		BankID:    b.ID,
		Name:      accountName(details, b.Name),
		OwnerName: details.OwnerName,
		IBAN:      details.IBAN,
		Currency:  details.Currency,
		Balances:  mapBalances(balances),
	}); err != nil {
		report.Error = fmt.Sprintf("storing account: %v", err)
		return report
	}

	fromDate, err := s.cursorFor(ctx, accountID)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	page, err := s.aggregator.GetAccountTransactions(ctx, accountID, fromDate)
	if err != nil {
		report.Error = fmt.Sprintf("fetching transactions: %v", err)
		return report
	}

	rows := make([]transaction.UpsertParams, 0, len(page.Booked)+len(page.Pending))
	for _, tx := range page.Booked {
		params, err := mapTransaction(&tx, b, accountID, transaction.StatusBooked)
		if err != nil {
			s.logger.Warn().Err(err).Str("account_id", accountID).Msg("skipping malformed transaction")
			continue
		}
		rows = append(rows, params)
	}
	for _, tx := range page.Pending {
		params, err := mapTransaction(&tx, b, accountID, transaction.StatusPending)
		if err != nil {
			s.logger.Warn().Err(err).Str("account_id", accountID).Msg("skipping malformed transaction")
			continue
		}
		rows = append(rows, params)
	}
	report.TransactionsFound = len(rows)

	upserted, err := s.upsertBatch(ctx, rows)
	report.Upserted = upserted
	if err != nil {
		report.Error = fmt.Sprintf("storing transactions: %v", err)
		return report
	}

	report.Suggested = s.suggestCategories(ctx, rows, categories)
	return report
}

// cursorFor returns the date_from value for an account, empty on first sync.
func (s *Service) cursorFor(ctx context.Context, accountID string) (string, error) {
	latest, err := s.txRepo.LatestValueDate(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("reading sync cursor: %w", err)
	}
	if latest == nil {
		return "", nil
	}
	return latest.Format("2006-01-02"), nil
}

// upsertBatch writes rows with bounded concurrency. Upserts are idempotent,
// so a partial failure is healed by the next sync rather than rolled back.
func (s *Service) upsertBatch(ctx context.Context, rows []transaction.UpsertParams) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertConcurrency)

	done := make([]bool, len(rows))
	for i, row := range rows {
		g.Go(func() error {
			if err := s.txRepo.Upsert(gctx, row); err != nil {
				return fmt.Errorf("upserting transaction %s: %w", row.ID, err)
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	upserted := 0
	for _, ok := range done {
		if ok {
			upserted++
		}
	}
	return upserted, err
}

// suggestCategories applies the keyword engine to freshly synced rows. The
// repository only writes the suggestion when the row is still uncategorized
// and was never categorized by hand.
func (s *Service) suggestCategories(ctx context.Context, rows []transaction.UpsertParams, categories []*category.Category) int {
	if len(categories) == 0 {
		return 0
	}

	applied := 0
	for _, row := range rows {
		match, keyword := category.Match(categories, row.Description)
		if match == nil {
			continue
		}
		changed, err := s.txRepo.SetSuggestedCategory(ctx, row.UserID, row.ID, match.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("transaction_id", row.ID).Msg("suggestion write failed")
			continue
		}
		if changed {
			applied++
			s.logger.Debug().
				Str("transaction_id", row.ID).
				Int64("category_id", match.ID).
				Str("keyword", keyword).
				Msg("category suggested")
		}
	}
	return applied
}

func accountName(details *aggregator.AccountDetails, fallback string) string {
	if details.Name != "" {
		return details.Name
	}
	if details.Product != "" {
		return details.Product
	}
	return fallback
}

func mapBalances(in []aggregator.Balance) []account.Balance {
	out := make([]account.Balance, 0, len(in))
	for _, b := range in {
		amount, err := b.BalanceAmount.Decimal()
		if err != nil {
			continue
		}
		out = append(out, account.Balance{
			Amount:   amount,
			Currency: b.BalanceAmount.Currency,
			Type:     b.BalanceType,
			AsOfDate: b.ReferenceDate,
		})
	}
	return out
}

// mapTransaction converts a remote row into upsert params. Remote ids are
// preferred; rows without any id get a synthetic one derived from the row's
// content, so re-fetching the same row maps to the same primary key.
func mapTransaction(tx *aggregator.Transaction, b *bank.Bank, accountID, status string) (transaction.UpsertParams, error) {
	amount, err := tx.TransactionAmount.Decimal()
	if err != nil {
		return transaction.UpsertParams{}, err
	}

	bookingDate, err := tx.GetBookingDate()
	if err != nil {
		return transaction.UpsertParams{}, err
	}
	valueDate, err := tx.GetValueDate()
	if err != nil {
		return transaction.UpsertParams{}, err
	}

	id := tx.TransactionID
	if id == "" {
		id = tx.InternalTransactionID
	}
	if id == "" {
		id = syntheticID(accountID, tx)
	}

	return transaction.UpsertParams{
		ID:           id,
		UserID:       b.UserID,
		BankID:       b.ID,
		AccountID:    accountID,
		Status:       status,
		Amount:       amount,
		Currency:     tx.TransactionAmount.Currency,
		BookingDate:  bookingDate,
		ValueDate:    valueDate,
		CreditorName: tx.CreditorName,
		DebtorName:   tx.DebtorName,
		Description:  description(tx),
	}, nil
}

// syntheticID hashes the fields that identify a remote row. Two distinct
// same-day rows with identical amount and description would collide, which
// the upsert resolves as a refresh of the same row.
func syntheticID(accountID string, tx *aggregator.Transaction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%s|%s",
		accountID,
		tx.BookingDate,
		tx.ValueDate,
		tx.TransactionAmount.Amount,
		tx.TransactionAmount.Currency,
		tx.CreditorName,
		tx.DebtorName,
		tx.RemittanceInformationUnstructured,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func description(tx *aggregator.Transaction) string {
	if tx.RemittanceInformationUnstructured != "" {
		return tx.RemittanceInformationUnstructured
	}
	if tx.CreditorName != "" {
		return tx.CreditorName
	}
	return tx.DebtorName
}
