package transaction

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrForbidden           = errors.New("forbidden: transaction does not belong to user")
)

// Transaction statuses.
const (
	StatusBooked  = "booked"
	StatusPending = "pending"
)

// Classification tags.
const (
	SpendingFixed    = "fixed"
	SpendingVariable = "variable"

	ClassWant = "want"
	ClassNeed = "need"
)

// Transaction is keyed by the remote transaction identifier, or a synthetic
// hash of the row content when the remote system provides none. The
// identifier is stable across repeated syncs of the same remote event.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       int64           `json:"-"`
	BankID       int64           `json:"bankId"`
	AccountID    string          `json:"accountId"`
	Status       string          `json:"status"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	BookingDate  *time.Time      `json:"bookingDate,omitempty"`
	ValueDate    *time.Time      `json:"valueDate,omitempty"`
	CreditorName string          `json:"creditorName,omitempty"`
	DebtorName   string          `json:"debtorName,omitempty"`
	Description  string          `json:"description"`

	CategoryID          *int64 `json:"categoryId,omitempty"`
	ManuallyCategorized bool   `json:"manuallyCategorized"`
	SpendingType        *string `json:"spendingType,omitempty"`
	WantOrNeed          *string `json:"wantOrNeed,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpsertParams carries the sync payload for one transaction. It deliberately
// excludes category and classification columns so a re-sync can never touch
// a user's categorization.
type UpsertParams struct {
	ID           string
	UserID       int64
	BankID       int64
	AccountID    string
	Status       string
	Amount       decimal.Decimal
	Currency     string
	BookingDate  *time.Time
	ValueDate    *time.Time
	CreditorName string
	DebtorName   string
	Description  string
}

func (p *UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("transaction id is required")
	}
	if p.AccountID == "" {
		return errors.New("account id is required")
	}
	if p.Status != StatusBooked && p.Status != StatusPending {
		return errors.New("status must be booked or pending")
	}
	return nil
}

// UpdateParams sets user-controlled fields. A non-nil CategoryID pointing at
// zero clears the category. Setting a category marks the transaction as
// manually categorized, which the suggestion engine never overrides.
type UpdateParams struct {
	CategoryID   *int64
	SpendingType *string
	WantOrNeed   *string
}

func (p *UpdateParams) Validate() error {
	if p.SpendingType != nil && *p.SpendingType != SpendingFixed && *p.SpendingType != SpendingVariable {
		return errors.New("spendingType must be fixed or variable")
	}
	if p.WantOrNeed != nil && *p.WantOrNeed != ClassWant && *p.WantOrNeed != ClassNeed {
		return errors.New("wantOrNeed must be want or need")
	}
	return nil
}

// IsEmpty reports whether no fields would change.
func (p *UpdateParams) IsEmpty() bool {
	return p.CategoryID == nil && p.SpendingType == nil && p.WantOrNeed == nil
}
