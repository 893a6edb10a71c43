package account

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrForbidden       = errors.New("forbidden: account does not belong to user")
)

// Balance is one balance snapshot entry. The whole list is overwritten on
// every sync; no balance history is kept.
type Balance struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Type     string          `json:"type"`
	AsOfDate string          `json:"asOfDate,omitempty"`
}

// Account is keyed by the aggregator's account identifier.
type Account struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"-"`
	BankID    int64     `json:"bankId"`
	Name      string    `json:"name"`
	OwnerName string    `json:"ownerName,omitempty"`
	IBAN      string    `json:"iban,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Balances  []Balance `json:"balances"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UpsertParams struct {
	ID        string
	UserID    int64
	BankID    int64
	Name      string
	OwnerName string
	IBAN      string
	Currency  string
	Balances  []Balance
}

func (p *UpsertParams) Validate() error {
	if p.ID == "" {
		return errors.New("account id is required")
	}
	if p.BankID == 0 {
		return errors.New("bank id is required")
	}
	return nil
}
