// Package bank holds linked institutions and their aggregator consents.
package bank

import (
	"errors"
	"time"
)

var (
	ErrBankNotFound        = errors.New("bank not found")
	ErrInstitutionNotFound = errors.New("institution not found")
	ErrForbidden           = errors.New("forbidden: bank does not belong to user")
	ErrAlreadyLinked       = errors.New("institution already linked")
	ErrConsentLinkMissing  = errors.New("aggregator returned consent without authorization link")
)

// SyncState describes how far a linked bank is from being syncable.
// needs_consent means a previously working consent lapsed and the user must
// re-authorize; consent_pending means the link flow was started but never
// finished; error marks a sync attempt that failed outright.
type SyncState string

const (
	StateNeedsConsent   SyncState = "needs_consent"
	StateConsentPending SyncState = "consent_pending"
	StateReady          SyncState = "ready"
	StateError          SyncState = "error"
)

// Bank is a linked institution. InstitutionID is the aggregator's
// institution identifier, unique per user, not globally.
type Bank struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"-"`
	InstitutionID string    `json:"institutionId"`
	Name          string    `json:"name"`
	Logo          string    `json:"logo,omitempty"`
	BIC           string    `json:"bic,omitempty"`
	RequisitionID *string   `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateBankParams struct {
	UserID        int64
	InstitutionID string
	Name          string
	Logo          string
	BIC           string
}

func (p *CreateBankParams) Validate() error {
	if p.InstitutionID == "" {
		return errors.New("institutionId is required")
	}
	return nil
}

// ConsentStatus is the outcome of ensuring a bank has an active consent.
// When Link is non-empty the caller must redirect the user there; data
// fetching is not attempted until the consent reaches linked state.
type ConsentStatus struct {
	State         SyncState `json:"state"`
	RequisitionID string    `json:"-"`
	AccountIDs    []string  `json:"-"`
	Link          string    `json:"link,omitempty"`
}
