package bank

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"moneta/internal/infrastructure/aggregator"
)

// Service contains the business logic for bank linking and consent handling
type Service struct {
	repo       Repository
	aggregator aggregator.ClientInterface
	redirect   string
}

// NewService creates a new bank service. redirectURL is where the aggregator
// sends the user back after the consent flow.
func NewService(repo Repository, client aggregator.ClientInterface, redirectURL string) *Service {
	return &Service{repo: repo, aggregator: client, redirect: redirectURL}
}

// ListInstitutions returns the institutions available for linking in a country
func (s *Service) ListInstitutions(ctx context.Context, country string) ([]aggregator.Institution, error) {
	return s.aggregator.ListInstitutions(ctx, country)
}

// LinkBank registers an institution for the user and starts the consent flow.
// It returns the bank record together with the consent link the user must
// visit to authorize access.
func (s *Service) LinkBank(ctx context.Context, userID int64, institutionID string) (*Bank, *ConsentStatus, error) {
	existing, err := s.repo.GetByInstitution(ctx, userID, institutionID)
	if err != nil && !errors.Is(err, ErrBankNotFound) {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrAlreadyLinked
	}

	inst, err := s.aggregator.GetInstitution(ctx, institutionID)
	if err != nil {
		if errors.Is(err, aggregator.ErrNotFound) {
			return nil, nil, ErrInstitutionNotFound
		}
		return nil, nil, err
	}

	bank, err := s.repo.Create(ctx, CreateBankParams{
		UserID:        userID,
		InstitutionID: inst.ID,
		Name:          inst.Name,
		Logo:          inst.Logo,
		BIC:           inst.BIC,
	})
	if err != nil {
		return nil, nil, err
	}

	status, err := s.EnsureConsent(ctx, bank)
	if err != nil {
		return nil, nil, err
	}
	return bank, status, nil
}

// EnsureConsent checks the consent state for a bank and creates a fresh
// requisition when none exists or the previous one expired. Expired consents
// are never reused; the caller gets a new link instead of account access.
// The reported state distinguishes a lapsed consent (needs_consent) from one
// the user never finished authorizing (consent_pending).
func (s *Service) EnsureConsent(ctx context.Context, bank *Bank) (*ConsentStatus, error) {
	if bank.RequisitionID == nil || *bank.RequisitionID == "" {
		return s.createRequisition(ctx, bank, StateConsentPending)
	}

	req, err := s.aggregator.GetRequisition(ctx, *bank.RequisitionID)
	if err != nil {
		if errors.Is(err, aggregator.ErrNotFound) {
			// The requisition existed once; its disappearance means access
			// lapsed and the user has to re-authorize.
			return s.createRequisition(ctx, bank, StateNeedsConsent)
		}
		return nil, fmt.Errorf("fetching requisition: %w", err)
	}

	switch req.Status {
	case aggregator.RequisitionLinked:
		return &ConsentStatus{
			State:         StateReady,
			RequisitionID: req.ID,
			AccountIDs:    req.Accounts,
		}, nil
	case aggregator.RequisitionExpired:
		return s.createRequisition(ctx, bank, StateNeedsConsent)
	default:
		// Created but not yet authorized; hand back the same link.
		if req.Link == "" {
			return nil, ErrConsentLinkMissing
		}
		return &ConsentStatus{
			State:         StateConsentPending,
			RequisitionID: req.ID,
			Link:          req.Link,
		}, nil
	}
}

func (s *Service) createRequisition(ctx context.Context, bank *Bank, state SyncState) (*ConsentStatus, error) {
	req, err := s.aggregator.CreateRequisition(ctx, aggregator.RequisitionParams{
		InstitutionID: bank.InstitutionID,
		Redirect:      s.redirect,
		Reference:     uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating requisition: %w", err)
	}
	if req.Link == "" {
		return nil, ErrConsentLinkMissing
	}

	if err := s.repo.SetRequisitionID(ctx, bank.ID, req.ID); err != nil {
		return nil, fmt.Errorf("persisting requisition id: %w", err)
	}
	bank.RequisitionID = &req.ID

	return &ConsentStatus{
		State:         state,
		RequisitionID: req.ID,
		Link:          req.Link,
	}, nil
}

// FinalizeConsent resolves the bank a requisition reference belongs to after
// the user returns from the consent flow.
func (s *Service) FinalizeConsent(ctx context.Context, requisitionID string) (*Bank, error) {
	bank, err := s.repo.GetByRequisitionRef(ctx, requisitionID)
	if err != nil {
		return nil, err
	}
	return bank, nil
}

// GetBank retrieves a bank by ID and verifies user ownership
func (s *Service) GetBank(ctx context.Context, bankID, userID int64) (*Bank, error) {
	bank, err := s.repo.GetByID(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if bank.UserID != userID {
		return nil, ErrForbidden
	}
	return bank, nil
}

// ListBanks retrieves all banks linked by a user
func (s *Service) ListBanks(ctx context.Context, userID int64) ([]*Bank, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// RemoveBank unlinks a bank. The remote requisition is deleted first so the
// consent is revoked at the aggregator; local accounts and transactions go
// with the bank row.
func (s *Service) RemoveBank(ctx context.Context, bankID, userID int64) error {
	bank, err := s.GetBank(ctx, bankID, userID)
	if err != nil {
		return err
	}

	if bank.RequisitionID != nil && *bank.RequisitionID != "" {
		if err := s.aggregator.DeleteRequisition(ctx, *bank.RequisitionID); err != nil && !errors.Is(err, aggregator.ErrNotFound) {
			return fmt.Errorf("revoking consent: %w", err)
		}
	}

	return s.repo.Delete(ctx, bankID)
}
