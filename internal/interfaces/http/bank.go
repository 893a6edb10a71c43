package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"moneta/internal/domain/bank"
	"moneta/internal/domain/banksync"
	"moneta/internal/shared/logger"
	"moneta/internal/shared/middleware"
)

type BankHandler struct {
	banks          *bank.Service
	sync           *banksync.Service
	defaultCountry string
}

func NewBankHandler(banks *bank.Service, sync *banksync.Service, defaultCountry string) *BankHandler {
	return &BankHandler{banks: banks, sync: sync, defaultCountry: defaultCountry}
}

type LinkBankRequest struct {
	InstitutionID string `json:"institutionId"`
}

type BankResponse struct {
	ID            int64          `json:"id"`
	InstitutionID string         `json:"institutionId"`
	Name          string         `json:"name"`
	Logo          string         `json:"logo,omitempty"`
	BIC           string         `json:"bic,omitempty"`
	State         bank.SyncState `json:"state,omitempty"`
	Link          string         `json:"link,omitempty"`
}

func toBankResponse(b *bank.Bank, status *bank.ConsentStatus) BankResponse {
	resp := BankResponse{
		ID:            b.ID,
		InstitutionID: b.InstitutionID,
		Name:          b.Name,
		Logo:          b.Logo,
		BIC:           b.BIC,
	}
	if status != nil {
		resp.State = status.State
		resp.Link = status.Link
	}
	return resp
}

// HandleListInstitutions returns the institutions available for linking.
// An optional ?country= overrides the configured default.
func (h *BankHandler) HandleListInstitutions(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		country = h.defaultCountry
	}

	institutions, err := h.banks.ListInstitutions(r.Context(), country)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Str("country", country).Msg("failed to list institutions")
		http.Error(w, "Failed to list institutions", http.StatusBadGateway)
		return
	}

	respondJSON(w, http.StatusOK, institutions)
}

// HandleListBanks returns all banks linked by the authenticated user
func (h *BankHandler) HandleListBanks(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	banks, err := h.banks.ListBanks(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list banks")
		http.Error(w, "Failed to list banks", http.StatusInternalServerError)
		return
	}

	response := make([]BankResponse, 0, len(banks))
	for _, b := range banks {
		response = append(response, toBankResponse(b, nil))
	}
	respondJSON(w, http.StatusOK, response)
}

// HandleGetBank returns a single linked bank
func (h *BankHandler) HandleGetBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bankID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid bank ID", http.StatusBadRequest)
		return
	}

	b, err := h.banks.GetBank(r.Context(), bankID, userID)
	if err != nil {
		switch {
		case errors.Is(err, bank.ErrBankNotFound):
			http.Error(w, "Bank not found", http.StatusNotFound)
		case errors.Is(err, bank.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			logger.FromContext(r.Context()).Error().Err(err).Int64("bank_id", bankID).Msg("failed to get bank")
			http.Error(w, "Failed to get bank", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, toBankResponse(b, nil))
}

// HandleLinkBank registers an institution and returns the consent link the
// user must visit before any data can be fetched
func (h *BankHandler) HandleLinkBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req LinkBankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InstitutionID == "" {
		http.Error(w, "institutionId is required", http.StatusBadRequest)
		return
	}

	b, status, err := h.banks.LinkBank(r.Context(), userID, req.InstitutionID)
	if err != nil {
		switch {
		case errors.Is(err, bank.ErrInstitutionNotFound):
			http.Error(w, "Institution not found", http.StatusNotFound)
		case errors.Is(err, bank.ErrAlreadyLinked):
			http.Error(w, "Institution already linked", http.StatusConflict)
		default:
			logger.FromContext(r.Context()).Error().Err(err).Str("institution_id", req.InstitutionID).Msg("failed to link bank")
			http.Error(w, "Failed to link bank", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusCreated, toBankResponse(b, status))
}

// HandleConsentCallback is where the aggregator redirects the user after the
// consent flow. It resolves the bank by requisition reference and sends the
// user back to the app.
func (h *BankHandler) HandleConsentCallback(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		http.Error(w, "ref is required", http.StatusBadRequest)
		return
	}

	b, err := h.banks.FinalizeConsent(r.Context(), ref)
	if err != nil {
		if errors.Is(err, bank.ErrBankNotFound) {
			http.Error(w, "Unknown consent reference", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("consent callback failed")
		http.Error(w, "Consent callback failed", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/banks/"+strconv.FormatInt(b.ID, 10), http.StatusFound)
}

// HandleSyncBank triggers an on-demand sync for one bank and returns the
// per-account report
func (h *BankHandler) HandleSyncBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bankID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid bank ID", http.StatusBadRequest)
		return
	}

	report, err := h.sync.SyncBank(r.Context(), bankID, userID)
	if err != nil {
		switch {
		case errors.Is(err, bank.ErrBankNotFound):
			http.Error(w, "Bank not found", http.StatusNotFound)
		case errors.Is(err, bank.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			logger.FromContext(r.Context()).Error().Err(err).Int64("bank_id", bankID).Msg("sync failed")
			http.Error(w, "Sync failed", http.StatusBadGateway)
		}
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// HandleDeleteBank unlinks a bank; its accounts and transactions go with it
func (h *BankHandler) HandleDeleteBank(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bankID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid bank ID", http.StatusBadRequest)
		return
	}

	if err := h.banks.RemoveBank(r.Context(), bankID, userID); err != nil {
		switch {
		case errors.Is(err, bank.ErrBankNotFound):
			http.Error(w, "Bank not found", http.StatusNotFound)
		case errors.Is(err, bank.ErrForbidden):
			http.Error(w, "Forbidden", http.StatusForbidden)
		default:
			logger.FromContext(r.Context()).Error().Err(err).Int64("bank_id", bankID).Msg("failed to delete bank")
			http.Error(w, "Failed to delete bank", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
