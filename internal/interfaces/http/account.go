package http

import (
	"errors"
	"net/http"
	"strconv"

	"moneta/internal/domain/account"
	"moneta/internal/shared/logger"
	"moneta/internal/shared/middleware"
)

type AccountHandler struct {
	accountRepo account.Repository
}

func NewAccountHandler(accountRepo account.Repository) *AccountHandler {
	return &AccountHandler{accountRepo: accountRepo}
}

// HandleListAccounts returns all synced accounts for the authenticated user
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var accounts []*account.Account
	var err error
	if raw := r.URL.Query().Get("bankId"); raw != "" {
		bankID, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			http.Error(w, "Invalid bankId", http.StatusBadRequest)
			return
		}
		accounts, err = h.accountRepo.ListByBankID(r.Context(), bankID)
	} else {
		accounts, err = h.accountRepo.ListByUserID(r.Context(), userID)
	}
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list accounts")
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}

	// A bankId belonging to another user yields an empty list, not a leak.
	owned := make([]*account.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.UserID == userID {
			owned = append(owned, a)
		}
	}
	respondJSON(w, http.StatusOK, owned)
}

// HandleGetAccount returns a single account with its balance snapshot
func (h *AccountHandler) HandleGetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	a, err := h.accountRepo.GetByID(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			http.Error(w, "Account not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Str("account_id", accountID).Msg("failed to get account")
		http.Error(w, "Failed to get account", http.StatusInternalServerError)
		return
	}
	if a.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	respondJSON(w, http.StatusOK, a)
}
