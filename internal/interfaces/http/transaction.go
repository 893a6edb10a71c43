package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"moneta/internal/domain/category"
	"moneta/internal/domain/transaction"
	"moneta/internal/shared/logger"
	"moneta/internal/shared/middleware"
)

const suggestionScanLimit = 500

type TransactionHandler struct {
	txRepo       transaction.Repository
	categoryRepo category.Repository
}

func NewTransactionHandler(txRepo transaction.Repository, categoryRepo category.Repository) *TransactionHandler {
	return &TransactionHandler{txRepo: txRepo, categoryRepo: categoryRepo}
}

type UpdateTransactionRequest struct {
	CategoryID   *int64  `json:"categoryId,omitempty"`
	SpendingType *string `json:"spendingType,omitempty"`
	WantOrNeed   *string `json:"wantOrNeed,omitempty"`
}

type ApplySuggestionsRequest struct {
	Suggestions []category.Suggestion `json:"suggestions"`
}

type ApplySuggestionsResponse struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

type BulkCategorizeRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	CategoryID     *int64   `json:"categoryId,omitempty"`
	SpendingType   *string  `json:"spendingType,omitempty"`
	WantOrNeed     *string  `json:"wantOrNeed,omitempty"`
}

type BulkCategorizeResponse struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// HandleListTransactions returns one fixed-size page of the user's
// transactions, newest first. Supported filters: account, bank, category
// (0 selects uncategorized rows), status. Out-of-range pages clamp.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := transaction.ListFilter{
		AccountID: q.Get("account"),
		Status:    q.Get("status"),
	}
	if v := q.Get("bank"); v != "" {
		bankID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid bank filter", http.StatusBadRequest)
			return
		}
		filter.BankID = bankID
	}
	if v := q.Get("category"); v != "" {
		categoryID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "Invalid category filter", http.StatusBadRequest)
			return
		}
		filter.CategoryID = &categoryID
	}

	requestedPage := 1
	if v := q.Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid page", http.StatusBadRequest)
			return
		}
		requestedPage = p
	}

	// A first pass with the requested offset would race the count; resolve
	// the page number against the total before reading rows.
	_, total, err := h.txRepo.ListPage(r.Context(), userID, filter, 0, 0)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to count transactions")
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}

	page, totalPages := transaction.NormalizePage(requestedPage, total, transaction.DefaultPageSize)
	items, total, err := h.txRepo.ListPage(r.Context(), userID, filter,
		transaction.Offset(page, transaction.DefaultPageSize), transaction.DefaultPageSize)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list transactions")
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []transaction.Transaction{}
	}

	respondJSON(w, http.StatusOK, transaction.Page{
		Items:      items,
		Page:       page,
		PageSize:   transaction.DefaultPageSize,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

// HandleTransactionByID serves GET and PATCH for a single transaction
func (h *TransactionHandler) HandleTransactionByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGetTransaction(w, r)
	case http.MethodPatch:
		h.handleUpdateTransaction(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	t, ok := h.fetchOwned(w, r, userID)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// handleUpdateTransaction applies user edits. Setting a category here marks
// the transaction as manually categorized, which syncs never override.
func (h *TransactionHandler) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	t, ok := h.fetchOwned(w, r, userID)
	if !ok {
		return
	}

	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.CategoryID != nil && *req.CategoryID != 0 {
		c, err := h.categoryRepo.GetByID(r.Context(), *req.CategoryID)
		if err != nil {
			if errors.Is(err, category.ErrCategoryNotFound) {
				http.Error(w, "Category not found", http.StatusNotFound)
				return
			}
			logger.FromContext(r.Context()).Error().Err(err).Msg("failed to get category")
			http.Error(w, "Failed to update transaction", http.StatusInternalServerError)
			return
		}
		if c.UserID != userID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	params := transaction.UpdateParams{
		CategoryID:   req.CategoryID,
		SpendingType: req.SpendingType,
		WantOrNeed:   req.WantOrNeed,
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.txRepo.Update(r.Context(), userID, t.ID, params)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Str("transaction_id", t.ID).Msg("failed to update transaction")
		http.Error(w, "Failed to update transaction", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// HandleSuggestions computes keyword suggestions for the user's
// uncategorized transactions without applying them
func (h *TransactionHandler) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categories, err := h.categoryRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list categories")
		http.Error(w, "Failed to compute suggestions", http.StatusInternalServerError)
		return
	}

	accountID := r.URL.Query().Get("accountId")

	suggestions := []category.Suggestion{}
	if len(categories) > 0 {
		transactions, err := h.txRepo.ListUncategorized(r.Context(), userID, suggestionScanLimit)
		if err != nil {
			logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list uncategorized transactions")
			http.Error(w, "Failed to compute suggestions", http.StatusInternalServerError)
			return
		}

		for _, t := range transactions {
			if accountID != "" && t.AccountID != accountID {
				continue
			}
			match, keyword := category.Match(categories, t.Description)
			if match == nil {
				continue
			}
			suggestions = append(suggestions, category.Suggestion{
				TransactionID: t.ID,
				CategoryID:    match.ID,
				CategoryName:  match.Name,
				Keyword:       keyword,
			})
		}
	}

	respondJSON(w, http.StatusOK, suggestions)
}

// HandleApplySuggestions applies accepted suggestions. Rows that were
// categorized in the meantime are skipped, never overwritten.
func (h *TransactionHandler) HandleApplySuggestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ApplySuggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var resp ApplySuggestionsResponse
	for _, s := range req.Suggestions {
		if _, err := h.txRepo.GetByID(r.Context(), userID, s.TransactionID); err != nil {
			resp.Skipped++
			continue
		}
		c, err := h.categoryRepo.GetByID(r.Context(), s.CategoryID)
		if err != nil || c.UserID != userID {
			resp.Skipped++
			continue
		}

		changed, err := h.txRepo.SetSuggestedCategory(r.Context(), userID, s.TransactionID, s.CategoryID)
		if err != nil {
			logger.FromContext(r.Context()).Warn().Err(err).Str("transaction_id", s.TransactionID).Msg("suggestion apply failed")
			resp.Skipped++
			continue
		}
		if changed {
			resp.Applied++
		} else {
			resp.Skipped++
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// HandleBulkCategorize assigns the same category (and optional
// classification tags) to many transactions at once. Each assignment counts
// as a manual choice. Rows the user does not own are skipped.
func (h *TransactionHandler) HandleBulkCategorize(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req BulkCategorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.TransactionIDs) == 0 {
		http.Error(w, "transactionIds is required", http.StatusBadRequest)
		return
	}

	params := transaction.UpdateParams{
		CategoryID:   req.CategoryID,
		SpendingType: req.SpendingType,
		WantOrNeed:   req.WantOrNeed,
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if params.IsEmpty() {
		http.Error(w, "Nothing to update", http.StatusBadRequest)
		return
	}

	if req.CategoryID != nil && *req.CategoryID != 0 {
		c, err := h.categoryRepo.GetByID(r.Context(), *req.CategoryID)
		if err != nil {
			if errors.Is(err, category.ErrCategoryNotFound) {
				http.Error(w, "Category not found", http.StatusNotFound)
				return
			}
			logger.FromContext(r.Context()).Error().Err(err).Msg("failed to get category")
			http.Error(w, "Failed to categorize transactions", http.StatusInternalServerError)
			return
		}
		if c.UserID != userID {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	var resp BulkCategorizeResponse
	for _, id := range req.TransactionIDs {
		t, err := h.txRepo.GetByID(r.Context(), userID, id)
		if err != nil {
			resp.Skipped++
			continue
		}
		if _, err := h.txRepo.Update(r.Context(), userID, t.ID, params); err != nil {
			logger.FromContext(r.Context()).Warn().Err(err).Str("transaction_id", id).Msg("bulk categorize failed for row")
			resp.Skipped++
			continue
		}
		resp.Updated++
	}

	respondJSON(w, http.StatusOK, resp)
}

// fetchOwned loads a transaction scoped to the user, writing the error
// response itself. Another user's transaction reads as not found.
func (h *TransactionHandler) fetchOwned(w http.ResponseWriter, r *http.Request, userID int64) (*transaction.Transaction, bool) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "Transaction ID is required", http.StatusBadRequest)
		return nil, false
	}

	t, err := h.txRepo.GetByID(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, transaction.ErrTransactionNotFound) {
			http.Error(w, "Transaction not found", http.StatusNotFound)
			return nil, false
		}
		logger.FromContext(r.Context()).Error().Err(err).Str("transaction_id", id).Msg("failed to get transaction")
		http.Error(w, "Failed to get transaction", http.StatusInternalServerError)
		return nil, false
	}
	return t, true
}
