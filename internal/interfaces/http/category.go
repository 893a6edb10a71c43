package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"moneta/internal/domain/category"
	"moneta/internal/shared/logger"
	"moneta/internal/shared/middleware"
)

type CategoryHandler struct {
	categoryRepo category.Repository
}

func NewCategoryHandler(categoryRepo category.Repository) *CategoryHandler {
	return &CategoryHandler{categoryRepo: categoryRepo}
}

type CreateCategoryRequest struct {
	Name     string   `json:"name"`
	Color    string   `json:"color"`
	Keywords []string `json:"keywords"`
}

type UpdateCategoryRequest struct {
	Name     *string   `json:"name,omitempty"`
	Color    *string   `json:"color,omitempty"`
	Keywords *[]string `json:"keywords,omitempty"`
}

// HandleCategories routes collection requests by method
func (h *CategoryHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListCategories(w, r)
	case http.MethodPost:
		h.handleCreateCategory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCategoryByID routes requests for a specific category
func (h *CategoryHandler) HandleCategoryByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.handleUpdateCategory(w, r)
	case http.MethodDelete:
		h.handleDeleteCategory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *CategoryHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categories, err := h.categoryRepo.ListByUserID(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to list categories")
		http.Error(w, "Failed to list categories", http.StatusInternalServerError)
		return
	}

	if categories == nil {
		categories = []*category.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := category.CreateCategoryParams{
		Name:     req.Name,
		Color:    req.Color,
		Keywords: req.Keywords,
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.categoryRepo.Create(r.Context(), userID, params)
	if err != nil {
		if errors.Is(err, category.ErrDuplicateName) {
			http.Error(w, "Category name already exists", http.StatusConflict)
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to create category")
		http.Error(w, "Failed to create category", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, c)
}

func (h *CategoryHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categoryID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	existing, err := h.fetchOwned(w, r, categoryID, userID)
	if existing == nil || err != nil {
		return
	}

	var req UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	params := category.UpdateCategoryParams{
		Name:     req.Name,
		Color:    req.Color,
		Keywords: req.Keywords,
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := h.categoryRepo.Update(r.Context(), categoryID, params)
	if err != nil {
		switch {
		case errors.Is(err, category.ErrCategoryNotFound):
			http.Error(w, "Category not found", http.StatusNotFound)
		case errors.Is(err, category.ErrDuplicateName):
			http.Error(w, "Category name already exists", http.StatusConflict)
		default:
			logger.FromContext(r.Context()).Error().Err(err).Int64("category_id", categoryID).Msg("failed to update category")
			http.Error(w, "Failed to update category", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, c)
}

func (h *CategoryHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	categoryID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}

	existing, err := h.fetchOwned(w, r, categoryID, userID)
	if existing == nil || err != nil {
		return
	}

	if err := h.categoryRepo.Delete(r.Context(), categoryID); err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			http.Error(w, "Category not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error().Err(err).Int64("category_id", categoryID).Msg("failed to delete category")
		http.Error(w, "Failed to delete category", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fetchOwned loads a category and enforces ownership, writing the error
// response itself. Returns nil when the caller should stop.
func (h *CategoryHandler) fetchOwned(w http.ResponseWriter, r *http.Request, categoryID, userID int64) (*category.Category, error) {
	existing, err := h.categoryRepo.GetByID(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			http.Error(w, "Category not found", http.StatusNotFound)
			return nil, err
		}
		logger.FromContext(r.Context()).Error().Err(err).Int64("category_id", categoryID).Msg("failed to get category")
		http.Error(w, "Failed to get category", http.StatusInternalServerError)
		return nil, err
	}
	if existing.UserID != userID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, category.ErrForbidden
	}
	return existing, nil
}
