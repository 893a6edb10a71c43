package http

import (
	"net/http"

	"moneta/internal/domain/user"
	"moneta/internal/shared/logger"
	"moneta/internal/shared/middleware"
)

type UserHandler struct {
	userRepo user.Repository
}

func NewUserHandler(userRepo user.Repository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// HandleMe returns the authenticated user's profile
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserIDKey).(int64)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Int64("user_id", userID).Msg("failed to load user")
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, u)
}
