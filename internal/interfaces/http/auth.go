package http

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"moneta/internal/domain/user"
	"moneta/internal/shared/auth"
	"moneta/internal/shared/logger"
)

type AuthHandler struct {
	userRepo      user.Repository
	oauthProvider auth.OAuthProvider
	jwt           *auth.JWT
}

func NewAuthHandler(userRepo user.Repository, oauthProvider auth.OAuthProvider, jwt *auth.JWT) *AuthHandler {
	return &AuthHandler{
		userRepo:      userRepo,
		oauthProvider: oauthProvider,
		jwt:           jwt,
	}
}

type AuthURLResponse struct {
	URL string `json:"url"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new user with password authentication
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		http.Error(w, "Email, password, and name are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	existing, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		http.Error(w, "User with this email already exists", http.StatusConflict)
		return
	}
	if err != nil && !errors.Is(err, user.ErrUserNotFound) {
		logger.FromContext(ctx).Error().Err(err).Msg("failed to check existing user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.FromContext(ctx).Error().Err(err).Msg("failed to hash password")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	userModel, err := h.userRepo.Create(ctx, user.CreateUserParams{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: &passwordHash,
	})
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("failed to create user")
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	token, err := h.jwt.Generate(userModel.ID, userModel.Email)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int64("user_id", userModel.ID).Msg("failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setAuthCookie(w, r, token)
	respondJSON(w, http.StatusCreated, AuthResponse{Token: token, User: userModel})
}

// HandleLogin authenticates a user with email and password
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	userModel, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if userModel.PasswordHash == nil {
		http.Error(w, "This account uses OAuth authentication. Please sign in with Google.", http.StatusBadRequest)
		return
	}

	if !auth.CheckPassword(req.Password, *userModel.PasswordHash) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.Generate(userModel.ID, userModel.Email)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setAuthCookie(w, r, token)
	respondJSON(w, http.StatusOK, AuthResponse{Token: token, User: userModel})
}

// HandleLogout clears the auth cookie
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	w.WriteHeader(http.StatusNoContent)
}

// HandleAuthURL generates the OAuth authorization URL
func (h *AuthHandler) HandleAuthURL(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		logger.FromContext(r.Context()).Error().Err(err).Msg("failed to generate OAuth state")
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, AuthURLResponse{URL: h.oauthProvider.GetAuthURL(state)})
}

// HandleCallback processes the OAuth callback. Sign-in is only allowed for
// emails that already exist; unknown emails are rejected rather than
// auto-registered. Name and avatar are refreshed from the provider.
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	oauthError := r.URL.Query().Get("error")

	if oauthError != "" {
		http.Error(w, fmt.Sprintf("OAuth error: %s", oauthError), http.StatusBadRequest)
		return
	}
	if code == "" {
		http.Error(w, "Code is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	token, err := h.oauthProvider.ExchangeCode(ctx, code)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("OAuth code exchange failed")
		http.Error(w, "Failed to exchange code", http.StatusBadRequest)
		return
	}

	userInfo, err := h.oauthProvider.GetUserInfo(ctx, token.AccessToken)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("OAuth user info fetch failed")
		http.Error(w, "Failed to get user info", http.StatusBadRequest)
		return
	}

	userModel, err := h.userRepo.GetByEmail(ctx, userInfo.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			http.Error(w, "This email is not authorized to sign in", http.StatusForbidden)
			return
		}
		logger.FromContext(ctx).Error().Err(err).Msg("failed to look up user")
		http.Error(w, "Sign-in failed", http.StatusInternalServerError)
		return
	}

	// Keep the profile in step with the identity provider.
	updateParams := user.UpdateProfileParams{}
	if userInfo.Name != "" && userInfo.Name != userModel.Name {
		updateParams.Name = &userInfo.Name
	}
	if userInfo.AvatarURL != "" {
		updateParams.AvatarURL = &userInfo.AvatarURL
	}
	if updateParams.Name != nil || updateParams.AvatarURL != nil {
		if updated, err := h.userRepo.UpdateProfile(ctx, userModel.ID, updateParams); err == nil {
			userModel = updated
		} else {
			logger.FromContext(ctx).Warn().Err(err).Int64("user_id", userModel.ID).Msg("profile refresh failed")
		}
	}

	jwtToken, err := h.jwt.Generate(userModel.ID, userModel.Email)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int64("user_id", userModel.ID).Msg("failed to generate token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	setAuthCookie(w, r, jwtToken)
	http.Redirect(w, r, "/oauth-callback", http.StatusFound)
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// setAuthCookie sets the JWT as an HttpOnly cookie
func setAuthCookie(w http.ResponseWriter, r *http.Request, token string) {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // matches JWT expiration
	})
}
