package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"moneta/internal/shared/config"
	"moneta/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handleHealth)

	// Public auth routes
	mux.HandleFunc("POST /api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)
	mux.HandleFunc("GET /api/auth/oauth/url", deps.AuthHandler.HandleAuthURL)
	mux.HandleFunc("GET /api/auth/oauth/callback", deps.AuthHandler.HandleCallback)

	// The aggregator redirects the user's browser here after the consent
	// flow, so this route cannot require a bearer token.
	mux.HandleFunc("GET /api/banks/callback", deps.BankHandler.HandleConsentCallback)

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(h))
	}

	protected("GET /api/users/me", deps.UserHandler.HandleMe)

	protected("GET /api/institutions", deps.BankHandler.HandleListInstitutions)
	protected("GET /api/banks", deps.BankHandler.HandleListBanks)
	protected("POST /api/banks", deps.BankHandler.HandleLinkBank)
	protected("GET /api/banks/{id}", deps.BankHandler.HandleGetBank)
	protected("DELETE /api/banks/{id}", deps.BankHandler.HandleDeleteBank)
	protected("POST /api/banks/{id}/sync", deps.BankHandler.HandleSyncBank)

	protected("GET /api/accounts", deps.AccountHandler.HandleListAccounts)
	protected("GET /api/accounts/{id}", deps.AccountHandler.HandleGetAccount)

	protected("/api/categories", deps.CategoryHandler.HandleCategories)
	protected("/api/categories/{id}", deps.CategoryHandler.HandleCategoryByID)

	protected("GET /api/transactions", deps.TransactionHandler.HandleListTransactions)
	protected("GET /api/transactions/suggestions", deps.TransactionHandler.HandleSuggestions)
	protected("POST /api/transactions/suggestions", deps.TransactionHandler.HandleApplySuggestions)
	protected("POST /api/transactions/categorize", deps.TransactionHandler.HandleBulkCategorize)
	protected("/api/transactions/{id}", deps.TransactionHandler.HandleTransactionByID)

	protected("POST /api/notifications/register-device", deps.NotificationHandler.HandleRegisterDevice)

	// Global middleware
	handler := middleware.Logging(log)(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(handler)
	}

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Info().Msg("TLS security middleware enabled")
	}

	return handler
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
