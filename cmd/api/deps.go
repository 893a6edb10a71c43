package main

import (
	"context"

	"github.com/rs/zerolog"

	"moneta/internal/domain/bank"
	"moneta/internal/domain/banksync"
	"moneta/internal/domain/notification"
	"moneta/internal/infrastructure/aggregator"
	"moneta/internal/infrastructure/firebase"
	"moneta/internal/infrastructure/postgres"
	httphandlers "moneta/internal/interfaces/http"
	"moneta/internal/shared/auth"
	"moneta/internal/shared/config"
	"moneta/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	AuthHandler         *httphandlers.AuthHandler
	UserHandler         *httphandlers.UserHandler
	BankHandler         *httphandlers.BankHandler
	AccountHandler      *httphandlers.AccountHandler
	CategoryHandler     *httphandlers.CategoryHandler
	TransactionHandler  *httphandlers.TransactionHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	JWT *auth.JWT

	// Background sync (for the scheduler)
	SyncService         *banksync.Service
	NotificationService *notification.Service
	UserRepo            *postgres.UserRepository
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Info().Msg("connected to database")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	bankRepo := postgres.NewBankRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Aggregator client and domain services
	aggClient := aggregator.NewClient(
		cfg.Aggregator.BaseURL,
		cfg.Aggregator.SecretID,
		cfg.Aggregator.SecretKey,
		cfg.Aggregator.RequestTimeout,
	)
	bankService := bank.NewService(bankRepo, aggClient, cfg.Aggregator.RedirectURL)
	syncService := banksync.NewService(bankService, aggClient, accountRepo, transactionRepo, categoryRepo, log)

	// Push notifications. Firebase is optional; without credentials the
	// notification service degrades to registration-only.
	texts, err := messages.Load(cfg.Firebase.MessagesFile)
	if err != nil {
		return nil, err
	}

	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcmClient, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, notificationRepo.DeactivateToken, log)
		if err != nil {
			log.Warn().Err(err).Msg("firebase init failed, push notifications disabled")
		} else {
			messenger = fcmClient
		}
	} else {
		log.Info().Msg("firebase not configured, push notifications disabled")
	}
	notificationService := notification.NewService(notificationRepo, messenger, texts, log)

	// Auth components
	jwt := auth.NewJWT(cfg.JWT.Secret)
	googleOAuth := auth.NewGoogleOAuthProvider(
		cfg.OAuth.Google.ClientID,
		cfg.OAuth.Google.ClientSecret,
		cfg.OAuth.Google.CallbackURL,
	)

	return &Dependencies{
		DB:                  db,
		AuthHandler:         httphandlers.NewAuthHandler(userRepo, googleOAuth, jwt),
		UserHandler:         httphandlers.NewUserHandler(userRepo),
		BankHandler:         httphandlers.NewBankHandler(bankService, syncService, cfg.Aggregator.Country),
		AccountHandler:      httphandlers.NewAccountHandler(accountRepo),
		CategoryHandler:     httphandlers.NewCategoryHandler(categoryRepo),
		TransactionHandler:  httphandlers.NewTransactionHandler(transactionRepo, categoryRepo),
		NotificationHandler: httphandlers.NewNotificationHandler(notificationService),
		JWT:                 jwt,
		SyncService:         syncService,
		NotificationService: notificationService,
		UserRepo:            userRepo,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
